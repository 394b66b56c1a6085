package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/osinthub/search-api/internal/config"
	"github.com/osinthub/search-api/internal/ierr"
	"go.uber.org/zap"
)

const (
	sandboxAPIURL = "https://api-m.sandbox.paypal.com"
	liveAPIURL    = "https://api-m.paypal.com"

	// StatusCompleted is the processor status that indicates full settlement.
	StatusCompleted = "COMPLETED"
)

// PayPalClient drives the processor's order lifecycle: OAuth token, order
// creation with opaque custom_id metadata, and capture.
type PayPalClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client
	logger       *zap.Logger
}

func NewPayPalClient(cfg *config.PayPalConfig, logger *zap.Logger) *PayPalClient {
	baseURL := sandboxAPIURL
	if strings.EqualFold(cfg.Mode, "live") {
		baseURL = liveAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PayPalClient{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger.Named("PayPalClient"),
	}
}

// SetBaseURL overrides the processor endpoint, for tests against httptest.
func (c *PayPalClient) SetBaseURL(url string) {
	c.baseURL = url
}

type OrderMetadata struct {
	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
}

type CaptureResult struct {
	Status   string
	CustomID string
}

func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		c.logger.Error("PayPal credentials not configured")
		return "", fmt.Errorf("%w: processor credentials not configured", ierr.ErrProcessorAuthFailed)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("%w: failed to build token request: %v", ierr.ErrInternalServer, err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("PayPal token request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ierr.ErrProcessorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorText, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("PayPal authentication rejected", zap.Int("status", resp.StatusCode), zap.ByteString("body", errorText))
		return "", fmt.Errorf("%w: processor returned status %d", ierr.ErrProcessorAuthFailed, resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("%w: malformed token response: %v", ierr.ErrProcessorUnavailable, err)
	}
	return tokenResp.AccessToken, nil
}

// CreateOrder creates a CAPTURE-intent order for the given amount, attaching
// the metadata as the purchase unit's custom_id. Returns the processor order id.
func (c *PayPalClient) CreateOrder(ctx context.Context, amount float64, currency, description string, metadata OrderMetadata) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	customID, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode order metadata: %v", ierr.ErrInternalServer, err)
	}

	orderBody := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": map[string]string{
					"currency_code": currency,
					"value":         fmt.Sprintf("%.2f", amount),
				},
				"description": description,
				"custom_id":   string(customID),
			},
		},
		"application_context": map[string]string{
			"brand_name":   "OSINTHUB",
			"landing_page": "NO_PREFERENCE",
			"user_action":  "PAY_NOW",
		},
	}
	payload, err := json.Marshal(orderBody)
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode order: %v", ierr.ErrInternalServer, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/checkout/orders", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: failed to build order request: %v", ierr.ErrInternalServer, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("PayPal order creation request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ierr.ErrProcessorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorText, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("PayPal order creation rejected", zap.Int("status", resp.StatusCode), zap.ByteString("body", errorText))
		return "", fmt.Errorf("%w: order creation returned status %d", ierr.ErrProcessorUnavailable, resp.StatusCode)
	}

	var orderResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return "", fmt.Errorf("%w: malformed order response: %v", ierr.ErrProcessorUnavailable, err)
	}

	c.logger.Info("PayPal order created", zap.String("order_id", orderResp.ID))
	return orderResp.ID, nil
}

// CaptureOrder asks the processor to capture the named order and returns the
// reported status plus the custom_id metadata attached at creation time. The
// capture-level custom_id wins over the purchase-unit-level one.
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build capture request: %v", ierr.ErrInternalServer, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("PayPal capture request failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ierr.ErrProcessorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorText, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("PayPal capture rejected",
			zap.String("order_id", orderID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", errorText),
		)
		return nil, fmt.Errorf("%w: capture returned status %d", ierr.ErrOrderCaptureRejected, resp.StatusCode)
	}

	var captureResp struct {
		Status        string `json:"status"`
		PurchaseUnits []struct {
			CustomID string `json:"custom_id"`
			Payments struct {
				Captures []struct {
					CustomID string `json:"custom_id"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&captureResp); err != nil {
		return nil, fmt.Errorf("%w: malformed capture response: %v", ierr.ErrProcessorUnavailable, err)
	}

	result := &CaptureResult{Status: captureResp.Status}
	if len(captureResp.PurchaseUnits) > 0 {
		unit := captureResp.PurchaseUnits[0]
		if len(unit.Payments.Captures) > 0 && unit.Payments.Captures[0].CustomID != "" {
			result.CustomID = unit.Payments.Captures[0].CustomID
		} else {
			result.CustomID = unit.CustomID
		}
	}

	c.logger.Info("PayPal capture completed", zap.String("order_id", orderID), zap.String("status", result.Status))
	return result, nil
}
