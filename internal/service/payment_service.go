package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/osinthub/search-api/internal/domain/apikey"
	domainpayment "github.com/osinthub/search-api/internal/domain/payment"
	"github.com/osinthub/search-api/internal/ierr"
	"github.com/osinthub/search-api/internal/payment"
	"github.com/osinthub/search-api/internal/util"
	"go.uber.org/zap"
)

// Processor is the external payment collaborator (PayPal order lifecycle).
type Processor interface {
	CreateOrder(ctx context.Context, amount float64, currency, description string, metadata payment.OrderMetadata) (string, error)
	CaptureOrder(ctx context.Context, orderID string) (*payment.CaptureResult, error)
}

type ProvisionedKey struct {
	KeyValue  string
	Plan      apikey.Plan
	ExpiresAt time.Time
}

type PaymentService struct {
	payments  domainpayment.Repository
	keys      apikey.Repository
	processor Processor
	wallet    string
	logger    *zap.Logger
	now       func() time.Time
}

func NewPaymentService(payments domainpayment.Repository, keys apikey.Repository, processor Processor, wallet string, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		payments:  payments,
		keys:      keys,
		processor: processor,
		wallet:    wallet,
		logger:    logger.Named("PaymentService"),
		now:       time.Now,
	}
}

// CreateOrder opens a processor order for the plan and records a pending
// payment keyed by the returned order id.
func (s *PaymentService) CreateOrder(ctx context.Context, principal *Principal, planName string, price float64) (string, error) {
	if principal == nil {
		return "", ierr.ErrUnauthenticated
	}

	plan, ok := apikey.ParsePlan(strings.ToLower(planName))
	if !ok {
		return "", fmt.Errorf("%w: unknown plan '%s'", ierr.ErrInvalidInput, planName)
	}
	if price <= 0 {
		return "", fmt.Errorf("%w: price must be positive", ierr.ErrInvalidInput)
	}
	if canonical := apikey.PlanPrices[plan]; price != canonical {
		s.logger.Warn("Order price differs from canonical plan price",
			zap.String("plan", string(plan)),
			zap.Float64("price", price),
			zap.Float64("canonical", canonical),
		)
	}

	metadata := payment.OrderMetadata{UserID: principal.ID.String(), Plan: string(plan)}
	description := fmt.Sprintf("OSINTHUB - Plan %s", strings.ToUpper(string(plan)))

	orderID, err := s.processor.CreateOrder(ctx, price, "USD", description, metadata)
	if err != nil {
		return "", err
	}

	p := &domainpayment.Payment{
		UserID:        principal.ID,
		Amount:        price,
		Plan:          string(plan),
		Method:        domainpayment.MethodPayPal,
		Status:        domainpayment.StatusPending,
		TransactionID: orderID,
		Currency:      "USD",
	}
	if _, err := s.payments.Create(ctx, p); err != nil {
		s.logger.Error("Failed to record pending payment", zap.String("order_id", orderID), zap.Error(err))
		return "", fmt.Errorf("%w: failed to record payment: %v", ierr.ErrInternalServer, err)
	}

	s.logger.Info("Order created",
		zap.String("user_id", principal.ID.String()),
		zap.String("plan", string(plan)),
		zap.String("order_id", orderID),
	)
	return orderID, nil
}

// CaptureOrder verifies settlement with the processor, completes the payment
// record, and provisions a fresh key. On any failure before confirmed
// settlement the payment stays pending so capture can be retried with the
// same order id.
func (s *PaymentService) CaptureOrder(ctx context.Context, principal *Principal, orderID string) (*ProvisionedKey, error) {
	if principal == nil {
		return nil, ierr.ErrUnauthenticated
	}
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ierr.ErrInvalidInput)
	}

	capture, err := s.processor.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if capture.Status != payment.StatusCompleted {
		s.logger.Warn("Capture did not settle", zap.String("order_id", orderID), zap.String("status", capture.Status))
		return nil, fmt.Errorf("%w: processor reported status %s", ierr.ErrPaymentNotCompleted, capture.Status)
	}

	plan := s.planFromMetadata(capture.CustomID)

	if err := s.payments.MarkCompleted(ctx, orderID); err != nil {
		if errors.Is(err, domainpayment.ErrAlreadySettled) {
			s.logger.Warn("Capture for an already settled payment", zap.String("order_id", orderID))
			return nil, fmt.Errorf("%w: order %s already settled", ierr.ErrPaymentNotCompleted, orderID)
		}
		if errors.Is(err, domainpayment.ErrNotFound) {
			return nil, ierr.ErrPaymentNotFound
		}
		s.logger.Error("Failed to complete payment record", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("%w: failed to complete payment: %v", ierr.ErrInternalServer, err)
	}

	return s.provisionKey(ctx, principal.ID, plan)
}

// planFromMetadata recovers the plan attached to the order. Missing or
// unparseable metadata falls back to the basic plan rather than failing the
// settlement.
func (s *PaymentService) planFromMetadata(customID string) apikey.Plan {
	if customID == "" {
		s.logger.Warn("Order metadata absent, using default plan")
		return apikey.PlanBasic
	}

	var metadata payment.OrderMetadata
	if err := json.Unmarshal([]byte(customID), &metadata); err != nil {
		s.logger.Warn("Could not parse order metadata, using default plan", zap.Error(err))
		return apikey.PlanBasic
	}

	plan, ok := apikey.ParsePlan(strings.ToLower(metadata.Plan))
	if !ok {
		s.logger.Warn("Order metadata names unknown plan, using default plan", zap.String("plan", metadata.Plan))
		return apikey.PlanBasic
	}
	return plan
}

// provisionKey deactivates any prior active key for the owner and creates a
// new active one with plan-derived quota and a one-month expiry, keeping the
// one-active-key-per-owner invariant.
func (s *PaymentService) provisionKey(ctx context.Context, userID uuid.UUID, plan apikey.Plan) (*ProvisionedKey, error) {
	keyValue, err := util.GenerateKeyValue()
	if err != nil {
		s.logger.Error("Failed to generate api key value", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ierr.ErrKeyProvisioningFailed, err)
	}

	deactivated, err := s.keys.DeactivateActiveByOwner(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to deactivate prior keys", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ierr.ErrKeyProvisioningFailed, err)
	}
	if deactivated > 0 {
		s.logger.Info("Deactivated prior active keys", zap.String("user_id", userID.String()), zap.Int64("count", deactivated))
	}

	expiresAt := s.now().AddDate(0, apikey.KeyValidity, 0)
	newKey := &apikey.APIKey{
		UserID:        userID,
		KeyValue:      keyValue,
		Plan:          plan,
		Status:        apikey.StatusActive,
		RequestsUsed:  0,
		RequestsLimit: apikey.PlanLimits[plan],
		ExpiresAt:     &expiresAt,
	}

	keyID, err := s.keys.Create(ctx, newKey)
	if err != nil {
		s.logger.Error("Failed to create api key", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ierr.ErrKeyProvisioningFailed, err)
	}

	s.logger.Info("API key provisioned",
		zap.String("key_id", keyID.String()),
		zap.String("user_id", userID.String()),
		zap.String("plan", string(plan)),
	)

	return &ProvisionedKey{KeyValue: keyValue, Plan: plan, ExpiresAt: expiresAt}, nil
}

// CreateManualPayment records a pending crypto-transfer payment. Settlement
// has no automated path; an operator confirms the transfer out-of-band via
// ConfirmManualPayment.
func (s *PaymentService) CreateManualPayment(ctx context.Context, principal *Principal, planName string) (string, string, error) {
	if principal == nil {
		return "", "", ierr.ErrUnauthenticated
	}

	plan, ok := apikey.ParsePlan(strings.ToLower(planName))
	if !ok {
		return "", "", fmt.Errorf("%w: unknown plan '%s'", ierr.ErrInvalidInput, planName)
	}

	reference := "transfer_" + uuid.NewString()
	p := &domainpayment.Payment{
		UserID:        principal.ID,
		Amount:        apikey.PlanPrices[plan],
		Plan:          string(plan),
		Method:        domainpayment.MethodCrypto,
		Status:        domainpayment.StatusPending,
		TransactionID: reference,
		Currency:      "USDT",
	}
	if _, err := s.payments.Create(ctx, p); err != nil {
		s.logger.Error("Failed to record manual payment", zap.Error(err))
		return "", "", fmt.Errorf("%w: failed to record payment: %v", ierr.ErrInternalServer, err)
	}

	s.logger.Info("Manual transfer payment recorded",
		zap.String("user_id", principal.ID.String()),
		zap.String("reference", reference),
	)
	return reference, s.wallet, nil
}

// ConfirmManualPayment is the operator action that completes a pending manual
// transfer and provisions the key, mirroring the processor capture path.
func (s *PaymentService) ConfirmManualPayment(ctx context.Context, transactionID string) (*ProvisionedKey, error) {
	p, err := s.payments.FindByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, domainpayment.ErrNotFound) {
			return nil, ierr.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("%w: payment lookup failed: %v", ierr.ErrInternalServer, err)
	}
	if p.Method != domainpayment.MethodCrypto {
		return nil, fmt.Errorf("%w: payment %s is not a manual transfer", ierr.ErrInvalidInput, transactionID)
	}

	if err := s.payments.MarkCompleted(ctx, transactionID); err != nil {
		if errors.Is(err, domainpayment.ErrAlreadySettled) {
			return nil, fmt.Errorf("%w: payment %s already settled", ierr.ErrPaymentNotCompleted, transactionID)
		}
		s.logger.Error("Failed to complete manual payment", zap.String("transaction_id", transactionID), zap.Error(err))
		return nil, fmt.Errorf("%w: failed to complete payment: %v", ierr.ErrInternalServer, err)
	}

	plan, ok := apikey.ParsePlan(strings.ToLower(p.Plan))
	if !ok {
		plan = apikey.PlanBasic
	}
	return s.provisionKey(ctx, p.UserID, plan)
}

// ListPayments returns the full payment history, for the operator surface.
func (s *PaymentService) ListPayments(ctx context.Context) ([]*domainpayment.Payment, error) {
	payments, err := s.payments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: payment listing failed: %v", ierr.ErrInternalServer, err)
	}
	return payments, nil
}

// SetNowFunc replaces the clock, for tests.
func (s *PaymentService) SetNowFunc(now func() time.Time) {
	s.now = now
}
