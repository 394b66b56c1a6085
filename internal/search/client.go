package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/osinthub/search-api/internal/config"
	"github.com/osinthub/search-api/internal/ierr"
	"go.uber.org/zap"
)

const (
	defaultIndex = "_all"
	pageSize     = 100
)

// Hit is one engine result normalized to the shape returned to callers.
type Hit struct {
	ID     string          `json:"id"`
	Index  string          `json:"index"`
	Score  float64         `json:"score"`
	Source json.RawMessage `json:"data"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg *config.ElasticsearchConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("SearchClient"),
	}
}

// Search forwards the query to the engine. The primary request uses a tolerant
// wildcard query_string; on a non-success engine response exactly one fallback
// with a phrase-prefix multi_match is attempted before giving up. This is not
// a generic retry policy.
func (c *Client) Search(ctx context.Context, query, index string) ([]Hit, int64, error) {
	if c.baseURL == "" {
		c.logger.Error("Search engine URL not configured")
		return nil, 0, ierr.ErrEngineMisconfigured
	}

	if index == "" {
		index = defaultIndex
	}
	searchURL := fmt.Sprintf("%s/%s/_search", c.baseURL, index)

	primary := map[string]interface{}{
		"query": map[string]interface{}{
			"query_string": map[string]interface{}{
				"query":            "*" + query + "*",
				"default_operator": "OR",
				"analyze_wildcard": true,
			},
		},
		"size": pageSize,
	}

	hits, total, status, err := c.execute(ctx, searchURL, primary)
	if err != nil {
		return nil, 0, err
	}
	if status == 0 {
		return hits, total, nil
	}

	c.logger.Warn("Primary engine query rejected, trying alternative query format",
		zap.Int("status", status),
		zap.String("index", index),
	)

	fallback := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"*"},
				"type":   "phrase_prefix",
			},
		},
		"size": pageSize,
	}

	hits, total, status, err = c.execute(ctx, searchURL, fallback)
	if err != nil {
		return nil, 0, err
	}
	if status != 0 {
		c.logger.Error("Alternative engine query also rejected", zap.Int("status", status))
		return nil, 0, fmt.Errorf("%w: engine returned status %d", ierr.ErrEngineRejected, status)
	}
	return hits, total, nil
}

// execute issues one engine request. A non-2xx engine response is reported via
// the returned status code with a nil error so the caller can decide whether a
// fallback is still available.
func (c *Client) execute(ctx context.Context, url string, body map[string]interface{}) ([]Hit, int64, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: failed to encode engine query: %v", ierr.ErrInternalServer, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: failed to build engine request: %v", ierr.ErrInternalServer, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "ApiKey "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Engine request failed", zap.String("url", url), zap.Error(err))
		return nil, 0, 0, fmt.Errorf("%w: %v", ierr.ErrEngineUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorText, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Debug("Engine returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", errorText),
		)
		return nil, 0, resp.StatusCode, nil
	}

	var esResp struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string          `json:"_id"`
				Index  string          `json:"_index"`
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&esResp); err != nil {
		c.logger.Error("Failed to decode engine response", zap.Error(err))
		return nil, 0, 0, fmt.Errorf("%w: malformed engine response: %v", ierr.ErrEngineRejected, err)
	}

	hits := make([]Hit, len(esResp.Hits.Hits))
	for i, h := range esResp.Hits.Hits {
		hits[i] = Hit{
			ID:     h.ID,
			Index:  h.Index,
			Score:  h.Score,
			Source: h.Source,
		}
	}

	total := esResp.Hits.Total.Value
	if total == 0 {
		total = int64(len(hits))
	}
	return hits, total, 0, nil
}
