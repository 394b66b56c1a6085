package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/osinthub/search-api/internal/domain/apikey"
	"github.com/osinthub/search-api/internal/domain/searchlog"
	"github.com/osinthub/search-api/internal/ierr"
	"github.com/osinthub/search-api/internal/search"
	"go.uber.org/zap"
)

// Engine is the downstream full-text search collaborator.
type Engine interface {
	Search(ctx context.Context, query, index string) ([]search.Hit, int64, error)
}

type SearchResult struct {
	Hits      []search.Hit
	Total     int64
	Remaining int
}

type SearchService struct {
	keys   apikey.Repository
	logs   searchlog.Repository
	engine Engine
	logger *zap.Logger
	now    func() time.Time
}

func NewSearchService(keys apikey.Repository, logs searchlog.Repository, engine Engine, logger *zap.Logger) *SearchService {
	return &SearchService{
		keys:   keys,
		logs:   logs,
		engine: engine,
		logger: logger.Named("SearchService"),
		now:    time.Now,
	}
}

// Authorize resolves the principal's current key record and evaluates it in
// order: active key exists, not expired, quota remaining. Each step fails with
// its own sentinel. The returned snapshot is the one the subsequent metering
// must use.
func (s *SearchService) Authorize(ctx context.Context, principal *Principal) (*apikey.APIKey, error) {
	if principal == nil {
		return nil, ierr.ErrUnauthenticated
	}

	key, err := s.keys.FindActiveByOwner(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, apikey.ErrNotFound) {
			s.logger.Debug("No active API key for principal", zap.String("user_id", principal.ID.String()))
			return nil, ierr.ErrNoActiveKey
		}
		s.logger.Error("Failed to resolve api key", zap.String("user_id", principal.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: key lookup failed: %v", ierr.ErrInternalServer, err)
	}

	if key.IsExpired(s.now()) {
		s.logger.Info("API key expired", zap.String("key_id", key.ID.String()), zap.Timep("expires_at", key.ExpiresAt))
		return nil, ierr.ErrKeyExpired
	}

	if key.QuotaExhausted() {
		s.logger.Info("API key quota exhausted",
			zap.String("key_id", key.ID.String()),
			zap.Int("used", key.RequestsUsed),
			zap.Int("limit", key.RequestsLimit),
		)
		return nil, ierr.ErrQuotaExceeded
	}

	return key, nil
}

// Search runs the full guarded flow: authorize, forward to the engine, then
// meter usage and append the audit entry. A failed forward never consumes
// quota.
func (s *SearchService) Search(ctx context.Context, principal *Principal, query, index string) (*SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ierr.ErrInvalidInput)
	}

	key, err := s.Authorize(ctx, principal)
	if err != nil {
		return nil, err
	}

	hits, total, err := s.engine.Search(ctx, query, index)
	if err != nil {
		return nil, err
	}

	remaining, err := s.recordUsage(ctx, key, principal, query, len(hits))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Search completed",
		zap.String("user_id", principal.ID.String()),
		zap.Int("results", len(hits)),
		zap.Int("remaining", remaining),
	)

	return &SearchResult{Hits: hits, Total: total, Remaining: remaining}, nil
}

// recordUsage increments the key's consumed counter by exactly one via the
// repository's atomic update and appends one audit entry. It runs with the
// service's own store privilege, not any caller-scoped credential.
func (s *SearchService) recordUsage(ctx context.Context, key *apikey.APIKey, principal *Principal, query string, resultCount int) (int, error) {
	usedAfter, err := s.keys.IncrementUsage(ctx, key.ID)
	if err != nil {
		s.logger.Error("Failed to increment api key usage", zap.String("key_id", key.ID.String()), zap.Error(err))
		return 0, fmt.Errorf("%w: usage metering failed: %v", ierr.ErrInternalServer, err)
	}

	entry := &searchlog.Entry{
		UserID:       principal.ID,
		Query:        query,
		ResultsCount: resultCount,
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		// The quota was already consumed; losing one audit row is preferable
		// to double-charging the caller with a retry.
		s.logger.Error("Failed to append search audit entry", zap.String("user_id", principal.ID.String()), zap.Error(err))
	}

	return key.RequestsLimit - usedAfter, nil
}

// History returns the principal's recent audit entries.
func (s *SearchService) History(ctx context.Context, principal *Principal, limit int) ([]*searchlog.Entry, error) {
	if principal == nil {
		return nil, ierr.ErrUnauthenticated
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	entries, err := s.logs.ListByOwner(ctx, principal.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: history lookup failed: %v", ierr.ErrInternalServer, err)
	}
	return entries, nil
}

// SetNowFunc replaces the clock, for tests.
func (s *SearchService) SetNowFunc(now func() time.Time) {
	s.now = now
}
