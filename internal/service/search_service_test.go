package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/osinthub/search-api/internal/domain/apikey"
	"github.com/osinthub/search-api/internal/domain/searchlog"
	"github.com/osinthub/search-api/internal/ierr"
	"github.com/osinthub/search-api/internal/search"
	"github.com/osinthub/search-api/internal/storage/memstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEngine struct {
	hits  []search.Hit
	total int64
	err   error

	mu    sync.Mutex
	calls int
}

func (e *stubEngine) Search(ctx context.Context, query, index string) ([]search.Hit, int64, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, 0, e.err
	}
	return e.hits, e.total, nil
}

func seedKey(t *testing.T, repo *memstorage.APIKeyRepository, userID uuid.UUID, used, limit int, expiresAt *time.Time) uuid.UUID {
	t.Helper()
	id, err := repo.Create(context.Background(), &apikey.APIKey{
		UserID:        userID,
		KeyValue:      "osint_testkeytestkeytestkeytestke",
		Plan:          apikey.PlanBasic,
		Status:        apikey.StatusActive,
		RequestsUsed:  used,
		RequestsLimit: limit,
		ExpiresAt:     expiresAt,
	})
	require.NoError(t, err)
	return id
}

func TestSearchServiceAuthorize(t *testing.T) {
	logger := zap.NewNop()

	t.Run("nil principal", func(t *testing.T) {
		svc := NewSearchService(memstorage.NewAPIKeyRepository(), memstorage.NewSearchLogRepository(), &stubEngine{}, logger)
		_, err := svc.Authorize(context.Background(), nil)
		assert.ErrorIs(t, err, ierr.ErrUnauthenticated)
	})

	t.Run("no active key", func(t *testing.T) {
		svc := NewSearchService(memstorage.NewAPIKeyRepository(), memstorage.NewSearchLogRepository(), &stubEngine{}, logger)
		_, err := svc.Authorize(context.Background(), &Principal{ID: uuid.New()})
		assert.ErrorIs(t, err, ierr.ErrNoActiveKey)
	})

	t.Run("expired key", func(t *testing.T) {
		keys := memstorage.NewAPIKeyRepository()
		userID := uuid.New()
		expired := time.Now().Add(-time.Hour)
		seedKey(t, keys, userID, 0, 100, &expired)

		svc := NewSearchService(keys, memstorage.NewSearchLogRepository(), &stubEngine{}, logger)
		_, err := svc.Authorize(context.Background(), &Principal{ID: userID})
		assert.ErrorIs(t, err, ierr.ErrKeyExpired)
	})

	t.Run("quota exhausted", func(t *testing.T) {
		keys := memstorage.NewAPIKeyRepository()
		userID := uuid.New()
		seedKey(t, keys, userID, 100, 100, nil)

		svc := NewSearchService(keys, memstorage.NewSearchLogRepository(), &stubEngine{}, logger)
		_, err := svc.Authorize(context.Background(), &Principal{ID: userID})
		assert.ErrorIs(t, err, ierr.ErrQuotaExceeded)
	})

	t.Run("usable key", func(t *testing.T) {
		keys := memstorage.NewAPIKeyRepository()
		userID := uuid.New()
		keyID := seedKey(t, keys, userID, 99, 100, nil)

		svc := NewSearchService(keys, memstorage.NewSearchLogRepository(), &stubEngine{}, logger)
		key, err := svc.Authorize(context.Background(), &Principal{ID: userID})
		require.NoError(t, err)
		assert.Equal(t, keyID, key.ID)
	})
}

func TestSearchServiceSearch(t *testing.T) {
	logger := zap.NewNop()
	hits := []search.Hit{{ID: "doc-1", Index: "leaks", Score: 1.0}}

	t.Run("empty query", func(t *testing.T) {
		svc := NewSearchService(memstorage.NewAPIKeyRepository(), memstorage.NewSearchLogRepository(), &stubEngine{}, logger)
		_, err := svc.Search(context.Background(), &Principal{ID: uuid.New()}, "", "")
		assert.ErrorIs(t, err, ierr.ErrInvalidInput)
	})

	t.Run("meters usage and appends the audit entry", func(t *testing.T) {
		keys := memstorage.NewAPIKeyRepository()
		logs := memstorage.NewSearchLogRepository()
		userID := uuid.New()
		keyID := seedKey(t, keys, userID, 10, 100, nil)

		svc := NewSearchService(keys, logs, &stubEngine{hits: hits, total: 1}, logger)
		result, err := svc.Search(context.Background(), &Principal{ID: userID}, "alice", "")
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)
		assert.Equal(t, 100-11, result.Remaining)

		stored, err := keys.FindByID(context.Background(), keyID)
		require.NoError(t, err)
		assert.Equal(t, 11, stored.RequestsUsed)

		entries, err := logs.ListByOwner(context.Background(), userID, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "alice", entries[0].Query)
		assert.Equal(t, 1, entries[0].ResultsCount)
	})

	t.Run("failed forward consumes no quota", func(t *testing.T) {
		keys := memstorage.NewAPIKeyRepository()
		logs := memstorage.NewSearchLogRepository()
		userID := uuid.New()
		keyID := seedKey(t, keys, userID, 0, 100, nil)

		engine := &stubEngine{err: ierr.ErrEngineUnreachable}
		svc := NewSearchService(keys, logs, engine, logger)

		for i := 0; i < 100; i++ {
			_, err := svc.Search(context.Background(), &Principal{ID: userID}, "alice", "")
			assert.ErrorIs(t, err, ierr.ErrEngineUnreachable)
		}

		stored, err := keys.FindByID(context.Background(), keyID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.RequestsUsed)
		assert.Equal(t, 0, logs.Count())
	})

	t.Run("rejected search does not call the engine", func(t *testing.T) {
		keys := memstorage.NewAPIKeyRepository()
		userID := uuid.New()
		seedKey(t, keys, userID, 100, 100, nil)

		engine := &stubEngine{hits: hits, total: 1}
		svc := NewSearchService(keys, memstorage.NewSearchLogRepository(), engine, logger)

		_, err := svc.Search(context.Background(), &Principal{ID: userID}, "alice", "")
		assert.ErrorIs(t, err, ierr.ErrQuotaExceeded)
		assert.Equal(t, 0, engine.calls)
	})

	t.Run("concurrent searches each consume exactly one request", func(t *testing.T) {
		const n = 50
		keys := memstorage.NewAPIKeyRepository()
		logs := memstorage.NewSearchLogRepository()
		userID := uuid.New()
		keyID := seedKey(t, keys, userID, 0, 1000, nil)

		svc := NewSearchService(keys, logs, &stubEngine{hits: hits, total: 1}, logger)

		var wg sync.WaitGroup
		var mu sync.Mutex
		minRemaining := 1000
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := svc.Search(context.Background(), &Principal{ID: userID}, "alice", "")
				if err != nil {
					return
				}
				mu.Lock()
				if result.Remaining < minRemaining {
					minRemaining = result.Remaining
				}
				mu.Unlock()
			}()
		}
		wg.Wait()

		stored, err := keys.FindByID(context.Background(), keyID)
		require.NoError(t, err)
		assert.Equal(t, n, stored.RequestsUsed)
		assert.Equal(t, 1000-n, minRemaining)
		assert.Equal(t, n, logs.Count())
	})
}

func TestSearchServiceHistory(t *testing.T) {
	logger := zap.NewNop()

	t.Run("nil principal", func(t *testing.T) {
		svc := NewSearchService(memstorage.NewAPIKeyRepository(), memstorage.NewSearchLogRepository(), &stubEngine{}, logger)
		_, err := svc.History(context.Background(), nil, 10)
		assert.ErrorIs(t, err, ierr.ErrUnauthenticated)
	})

	t.Run("returns newest entries first", func(t *testing.T) {
		keys := memstorage.NewAPIKeyRepository()
		logs := memstorage.NewSearchLogRepository()
		userID := uuid.New()
		seedKey(t, keys, userID, 0, 100, nil)

		svc := NewSearchService(keys, logs, &stubEngine{}, logger)
		for _, q := range []string{"first", "second", "third"} {
			_, err := svc.Search(context.Background(), &Principal{ID: userID}, q, "")
			require.NoError(t, err)
		}

		entries, err := svc.History(context.Background(), &Principal{ID: userID}, 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "third", entries[0].Query)
		assert.Equal(t, "second", entries[1].Query)
	})

	t.Run("repository failure wraps as internal", func(t *testing.T) {
		svc := NewSearchService(memstorage.NewAPIKeyRepository(), failingLogRepo{}, &stubEngine{}, logger)
		_, err := svc.History(context.Background(), &Principal{ID: uuid.New()}, 10)
		assert.ErrorIs(t, err, ierr.ErrInternalServer)
	})
}

type failingLogRepo struct{}

func (failingLogRepo) Append(ctx context.Context, entry *searchlog.Entry) error { return nil }

func (failingLogRepo) ListByOwner(ctx context.Context, userID uuid.UUID, limit int) ([]*searchlog.Entry, error) {
	return nil, errors.New("store offline")
}
