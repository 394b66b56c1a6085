package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/osinthub/search-api/internal/domain/apikey"
	"github.com/osinthub/search-api/internal/ierr"
	"github.com/osinthub/search-api/internal/storage/memstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAPIKeyServiceCurrentKey(t *testing.T) {
	logger := zap.NewNop()

	t.Run("nil principal", func(t *testing.T) {
		svc := NewAPIKeyService(memstorage.NewAPIKeyRepository(), logger)
		_, _, err := svc.CurrentKey(context.Background(), nil)
		assert.ErrorIs(t, err, ierr.ErrUnauthenticated)
	})

	t.Run("no key yet", func(t *testing.T) {
		svc := NewAPIKeyService(memstorage.NewAPIKeyRepository(), logger)
		key, usable, err := svc.CurrentKey(context.Background(), &Principal{ID: uuid.New()})
		require.NoError(t, err)
		assert.Nil(t, key)
		assert.False(t, usable)
	})

	t.Run("reports an expired key as not usable", func(t *testing.T) {
		keys := memstorage.NewAPIKeyRepository()
		userID := uuid.New()
		expired := time.Now().Add(-time.Hour)
		seedKey(t, keys, userID, 0, 100, &expired)

		svc := NewAPIKeyService(keys, logger)
		key, usable, err := svc.CurrentKey(context.Background(), &Principal{ID: userID})
		require.NoError(t, err)
		require.NotNil(t, key)
		assert.False(t, usable)
	})

	t.Run("reports an active in-quota key as usable", func(t *testing.T) {
		keys := memstorage.NewAPIKeyRepository()
		userID := uuid.New()
		seedKey(t, keys, userID, 50, 100, nil)

		svc := NewAPIKeyService(keys, logger)
		key, usable, err := svc.CurrentKey(context.Background(), &Principal{ID: userID})
		require.NoError(t, err)
		require.NotNil(t, key)
		assert.True(t, usable)
	})
}

func TestAPIKeyServiceGrantKey(t *testing.T) {
	logger := zap.NewNop()

	t.Run("unknown plan", func(t *testing.T) {
		svc := NewAPIKeyService(memstorage.NewAPIKeyRepository(), logger)
		_, err := svc.GrantKey(context.Background(), uuid.New(), "platinum")
		assert.ErrorIs(t, err, ierr.ErrInvalidInput)
	})

	t.Run("provisions an active key and supersedes the old one", func(t *testing.T) {
		keys := memstorage.NewAPIKeyRepository()
		userID := uuid.New()
		oldKeyID := seedKey(t, keys, userID, 10, 100, nil)

		svc := NewAPIKeyService(keys, logger)
		now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		svc.SetNowFunc(func() time.Time { return now })

		granted, err := svc.GrantKey(context.Background(), userID, "pro")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(granted.KeyValue, apikey.KeyValuePrefix))
		assert.Equal(t, apikey.StatusActive, granted.Status)
		assert.Equal(t, 1000, granted.RequestsLimit)
		require.NotNil(t, granted.ExpiresAt)
		assert.Equal(t, now.AddDate(0, 1, 0), *granted.ExpiresAt)

		oldKey, err := keys.FindByID(context.Background(), oldKeyID)
		require.NoError(t, err)
		assert.Equal(t, apikey.StatusInactive, oldKey.Status)
	})
}

func TestAPIKeyServiceUpdateStatus(t *testing.T) {
	logger := zap.NewNop()

	t.Run("unknown key", func(t *testing.T) {
		svc := NewAPIKeyService(memstorage.NewAPIKeyRepository(), logger)
		err := svc.UpdateStatus(context.Background(), uuid.New(), apikey.StatusInactive)
		assert.ErrorIs(t, err, apikey.ErrNotFound)
	})

	t.Run("deactivation", func(t *testing.T) {
		keys := memstorage.NewAPIKeyRepository()
		userID := uuid.New()
		keyID := seedKey(t, keys, userID, 0, 100, nil)

		svc := NewAPIKeyService(keys, logger)
		require.NoError(t, svc.UpdateStatus(context.Background(), keyID, apikey.StatusInactive))

		key, err := keys.FindByID(context.Background(), keyID)
		require.NoError(t, err)
		assert.Equal(t, apikey.StatusInactive, key.Status)
	})

	t.Run("activation keeps at most one key active", func(t *testing.T) {
		keys := memstorage.NewAPIKeyRepository()
		userID := uuid.New()
		firstID := seedKey(t, keys, userID, 0, 100, nil)

		secondID, err := keys.Create(context.Background(), &apikey.APIKey{
			UserID:        userID,
			Plan:          apikey.PlanPro,
			Status:        apikey.StatusInactive,
			RequestsLimit: 1000,
		})
		require.NoError(t, err)

		svc := NewAPIKeyService(keys, logger)
		require.NoError(t, svc.UpdateStatus(context.Background(), secondID, apikey.StatusActive))

		first, err := keys.FindByID(context.Background(), firstID)
		require.NoError(t, err)
		assert.Equal(t, apikey.StatusInactive, first.Status)

		second, err := keys.FindByID(context.Background(), secondID)
		require.NoError(t, err)
		assert.Equal(t, apikey.StatusActive, second.Status)
	})
}
