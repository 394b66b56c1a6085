package service

import (
	"context"
	"testing"
	"time"

	"github.com/osinthub/search-api/internal/config"
	"github.com/osinthub/search-api/internal/ierr"
	"github.com/osinthub/search-api/internal/storage/memstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAdminAuthFixture(t *testing.T, ttl time.Duration) *AdminAuthService {
	t.Helper()
	hash, err := memstorage.HashPassword("hunter2")
	require.NoError(t, err)

	users := memstorage.NewUserRepository("admin", hash)
	svc, err := NewAdminAuthService(users, &config.AdminConfig{JWTSecret: "test-secret", TokenTTL: ttl}, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestAdminAuthServiceLogin(t *testing.T) {
	t.Run("issues a token for valid credentials", func(t *testing.T) {
		svc := newAdminAuthFixture(t, time.Hour)

		token, err := svc.Login(context.Background(), "admin", "hunter2")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		username, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "admin", username)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := newAdminAuthFixture(t, time.Hour)
		_, err := svc.Login(context.Background(), "admin", "wrong")
		assert.ErrorIs(t, err, ierr.ErrInvalidCredentials)
	})

	t.Run("unknown username", func(t *testing.T) {
		svc := newAdminAuthFixture(t, time.Hour)
		_, err := svc.Login(context.Background(), "root", "hunter2")
		assert.ErrorIs(t, err, ierr.ErrInvalidCredentials)
	})

	t.Run("requires a secret", func(t *testing.T) {
		users := memstorage.NewUserRepository("admin", "")
		_, err := NewAdminAuthService(users, &config.AdminConfig{}, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestAdminAuthServiceValidateToken(t *testing.T) {
	t.Run("rejects a malformed token", func(t *testing.T) {
		svc := newAdminAuthFixture(t, time.Hour)
		_, err := svc.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ierr.ErrInvalidToken)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		issuer := newAdminAuthFixture(t, time.Hour)
		token, err := issuer.Login(context.Background(), "admin", "hunter2")
		require.NoError(t, err)

		hash, err := memstorage.HashPassword("hunter2")
		require.NoError(t, err)
		other, err := NewAdminAuthService(memstorage.NewUserRepository("admin", hash), &config.AdminConfig{JWTSecret: "other-secret"}, zap.NewNop())
		require.NoError(t, err)

		_, err = other.ValidateToken(token)
		assert.ErrorIs(t, err, ierr.ErrInvalidToken)
	})

	t.Run("rejects an unsigned token", func(t *testing.T) {
		svc := newAdminAuthFixture(t, time.Hour)
		_, err := svc.ValidateToken("eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJyb2xlIjoiYWRtaW4ifQ.")
		assert.ErrorIs(t, err, ierr.ErrInvalidToken)
	})
}
