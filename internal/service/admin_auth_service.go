package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/osinthub/search-api/internal/config"
	"github.com/osinthub/search-api/internal/domain/user"
	"github.com/osinthub/search-api/internal/ierr"
	"github.com/osinthub/search-api/internal/storage/memstorage"
	"go.uber.org/zap"
)

// AdminAuthService issues and validates short-lived HS256 tokens for the
// operator endpoints (manual settlement confirmation, key administration).
type AdminAuthService struct {
	users    user.Repository
	secret   []byte
	tokenTTL time.Duration
	logger   *zap.Logger
}

type adminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func NewAdminAuthService(users user.Repository, cfg *config.AdminConfig, logger *zap.Logger) (*AdminAuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("admin JWT secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AdminAuthService{
		users:    users,
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: ttl,
		logger:   logger.Named("AdminAuthService"),
	}, nil
}

func (s *AdminAuthService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ierr.ErrUserNotFound) {
			return "", ierr.ErrInvalidCredentials
		}
		return "", fmt.Errorf("user lookup failed: %w", err)
	}

	if !memstorage.CheckPassword(u.PasswordHash, password) {
		s.logger.Info("Invalid admin login attempt", zap.String("username", username))
		return "", ierr.ErrInvalidCredentials
	}

	now := time.Now()
	claims := adminClaims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		s.logger.Error("Failed to sign admin token", zap.Error(err))
		return "", fmt.Errorf("%w: failed to sign token", ierr.ErrInternalServer)
	}

	s.logger.Info("Admin logged in", zap.String("username", u.Username))
	return signed, nil
}

func (s *AdminAuthService) ValidateToken(rawToken string) (string, error) {
	var claims adminClaims
	token, err := jwt.ParseWithClaims(rawToken, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		s.logger.Warn("Admin token validation failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ierr.ErrInvalidToken, err)
	}
	if claims.Role != "admin" {
		return "", ierr.ErrInvalidToken
	}
	return claims.Username, nil
}
