package service

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/osinthub/search-api/internal/config"
	"github.com/osinthub/search-api/internal/ierr"
	"go.uber.org/zap"
)

// Principal is the authenticated identity resolved from a bearer credential.
// The identity provider owns the account records; this service only reads the
// verified claims.
type Principal struct {
	ID    uuid.UUID
	Email string
}

// TokenVerifier resolves a raw bearer token to a Principal.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, rawToken string) (*Principal, error)
}

type AuthService struct {
	keySet   oidc.KeySet
	logger   *zap.Logger
	issuer   string
	clientID string
}

var _ TokenVerifier = (*AuthService)(nil)

func NewAuthService(ctx context.Context, cfg *config.OIDCConfig, logger *zap.Logger) (*AuthService, error) {
	log := logger.Named("AuthService")
	if cfg.IssuerURL == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("OIDC IssuerURL and ClientID are required")
	}

	log.Info("Initializing OIDC provider", zap.String("issuer", cfg.IssuerURL))
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		log.Error("Failed to create OIDC provider", zap.String("issuer", cfg.IssuerURL), zap.Error(err))
		return nil, fmt.Errorf("oidc provider setup failed: %w", err)
	}

	var discoveryClaims struct {
		JWKSURI string `json:"jwks_uri"`
		Issuer  string `json:"issuer"`
	}
	if err := provider.Claims(&discoveryClaims); err != nil {
		log.Error("Failed to get discovery claims", zap.Error(err))
		return nil, fmt.Errorf("failed to get OIDC discovery claims: %w", err)
	}

	log.Info("Creating OIDC keyset from JWKS URI", zap.String("jwks_uri", discoveryClaims.JWKSURI))
	keySet := oidc.NewRemoteKeySet(ctx, discoveryClaims.JWKSURI)

	return &AuthService{
		keySet:   keySet,
		logger:   log,
		issuer:   discoveryClaims.Issuer,
		clientID: cfg.ClientID,
	}, nil
}

func (s *AuthService) VerifyToken(ctx context.Context, rawToken string) (*Principal, error) {
	s.logger.Debug("Validating bearer token against identity provider keyset")

	verifier := oidc.NewVerifier(s.issuer, s.keySet, &oidc.Config{
		ClientID: s.clientID,
	})

	token, err := verifier.Verify(ctx, rawToken)
	if err != nil {
		s.logger.Warn("Failed to verify bearer token", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ierr.ErrInvalidToken, err)
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		s.logger.Error("Failed to extract claims from bearer token", zap.Error(err))
		return nil, fmt.Errorf("%w: could not unmarshal token claims: %v", ierr.ErrInvalidToken, err)
	}

	subjectID, err := uuid.Parse(token.Subject)
	if err != nil {
		s.logger.Warn("Token subject is not a valid principal id", zap.String("subject", token.Subject))
		return nil, fmt.Errorf("%w: token subject is not a valid principal id", ierr.ErrInvalidToken)
	}

	s.logger.Debug("Bearer token validated", zap.String("subject", token.Subject))
	return &Principal{ID: subjectID, Email: claims.Email}, nil
}
