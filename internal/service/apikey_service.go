package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/osinthub/search-api/internal/domain/apikey"
	"github.com/osinthub/search-api/internal/ierr"
	"github.com/osinthub/search-api/internal/util"
	"go.uber.org/zap"
)

type APIKeyService struct {
	keys   apikey.Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewAPIKeyService(keys apikey.Repository, logger *zap.Logger) *APIKeyService {
	return &APIKeyService{
		keys:   keys,
		logger: logger.Named("APIKeyService"),
		now:    time.Now,
	}
}

// CurrentKey returns the principal's latest key record for the dashboard,
// along with whether it currently grants search access.
func (s *APIKeyService) CurrentKey(ctx context.Context, principal *Principal) (*apikey.APIKey, bool, error) {
	if principal == nil {
		return nil, false, ierr.ErrUnauthenticated
	}

	key, err := s.keys.FindLatestByOwner(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, apikey.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: key lookup failed: %v", ierr.ErrInternalServer, err)
	}

	return key, key.IsUsable(s.now()), nil
}

// GrantKey is the operator path that provisions an active key directly,
// without a payment. Any prior active key for the user is superseded.
func (s *APIKeyService) GrantKey(ctx context.Context, userID uuid.UUID, planName string) (*apikey.APIKey, error) {
	plan, ok := apikey.ParsePlan(strings.ToLower(planName))
	if !ok {
		return nil, fmt.Errorf("%w: unknown plan '%s'", ierr.ErrInvalidInput, planName)
	}

	keyValue, err := util.GenerateKeyValue()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ierr.ErrKeyProvisioningFailed, err)
	}

	if _, err := s.keys.DeactivateActiveByOwner(ctx, userID); err != nil {
		return nil, fmt.Errorf("%w: %v", ierr.ErrKeyProvisioningFailed, err)
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
		s.logger.Error("Failed to create granted api key", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ierr.ErrKeyProvisioningFailed, err)
	}
	newKey.ID = keyID

	s.logger.Info("API key granted manually",
		zap.String("key_id", keyID.String()),
		zap.String("user_id", userID.String()),
		zap.String("plan", string(plan)),
	)
	return newKey, nil
}

// UpdateStatus is the operator path for activating or deactivating a key. An
// activation first deactivates the owner's other active keys so at most one
// stays active.
func (s *APIKeyService) UpdateStatus(ctx context.Context, id uuid.UUID, status apikey.Status) error {
	if status == apikey.StatusActive {
		key, err := s.keys.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, apikey.ErrNotFound) {
				return err
			}
			return fmt.Errorf("%w: key lookup failed: %v", ierr.ErrInternalServer, err)
		}
		if _, err := s.keys.DeactivateActiveByOwner(ctx, key.UserID); err != nil {
			return fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
		}
	}

	if err := s.keys.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	s.logger.Info("API key status updated", zap.String("id", id.String()), zap.String("status", string(status)))
	return nil
}

// SetNowFunc replaces the clock, for tests.
func (s *APIKeyService) SetNowFunc(now func() time.Time) {
	s.now = now
}
