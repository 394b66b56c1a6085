package apikey

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("api key not found")
	ErrNothingUpdated = errors.New("api key update affected no rows")
)

type Repository interface {
	Create(ctx context.Context, key *APIKey) (uuid.UUID, error)
	FindByID(ctx context.Context, id uuid.UUID) (*APIKey, error)
	FindActiveByOwner(ctx context.Context, userID uuid.UUID) (*APIKey, error)
	FindLatestByOwner(ctx context.Context, userID uuid.UUID) (*APIKey, error)
	// IncrementUsage atomically adds one to requests_used for the key with the
	// given id and returns the counter value after the increment. It must be a
	// single conditional update against the store, never a read-modify-write
	// pair in the application.
	IncrementUsage(ctx context.Context, id uuid.UUID) (int, error)
	DeactivateActiveByOwner(ctx context.Context, userID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
}
