package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("payment not found")
	ErrAlreadySettled = errors.New("payment already settled")
	ErrNothingUpdated = errors.New("payment update affected no rows")
)

type Repository interface {
	Create(ctx context.Context, p *Payment) (uuid.UUID, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*Payment, error)
	// MarkCompleted transitions a pending payment to completed. The transition
	// happens at most once per transaction id; a second call is rejected with
	// ErrAlreadySettled.
	MarkCompleted(ctx context.Context, transactionID string) error
	MarkFailed(ctx context.Context, transactionID string) error
	List(ctx context.Context) ([]*Payment, error)
	// FailStalePending marks pending payments of the given method created
	// before the cutoff as failed, returning how many rows changed.
	FailStalePending(ctx context.Context, method Method, cutoff time.Time) (int64, error)
}
