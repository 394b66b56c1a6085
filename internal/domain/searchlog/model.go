package searchlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one append-only audit record, written once per successfully
// forwarded search.
type Entry struct {
	ID           uuid.UUID `db:"id"`
	UserID       uuid.UUID `db:"user_id"`
	Query        string    `db:"query"`
	ResultsCount int       `db:"results_count"`
	CreatedAt    time.Time `db:"created_at"`
}

type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	ListByOwner(ctx context.Context, userID uuid.UUID, limit int) ([]*Entry, error)
}
