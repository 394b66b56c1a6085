package memstorage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/osinthub/search-api/internal/domain/searchlog"
)

type SearchLogRepository struct {
	mu      sync.Mutex
	entries []*searchlog.Entry
}

func NewSearchLogRepository() *SearchLogRepository {
	return &SearchLogRepository{}
}

var _ searchlog.Repository = (*SearchLogRepository)(nil)

func (r *SearchLogRepository) Append(ctx context.Context, entry *searchlog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *entry
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, &stored)
	return nil
}

func (r *SearchLogRepository) ListByOwner(ctx context.Context, userID uuid.UUID, limit int) ([]*searchlog.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*searchlog.Entry, 0)
	for i := len(r.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if r.entries[i].UserID == userID {
			entryCopy := *r.entries[i]
			result = append(result, &entryCopy)
		}
	}
	return result, nil
}

// Count returns the total number of stored entries, for test assertions.
func (r *SearchLogRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
