package memstorage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/osinthub/search-api/internal/domain/apikey"
)

// APIKeyRepository is an in-memory apikey.Repository used in tests. The mutex
// makes every operation, including IncrementUsage, an atomic read-check-write
// critical section.
type APIKeyRepository struct {
	mu   sync.Mutex
	keys map[uuid.UUID]*apikey.APIKey
}

func NewAPIKeyRepository() *APIKeyRepository {
	return &APIKeyRepository{
		keys: make(map[uuid.UUID]*apikey.APIKey),
	}
}

var _ apikey.Repository = (*APIKeyRepository)(nil)

func (r *APIKeyRepository) Create(ctx context.Context, key *apikey.APIKey) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *key
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.keys[stored.ID] = &stored
	return stored.ID, nil
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[id]
	if !ok {
		return nil, apikey.ErrNotFound
	}
	keyCopy := *key
	return &keyCopy, nil
}

func (r *APIKeyRepository) FindActiveByOwner(ctx context.Context, userID uuid.UUID) (*apikey.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var newest *apikey.APIKey
	for _, key := range r.keys {
		if key.UserID != userID || key.Status != apikey.StatusActive {
			continue
		}
		if newest == nil || key.CreatedAt.After(newest.CreatedAt) {
			newest = key
		}
	}
	if newest == nil {
		return nil, apikey.ErrNotFound
	}
	keyCopy := *newest
	return &keyCopy, nil
}

func (r *APIKeyRepository) FindLatestByOwner(ctx context.Context, userID uuid.UUID) (*apikey.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := make([]*apikey.APIKey, 0)
	for _, key := range r.keys {
		if key.UserID == userID {
			owned = append(owned, key)
		}
	}
	if len(owned) == 0 {
		return nil, apikey.ErrNotFound
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	keyCopy := *owned[0]
	return &keyCopy, nil
}

func (r *APIKeyRepository) IncrementUsage(ctx context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[id]
	if !ok {
		return 0, apikey.ErrNotFound
	}
	key.RequestsUsed++
	return key.RequestsUsed, nil
}

func (r *APIKeyRepository) DeactivateActiveByOwner(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected int64
	for _, key := range r.keys {
		if key.UserID == userID && key.Status == apikey.StatusActive {
			key.Status = apikey.StatusInactive
			affected++
		}
	}
	return affected, nil
}

func (r *APIKeyRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status apikey.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[id]
	if !ok {
		return apikey.ErrNotFound
	}
	key.Status = status
	return nil
}
