package memstorage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/osinthub/search-api/internal/domain/payment"
)

type PaymentRepository struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*payment.Payment
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		payments: make(map[uuid.UUID]*payment.Payment),
	}
}

var _ payment.Repository = (*PaymentRepository)(nil)

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *p
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.payments[stored.ID] = &stored
	return stored.ID, nil
}

func (r *PaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findByTransactionIDLocked(transactionID)
	if p == nil {
		return nil, payment.ErrNotFound
	}
	pCopy := *p
	return &pCopy, nil
}

func (r *PaymentRepository) MarkCompleted(ctx context.Context, transactionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findByTransactionIDLocked(transactionID)
	if p == nil {
		return payment.ErrNotFound
	}
	if p.Status == payment.StatusCompleted {
		return payment.ErrAlreadySettled
	}
	if p.Status != payment.StatusPending {
		return payment.ErrNothingUpdated
	}
	p.Status = payment.StatusCompleted
	return nil
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, transactionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findByTransactionIDLocked(transactionID)
	if p == nil {
		return payment.ErrNotFound
	}
	if p.Status != payment.StatusPending {
		return payment.ErrNothingUpdated
	}
	p.Status = payment.StatusFailed
	return nil
}

func (r *PaymentRepository) List(ctx context.Context) ([]*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*payment.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		pCopy := *p
		result = append(result, &pCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *PaymentRepository) FailStalePending(ctx context.Context, method payment.Method, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected int64
	for _, p := range r.payments {
		if p.Method == method && p.Status == payment.StatusPending && p.CreatedAt.Before(cutoff) {
			p.Status = payment.StatusFailed
			affected++
		}
	}
	return affected, nil
}

func (r *PaymentRepository) findByTransactionIDLocked(transactionID string) *payment.Payment {
	for _, p := range r.payments {
		if p.TransactionID == transactionID {
			return p
		}
	}
	return nil
}
