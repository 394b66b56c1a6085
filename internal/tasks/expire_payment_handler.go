package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/osinthub/search-api/internal/domain/payment"
	"go.uber.org/zap"
)

// PaymentExpireHandler fails processor payments that stayed pending past
// StalePaymentAge. Manual transfers are never swept; they wait for an
// operator to confirm or reject them.
type PaymentExpireHandler struct {
	repo   payment.Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewPaymentExpireHandler(repo payment.Repository, logger *zap.Logger) *PaymentExpireHandler {
	return &PaymentExpireHandler{
		repo:   repo,
		logger: logger.Named("PaymentExpireHandler"),
		now:    time.Now,
	}
}

func (h *PaymentExpireHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypePaymentExpire {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p ExpirePaymentPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal payload for payment expiration task", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v", err)
	}

	h.logger.Info("Processing stale payment check task...")

	cutoff := h.now().UTC().Add(-StalePaymentAge)
	affected, err := h.repo.FailStalePending(ctx, payment.MethodPayPal, cutoff)
	if err != nil {
		h.logger.Error("Failed to fail stale pending payments", zap.Error(err))
		return fmt.Errorf("repository error failing stale payments: %w", err)
	}

	h.logger.Info("Stale payment check task finished", zap.Int64("failed_payments", affected))
	return nil
}

// SetNowFunc replaces the clock, for tests.
func (h *PaymentExpireHandler) SetNowFunc(now func() time.Time) {
	h.now = now
}
