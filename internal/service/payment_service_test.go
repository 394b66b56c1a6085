package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/osinthub/search-api/internal/domain/apikey"
	domainpayment "github.com/osinthub/search-api/internal/domain/payment"
	"github.com/osinthub/search-api/internal/ierr"
	"github.com/osinthub/search-api/internal/payment"
	"github.com/osinthub/search-api/internal/storage/memstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProcessor struct {
	orderID       string
	createErr     error
	captureStatus string
	captureErr    error

	createdAmount float64
	createdMeta   payment.OrderMetadata
	captureCalls  int
}

func (p *stubProcessor) CreateOrder(ctx context.Context, amount float64, currency, description string, metadata payment.OrderMetadata) (string, error) {
	if p.createErr != nil {
		return "", p.createErr
	}
	p.createdAmount = amount
	p.createdMeta = metadata
	return p.orderID, nil
}

func (p *stubProcessor) CaptureOrder(ctx context.Context, orderID string) (*payment.CaptureResult, error) {
	p.captureCalls++
	if p.captureErr != nil {
		return nil, p.captureErr
	}
	customID, _ := json.Marshal(p.createdMeta)
	return &payment.CaptureResult{Status: p.captureStatus, CustomID: string(customID)}, nil
}

func newPaymentFixture(processor *stubProcessor) (*PaymentService, *memstorage.PaymentRepository, *memstorage.APIKeyRepository) {
	payments := memstorage.NewPaymentRepository()
	keys := memstorage.NewAPIKeyRepository()
	svc := NewPaymentService(payments, keys, processor, "TWalletAddress123", zap.NewNop())
	return svc, payments, keys
}

func TestPaymentServiceCreateOrder(t *testing.T) {
	t.Run("nil principal", func(t *testing.T) {
		svc, _, _ := newPaymentFixture(&stubProcessor{})
		_, err := svc.CreateOrder(context.Background(), nil, "pro", 99)
		assert.ErrorIs(t, err, ierr.ErrUnauthenticated)
	})

	t.Run("unknown plan", func(t *testing.T) {
		svc, _, _ := newPaymentFixture(&stubProcessor{})
		_, err := svc.CreateOrder(context.Background(), &Principal{ID: uuid.New()}, "platinum", 10)
		assert.ErrorIs(t, err, ierr.ErrInvalidInput)
	})

	t.Run("non-positive price", func(t *testing.T) {
		svc, _, _ := newPaymentFixture(&stubProcessor{})
		_, err := svc.CreateOrder(context.Background(), &Principal{ID: uuid.New()}, "pro", 0)
		assert.ErrorIs(t, err, ierr.ErrInvalidInput)
	})

	t.Run("records a pending payment keyed by the order id", func(t *testing.T) {
		processor := &stubProcessor{orderID: "ORDER-1"}
		svc, payments, _ := newPaymentFixture(processor)
		userID := uuid.New()

		orderID, err := svc.CreateOrder(context.Background(), &Principal{ID: userID}, "PRO", 99)
		require.NoError(t, err)
		assert.Equal(t, "ORDER-1", orderID)
		assert.Equal(t, float64(99), processor.createdAmount)
		assert.Equal(t, userID.String(), processor.createdMeta.UserID)
		assert.Equal(t, "pro", processor.createdMeta.Plan)

		stored, err := payments.FindByTransactionID(context.Background(), "ORDER-1")
		require.NoError(t, err)
		assert.Equal(t, domainpayment.StatusPending, stored.Status)
		assert.Equal(t, domainpayment.MethodPayPal, stored.Method)
		assert.Equal(t, "USD", stored.Currency)
		assert.Equal(t, "pro", stored.Plan)
	})

	t.Run("processor failure records nothing", func(t *testing.T) {
		svc, payments, _ := newPaymentFixture(&stubProcessor{createErr: ierr.ErrProcessorUnavailable})
		_, err := svc.CreateOrder(context.Background(), &Principal{ID: uuid.New()}, "basic", 29)
		assert.ErrorIs(t, err, ierr.ErrProcessorUnavailable)

		list, err := payments.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestPaymentServiceCaptureOrder(t *testing.T) {
	t.Run("settles the payment and provisions the key", func(t *testing.T) {
		processor := &stubProcessor{orderID: "ORDER-1", captureStatus: payment.StatusCompleted}
		svc, payments, keys := newPaymentFixture(processor)
		userID := uuid.New()
		now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
		svc.SetNowFunc(func() time.Time { return now })

		// A previous active key that the new purchase must supersede.
		oldKeyID, err := keys.Create(context.Background(), &apikey.APIKey{
			UserID:        userID,
			Status:        apikey.StatusActive,
			Plan:          apikey.PlanBasic,
			RequestsLimit: 100,
		})
		require.NoError(t, err)

		_, err = svc.CreateOrder(context.Background(), &Principal{ID: userID}, "pro", 99)
		require.NoError(t, err)

		provisioned, err := svc.CaptureOrder(context.Background(), &Principal{ID: userID}, "ORDER-1")
		require.NoError(t, err)
		assert.Equal(t, apikey.PlanPro, provisioned.Plan)
		assert.True(t, strings.HasPrefix(provisioned.KeyValue, apikey.KeyValuePrefix))
		assert.Len(t, provisioned.KeyValue, len(apikey.KeyValuePrefix)+apikey.KeySecretLength)
		assert.Equal(t, now.AddDate(0, 1, 0), provisioned.ExpiresAt)

		stored, err := payments.FindByTransactionID(context.Background(), "ORDER-1")
		require.NoError(t, err)
		assert.Equal(t, domainpayment.StatusCompleted, stored.Status)

		active, err := keys.FindActiveByOwner(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, provisioned.KeyValue, active.KeyValue)
		assert.Equal(t, 1000, active.RequestsLimit)
		assert.Equal(t, 0, active.RequestsUsed)

		oldKey, err := keys.FindByID(context.Background(), oldKeyID)
		require.NoError(t, err)
		assert.Equal(t, apikey.StatusInactive, oldKey.Status)
	})

	t.Run("second capture of the same order is rejected", func(t *testing.T) {
		processor := &stubProcessor{orderID: "ORDER-1", captureStatus: payment.StatusCompleted}
		svc, _, keys := newPaymentFixture(processor)
		userID := uuid.New()

		_, err := svc.CreateOrder(context.Background(), &Principal{ID: userID}, "pro", 99)
		require.NoError(t, err)

		_, err = svc.CaptureOrder(context.Background(), &Principal{ID: userID}, "ORDER-1")
		require.NoError(t, err)

		_, err = svc.CaptureOrder(context.Background(), &Principal{ID: userID}, "ORDER-1")
		assert.ErrorIs(t, err, ierr.ErrPaymentNotCompleted)

		latest, err := keys.FindLatestByOwner(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, apikey.StatusActive, latest.Status)
	})

	t.Run("unsettled capture status provisions nothing", func(t *testing.T) {
		processor := &stubProcessor{orderID: "ORDER-1", captureStatus: "PENDING"}
		svc, payments, keys := newPaymentFixture(processor)
		userID := uuid.New()

		_, err := svc.CreateOrder(context.Background(), &Principal{ID: userID}, "basic", 29)
		require.NoError(t, err)

		_, err = svc.CaptureOrder(context.Background(), &Principal{ID: userID}, "ORDER-1")
		assert.ErrorIs(t, err, ierr.ErrPaymentNotCompleted)

		stored, err := payments.FindByTransactionID(context.Background(), "ORDER-1")
		require.NoError(t, err)
		assert.Equal(t, domainpayment.StatusPending, stored.Status)

		_, err = keys.FindActiveByOwner(context.Background(), userID)
		assert.ErrorIs(t, err, apikey.ErrNotFound)
	})

	t.Run("missing metadata falls back to the basic plan", func(t *testing.T) {
		svc, _, _ := newPaymentFixture(&stubProcessor{})
		assert.Equal(t, apikey.PlanBasic, svc.planFromMetadata(""))
		assert.Equal(t, apikey.PlanBasic, svc.planFromMetadata("not-json"))
		assert.Equal(t, apikey.PlanBasic, svc.planFromMetadata(`{"user_id":"u","plan":"platinum"}`))
		assert.Equal(t, apikey.PlanEnterprise, svc.planFromMetadata(`{"user_id":"u","plan":"enterprise"}`))
	})

	t.Run("capture for an unknown order", func(t *testing.T) {
		processor := &stubProcessor{captureStatus: payment.StatusCompleted}
		svc, _, _ := newPaymentFixture(processor)

		_, err := svc.CaptureOrder(context.Background(), &Principal{ID: uuid.New()}, "ORDER-MISSING")
		assert.ErrorIs(t, err, ierr.ErrPaymentNotFound)
	})

	t.Run("empty order id", func(t *testing.T) {
		svc, _, _ := newPaymentFixture(&stubProcessor{})
		_, err := svc.CaptureOrder(context.Background(), &Principal{ID: uuid.New()}, "")
		assert.ErrorIs(t, err, ierr.ErrInvalidInput)
	})
}

func TestPaymentServiceManualPayments(t *testing.T) {
	t.Run("records a pending transfer and returns the wallet", func(t *testing.T) {
		svc, payments, _ := newPaymentFixture(&stubProcessor{})
		userID := uuid.New()

		reference, wallet, err := svc.CreateManualPayment(context.Background(), &Principal{ID: userID}, "pro")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(reference, "transfer_"))
		assert.Equal(t, "TWalletAddress123", wallet)

		stored, err := payments.FindByTransactionID(context.Background(), reference)
		require.NoError(t, err)
		assert.Equal(t, domainpayment.MethodCrypto, stored.Method)
		assert.Equal(t, domainpayment.StatusPending, stored.Status)
		assert.Equal(t, float64(99), stored.Amount)
		assert.Equal(t, "USDT", stored.Currency)
	})

	t.Run("operator confirmation provisions the key", func(t *testing.T) {
		svc, _, keys := newPaymentFixture(&stubProcessor{})
		userID := uuid.New()

		reference, _, err := svc.CreateManualPayment(context.Background(), &Principal{ID: userID}, "enterprise")
		require.NoError(t, err)

		provisioned, err := svc.ConfirmManualPayment(context.Background(), reference)
		require.NoError(t, err)
		assert.Equal(t, apikey.PlanEnterprise, provisioned.Plan)

		active, err := keys.FindActiveByOwner(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, apikey.UnlimitedRequests, active.RequestsLimit)
	})

	t.Run("confirmation is not repeatable", func(t *testing.T) {
		svc, _, _ := newPaymentFixture(&stubProcessor{})
		userID := uuid.New()

		reference, _, err := svc.CreateManualPayment(context.Background(), &Principal{ID: userID}, "basic")
		require.NoError(t, err)

		_, err = svc.ConfirmManualPayment(context.Background(), reference)
		require.NoError(t, err)

		_, err = svc.ConfirmManualPayment(context.Background(), reference)
		assert.ErrorIs(t, err, ierr.ErrPaymentNotCompleted)
	})

	t.Run("confirming a processor payment is rejected", func(t *testing.T) {
		processor := &stubProcessor{orderID: "ORDER-1"}
		svc, _, _ := newPaymentFixture(processor)

		_, err := svc.CreateOrder(context.Background(), &Principal{ID: uuid.New()}, "basic", 29)
		require.NoError(t, err)

		_, err = svc.ConfirmManualPayment(context.Background(), "ORDER-1")
		assert.ErrorIs(t, err, ierr.ErrInvalidInput)
	})

	t.Run("confirming an unknown reference", func(t *testing.T) {
		svc, _, _ := newPaymentFixture(&stubProcessor{})
		_, err := svc.ConfirmManualPayment(context.Background(), "transfer_missing")
		assert.ErrorIs(t, err, ierr.ErrPaymentNotFound)
	})
}
