package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/osinthub/search-api/internal/domain/payment"
	"go.uber.org/zap"
)

type PaymentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPaymentRepository(db *pgxpool.Pool, logger *zap.Logger) *PaymentRepository {
	return &PaymentRepository{
		db:     db,
		logger: logger.Named("PaymentRepository"),
	}
}

var _ payment.Repository = (*PaymentRepository)(nil)

const paymentColumns = `id, user_id, amount, plan, payment_method, status, transaction_id, currency, created_at`

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) (uuid.UUID, error) {
	query := `
		INSERT INTO payments (user_id, amount, plan, payment_method, status, transaction_id, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var insertedID uuid.UUID
	err := r.db.QueryRow(ctx, query,
		p.UserID,
		p.Amount,
		p.Plan,
		p.Method,
		p.Status,
		p.TransactionID,
		p.Currency,
	).Scan(&insertedID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Attempted to create payment with duplicate transaction id",
				zap.String("transaction_id", p.TransactionID),
				zap.String("constraint", pgErr.ConstraintName),
			)
			return uuid.Nil, fmt.Errorf("payment for transaction '%s' already exists", p.TransactionID)
		}
		r.logger.Error("Failed to create payment in database", zap.Error(err))
		return uuid.Nil, fmt.Errorf("database error on create payment: %w", err)
	}

	r.logger.Info("Payment record created", zap.String("id", insertedID.String()), zap.String("transaction_id", p.TransactionID))
	return insertedID, nil
}

func (r *PaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`
	return r.scanPayment(r.db.QueryRow(ctx, query, transactionID))
}

// MarkCompleted moves a payment from pending to completed. The status guard in
// the WHERE clause makes the transition happen at most once per transaction id.
func (r *PaymentRepository) MarkCompleted(ctx context.Context, transactionID string) error {
	query := `UPDATE payments SET status = $1 WHERE transaction_id = $2 AND status = $3`
	cmdTag, err := r.db.Exec(ctx, query, payment.StatusCompleted, transactionID, payment.StatusPending)
	if err != nil {
		r.logger.Error("Failed to mark payment completed", zap.String("transaction_id", transactionID), zap.Error(err))
		return fmt.Errorf("database error on complete payment: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		existing, findErr := r.FindByTransactionID(ctx, transactionID)
		if findErr != nil {
			return payment.ErrNotFound
		}
		if existing.Status == payment.StatusCompleted {
			return payment.ErrAlreadySettled
		}
		return payment.ErrNothingUpdated
	}
	r.logger.Info("Payment marked completed", zap.String("transaction_id", transactionID))
	return nil
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, transactionID string) error {
	query := `UPDATE payments SET status = $1 WHERE transaction_id = $2 AND status = $3`
	cmdTag, err := r.db.Exec(ctx, query, payment.StatusFailed, transactionID, payment.StatusPending)
	if err != nil {
		r.logger.Error("Failed to mark payment failed", zap.String("transaction_id", transactionID), zap.Error(err))
		return fmt.Errorf("database error on fail payment: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return payment.ErrNothingUpdated
	}
	return nil
}

func (r *PaymentRepository) List(ctx context.Context) ([]*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query list of payments", zap.Error(err))
		return nil, fmt.Errorf("database error on list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]*payment.Payment, 0)
	for rows.Next() {
		var p payment.Payment
		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Amount,
			&p.Plan,
			&p.Method,
			&p.Status,
			&p.TransactionID,
			&p.Currency,
			&p.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan payment row during list", zap.Error(err))
			return nil, fmt.Errorf("database scan error during list: %w", err)
		}
		payments = append(payments, &p)
	}
	if err = rows.Err(); err != nil {
		r.logger.Error("Error iterating payment rows", zap.Error(err))
		return nil, fmt.Errorf("database iteration error on list payments: %w", err)
	}
	return payments, nil
}

func (r *PaymentRepository) FailStalePending(ctx context.Context, method payment.Method, cutoff time.Time) (int64, error) {
	query := `
		UPDATE payments SET status = $1
		WHERE payment_method = $2 AND status = $3 AND created_at < $4
	`
	cmdTag, err := r.db.Exec(ctx, query, payment.StatusFailed, method, payment.StatusPending, cutoff)
	if err != nil {
		r.logger.Error("Failed to fail stale pending payments", zap.Error(err))
		return 0, fmt.Errorf("database error failing stale payments: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

func (r *PaymentRepository) scanPayment(row pgx.Row) (*payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Amount,
		&p.Plan,
		&p.Method,
		&p.Status,
		&p.TransactionID,
		&p.Currency,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		r.logger.Error("Failed to scan payment row", zap.Error(err))
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return &p, nil
}
