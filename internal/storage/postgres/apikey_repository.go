package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/osinthub/search-api/internal/domain/apikey"
	"go.uber.org/zap"
)

type APIKeyRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAPIKeyRepository(db *pgxpool.Pool, logger *zap.Logger) *APIKeyRepository {
	return &APIKeyRepository{
		db:     db,
		logger: logger.Named("APIKeyRepository"),
	}
}

var _ apikey.Repository = (*APIKeyRepository)(nil)

const apiKeyColumns = `id, user_id, key_value, plan, status, requests_used, requests_limit, expires_at, created_at`

func (r *APIKeyRepository) Create(ctx context.Context, key *apikey.APIKey) (uuid.UUID, error) {
	query := `
		INSERT INTO api_keys (user_id, key_value, plan, status, requests_used, requests_limit, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var insertedID uuid.UUID
	err := r.db.QueryRow(ctx, query,
		key.UserID,
		key.KeyValue,
		key.Plan,
		key.Status,
		key.RequestsUsed,
		key.RequestsLimit,
		key.ExpiresAt,
	).Scan(&insertedID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Failed to create API key due to unique constraint violation",
				zap.String("constraint", pgErr.ConstraintName),
				zap.String("user_id", key.UserID.String()),
			)
			return uuid.Nil, fmt.Errorf("api key constraint violation (%s)", pgErr.ConstraintName)
		}
		r.logger.Error("Failed to create api key in database", zap.Error(err))
		return uuid.Nil, fmt.Errorf("db error creating api key: %w", err)
	}

	r.logger.Info("API key created successfully", zap.String("id", insertedID.String()), zap.String("user_id", key.UserID.String()))
	return insertedID, nil
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`
	return r.scanAPIKey(r.db.QueryRow(ctx, query, id))
}

func (r *APIKeyRepository) FindActiveByOwner(ctx context.Context, userID uuid.UUID) (*apikey.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	key, err := r.scanAPIKey(r.db.QueryRow(ctx, query, userID, apikey.StatusActive))
	if err != nil {
		if errors.Is(err, apikey.ErrNotFound) {
			r.logger.Debug("No active API key for owner", zap.String("user_id", userID.String()))
		}
		return nil, err
	}
	return key, nil
}

func (r *APIKeyRepository) FindLatestByOwner(ctx context.Context, userID uuid.UUID) (*apikey.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanAPIKey(r.db.QueryRow(ctx, query, userID))
}

// IncrementUsage adds one to requests_used in a single conditional UPDATE so
// two concurrent requests can never both read the old counter and write back
// the same value.
func (r *APIKeyRepository) IncrementUsage(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE api_keys
		SET requests_used = requests_used + 1
		WHERE id = $1
		RETURNING requests_used
	`
	var usedAfter int
	err := r.db.QueryRow(ctx, query, id).Scan(&usedAfter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apikey.ErrNotFound
		}
		r.logger.Error("Failed to increment api key usage", zap.String("id", id.String()), zap.Error(err))
		return 0, fmt.Errorf("db error incrementing usage: %w", err)
	}
	return usedAfter, nil
}

func (r *APIKeyRepository) DeactivateActiveByOwner(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `UPDATE api_keys SET status = $1 WHERE user_id = $2 AND status = $3`
	cmdTag, err := r.db.Exec(ctx, query, apikey.StatusInactive, userID, apikey.StatusActive)
	if err != nil {
		r.logger.Error("Failed to deactivate active api keys", zap.String("user_id", userID.String()), zap.Error(err))
		return 0, fmt.Errorf("db error deactivating api keys: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

func (r *APIKeyRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status apikey.Status) error {
	query := `UPDATE api_keys SET status = $1 WHERE id = $2`
	cmdTag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update api key status", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("db error updating api key status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("API key not found when updating status", zap.String("id", id.String()))
		return apikey.ErrNotFound
	}
	return nil
}

func (r *APIKeyRepository) scanAPIKey(row pgx.Row) (*apikey.APIKey, error) {
	var key apikey.APIKey
	var expiresAt sql.NullTime

	err := row.Scan(
		&key.ID,
		&key.UserID,
		&key.KeyValue,
		&key.Plan,
		&key.Status,
		&key.RequestsUsed,
		&key.RequestsLimit,
		&expiresAt,
		&key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apikey.ErrNotFound
		}
		r.logger.Error("Failed to scan api key row", zap.Error(err))
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	if expiresAt.Valid {
		key.ExpiresAt = &expiresAt.Time
	}
	return &key, nil
}
