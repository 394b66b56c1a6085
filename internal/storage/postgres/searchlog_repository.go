package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/osinthub/search-api/internal/domain/searchlog"
	"go.uber.org/zap"
)

type SearchLogRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewSearchLogRepository(db *pgxpool.Pool, logger *zap.Logger) *SearchLogRepository {
	return &SearchLogRepository{
		db:     db,
		logger: logger.Named("SearchLogRepository"),
	}
}

var _ searchlog.Repository = (*SearchLogRepository)(nil)

func (r *SearchLogRepository) Append(ctx context.Context, entry *searchlog.Entry) error {
	query := `
		INSERT INTO search_logs (user_id, query, results_count)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.Exec(ctx, query, entry.UserID, entry.Query, entry.ResultsCount)
	if err != nil {
		r.logger.Error("Failed to append search log entry", zap.String("user_id", entry.UserID.String()), zap.Error(err))
		return fmt.Errorf("db error appending search log: %w", err)
	}
	return nil
}

func (r *SearchLogRepository) ListByOwner(ctx context.Context, userID uuid.UUID, limit int) ([]*searchlog.Entry, error) {
	query := `
		SELECT id, user_id, query, results_count, created_at
		FROM search_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		r.logger.Error("Failed to query search logs", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("db error listing search logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*searchlog.Entry, 0)
	for rows.Next() {
		var e searchlog.Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Query, &e.ResultsCount, &e.CreatedAt); err != nil {
			r.logger.Error("Failed to scan search log row", zap.Error(err))
			return nil, fmt.Errorf("database scan error during list: %w", err)
		}
		entries = append(entries, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error on list search logs: %w", err)
	}
	return entries, nil
}
