package repository

import (
	"context"
	"database/sql"
	"fmt"
	"rivals-tracker/internal/domain"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type RefreshLogRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRefreshLogRepository(sqlDB *sql.DB, logger zerolog.Logger) *RefreshLogRepository {
	return &RefreshLogRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *RefreshLogRepository) Record(ctx context.Context, attempt domain.RefreshAttempt) error {
	id := attempt.ID
	if id == "" {
		var err error
		id, err = gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_log (id, player_id, requested_at, succeeded, error) VALUES (?, ?, ?, ?, ?)`,
		id, attempt.PlayerID, attempt.RequestedAt.UnixMilli(), attempt.Succeeded, attempt.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert refresh attempt: %w", err)
	}

	r.logger.Debug().
		Str("id", id).
		Str("player_id", attempt.PlayerID).
		Bool("succeeded", attempt.Succeeded).
		Msg("refresh attempt recorded")
	return nil
}

// Recent returns the newest attempts for playerID first.
func (r *RefreshLogRepository) Recent(ctx context.Context, playerID string, limit int) ([]domain.RefreshAttempt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, player_id, requested_at, succeeded, error
		 FROM refresh_log
		 WHERE player_id = ?
		 ORDER BY requested_at DESC, rowid DESC
		 LIMIT ?`,
		playerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh log: %w", err)
	}
	defer rows.Close()

	var result []domain.RefreshAttempt
	for rows.Next() {
		var (
			a           domain.RefreshAttempt
			requestedAt int64
		)
		if err := rows.Scan(&a.ID, &a.PlayerID, &requestedAt, &a.Succeeded, &a.Error); err != nil {
			return nil, fmt.Errorf("failed to scan refresh attempt: %w", err)
		}
		a.RequestedAt = time.UnixMilli(requestedAt).UTC()
		result = append(result, a)
	}
	return result, rows.Err()
}
