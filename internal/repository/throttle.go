package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ThrottleRepository keeps refresh throttle entries in sqlite so the
// cooldown survives restarts. It satisfies throttle.Store.
type ThrottleRepository struct {
	db       *sql.DB
	cooldown time.Duration
	logger   zerolog.Logger
}

func NewThrottleRepository(sqlDB *sql.DB, cooldown time.Duration, logger zerolog.Logger) *ThrottleRepository {
	return &ThrottleRepository{
		db:       sqlDB,
		cooldown: cooldown,
		logger:   logger,
	}
}

// The insert only overwrites an existing row once the cooldown has elapsed,
// so exactly one caller per window sees a changed row.
const dueQuery = `
INSERT INTO refresh_throttle (player_id, last_refresh_at) VALUES (?, ?)
ON CONFLICT (player_id) DO UPDATE SET last_refresh_at = excluded.last_refresh_at
WHERE excluded.last_refresh_at - refresh_throttle.last_refresh_at >= ?`

func (r *ThrottleRepository) Due(ctx context.Context, playerID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, dueQuery, playerID, now.UnixMilli(), r.cooldown.Milliseconds())
	if err != nil {
		r.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to check refresh throttle")
		return false, fmt.Errorf("failed to check refresh throttle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	r.logger.Debug().
		Str("player_id", playerID).
		Time("now", now).
		Dur("cooldown", r.cooldown).
		Bool("due", n > 0).
		Msg("checked refresh throttle")

	return n > 0, nil
}

func (r *ThrottleRepository) Clear(ctx context.Context, playerID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_throttle WHERE player_id = ?`, playerID)
	if err != nil {
		return false, fmt.Errorf("failed to clear refresh throttle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
