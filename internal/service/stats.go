package service

import (
	"context"
	"fmt"
	"rivals-tracker/internal/config"
	"rivals-tracker/internal/constants"
	"rivals-tracker/internal/domain"
	"rivals-tracker/internal/throttle"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Upstream interface {
	HistoryFetcher
	TriggerUpdate(ctx context.Context, playerID string) error
}

type RefreshLog interface {
	Record(ctx context.Context, attempt domain.RefreshAttempt) error
	Recent(ctx context.Context, playerID string, limit int) ([]domain.RefreshAttempt, error)
}

type StatsService struct {
	upstream   Upstream
	paginator  *Paginator
	throttle   throttle.Store
	refreshLog RefreshLog
	season     int
	now        func() time.Time
	background sync.WaitGroup
	logger     zerolog.Logger
}

func NewStatsService(cfg *config.Config, upstream Upstream, store throttle.Store, refreshLog RefreshLog, logger zerolog.Logger) *StatsService {
	return &StatsService{
		upstream:   upstream,
		paginator:  NewPaginator(upstream, logger),
		throttle:   store,
		refreshLog: refreshLog,
		season:     cfg.Season,
		now:        time.Now,
		logger:     logger,
	}
}

// TodaySummary returns the plaintext summary of the player's results for
// the current UTC day. Only a failure to read match history is returned as
// an error.
func (s *StatsService) TodaySummary(ctx context.Context, playerID string) (string, error) {
	now := s.now().UTC()
	today := domain.DateOf(now)

	s.logger.Info().Str("player_id", playerID).Str("day", today.String()).Msg("building daily summary")

	s.maybeRefresh(ctx, playerID, now)

	agg, err := Aggregate(s.paginator.Pages(ctx, playerID, s.season), today)
	if err != nil {
		s.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to aggregate match history")
		return "", fmt.Errorf("failed to aggregate match history: %w", err)
	}

	s.logger.Info().
		Str("player_id", playerID).
		Int("wins", agg.Wins).
		Int("losses", agg.Losses).
		Float64("rating_delta", agg.RatingDeltaSum).
		Int64("most_recent", agg.MostRecentTimestamp).
		Msg("daily summary built")

	return FormatSummary(agg), nil
}

// maybeRefresh fires an upstream refresh in the background when the
// throttle allows it. Nothing about the refresh reaches the caller.
func (s *StatsService) maybeRefresh(ctx context.Context, playerID string, now time.Time) {
	due, err := s.throttle.Due(ctx, playerID, now)
	if err != nil {
		s.logger.Warn().Err(err).Str("player_id", playerID).Msg("refresh throttle unavailable, skipping refresh")
		return
	}
	s.logger.Debug().Bool("due", due).Str("player_id", playerID).Msg("refresh decision")
	if !due {
		return
	}

	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.RefreshTimeout)

	g := new(errgroup.Group)
	g.Go(func() error {
		err := s.upstream.TriggerUpdate(refreshCtx, playerID)
		s.recordRefresh(refreshCtx, playerID, now, err)
		return err
	})

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer cancel()
		if err := g.Wait(); err != nil {
			s.logger.Warn().Err(err).Str("player_id", playerID).Msg("background refresh failed")
			return
		}
		s.logger.Debug().Str("player_id", playerID).Msg("background refresh triggered")
	}()
}

func (s *StatsService) recordRefresh(ctx context.Context, playerID string, at time.Time, refreshErr error) {
	attempt := domain.RefreshAttempt{
		PlayerID:    playerID,
		RequestedAt: at,
		Succeeded:   refreshErr == nil,
	}
	if refreshErr != nil {
		attempt.Error = refreshErr.Error()
	}

	dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DatabaseTimeout)
	defer cancel()

	if err := s.refreshLog.Record(dbCtx, attempt); err != nil {
		s.logger.Warn().Err(err).Str("player_id", playerID).Msg("failed to record refresh attempt")
	}
}

// ClearThrottle makes the player's next summary trigger a refresh. It
// reports whether a throttle entry existed.
func (s *StatsService) ClearThrottle(ctx context.Context, playerID string) (bool, error) {
	existed, err := s.throttle.Clear(ctx, playerID)
	if err != nil {
		s.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to clear refresh throttle")
		return false, fmt.Errorf("failed to clear refresh throttle: %w", err)
	}
	s.logger.Info().Str("player_id", playerID).Bool("existed", existed).Msg("refresh throttle cleared")
	return existed, nil
}

func (s *StatsService) RecentRefreshes(ctx context.Context, playerID string) ([]domain.RefreshAttempt, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	attempts, err := s.refreshLog.Recent(ctx, playerID, constants.RecentRefreshLimit)
	if err != nil {
		s.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to load refresh log")
		return nil, fmt.Errorf("failed to load refresh log: %w", err)
	}
	return attempts, nil
}

// Wait blocks until every background refresh has finished.
func (s *StatsService) Wait() {
	s.background.Wait()
}
