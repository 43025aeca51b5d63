package service

import (
	"context"
	"fmt"
	"iter"
	"rivals-tracker/internal/api"
	"rivals-tracker/internal/constants"
	"rivals-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type HistoryFetcher interface {
	GetMatchHistory(ctx context.Context, playerID string, season, skip int) (*api.MatchHistory, error)
}

type rateLimited interface {
	GetRateLimitInfo() api.RateLimitInfo
}

// UpstreamError means match history could not be fetched. It aborts the
// request that triggered it.
type UpstreamError struct {
	Offset int
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("match history at offset %d: %v", e.Offset, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

type Paginator struct {
	fetcher  HistoryFetcher
	pageSize int
	logger   zerolog.Logger
}

func NewPaginator(fetcher HistoryFetcher, logger zerolog.Logger) *Paginator {
	return &Paginator{fetcher: fetcher, pageSize: constants.HistoryPageSize, logger: logger}
}

// Pages lazily walks the player's history from offset 0. The final short or
// empty page is yielded before the sequence ends. A fetch failure is yielded
// once as an *UpstreamError and ends the sequence.
func (p *Paginator) Pages(ctx context.Context, playerID string, season int) iter.Seq2[domain.MatchPage, error] {
	return func(yield func(domain.MatchPage, error) bool) {
		offset := 0
		for {
			page, err := p.fetch(ctx, playerID, season, offset)
			if err != nil {
				yield(domain.MatchPage{PageSize: p.pageSize}, &UpstreamError{Offset: offset, Err: err})
				return
			}
			if !yield(page, nil) || page.Last() {
				return
			}
			offset += len(page.Matches)
		}
	}
}

func (p *Paginator) fetch(ctx context.Context, playerID string, season, offset int) (domain.MatchPage, error) {
	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	history, err := p.fetcher.GetMatchHistory(apiCtx, playerID, season, offset)
	if err != nil {
		p.logger.Error().Err(err).Str("player_id", playerID).Int("offset", offset).Msg("failed to fetch match history")
		return domain.MatchPage{}, err
	}

	log := p.logger.Debug().
		Str("player_id", playerID).
		Int("offset", offset).
		Int("match_count", len(history.Matches)).
		Bool("list_present", history.Present)
	if rl, ok := p.fetcher.(rateLimited); ok {
		log = log.Int("ratelimit_remaining", rl.GetRateLimitInfo().Remaining)
	}
	log.Msg("match history page fetched")

	if history.Malformed > 0 {
		p.logger.Warn().
			Str("player_id", playerID).
			Int("offset", offset).
			Int("malformed", history.Malformed).
			Msg("some match records could not be decoded")
	}

	return domain.MatchPage{Matches: history.ToDomain(), PageSize: p.pageSize}, nil
}
