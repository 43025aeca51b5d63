package service

import (
	"iter"
	"rivals-tracker/internal/domain"
)

// Aggregate folds every page into a DailyAggregate for day. It stops at the
// first error, returning it without a partial aggregate.
func Aggregate(pages iter.Seq2[domain.MatchPage, error], day domain.Date) (*domain.DailyAggregate, error) {
	agg := domain.NewDailyAggregate(day)
	for page, err := range pages {
		if err != nil {
			return nil, err
		}
		for _, m := range page.Matches {
			agg.Add(m)
		}
	}
	return agg, nil
}
