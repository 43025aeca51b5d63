package service

import (
	"fmt"
	"math"
	"rivals-tracker/internal/domain"
	"rivals-tracker/internal/rank"
)

func FormatSummary(agg *domain.DailyAggregate) string {
	return fmt.Sprintf("Rank %s. They've won %d, lost %d, and have %s RR today.",
		rank.Name(agg.CurrentLevel), agg.Wins, agg.Losses, signedRR(agg.RatingDeltaSum))
}

// signedRR rounds half to even and always shows the sign; zero is "+0".
func signedRR(sum float64) string {
	rounded := int64(math.RoundToEven(sum))
	if rounded >= 0 {
		return fmt.Sprintf("+%d", rounded)
	}
	return fmt.Sprintf("%d", rounded)
}
