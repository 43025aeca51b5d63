package domain

// DailyAggregate accumulates one player's results for a single UTC day.
// It lives for one request and is never persisted.
type DailyAggregate struct {
	Day                 Date
	Wins                int
	Losses              int
	RatingDeltaSum      float64
	MostRecentTimestamp int64
	CurrentLevel        *int
}

func NewDailyAggregate(day Date) *DailyAggregate {
	return &DailyAggregate{Day: day}
}

// Add folds one match into the aggregate. Most-recent tracking applies to
// every match; the counters only move for matches played on a.Day.
func (a *DailyAggregate) Add(m Match) {
	if m.Timestamp > a.MostRecentTimestamp {
		a.MostRecentTimestamp = m.Timestamp
		if m.LevelAfter != nil {
			level := *m.LevelAfter
			a.CurrentLevel = &level
		}
	}

	if DateFromUnix(m.Timestamp) != a.Day {
		return
	}

	a.RatingDeltaSum += m.RatingDelta
	switch m.Outcome {
	case OutcomeWin:
		a.Wins++
	case OutcomeLoss:
		a.Losses++
	}
}
