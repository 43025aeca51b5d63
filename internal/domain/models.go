package domain

import (
	"time"
)

type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeWin
	OutcomeLoss
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeLoss:
		return "loss"
	default:
		return "unknown"
	}
}

type Match struct {
	ID          string
	Timestamp   int64 // unix seconds, 0 when upstream omitted it
	LevelAfter  *int
	RatingDelta float64
	Outcome     Outcome
}

type MatchPage struct {
	Matches  []Match
	PageSize int
}

// Last reports whether no further page should be requested after this one.
func (p MatchPage) Last() bool {
	return len(p.Matches) == 0 || len(p.Matches) < p.PageSize
}

type RefreshAttempt struct {
	ID          string // nanoid
	PlayerID    string
	RequestedAt time.Time
	Succeeded   bool
	Error       string
}
