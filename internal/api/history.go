package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"rivals-tracker/internal/domain"
)

// MatchHistory is one decoded match-history page.
type MatchHistory struct {
	// Present is false when the body had no usable match_history array.
	Present bool
	Matches []MatchRecord
	// Malformed counts records that could not be decoded and were kept as
	// empty records.
	Malformed int
}

type MatchRecord struct {
	MatchUID       string       `json:"match_uid"`
	MatchTimeStamp *int64       `json:"match_time_stamp"`
	MatchPlayer    *MatchPlayer `json:"match_player"`
}

type MatchPlayer struct {
	ScoreInfo *ScoreInfo `json:"score_info"`

	// either a bare bool or {"is_win": bool}
	IsWin json.RawMessage `json:"is_win"`
}

type ScoreInfo struct {
	AddScore *float64 `json:"add_score"`
	NewLevel *int     `json:"new_level"`
}

type matchHistoryBody struct {
	MatchHistory json.RawMessage `json:"match_history"`
}

func decodeMatchHistory(body []byte) (*MatchHistory, error) {
	var envelope matchHistoryBody
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode match history: %w", err)
	}

	var raw []json.RawMessage
	if len(envelope.MatchHistory) == 0 || json.Unmarshal(envelope.MatchHistory, &raw) != nil {
		return &MatchHistory{}, nil
	}

	history := &MatchHistory{
		Present: raw != nil,
		Matches: make([]MatchRecord, 0, len(raw)),
	}
	for _, item := range raw {
		var rec MatchRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			history.Malformed++
			rec = MatchRecord{}
		}
		history.Matches = append(history.Matches, rec)
	}
	return history, nil
}

// ToDomain flattens the record. Missing fields become zero values and an
// unrecognised is_win shape becomes OutcomeUnknown.
func (r MatchRecord) ToDomain() domain.Match {
	m := domain.Match{ID: r.MatchUID}
	if r.MatchTimeStamp != nil {
		m.Timestamp = *r.MatchTimeStamp
	}
	if r.MatchPlayer == nil {
		return m
	}
	if si := r.MatchPlayer.ScoreInfo; si != nil {
		if si.AddScore != nil {
			m.RatingDelta = *si.AddScore
		}
		if si.NewLevel != nil {
			level := *si.NewLevel
			m.LevelAfter = &level
		}
	}
	m.Outcome = ParseOutcome(r.MatchPlayer.IsWin)
	return m
}

func (h *MatchHistory) ToDomain() []domain.Match {
	matches := make([]domain.Match, len(h.Matches))
	for i, rec := range h.Matches {
		matches[i] = rec.ToDomain()
	}
	return matches
}

// ParseOutcome normalises the is_win field, which upstream sends either as
// a boolean or as an object wrapping a boolean under the same key.
func ParseOutcome(raw json.RawMessage) domain.Outcome {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return domain.OutcomeUnknown
	}

	if raw[0] == '{' {
		var nested struct {
			IsWin json.RawMessage `json:"is_win"`
		}
		if err := json.Unmarshal(raw, &nested); err != nil {
			return domain.OutcomeUnknown
		}
		raw = bytes.TrimSpace(nested.IsWin)
	}

	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return domain.OutcomeUnknown
	}
	var won bool
	if err := json.Unmarshal(raw, &won); err != nil {
		return domain.OutcomeUnknown
	}
	if won {
		return domain.OutcomeWin
	}
	return domain.OutcomeLoss
}
