package service

import (
	"context"
	"errors"
	"rivals-tracker/internal/api"
	"rivals-tracker/internal/config"
	"rivals-tracker/internal/domain"
	"rivals-tracker/internal/throttle"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now       = time.Date(2025, time.March, 14, 18, 30, 0, 0, time.UTC)
	today     = domain.DateOf(now)
	todayAt   = func(h int) int64 { return time.Date(2025, time.March, 14, h, 0, 0, 0, time.UTC).Unix() }
	yesterday = time.Date(2025, time.March, 13, 23, 0, 0, 0, time.UTC).Unix()
)

func boolRecord(ts int64, win bool, delta float64, level *int) api.MatchRecord {
	isWin := []byte("false")
	if win {
		isWin = []byte("true")
	}
	return api.MatchRecord{
		MatchTimeStamp: &ts,
		MatchPlayer: &api.MatchPlayer{
			ScoreInfo: &api.ScoreInfo{AddScore: &delta, NewLevel: level},
			IsWin:     isWin,
		},
	}
}

func intPtr(v int) *int { return &v }

// stubUpstream serves pages keyed by offset and records calls.
type stubUpstream struct {
	mu         sync.Mutex
	pages      map[int][]api.MatchRecord
	failAt     map[int]error
	offsets    []int
	updates    []string
	updateErr  error
	absentList bool
}

func (s *stubUpstream) GetMatchHistory(_ context.Context, playerID string, season, skip int) (*api.MatchHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsets = append(s.offsets, skip)
	if err := s.failAt[skip]; err != nil {
		return nil, err
	}
	if s.absentList {
		return &api.MatchHistory{}, nil
	}
	return &api.MatchHistory{Present: true, Matches: s.pages[skip]}, nil
}

func (s *stubUpstream) TriggerUpdate(_ context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, playerID)
	return s.updateErr
}

func pagesOfSizes(sizes ...int) map[int][]api.MatchRecord {
	pages := make(map[int][]api.MatchRecord)
	offset := 0
	for _, n := range sizes {
		recs := make([]api.MatchRecord, n)
		for i := range recs {
			recs[i] = boolRecord(yesterday-int64(offset+i), true, 1, nil)
		}
		pages[offset] = recs
		offset += n
	}
	return pages
}

func collect(t *testing.T, seq func(func(domain.MatchPage, error) bool)) ([]domain.MatchPage, error) {
	t.Helper()
	var pages []domain.MatchPage
	for page, err := range seq {
		if err != nil {
			return pages, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func TestPaginator_StopsAtShortPage(t *testing.T) {
	up := &stubUpstream{pages: pagesOfSizes(20, 20, 7)}
	p := NewPaginator(up, zerolog.Nop())

	pages, err := collect(t, p.Pages(context.Background(), "p1", 2))
	require.NoError(t, err)

	require.Len(t, pages, 3)
	assert.Len(t, pages[2].Matches, 7)
	assert.Equal(t, []int{0, 20, 40}, up.offsets)
}

func TestPaginator_StopsAtEmptyPage(t *testing.T) {
	up := &stubUpstream{pages: pagesOfSizes(20, 0)}
	p := NewPaginator(up, zerolog.Nop())

	pages, err := collect(t, p.Pages(context.Background(), "p1", 2))
	require.NoError(t, err)

	require.Len(t, pages, 2)
	assert.Empty(t, pages[1].Matches)
	assert.Equal(t, []int{0, 20}, up.offsets)
}

func TestPaginator_AbsentList(t *testing.T) {
	up := &stubUpstream{absentList: true}
	p := NewPaginator(up, zerolog.Nop())

	pages, err := collect(t, p.Pages(context.Background(), "p1", 2))
	require.NoError(t, err)

	require.Len(t, pages, 1)
	assert.Empty(t, pages[0].Matches)
	assert.Equal(t, []int{0}, up.offsets)
}

func TestPaginator_TransportErrorAfterFirstPage(t *testing.T) {
	cause := &api.APIError{StatusCode: 502}
	up := &stubUpstream{pages: pagesOfSizes(20, 20, 7), failAt: map[int]error{20: cause}}
	p := NewPaginator(up, zerolog.Nop())

	pages, err := collect(t, p.Pages(context.Background(), "p1", 2))

	require.Len(t, pages, 1)
	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, 20, upstreamErr.Offset)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []int{0, 20}, up.offsets, "no page after the failure is requested")
}

func TestPaginator_EarlyBreak(t *testing.T) {
	up := &stubUpstream{pages: pagesOfSizes(20, 20, 7)}
	p := NewPaginator(up, zerolog.Nop())

	for range p.Pages(context.Background(), "p1", 2) {
		break
	}
	assert.Equal(t, []int{0}, up.offsets)
}

func TestPaginator_RestartsFromZero(t *testing.T) {
	up := &stubUpstream{pages: pagesOfSizes(3)}
	p := NewPaginator(up, zerolog.Nop())
	seq := p.Pages(context.Background(), "p1", 2)

	_, err := collect(t, seq)
	require.NoError(t, err)
	_, err = collect(t, seq)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0}, up.offsets)
}

func TestAggregate_PropagatesError(t *testing.T) {
	up := &stubUpstream{failAt: map[int]error{0: errors.New("connection refused")}}
	p := NewPaginator(up, zerolog.Nop())

	agg, err := Aggregate(p.Pages(context.Background(), "p1", 2), today)
	assert.Nil(t, agg)
	assert.ErrorContains(t, err, "connection refused")
}

func TestAggregate_OutcomeShapes(t *testing.T) {
	ts := todayAt(10)
	records := []api.MatchRecord{
		{MatchTimeStamp: &ts, MatchPlayer: &api.MatchPlayer{IsWin: []byte(`true`)}},
		{MatchTimeStamp: &ts, MatchPlayer: &api.MatchPlayer{IsWin: []byte(`{"is_win": true}`)}},
		{MatchTimeStamp: &ts, MatchPlayer: &api.MatchPlayer{IsWin: []byte(`"won"`)}},
		{MatchTimeStamp: &ts},
	}
	up := &stubUpstream{pages: map[int][]api.MatchRecord{0: records}}
	p := NewPaginator(up, zerolog.Nop())

	agg, err := Aggregate(p.Pages(context.Background(), "p1", 2), today)
	require.NoError(t, err)

	assert.Equal(t, 2, agg.Wins)
	assert.Equal(t, 0, agg.Losses)
}

func TestFormatSummary(t *testing.T) {
	cases := []struct {
		name string
		agg  domain.DailyAggregate
		want string
	}{
		{
			name: "positive",
			agg:  domain.DailyAggregate{Wins: 2, Losses: 1, RatingDeltaSum: 21, CurrentLevel: intPtr(10)},
			want: "Rank Platinum 3. They've won 2, lost 1, and have +21 RR today.",
		},
		{
			name: "negative",
			agg:  domain.DailyAggregate{Losses: 1, RatingDeltaSum: -5, CurrentLevel: intPtr(9)},
			want: "Rank Gold 1. They've won 0, lost 1, and have -5 RR today.",
		},
		{
			name: "zero without level",
			agg:  domain.DailyAggregate{},
			want: "Rank Unknown Rank. They've won 0, lost 0, and have +0 RR today.",
		},
		{
			name: "level outside table",
			agg:  domain.DailyAggregate{CurrentLevel: intPtr(99), RatingDeltaSum: 2.5},
			want: "Rank Unknown Rank. They've won 0, lost 0, and have +2 RR today.",
		},
		{
			name: "small negative rounds to zero",
			agg:  domain.DailyAggregate{RatingDeltaSum: -0.4},
			want: "Rank Unknown Rank. They've won 0, lost 0, and have +0 RR today.",
		},
		{
			name: "fractional rounding",
			agg:  domain.DailyAggregate{RatingDeltaSum: -12.6},
			want: "Rank Unknown Rank. They've won 0, lost 0, and have -13 RR today.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatSummary(&tc.agg))
		})
	}
}

type memoryRefreshLog struct {
	mu       sync.Mutex
	attempts []domain.RefreshAttempt
	err      error
}

func (l *memoryRefreshLog) Record(_ context.Context, a domain.RefreshAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.attempts = append(l.attempts, a)
	return nil
}

func (l *memoryRefreshLog) Recent(_ context.Context, playerID string, limit int) ([]domain.RefreshAttempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	var out []domain.RefreshAttempt
	for i := len(l.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if l.attempts[i].PlayerID == playerID {
			out = append(out, l.attempts[i])
		}
	}
	return out, nil
}

type failingStore struct{}

func (failingStore) Due(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("redis down")
}

func (failingStore) Clear(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func newTestService(up *stubUpstream, store throttle.Store, log RefreshLog) *StatsService {
	svc := NewStatsService(&config.Config{Season: 2}, up, store, log, zerolog.Nop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestTodaySummary_EndToEnd(t *testing.T) {
	up := &stubUpstream{pages: map[int][]api.MatchRecord{0: {
		boolRecord(todayAt(9), true, 15, nil),
		boolRecord(yesterday, true, 40, intPtr(9)),
		boolRecord(todayAt(11), false, -12, nil),
		boolRecord(todayAt(13), true, 18, intPtr(10)),
	}}}
	refreshLog := &memoryRefreshLog{}
	svc := newTestService(up, throttle.NewMemoryStore(30*time.Minute), refreshLog)

	summary, err := svc.TodaySummary(context.Background(), "p1")
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, "Rank Platinum 3. They've won 2, lost 1, and have +21 RR today.", summary)
	assert.Equal(t, []string{"p1"}, up.updates)
	require.Len(t, refreshLog.attempts, 1)
	assert.True(t, refreshLog.attempts[0].Succeeded)
	assert.Equal(t, now, refreshLog.attempts[0].RequestedAt)
}

func TestTodaySummary_RefreshThrottled(t *testing.T) {
	up := &stubUpstream{pages: pagesOfSizes(1)}
	svc := newTestService(up, throttle.NewMemoryStore(30*time.Minute), &memoryRefreshLog{})

	_, err := svc.TodaySummary(context.Background(), "p1")
	require.NoError(t, err)
	_, err = svc.TodaySummary(context.Background(), "p1")
	require.NoError(t, err)
	svc.Wait()
	assert.Len(t, up.updates, 1)

	existed, err := svc.ClearThrottle(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = svc.TodaySummary(context.Background(), "p1")
	require.NoError(t, err)
	svc.Wait()
	assert.Len(t, up.updates, 2)
}

func TestTodaySummary_RefreshFailureIsSwallowed(t *testing.T) {
	up := &stubUpstream{pages: pagesOfSizes(1), updateErr: errors.New("update endpoint down")}
	refreshLog := &memoryRefreshLog{}
	store := throttle.NewMemoryStore(30 * time.Minute)
	svc := newTestService(up, store, refreshLog)

	summary, err := svc.TodaySummary(context.Background(), "p1")
	require.NoError(t, err)
	svc.Wait()

	assert.Contains(t, summary, "They've won 0, lost 0")
	require.Len(t, refreshLog.attempts, 1)
	assert.False(t, refreshLog.attempts[0].Succeeded)
	assert.Equal(t, "update endpoint down", refreshLog.attempts[0].Error)

	due, _ := store.Due(context.Background(), "p1", now)
	assert.False(t, due, "a failed refresh still consumes the cooldown")
}

func TestTodaySummary_ThrottleAndLogFailuresAreSwallowed(t *testing.T) {
	up := &stubUpstream{pages: pagesOfSizes(1)}
	svc := newTestService(up, failingStore{}, &memoryRefreshLog{err: errors.New("disk full")})

	_, err := svc.TodaySummary(context.Background(), "p1")
	require.NoError(t, err)
	svc.Wait()
	assert.Empty(t, up.updates)

	_, err = svc.ClearThrottle(context.Background(), "p1")
	assert.Error(t, err)

	_, err = svc.RecentRefreshes(context.Background(), "p1")
	assert.Error(t, err)
}

func TestTodaySummary_UpstreamErrorPropagates(t *testing.T) {
	up := &stubUpstream{failAt: map[int]error{0: &api.APIError{StatusCode: 500}}}
	svc := newTestService(up, throttle.NewMemoryStore(30*time.Minute), &memoryRefreshLog{})

	_, err := svc.TodaySummary(context.Background(), "p1")
	svc.Wait()

	var upstreamErr *UpstreamError
	assert.ErrorAs(t, err, &upstreamErr)
}

func TestRecentRefreshes(t *testing.T) {
	refreshLog := &memoryRefreshLog{attempts: []domain.RefreshAttempt{
		{PlayerID: "p1", RequestedAt: now.Add(-time.Hour), Succeeded: true},
		{PlayerID: "p2", RequestedAt: now},
		{PlayerID: "p1", RequestedAt: now},
	}}
	svc := newTestService(&stubUpstream{}, throttle.NewMemoryStore(time.Minute), refreshLog)

	attempts, err := svc.RecentRefreshes(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, now, attempts[0].RequestedAt)
}
