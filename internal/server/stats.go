package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"rivals-tracker/internal/domain"
	"rivals-tracker/internal/service"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const PlayerPath = "/marvel-rivals/player/{playerID}"

type StatsProvider interface {
	TodaySummary(ctx context.Context, playerID string) (string, error)
	ClearThrottle(ctx context.Context, playerID string) (bool, error)
	RecentRefreshes(ctx context.Context, playerID string) ([]domain.RefreshAttempt, error)
}

type StatsServer struct {
	stats  StatsProvider
	logger zerolog.Logger
}

func NewStatsServer(stats *service.StatsService, logger zerolog.Logger) *StatsServer {
	return &StatsServer{stats: stats, logger: logger}
}

// Routes builds the public router.
func (s *StatsServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route(PlayerPath, func(r chi.Router) {
		r.Get("/stats/today", s.handleStatsToday)
		r.Get("/clear-cache", s.handleClearCache)
		r.Get("/refreshes", s.handleRefreshes)
	})
	return r
}

func (s *StatsServer) handleStatsToday(w http.ResponseWriter, r *http.Request) {
	playerID := playerParam(r)

	summary, err := s.stats.TodaySummary(r.Context(), playerID)
	if err != nil {
		s.requestLogger(r).Error().Err(err).Str("player_id", playerID).Msg("stats request failed")
		var upstreamErr *service.UpstreamError
		if errors.As(err, &upstreamErr) {
			writeText(w, http.StatusInternalServerError, "Error fetching match history: "+upstreamErr.Err.Error())
			return
		}
		writeText(w, http.StatusInternalServerError, "Error building stats: "+err.Error())
		return
	}
	writeText(w, http.StatusOK, summary)
}

func (s *StatsServer) handleClearCache(w http.ResponseWriter, r *http.Request) {
	playerID := playerParam(r)

	existed, err := s.stats.ClearThrottle(r.Context(), playerID)
	if err != nil {
		s.requestLogger(r).Error().Err(err).Str("player_id", playerID).Msg("clear cache failed")
		writeText(w, http.StatusInternalServerError, "Error clearing cache: "+err.Error())
		return
	}
	if !existed {
		writeText(w, http.StatusOK, fmt.Sprintf("No cache entry found for player %s", playerID))
		return
	}
	writeText(w, http.StatusOK, fmt.Sprintf("Cache cleared for player %s", playerID))
}

func (s *StatsServer) handleRefreshes(w http.ResponseWriter, r *http.Request) {
	playerID := playerParam(r)

	attempts, err := s.stats.RecentRefreshes(r.Context(), playerID)
	if err != nil {
		s.requestLogger(r).Error().Err(err).Str("player_id", playerID).Msg("refresh log request failed")
		writeText(w, http.StatusInternalServerError, "Error loading refresh log: "+err.Error())
		return
	}
	if len(attempts) == 0 {
		writeText(w, http.StatusOK, fmt.Sprintf("No refreshes recorded for player %s", playerID))
		return
	}

	var b strings.Builder
	for _, a := range attempts {
		status := "ok"
		if !a.Succeeded {
			status = "failed: " + a.Error
		}
		fmt.Fprintf(&b, "%s %s\n", a.RequestedAt.UTC().Format(time.RFC3339), status)
	}
	writeText(w, http.StatusOK, b.String())
}

func (s *StatsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

// playerParam returns the unescaped player id; chi matches on the raw path
// when one is present.
func playerParam(r *http.Request) string {
	raw := chi.URLParam(r, "playerID")
	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}

// requestLogger prefers the request-scoped logger set by the request id
// middleware.
func (s *StatsServer) requestLogger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.logger
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
