package api

import (
	"context"
	"fmt"
	"net/url"
	"rivals-tracker/internal/config"
	"rivals-tracker/internal/constants"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

type RivalsClient struct {
	baseURL     string
	apiKey      string
	client      *fasthttp.Client
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`

	// seconds until reset
	Reset int `json:"reset"`

	UpdatedAt time.Time `json:"updated_at"`
}

// APIError is returned for any non-2xx upstream response.
type APIError struct {
	StatusCode int
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %d", e.StatusCode)
}

func NewRivalsClient(cfg *config.Config) *RivalsClient {
	return &RivalsClient{
		baseURL: strings.TrimRight(cfg.RivalsBaseURL, "/"),
		apiKey:  cfg.RivalsAPIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     50,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

func (c *RivalsClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *RivalsClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if limit := string(resp.Header.Peek("X-Ratelimit-Limit")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Ratelimit-Remaining")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	if reset := string(resp.Header.Peek("X-Ratelimit-Reset")); reset != "" {
		if val, err := strconv.Atoi(reset); err == nil {
			c.rateLimit.Reset = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

// TriggerUpdate asks upstream to re-sync the player's data. The response
// body is ignored.
func (c *RivalsClient) TriggerUpdate(ctx context.Context, playerID string) error {
	u := fmt.Sprintf("%s/player/%s/update", c.baseURL, url.PathEscape(playerID))
	_, err := c.do(ctx, u)
	return err
}

// GetMatchHistory fetches one page of competitive match history starting at
// skip.
func (c *RivalsClient) GetMatchHistory(ctx context.Context, playerID string, season, skip int) (*MatchHistory, error) {
	q := url.Values{}
	q.Set("season", strconv.Itoa(season))
	q.Set("skip", strconv.Itoa(skip))
	q.Set("game_mode", strconv.Itoa(constants.HistoryGameMode))
	u := fmt.Sprintf("%s/player/%s/match-history?%s", c.baseURL, url.PathEscape(playerID), q.Encode())

	body, err := c.do(ctx, u)
	if err != nil {
		return nil, err
	}
	return decodeMatchHistory(body)
}

func (c *RivalsClient) do(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	c.updateRateLimit(resp)

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return nil, &APIError{StatusCode: code, URL: uri}
	}

	// resp is released on return
	return append([]byte(nil), resp.Body()...), nil
}
