// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package trakt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tracktarr/internal/config"
	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/metrics"
)

const (
	apiVersion   = "2"
	maxBodyBytes = 16 << 20
	service      = "trakt"
)

// User is the identity a user-scoped call runs as.
type User struct {
	ID          string
	AccessToken string
}

// API is the set of watch-tracker calls the aggregator relies on.
// Client, CachedClient and CircuitBreakerClient all implement it.
type API interface {
	LastActivities(ctx context.Context, user User) (LastActivities, error)
	Watchlist(ctx context.Context, user User) ([]Item, error)
	Lists(ctx context.Context, user User) ([]List, error)
	ListItems(ctx context.Context, user User, slug string) ([]Item, error)
	Ratings(ctx context.Context, user User, typ MediaType, ratings []int) ([]Item, error)
	HiddenShows(ctx context.Context, user User) ([]HiddenItem, error)
	WatchedShows(ctx context.Context, user User) ([]WatchedShow, error)
	ShowProgress(ctx context.Context, user User, showID int) (Progress, error)
	ShowDetails(ctx context.Context, showID int) (Show, error)
	Seasons(ctx context.Context, showID int) ([]Season, error)
}

var _ API = (*Client)(nil)

// Client calls the watch-tracker REST API.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
	limiter    *rate.Limiter

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client from configuration. A host without a scheme
// is served over https.
func NewClient(cfg *config.TraktConfig) *Client {
	base := strings.TrimSuffix(cfg.Host, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}

	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Client{
		baseURL:    base,
		clientID:   cfg.ClientID,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, max(cfg.Burst, 1)),
		now:        time.Now,
		sleep:      sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// get performs an authenticated GET and returns the raw body of a 2xx
// response. A 429 is retried once after the server-provided delay.
func (c *Client) get(ctx context.Context, user *User, path string, query url.Values) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if len(query) > 0 {
			req.URL.RawQuery = query.Encode()
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("trakt-api-version", apiVersion)
		req.Header.Set("trakt-api-key", c.clientID)
		if user != nil {
			req.Header.Set("Authorization", "Bearer "+user.AccessToken)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordExternalRequest(service, "error", time.Since(start))
			return nil, fmt.Errorf("trakt %s: %w", path, err)
		}
		metrics.RecordExternalRequest(service, strconv.Itoa(resp.StatusCode), time.Since(start))

		if resp.StatusCode == http.StatusTooManyRequests {
			delay := c.retryDelay(resp.Header)
			_ = resp.Body.Close()
			if attempt > 0 {
				return nil, fmt.Errorf("%s: %w", path, ErrRateLimited)
			}
			metrics.RateLimitWaits.WithLabelValues(service).Inc()
			logging.Ctx(ctx).Warn().Str("path", path).Dur("retry_delay", delay).Msg("Trakt API rate limited (HTTP 429), retrying once")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read trakt %s: %w", path, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		}
		return body, nil
	}
}

// retryDelay reads Retry-After (seconds), falling back to the "until"
// instant of the X-Ratelimit JSON header.
func (c *Client) retryDelay(h http.Header) time.Duration {
	if s, err := strconv.Atoi(strings.TrimSpace(h.Get("Retry-After"))); err == nil && s > 0 {
		return time.Duration(s) * time.Second
	}
	if raw := h.Get("X-Ratelimit"); raw != "" {
		var info struct {
			Until time.Time `json:"until"`
		}
		if err := json.Unmarshal([]byte(raw), &info); err == nil && !info.Until.IsZero() {
			if d := info.Until.Sub(c.now()); d > 0 {
				return d
			}
		}
	}
	return 0
}

// LastActivities fetches the per-section activity timestamps.
func (c *Client) LastActivities(ctx context.Context, user User) (LastActivities, error) {
	body, err := c.get(ctx, &user, "/sync/last_activities", nil)
	if err != nil {
		return LastActivities{}, err
	}
	return ParseLastActivities(body)
}

// Watchlist fetches the full watchlist with extended metadata.
func (c *Client) Watchlist(ctx context.Context, user User) ([]Item, error) {
	body, err := c.get(ctx, &user, "/sync/watchlist", url.Values{"extended": {"full"}})
	if err != nil {
		return nil, err
	}
	return ParseItems(body)
}

// Lists fetches the user's personal lists.
func (c *Client) Lists(ctx context.Context, user User) ([]List, error) {
	body, err := c.get(ctx, &user, "/users/me/lists", nil)
	if err != nil {
		return nil, err
	}
	return ParseLists(body)
}

// ListItems fetches the items of one personal list.
func (c *Client) ListItems(ctx context.Context, user User, slug string) ([]Item, error) {
	body, err := c.get(ctx, &user, "/users/me/lists/"+url.PathEscape(slug)+"/items", nil)
	if err != nil {
		return nil, err
	}
	return ParseItems(body)
}

// Ratings fetches the user's rated items of one type, restricted to the
// given rating values.
func (c *Client) Ratings(ctx context.Context, user User, typ MediaType, ratings []int) ([]Item, error) {
	values := make([]string, 0, len(ratings))
	for _, r := range ratings {
		values = append(values, strconv.Itoa(r))
	}
	path := fmt.Sprintf("/sync/ratings/%ss/%s", typ, strings.Join(values, ","))
	body, err := c.get(ctx, &user, path, nil)
	if err != nil {
		return nil, err
	}
	return ParseItems(body)
}

// HiddenShows fetches the shows hidden from progress.
func (c *Client) HiddenShows(ctx context.Context, user User) ([]HiddenItem, error) {
	body, err := c.get(ctx, &user, "/users/hidden/progress_watched", url.Values{
		"type":  {string(TypeShow)},
		"limit": {"9999"},
	})
	if err != nil {
		return nil, err
	}
	return ParseHidden(body)
}

// WatchedShows fetches every show the user has watched.
func (c *Client) WatchedShows(ctx context.Context, user User) ([]WatchedShow, error) {
	body, err := c.get(ctx, &user, "/sync/watched/shows", url.Values{"extended": {"noseasons"}})
	if err != nil {
		return nil, err
	}
	return ParseWatchedShows(body)
}

// ShowProgress fetches the watched progress of one show.
func (c *Client) ShowProgress(ctx context.Context, user User, showID int) (Progress, error) {
	body, err := c.get(ctx, &user, fmt.Sprintf("/shows/%d/progress/watched", showID), nil)
	if err != nil {
		return Progress{}, err
	}
	return ParseProgress(body)
}

// ShowDetails fetches extended show metadata.
func (c *Client) ShowDetails(ctx context.Context, showID int) (Show, error) {
	body, err := c.get(ctx, nil, fmt.Sprintf("/shows/%d", showID), url.Values{"extended": {"full"}})
	if err != nil {
		return Show{}, err
	}
	return ParseShow(body)
}

// Seasons fetches every season of a show with its episodes.
func (c *Client) Seasons(ctx context.Context, showID int) ([]Season, error) {
	body, err := c.get(ctx, nil, fmt.Sprintf("/shows/%d/seasons", showID), url.Values{"extended": {"episodes"}})
	if err != nil {
		return nil, err
	}
	return ParseSeasons(body)
}
