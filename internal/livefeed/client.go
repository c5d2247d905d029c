// Package livefeed fetches live match telemetry from the esports data API.
package livefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/rewired-gh/mobatips/internal/logger"
	"github.com/rewired-gh/mobatips/internal/models"
)

// Client provides access to the live match API.
type Client struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryDelayBase time.Duration
	now            func() time.Time
}

type liveMatchesResponse struct {
	Matches []models.TelemetrySnapshot `json:"matches"`
}

// errPermanent marks responses that retrying cannot fix.
var errPermanent = errors.New("permanent error")

// NewClient creates a live feed client. requestsPerMinute <= 0 disables client-side
// rate limiting.
func NewClient(baseURL, apiKey string, timeout time.Duration, requestsPerMinute int) *Client {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:        rate.NewLimiter(limit, 1),
		maxRetries:     3,
		retryDelayBase: time.Second,
		now:            time.Now,
	}
}

// FetchLiveMatches returns the matches the API reports as currently live. Entries
// without a match ID are dropped; events are ordered by timestamp.
func (c *Client) FetchLiveMatches(ctx context.Context) ([]models.TelemetrySnapshot, error) {
	u, err := url.Parse(c.baseURL + "/matches/live")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	body, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch live matches: %w", err)
	}
	defer body.Close()

	var payload liveMatchesResponse
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode live matches: %w", err)
	}

	fetchedAt := c.now()
	matches := make([]models.TelemetrySnapshot, 0, len(payload.Matches))
	for _, m := range payload.Matches {
		if m.MatchID == "" {
			logger.Debug("Skipping live match without ID (%s vs %s)", m.Team1, m.Team2)
			continue
		}
		sort.SliceStable(m.Events, func(i, j int) bool {
			return m.Events[i].Timestamp < m.Events[j].Timestamp
		})
		if m.FetchedAt.IsZero() {
			m.FetchedAt = fetchedAt
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// doRequest performs a GET with rate limiting and retries on transport errors,
// 429 and 5xx responses.
func (c *Client) doRequest(ctx context.Context, urlStr string) (io.ReadCloser, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			resp.Body.Close()
			return nil, fmt.Errorf("%w: status %d", errPermanent, resp.StatusCode)
		default:
			return resp.Body, nil
		}

		if attempt < c.maxRetries {
			logger.Warn("Live feed request attempt %d/%d failed: %v", attempt, c.maxRetries, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryDelayBase):
			}
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
