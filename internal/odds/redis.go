// Package odds reads current bookmaker odds from the Redis odds cache.
package odds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rewired-gh/mobatips/internal/models"
)

// ErrUnavailable is returned when no usable odds exist for a match.
var ErrUnavailable = errors.New("odds unavailable")

// Getter is the subset of the Redis client used by RedisSource.
type Getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisSource reads odds written by the odds processor under "<prefix><matchID>".
type RedisSource struct {
	client Getter
	prefix string
	maxAge time.Duration
	now    func() time.Time
}

type cachedOdds struct {
	Team1     decimal.Decimal `json:"team1"`
	Team2     decimal.Decimal `json:"team2"`
	Bookmaker string          `json:"bookmaker"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewRedisSource creates an odds source. maxAge <= 0 accepts odds of any age.
func NewRedisSource(client Getter, prefix string, maxAge time.Duration) *RedisSource {
	if prefix == "" {
		prefix = "odds:current:"
	}
	return &RedisSource{client: client, prefix: prefix, maxAge: maxAge, now: time.Now}
}

func (s *RedisSource) key(matchID string) string { return s.prefix + matchID }

func (s *RedisSource) FetchOdds(ctx context.Context, matchID string) (models.MatchOdds, error) {
	raw, err := s.client.Get(ctx, s.key(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.MatchOdds{}, fmt.Errorf("%w: no entry for %s", ErrUnavailable, matchID)
	}
	if err != nil {
		return models.MatchOdds{}, fmt.Errorf("failed to read odds for %s: %w", matchID, err)
	}

	var c cachedOdds
	if err := json.Unmarshal(raw, &c); err != nil {
		return models.MatchOdds{}, fmt.Errorf("failed to decode odds for %s: %w", matchID, err)
	}
	if !c.Team1.IsPositive() || !c.Team2.IsPositive() {
		return models.MatchOdds{}, fmt.Errorf("%w: non-positive odds for %s", ErrUnavailable, matchID)
	}
	if s.maxAge > 0 && !c.UpdatedAt.IsZero() && s.now().Sub(c.UpdatedAt) > s.maxAge {
		return models.MatchOdds{}, fmt.Errorf("%w: odds for %s are stale (updated %s)",
			ErrUnavailable, matchID, c.UpdatedAt.Format(time.RFC3339))
	}

	return models.MatchOdds{
		MatchID:   matchID,
		Team1:     c.Team1.InexactFloat64(),
		Team2:     c.Team2.InexactFloat64(),
		Bookmaker: c.Bookmaker,
		UpdatedAt: c.UpdatedAt,
	}, nil
}
