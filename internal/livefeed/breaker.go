package livefeed

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/rewired-gh/mobatips/internal/logger"
	"github.com/rewired-gh/mobatips/internal/models"
)

// Source is anything that can list live matches.
type Source interface {
	FetchLiveMatches(ctx context.Context) ([]models.TelemetrySnapshot, error)
}

// BreakerSource stops calling the upstream source after repeated failures and
// fails fast until the breaker's timeout elapses.
type BreakerSource struct {
	source  Source
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerSource wraps source with a circuit breaker that opens after
// failureThreshold consecutive failures. Cancellations do not count as failures.
func NewBreakerSource(source Source, failureThreshold uint32, openTimeout time.Duration) *BreakerSource {
	if failureThreshold == 0 {
		failureThreshold = 5
	}
	settings := gobreaker.Settings{
		Name:    "live-feed",
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker %s: %s -> %s", name, from, to)
		},
	}
	return &BreakerSource{source: source, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerSource) FetchLiveMatches(ctx context.Context) ([]models.TelemetrySnapshot, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		return b.source.FetchLiveMatches(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.([]models.TelemetrySnapshot), nil
}

// State reports the breaker state, e.g. "closed" or "open".
func (b *BreakerSource) State() string {
	return b.breaker.State().String()
}
