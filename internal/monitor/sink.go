package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/rewired-gh/mobatips/internal/logger"
	"github.com/rewired-gh/mobatips/internal/models"
)

// NamedSink is a delivery sink with a name for logging.
type NamedSink struct {
	Name string
	Sink TipSink
}

// MultiSink delivers to every sink in order. Delivery counts as successful when at least
// one sink accepts the tip; otherwise the joined errors are returned.
type MultiSink struct {
	sinks []NamedSink
}

func NewMultiSink(sinks ...NamedSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Deliver(ctx context.Context, tip models.ProfessionalTip) error {
	if len(m.sinks) == 0 {
		return errors.New("no delivery sinks configured")
	}

	var errs []error
	delivered := 0
	for _, s := range m.sinks {
		if err := s.Sink.Deliver(ctx, tip); err != nil {
			logger.Warn("Sink %s failed to deliver tip %s: %v", s.Name, tip.ID, err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return errors.Join(errs...)
	}
	return nil
}
