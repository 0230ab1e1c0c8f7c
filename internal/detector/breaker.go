package detector

import (
	"context"

	"github.com/sony/gobreaker"

	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/internal/video"
	"github.com/marmot-vision/marmot/pkg/logging"
	"github.com/marmot-vision/marmot/pkg/metrics"
)

// BreakerDetector wraps a Detector with a circuit breaker so a hung or
// crashing inference worker degrades to dropped frames instead of a
// blocked pipeline.
type BreakerDetector struct {
	inner   Detector
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
}

const breakerName = "inference"

// NewBreakerDetector wraps a detector with circuit breaking
func NewBreakerDetector(inner Detector, logger *logging.Logger, m *metrics.Metrics) *BreakerDetector {
	log := logger.WithComponent("detector-breaker")

	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Backpressure, not a worker fault
			return err == nil || err == ErrBusy
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state change",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			if m != nil {
				m.SetCircuitBreakerState(name, int(to))
				if to == gobreaker.StateOpen {
					m.RecordCircuitBreakerTrip(name)
				}
			}
		},
	}

	return &BreakerDetector{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  log,
	}
}

// TrackPersons runs inference through the circuit breaker.
// ErrBusy propagates to the caller so the frame is skipped, but does
// not count as a failure.
func (b *BreakerDetector) TrackPersons(ctx context.Context, frame *video.Frame) ([]domain.Tracking, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.TrackPersons(ctx, frame)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Tracking), nil
}
