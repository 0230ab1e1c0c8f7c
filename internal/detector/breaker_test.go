package detector

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/internal/video"
)

type scriptedDetector struct {
	err   error
	calls atomic.Int64
}

func (d *scriptedDetector) TrackPersons(ctx context.Context, frame *video.Frame) ([]domain.Tracking, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return []domain.Tracking{}, nil
}

func breakerFrame() *video.Frame {
	return &video.Frame{StreamID: "cam-1", Width: 2, Height: 2, Data: make([]byte, 12), CapturedAt: time.Now()}
}

func TestBreakerPropagatesBusy(t *testing.T) {
	inner := &scriptedDetector{err: ErrBusy}
	b := NewBreakerDetector(inner, testLogger(), nil)

	// A dropped frame surfaces as ErrBusy so the caller skips it
	// instead of analyzing an empty detection set
	for i := 0; i < 20; i++ {
		_, err := b.TrackPersons(context.Background(), breakerFrame())
		assert.ErrorIs(t, err, ErrBusy)
	}

	// Backpressure never trips the breaker
	inner.err = nil
	_, err := b.TrackPersons(context.Background(), breakerFrame())
	require.NoError(t, err)
	assert.Equal(t, int64(21), inner.calls.Load())
}

func TestBreakerOpensOnConsecutiveFailures(t *testing.T) {
	inner := &scriptedDetector{err: stderrors.New("worker hung")}
	b := NewBreakerDetector(inner, testLogger(), nil)

	for i := 0; i < 5; i++ {
		_, err := b.TrackPersons(context.Background(), breakerFrame())
		require.Error(t, err)
		require.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	// The sixth call is rejected without reaching the worker
	_, err := b.TrackPersons(context.Background(), breakerFrame())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int64(5), inner.calls.Load())
}
