package video

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmot-vision/marmot/pkg/logging"
)

func testLogger() *logging.Logger {
	cfg := logging.DefaultConfig("video-test")
	cfg.Level = logging.LevelError
	return logging.New(cfg)
}

// fakeSource delivers frames from a script of read results
type fakeSource struct {
	openErr   error
	readErr   error
	maxFrames int64

	opens atomic.Int64
	reads atomic.Int64
}

func (s *fakeSource) Open(ctx context.Context) error {
	s.opens.Add(1)
	return s.openErr
}

func (s *fakeSource) ReadFrame(ctx context.Context) (*Frame, error) {
	n := s.reads.Add(1)
	if s.readErr != nil && (s.maxFrames == 0 || n > s.maxFrames) {
		return nil, s.readErr
	}
	return &Frame{
		StreamID:   "cam-1",
		Sequence:   uint64(n),
		Width:      2,
		Height:     2,
		Data:       make([]byte, 12),
		CapturedAt: time.Now(),
	}, nil
}

func (s *fakeSource) Close() error { return nil }

func testConfig() StreamConfig {
	config := StreamConfig{
		StreamID:   "cam-1",
		SourceType: "rtsp",
		SourceURL:  "rtsp://cam/stream",
		TargetFPS:  30,
	}
	if err := config.Normalize(); err != nil {
		panic(err)
	}
	return config
}

func TestWorkerCapturesFrames(t *testing.T) {
	source := &fakeSource{}
	worker := NewWorker(testConfig(), source, testLogger(), nil)

	worker.Start(context.Background())
	defer worker.Stop(time.Second)

	select {
	case frame := <-worker.Frames():
		assert.Equal(t, "cam-1", frame.StreamID)
		assert.Len(t, frame.Data, 12)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame captured")
	}

	assert.Equal(t, StatusConnected, worker.Status())
	assert.GreaterOrEqual(t, worker.Stats().FramesCaptured, uint64(1))
}

func TestWorkerStopsCleanly(t *testing.T) {
	source := &fakeSource{}
	worker := NewWorker(testConfig(), source, testLogger(), nil)

	worker.Start(context.Background())
	time.Sleep(100 * time.Millisecond)

	require.True(t, worker.Stop(time.Second))
	assert.Equal(t, StatusStopped, worker.Status())
}

func TestWorkerNoReconnectEntersError(t *testing.T) {
	source := &fakeSource{readErr: errors.New("stream lost"), maxFrames: 2}
	config := testConfig()
	config.AutoReconnect = false

	worker := NewWorker(config, source, testLogger(), nil)
	worker.Start(context.Background())
	defer worker.Stop(time.Second)

	require.Eventually(t, func() bool {
		return worker.Status() == StatusError
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, int64(1), source.opens.Load())
	assert.Equal(t, uint64(1), worker.Stats().ErrorCount)

	// The run loop exiting must not overwrite the error status
	require.True(t, worker.Stop(time.Second))
	assert.Equal(t, StatusError, worker.Status())
}

func TestWorkerReconnects(t *testing.T) {
	source := &fakeSource{openErr: errors.New("connection refused")}
	config := testConfig()
	config.AutoReconnect = true

	worker := NewWorker(config, source, testLogger(), nil)
	worker.Start(context.Background())
	defer worker.Stop(time.Second)

	// First retry fires after 1s per the backoff schedule
	require.Eventually(t, func() bool {
		return source.opens.Load() >= 2
	}, 3*time.Second, 50*time.Millisecond)

	assert.GreaterOrEqual(t, worker.Stats().Reconnects, uint64(1))
}

func TestWorkerStatusListener(t *testing.T) {
	source := &fakeSource{}
	worker := NewWorker(testConfig(), source, testLogger(), nil)

	var transitions atomic.Int64
	worker.SetStatusListener(func(streamID string, from, to Status) {
		assert.Equal(t, "cam-1", streamID)
		transitions.Add(1)
	})

	worker.Start(context.Background())
	defer worker.Stop(time.Second)

	// disconnected -> connecting -> connected
	require.Eventually(t, func() bool {
		return transitions.Load() >= 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWorkerUpdateConfig(t *testing.T) {
	worker := NewWorker(testConfig(), &fakeSource{}, testLogger(), nil)

	fps := 5
	name := "Renamed"
	require.NoError(t, worker.UpdateConfig(&name, &fps, nil))
	assert.Equal(t, 5, worker.Config().TargetFPS)
	assert.Equal(t, "Renamed", worker.Config().Name)

	bad := 120
	assert.ErrorIs(t, worker.UpdateConfig(nil, &bad, nil), ErrInvalidFPS)
}

func TestEnqueueDropsOldest(t *testing.T) {
	worker := NewWorker(testConfig(), &fakeSource{}, testLogger(), nil)

	for i := 0; i < frameQueueSize+10; i++ {
		worker.enqueue(&Frame{Sequence: uint64(i), CapturedAt: time.Now()})
	}

	assert.Equal(t, uint64(10), worker.framesDropped.Load())
	assert.Len(t, worker.frames, frameQueueSize)

	// Oldest frames were discarded
	first := <-worker.frames
	assert.Equal(t, uint64(10), first.Sequence)
}

func TestStreamConfigNormalize(t *testing.T) {
	tests := []struct {
		name      string
		config    StreamConfig
		expectErr error
	}{
		{
			name:   "Defaults applied",
			config: StreamConfig{StreamID: "cam-1", SourceType: "rtsp", SourceURL: "rtsp://cam/stream"},
		},
		{
			name:      "Stream ID required",
			config:    StreamConfig{SourceType: "rtsp", SourceURL: "rtsp://cam/stream"},
			expectErr: ErrStreamIDRequired,
		},
		{
			name:      "Source URL required",
			config:    StreamConfig{StreamID: "cam-1", SourceType: "rtsp"},
			expectErr: ErrSourceRequired,
		},
		{
			name:      "FPS out of range",
			config:    StreamConfig{StreamID: "cam-1", SourceType: "rtsp", SourceURL: "rtsp://cam/stream", TargetFPS: 99},
			expectErr: ErrInvalidFPS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Normalize()
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultTargetFPS, tt.config.TargetFPS)
			assert.Equal(t, "cam-1", tt.config.Name)
		})
	}
}
