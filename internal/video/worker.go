package video

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmot-vision/marmot/pkg/logging"
	"github.com/marmot-vision/marmot/pkg/metrics"
)

// Status represents the lifecycle state of a capture worker
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
	StatusStopped      Status = "stopped"
)

const (
	frameQueueSize       = 100
	maxConsecutiveErrors = 10
)

// reconnectSchedule is the backoff between reconnection attempts.
// It resets after a successful connection.
var reconnectSchedule = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
	32 * time.Second,
	60 * time.Second,
}

// Stats is a snapshot of worker counters
type Stats struct {
	Status         Status    `json:"status"`
	FramesCaptured uint64    `json:"framesCaptured"`
	FramesDropped  uint64    `json:"framesDropped"`
	ErrorCount     uint64    `json:"errorCount"`
	Reconnects     uint64    `json:"reconnects"`
	ActualFPS      float64   `json:"actualFps"`
	TargetFPS      int       `json:"targetFps"`
	QueueDepth     int       `json:"queueDepth"`
	LastFrameAt    time.Time `json:"lastFrameAt"`
}

// StatusListener is notified on worker status transitions
type StatusListener func(streamID string, from, to Status)

// Worker captures frames from one video source into a bounded queue.
// When the queue is full the oldest frame is dropped so consumers
// always see the freshest data.
type Worker struct {
	config  StreamConfig
	source  Source
	frames  chan *Frame
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	status   Status
	listener StatusListener

	framesCaptured atomic.Uint64
	framesDropped  atomic.Uint64
	errorCount     atomic.Uint64
	reconnects     atomic.Uint64

	fpsWindowStart  time.Time
	fpsWindowFrames int
	actualFPS       atomic.Uint64 // bits of a float64

	lastFrameAt atomic.Int64 // unix nanos

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker creates a capture worker. The config must already be normalized.
func NewWorker(config StreamConfig, source Source, logger *logging.Logger, m *metrics.Metrics) *Worker {
	return &Worker{
		config:  config,
		source:  source,
		frames:  make(chan *Frame, frameQueueSize),
		logger:  logger.WithComponent("capture").WithStreamID(config.StreamID),
		metrics: m,
		status:  StatusDisconnected,
		done:    make(chan struct{}),
	}
}

// SetStatusListener registers a callback for status transitions.
// Must be called before Start.
func (w *Worker) SetStatusListener(listener StatusListener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listener = listener
}

// Config returns the worker's stream configuration
func (w *Worker) Config() StreamConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// UpdateConfig applies runtime-updatable settings. The new rate takes
// effect on the next connection.
func (w *Worker) UpdateConfig(name *string, targetFPS *int, autoReconnect *bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if targetFPS != nil {
		if *targetFPS < MinTargetFPS || *targetFPS > MaxTargetFPS {
			return ErrInvalidFPS
		}
		w.config.TargetFPS = *targetFPS
	}
	if name != nil {
		w.config.Name = *name
	}
	if autoReconnect != nil {
		w.config.AutoReconnect = *autoReconnect
	}
	return nil
}

// Frames returns the bounded frame queue
func (w *Worker) Frames() <-chan *Frame {
	return w.frames
}

// Status returns the current worker status
func (w *Worker) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

func (w *Worker) setStatus(to Status) {
	w.mu.Lock()
	from := w.status
	if from == to {
		w.mu.Unlock()
		return
	}
	w.status = to
	listener := w.listener
	w.mu.Unlock()

	w.logger.Info("Stream status change", "from", string(from), "to", string(to))
	if listener != nil {
		listener(w.config.StreamID, from, to)
	}
}

// Start launches the capture loop
func (w *Worker) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go w.run(runCtx)
}

// Stop cancels the capture loop and waits for it to exit
func (w *Worker) Stop(timeout time.Duration) bool {
	if w.cancel != nil {
		w.cancel()
	}
	select {
	case <-w.done:
		return true
	case <-time.After(timeout):
		w.logger.Warn("Capture worker did not stop in time", "timeout", timeout.String())
		return false
	}
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	defer func() {
		// A worker that gave up on its source stays in error
		if w.Status() != StatusError {
			w.setStatus(StatusStopped)
		}
	}()

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		w.setStatus(StatusConnecting)
		if err := w.source.Open(ctx); err != nil {
			w.logger.WithError(err).Warn("Failed to open video source")
			w.errorCount.Add(1)
			if w.metrics != nil {
				w.metrics.RecordStreamError(w.config.StreamID)
			}
			if !w.backoff(ctx, &attempt) {
				return
			}
			continue
		}

		w.setStatus(StatusConnected)
		attempt = 0

		err := w.captureLoop(ctx)
		_ = w.source.Close()

		if ctx.Err() != nil {
			return
		}

		w.logger.WithError(err).Warn("Capture loop ended, source lost")
		w.errorCount.Add(1)
		if w.metrics != nil {
			w.metrics.RecordStreamError(w.config.StreamID)
		}

		if !w.Config().AutoReconnect {
			w.setStatus(StatusError)
			return
		}
		w.setStatus(StatusDisconnected)
		if !w.backoff(ctx, &attempt) {
			return
		}
	}
}

// backoff sleeps per the reconnect schedule. It returns false when the
// schedule is exhausted or the context was cancelled.
func (w *Worker) backoff(ctx context.Context, attempt *int) bool {
	if *attempt >= len(reconnectSchedule) || w.errorCount.Load() >= maxConsecutiveErrors {
		w.logger.Error("Giving up on video source",
			"attempts", *attempt,
			"errorCount", w.errorCount.Load(),
		)
		w.setStatus(StatusError)
		return false
	}

	delay := reconnectSchedule[*attempt]
	*attempt++
	w.reconnects.Add(1)
	if w.metrics != nil {
		w.metrics.RecordStreamReconnect(w.config.StreamID)
	}

	w.logger.Info("Reconnecting to video source",
		"attempt", *attempt,
		"delay", delay.String(),
	)

	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

func (w *Worker) captureLoop(ctx context.Context) error {
	w.mu.Lock()
	w.fpsWindowStart = time.Now()
	w.fpsWindowFrames = 0
	w.mu.Unlock()

	var lastEmit time.Time

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		frame, err := w.source.ReadFrame(ctx)
		if err != nil {
			return err
		}

		// Successful read clears the consecutive error budget
		w.errorCount.Store(0)

		// Throttle to the target rate; sources may deliver faster
		interval := time.Second / time.Duration(w.Config().TargetFPS)
		if !lastEmit.IsZero() && time.Since(lastEmit) < interval {
			continue
		}
		lastEmit = time.Now()

		w.enqueue(frame)
		w.recordFrame(frame)
	}
}

// enqueue pushes a frame, dropping the oldest queued frame when full
func (w *Worker) enqueue(frame *Frame) {
	select {
	case w.frames <- frame:
		return
	default:
	}

	select {
	case <-w.frames:
		w.framesDropped.Add(1)
		if w.metrics != nil {
			w.metrics.RecordFrameDropped(w.config.StreamID, "capture")
		}
	default:
	}

	select {
	case w.frames <- frame:
	default:
		w.framesDropped.Add(1)
		if w.metrics != nil {
			w.metrics.RecordFrameDropped(w.config.StreamID, "capture")
		}
	}
}

func (w *Worker) recordFrame(frame *Frame) {
	w.framesCaptured.Add(1)
	w.lastFrameAt.Store(frame.CapturedAt.UnixNano())
	if w.metrics != nil {
		w.metrics.RecordFrameCaptured(w.config.StreamID)
	}

	w.mu.Lock()
	w.fpsWindowFrames++
	elapsed := time.Since(w.fpsWindowStart)
	if elapsed >= time.Second {
		fps := float64(w.fpsWindowFrames) / elapsed.Seconds()
		w.actualFPS.Store(floatBits(fps))
		w.fpsWindowStart = time.Now()
		w.fpsWindowFrames = 0
	}
	w.mu.Unlock()
}

// Stats returns a snapshot of the worker counters
func (w *Worker) Stats() Stats {
	var lastFrame time.Time
	if nanos := w.lastFrameAt.Load(); nanos > 0 {
		lastFrame = time.Unix(0, nanos)
	}

	return Stats{
		Status:         w.Status(),
		FramesCaptured: w.framesCaptured.Load(),
		FramesDropped:  w.framesDropped.Load(),
		ErrorCount:     w.errorCount.Load(),
		Reconnects:     w.reconnects.Load(),
		ActualFPS:      floatFromBits(w.actualFPS.Load()),
		TargetFPS:      w.Config().TargetFPS,
		QueueDepth:     len(w.frames),
		LastFrameAt:    lastFrame,
	}
}

func floatBits(f float64) uint64     { return math.Float64bits(f) }
func floatFromBits(b uint64) float64 { return math.Float64frombits(b) }
