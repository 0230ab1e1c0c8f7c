// Package pipeline connects capture workers to detection and zone
// analysis. A collector drains the freshest frames from every stream
// into a bounded queue; processing workers run inference and publish
// the results downstream.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmot-vision/marmot/internal/analyzer"
	"github.com/marmot-vision/marmot/internal/detector"
	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/internal/video"
	"github.com/marmot-vision/marmot/pkg/logging"
	"github.com/marmot-vision/marmot/pkg/metrics"
)

const (
	processingQueueSize = 1000
	resultsPerStream    = 100

	defaultWorkerCount  = 2
	collectInterval     = 20 * time.Millisecond
	statsUpdateInterval = 100 // frames between FPS recalculations
)

// Result is the outcome of fully processing one frame
type Result struct {
	StreamID         string                 `json:"streamId"`
	Timestamp        time.Time              `json:"timestamp"`
	PersonCount      int                    `json:"personCount"`
	Tracks           []domain.Tracking      `json:"-"`
	Analysis         analyzer.FrameAnalysis `json:"analysis"`
	ProcessingTimeMs float64                `json:"processingTimeMs"`
}

// Sink receives processed results for persistence and event publishing
type Sink interface {
	HandleResult(ctx context.Context, result *Result)
}

type job struct {
	frame    *video.Frame
	analyzer *analyzer.Analyzer
}

// Stats is a snapshot of pipeline counters
type Stats struct {
	FramesProcessed  uint64  `json:"framesProcessed"`
	FramesDropped    uint64  `json:"framesDropped"`
	AverageFPS       float64 `json:"averageFps"`
	MeanProcessingMs float64 `json:"meanProcessingMs"`
	QueueDepth       int     `json:"queueDepth"`
	WorkerCount      int     `json:"workerCount"`
}

// Processor runs the frame processing pipeline
type Processor struct {
	manager  *video.Manager
	detector detector.Detector
	sink     Sink
	logger   *logging.Logger
	metrics  *metrics.Metrics

	workerCount int
	queue       chan job

	mu      sync.RWMutex
	results map[string][]*Result

	framesProcessed   atomic.Uint64
	framesDropped     atomic.Uint64
	totalProcessingMs atomic.Uint64

	fpsMu        sync.Mutex
	fpsWindowAt  time.Time
	fpsWindowCnt uint64
	averageFPS   float64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProcessor creates a pipeline processor
func NewProcessor(manager *video.Manager, det detector.Detector, sink Sink, logger *logging.Logger, m *metrics.Metrics) *Processor {
	return &Processor{
		manager:     manager,
		detector:    det,
		sink:        sink,
		logger:      logger.WithComponent("pipeline"),
		metrics:     m,
		workerCount: defaultWorkerCount,
		queue:       make(chan job, processingQueueSize),
		results:     make(map[string][]*Result),
	}
}

// SetWorkerCount overrides the processing worker count. Must be called
// before Start.
func (p *Processor) SetWorkerCount(n int) {
	if n > 0 {
		p.workerCount = n
	}
}

// Start launches the collector and processing workers
func (p *Processor) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.fpsMu.Lock()
	p.fpsWindowAt = time.Now()
	p.fpsMu.Unlock()

	p.wg.Add(1)
	go p.collect(runCtx)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.work(runCtx, i)
	}

	p.logger.Info("Pipeline started", "workers", p.workerCount)
}

// Stop shuts the pipeline down, waiting up to timeout for workers
func (p *Processor) Stop(timeout time.Duration) bool {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Pipeline stopped")
		return true
	case <-time.After(timeout):
		p.logger.Warn("Pipeline workers did not stop in time", "timeout", timeout.String())
		return false
	}
}

// collect drains the freshest frame from each stream into the queue
func (p *Processor) collect(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(collectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, stream := range p.manager.List() {
			select {
			case frame := <-stream.Worker.Frames():
				p.enqueue(job{frame: frame, analyzer: stream.Analyzer})
			default:
			}
		}

		if p.metrics != nil {
			p.metrics.SetQueueDepth("processing", len(p.queue))
		}
	}
}

// enqueue pushes a job, dropping the oldest queued job when full
func (p *Processor) enqueue(j job) {
	select {
	case p.queue <- j:
		return
	default:
	}

	select {
	case old := <-p.queue:
		p.framesDropped.Add(1)
		if p.metrics != nil {
			p.metrics.RecordFrameDropped(old.frame.StreamID, "processing")
		}
	default:
	}

	select {
	case p.queue <- j:
	default:
		p.framesDropped.Add(1)
		if p.metrics != nil {
			p.metrics.RecordFrameDropped(j.frame.StreamID, "processing")
		}
	}
}

func (p *Processor) work(ctx context.Context, id int) {
	defer p.wg.Done()

	logger := p.logger.WithFields(map[string]any{"worker": id})

	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-p.queue:
			if !ok {
				return
			}
			p.process(ctx, logger, j)
		}
	}
}

func (p *Processor) process(ctx context.Context, logger *logging.Logger, j job) {
	start := time.Now()

	tracks, err := p.detector.TrackPersons(ctx, j.frame)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.WithError(err).WithStreamID(j.frame.StreamID).Debug("Inference skipped")
		return
	}

	analysis := j.analyzer.ProcessFrame(tracks, j.frame.CapturedAt)
	elapsed := time.Since(start)

	result := &Result{
		StreamID:         j.frame.StreamID,
		Timestamp:        j.frame.CapturedAt,
		PersonCount:      len(tracks),
		Tracks:           tracks,
		Analysis:         analysis,
		ProcessingTimeMs: float64(elapsed.Microseconds()) / 1000,
	}

	p.storeResult(result)
	p.recordStats(result, elapsed)

	if p.sink != nil {
		p.sink.HandleResult(ctx, result)
	}
}

func (p *Processor) storeResult(result *Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	history := append(p.results[result.StreamID], result)
	if len(history) > resultsPerStream {
		history = history[len(history)-resultsPerStream:]
	}
	p.results[result.StreamID] = history
}

func (p *Processor) recordStats(result *Result, elapsed time.Duration) {
	processed := p.framesProcessed.Add(1)
	p.totalProcessingMs.Add(uint64(elapsed.Milliseconds()))

	if p.metrics != nil {
		p.metrics.RecordFrameProcessed(result.StreamID, elapsed)
	}

	// Recalculate the running FPS every N frames
	if processed%statsUpdateInterval == 0 {
		p.fpsMu.Lock()
		windowElapsed := time.Since(p.fpsWindowAt)
		if windowElapsed > 0 {
			p.averageFPS = float64(processed-p.fpsWindowCnt) / windowElapsed.Seconds()
		}
		p.fpsWindowAt = time.Now()
		p.fpsWindowCnt = processed
		p.fpsMu.Unlock()
	}
}

// LatestResults returns the most recent results for a stream, newest first
func (p *Processor) LatestResults(streamID string, limit int) []*Result {
	p.mu.RLock()
	defer p.mu.RUnlock()

	history := p.results[streamID]
	if limit <= 0 || limit > len(history) {
		limit = len(history)
	}

	out := make([]*Result, 0, limit)
	for i := len(history) - 1; i >= len(history)-limit; i-- {
		out = append(out, history[i])
	}
	return out
}

// DropResults discards stored results for a removed stream
func (p *Processor) DropResults(streamID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.results, streamID)
}

// Stats returns a snapshot of pipeline counters
func (p *Processor) Stats() Stats {
	processed := p.framesProcessed.Load()

	var meanMs float64
	if processed > 0 {
		meanMs = float64(p.totalProcessingMs.Load()) / float64(processed)
	}

	p.fpsMu.Lock()
	fps := p.averageFPS
	p.fpsMu.Unlock()

	return Stats{
		FramesProcessed:  processed,
		FramesDropped:    p.framesDropped.Load(),
		AverageFPS:       fps,
		MeanProcessingMs: meanMs,
		QueueDepth:       len(p.queue),
		WorkerCount:      p.workerCount,
	}
}
