package video

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/marmot-vision/marmot/internal/analyzer"
	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/pkg/logging"
	"github.com/marmot-vision/marmot/pkg/metrics"
)

// Capacity limits
const (
	MaxStreams        = 4
	MaxZonesPerStream = 10
	MaxTotalZones     = 40
)

// Errors
var (
	ErrStreamExists      = errors.New("stream already exists")
	ErrStreamNotFound    = errors.New("stream not found")
	ErrMaxStreams        = fmt.Errorf("maximum of %d concurrent streams reached", MaxStreams)
	ErrMaxZonesPerStream = fmt.Errorf("maximum of %d zones per stream exceeded", MaxZonesPerStream)
	ErrMaxTotalZones     = fmt.Errorf("maximum of %d total zones exceeded", MaxTotalZones)
)

// Stream couples a capture worker with its zone analyzer
type Stream struct {
	Worker   *Worker
	Analyzer *analyzer.Analyzer
}

// StreamListener is notified on stream status transitions
type StreamListener func(config StreamConfig, from, to Status)

// Manager owns the capture workers and enforces capacity limits
type Manager struct {
	mu      sync.RWMutex
	streams map[string]*Stream

	sourceFactory  SourceFactory
	publisher      domain.EventPublisher
	streamListener StreamListener
	logger         *logging.Logger
	metrics        *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a stream manager
func NewManager(sourceFactory SourceFactory, publisher domain.EventPublisher, logger *logging.Logger, m *metrics.Metrics) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		streams:       make(map[string]*Stream),
		sourceFactory: sourceFactory,
		publisher:     publisher,
		logger:        logger.WithComponent("video-manager"),
		metrics:       m,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// AddStream validates limits, creates the worker and starts capturing
func (m *Manager) AddStream(config StreamConfig, zones []analyzer.Zone) (*Stream, error) {
	if err := config.Normalize(); err != nil {
		return nil, err
	}
	if len(zones) > MaxZonesPerStream {
		return nil, ErrMaxZonesPerStream
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.streams[config.StreamID]; exists {
		return nil, ErrStreamExists
	}
	if len(m.streams) >= MaxStreams {
		return nil, ErrMaxStreams
	}
	if m.totalZonesLocked()+len(zones) > MaxTotalZones {
		return nil, ErrMaxTotalZones
	}

	source := m.sourceFactory(config)
	worker := NewWorker(config, source, m.logger, m.metrics)
	worker.SetStatusListener(func(_ string, from, to Status) {
		m.onStatusChange(worker.Config(), from, to)
	})

	zoneAnalyzer := analyzer.New(m.logger.WithStreamID(config.StreamID))
	zoneAnalyzer.SetZones(zones)

	stream := &Stream{Worker: worker, Analyzer: zoneAnalyzer}
	m.streams[config.StreamID] = stream

	worker.Start(m.ctx)

	if m.metrics != nil {
		m.metrics.SetActiveStreams(len(m.streams))
	}

	m.logger.Info("Stream added",
		"streamId", config.StreamID,
		"sourceType", string(config.SourceType),
		"targetFps", config.TargetFPS,
		"zones", len(zones),
	)

	return stream, nil
}

// GetStream returns a stream by ID
func (m *Manager) GetStream(streamID string) (*Stream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stream, exists := m.streams[streamID]
	if !exists {
		return nil, ErrStreamNotFound
	}
	return stream, nil
}

// UpdateStream applies runtime-updatable settings and replaces zones.
// A nil zones slice leaves the zone configuration unchanged.
func (m *Manager) UpdateStream(streamID string, name *string, targetFPS *int, autoReconnect *bool, zones []analyzer.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stream, exists := m.streams[streamID]
	if !exists {
		return ErrStreamNotFound
	}

	if zones != nil {
		if len(zones) > MaxZonesPerStream {
			return ErrMaxZonesPerStream
		}
		current := len(stream.Analyzer.Zones())
		if m.totalZonesLocked()-current+len(zones) > MaxTotalZones {
			return ErrMaxTotalZones
		}
	}

	if err := stream.Worker.UpdateConfig(name, targetFPS, autoReconnect); err != nil {
		return err
	}

	if zones != nil {
		stream.Analyzer.SetZones(zones)
	}

	m.logger.Info("Stream updated", "streamId", streamID)
	return nil
}

// RemoveStream stops the worker and discards the stream
func (m *Manager) RemoveStream(streamID string, stopTimeout time.Duration) error {
	m.mu.Lock()
	stream, exists := m.streams[streamID]
	if !exists {
		m.mu.Unlock()
		return ErrStreamNotFound
	}
	delete(m.streams, streamID)
	active := len(m.streams)
	m.mu.Unlock()

	stream.Worker.Stop(stopTimeout)

	if m.metrics != nil {
		m.metrics.SetActiveStreams(active)
	}

	m.logger.Info("Stream removed", "streamId", streamID)
	return nil
}

// List returns all streams sorted by ID
func (m *Manager) List() []*Stream {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Stream, 0, len(m.streams))
	for _, stream := range m.streams {
		out = append(out, stream)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Worker.Config().StreamID < out[j].Worker.Config().StreamID
	})
	return out
}

// SystemStats summarizes manager-wide capacity and counters
type SystemStats struct {
	ActiveStreams  int              `json:"activeStreams"`
	MaxStreams     int              `json:"maxStreams"`
	TotalZones     int              `json:"totalZones"`
	MaxTotalZones  int              `json:"maxTotalZones"`
	FramesCaptured uint64           `json:"framesCaptured"`
	FramesDropped  uint64           `json:"framesDropped"`
	Streams        map[string]Stats `json:"streams"`
}

// Statistics returns a snapshot across all streams
func (m *Manager) Statistics() SystemStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := SystemStats{
		ActiveStreams: len(m.streams),
		MaxStreams:    MaxStreams,
		TotalZones:    m.totalZonesLocked(),
		MaxTotalZones: MaxTotalZones,
		Streams:       make(map[string]Stats, len(m.streams)),
	}

	for streamID, stream := range m.streams {
		s := stream.Worker.Stats()
		stats.Streams[streamID] = s
		stats.FramesCaptured += s.FramesCaptured
		stats.FramesDropped += s.FramesDropped
	}

	return stats
}

func (m *Manager) totalZonesLocked() int {
	total := 0
	for _, stream := range m.streams {
		total += len(stream.Analyzer.Zones())
	}
	return total
}

// TestSource probes a source by opening it and reading a single frame
func (m *Manager) TestSource(ctx context.Context, sourceType domain.VideoSourceType, sourceURL string, timeout time.Duration) error {
	config := StreamConfig{
		StreamID:   "probe",
		SourceType: sourceType,
		SourceURL:  sourceURL,
		TargetFPS:  DefaultTargetFPS,
	}
	if err := config.Normalize(); err != nil {
		return err
	}

	source := m.sourceFactory(config)

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := source.Open(probeCtx); err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer func() { _ = source.Close() }()

	type result struct{ err error }
	done := make(chan result, 1)
	go func() {
		_, err := source.ReadFrame(probeCtx)
		done <- result{err: err}
	}()

	select {
	case <-probeCtx.Done():
		return fmt.Errorf("source probe timed out after %s", timeout)
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("failed to read frame: %w", r.err)
		}
		return nil
	}
}

// Shutdown stops all workers, waiting up to stopTimeout for each
func (m *Manager) Shutdown(stopTimeout time.Duration) {
	m.cancel()

	m.mu.Lock()
	streams := make(map[string]*Stream, len(m.streams))
	for id, stream := range m.streams {
		streams[id] = stream
	}
	m.streams = make(map[string]*Stream)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for streamID, stream := range streams {
		wg.Add(1)
		go func(id string, s *Stream) {
			defer wg.Done()
			if !s.Worker.Stop(stopTimeout) {
				m.logger.Warn("Worker still running at shutdown", "streamId", id)
			}
		}(streamID, stream)
	}
	wg.Wait()

	if m.metrics != nil {
		m.metrics.SetActiveStreams(0)
	}

	m.logger.Info("Video manager shut down", "streams", len(streams))
}

// SetStreamListener registers a callback for stream status transitions.
// Must be called before any stream is added.
func (m *Manager) SetStreamListener(listener StreamListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamListener = listener
}

// onStatusChange notifies the listener and publishes the transition as
// an event. It runs on the worker goroutine.
func (m *Manager) onStatusChange(config StreamConfig, from, to Status) {
	m.mu.RLock()
	listener := m.streamListener
	m.mu.RUnlock()
	if listener != nil {
		listener(config, from, to)
	}

	if m.publisher == nil {
		return
	}

	event := &domain.StreamStatusChangedEvent{
		StreamID:       config.StreamID,
		PreviousStatus: string(from),
		CurrentStatus:  string(to),
		ChangedAt:      time.Now(),
	}

	// Best effort: a broker outage must not stall the capture path
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.WithError(err).Warn("Failed to publish stream status event", "streamId", config.StreamID)
	}
}
