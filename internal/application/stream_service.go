package application

import (
	"context"
	"fmt"
	"time"

	"github.com/marmot-vision/marmot/internal/detector"
	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/internal/pipeline"
	"github.com/marmot-vision/marmot/internal/video"
	"github.com/marmot-vision/marmot/pkg/errors"
	"github.com/marmot-vision/marmot/pkg/logging"
)

const (
	defaultResultsLimit = 5

	defaultEfficiencyMinutes = 60
	minEfficiencyMinutes     = 1
	maxEfficiencyMinutes     = 1440

	stopTimeout  = 5 * time.Second
	probeTimeout = 10 * time.Second
)

// StreamService handles capture stream use cases
type StreamService struct {
	manager         *video.Manager
	processor       *pipeline.Processor
	detectorWorker  *detector.Worker
	workstationRepo domain.WorkstationRepository
	logger          *logging.Logger
}

// NewStreamService creates a new stream service
func NewStreamService(
	manager *video.Manager,
	processor *pipeline.Processor,
	detectorWorker *detector.Worker,
	workstationRepo domain.WorkstationRepository,
	logger *logging.Logger,
) *StreamService {
	return &StreamService{
		manager:         manager,
		processor:       processor,
		detectorWorker:  detectorWorker,
		workstationRepo: workstationRepo,
		logger:          logger.WithComponent("stream-service"),
	}
}

// CreateStream starts capturing a new video stream
func (s *StreamService) CreateStream(ctx context.Context, cmd CreateStreamCommand) (*StreamDTO, error) {
	if cmd.WorkstationID != "" {
		workstation, err := s.workstationRepo.FindByID(ctx, cmd.WorkstationID)
		if err != nil {
			s.logger.WithError(err).Error("Failed to find workstation", "workstationId", cmd.WorkstationID)
			return nil, fmt.Errorf("failed to find workstation: %w", err)
		}
		if workstation == nil {
			return nil, errors.ErrNotFoundWithID("workstation", cmd.WorkstationID)
		}
	}

	autoReconnect := true
	if cmd.AutoReconnect != nil {
		autoReconnect = *cmd.AutoReconnect
	}

	config := video.StreamConfig{
		StreamID:      cmd.StreamID,
		Name:          cmd.Name,
		WorkstationID: cmd.WorkstationID,
		SourceType:    domain.VideoSourceType(cmd.SourceType),
		SourceURL:     cmd.SourceURL,
		TargetFPS:     cmd.TargetFPS,
		AutoReconnect: autoReconnect,
	}

	stream, err := s.manager.AddStream(config, toAnalyzerZones(cmd.Zones))
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	return ToStreamDTO(stream), nil
}

// GetStream retrieves a stream by ID
func (s *StreamService) GetStream(ctx context.Context, query GetStreamQuery) (*StreamDTO, error) {
	stream, err := s.manager.GetStream(query.StreamID)
	if err != nil {
		return nil, errors.ErrNotFoundWithID("stream", query.StreamID)
	}
	return ToStreamDTO(stream), nil
}

// ListStreams retrieves all active streams
func (s *StreamService) ListStreams(ctx context.Context) []*StreamDTO {
	streams := s.manager.List()

	dtos := make([]*StreamDTO, 0, len(streams))
	for _, stream := range streams {
		dtos = append(dtos, ToStreamDTO(stream))
	}
	return dtos
}

// UpdateStream applies runtime-updatable settings to a stream
func (s *StreamService) UpdateStream(ctx context.Context, cmd UpdateStreamCommand) (*StreamDTO, error) {
	err := s.manager.UpdateStream(cmd.StreamID, cmd.Name, cmd.TargetFPS, cmd.AutoReconnect, toAnalyzerZones(cmd.Zones))
	if err != nil {
		if err == video.ErrStreamNotFound {
			return nil, errors.ErrNotFoundWithID("stream", cmd.StreamID)
		}
		return nil, errors.MapDomainError(err)
	}

	stream, err := s.manager.GetStream(cmd.StreamID)
	if err != nil {
		return nil, errors.ErrNotFoundWithID("stream", cmd.StreamID)
	}
	return ToStreamDTO(stream), nil
}

// DeleteStream stops and removes a stream
func (s *StreamService) DeleteStream(ctx context.Context, cmd DeleteStreamCommand) error {
	if err := s.manager.RemoveStream(cmd.StreamID, stopTimeout); err != nil {
		return errors.ErrNotFoundWithID("stream", cmd.StreamID)
	}

	s.processor.DropResults(cmd.StreamID)
	return nil
}

// GetStreamStatus returns live capture counters for a stream
func (s *StreamService) GetStreamStatus(ctx context.Context, query GetStreamQuery) (*StreamStatusDTO, error) {
	stream, err := s.manager.GetStream(query.StreamID)
	if err != nil {
		return nil, errors.ErrNotFoundWithID("stream", query.StreamID)
	}

	return &StreamStatusDTO{
		StreamID: query.StreamID,
		Stats:    stream.Worker.Stats(),
	}, nil
}

// GetStreamResults returns the most recent processing results, newest first
func (s *StreamService) GetStreamResults(ctx context.Context, query StreamResultsQuery) ([]*pipeline.Result, error) {
	if _, err := s.manager.GetStream(query.StreamID); err != nil {
		return nil, errors.ErrNotFoundWithID("stream", query.StreamID)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultResultsLimit
	}

	return s.processor.LatestResults(query.StreamID, limit), nil
}

// GetZoneEfficiency computes activity durations for a stream zone over a
// trailing window
func (s *StreamService) GetZoneEfficiency(ctx context.Context, query EfficiencyQuery) (*EfficiencyDTO, error) {
	stream, err := s.manager.GetStream(query.StreamID)
	if err != nil {
		return nil, errors.ErrNotFoundWithID("stream", query.StreamID)
	}

	minutes := query.Minutes
	if minutes == 0 {
		minutes = defaultEfficiencyMinutes
	}
	if minutes < minEfficiencyMinutes || minutes > maxEfficiencyMinutes {
		return nil, errors.ErrValidation(
			fmt.Sprintf("minutes must be between %d and %d", minEfficiencyMinutes, maxEfficiencyMinutes))
	}

	report, err := stream.Analyzer.Efficiency(query.ZoneID, time.Duration(minutes)*time.Minute)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	return &EfficiencyDTO{
		StreamID: query.StreamID,
		Report:   *report,
	}, nil
}

// TestStream probes a video source without registering a stream
func (s *StreamService) TestStream(ctx context.Context, cmd TestStreamCommand) error {
	err := s.manager.TestSource(ctx, domain.VideoSourceType(cmd.SourceType), cmd.SourceURL, probeTimeout)
	if err != nil {
		return errors.ErrBadRequest(err.Error())
	}
	return nil
}

// GetSystemStatistics aggregates capture, pipeline and detector statistics
func (s *StreamService) GetSystemStatistics(ctx context.Context) *SystemStatisticsDTO {
	stats := &SystemStatisticsDTO{
		Video:    s.manager.Statistics(),
		Pipeline: s.processor.Stats(),
	}
	if s.detectorWorker != nil {
		stats.Detector = s.detectorWorker.Stats()
	}
	return stats
}

// GetDetectorSettings returns the current inference parameters
func (s *StreamService) GetDetectorSettings() (detector.Settings, error) {
	if s.detectorWorker == nil {
		return detector.Settings{}, errors.ErrServiceUnavailable("detector")
	}
	return s.detectorWorker.Settings(), nil
}

// UpdateDetectorSettings applies new inference parameters
func (s *StreamService) UpdateDetectorSettings(settings detector.Settings) error {
	if s.detectorWorker == nil {
		return errors.ErrServiceUnavailable("detector")
	}
	if err := s.detectorWorker.UpdateSettings(settings); err != nil {
		return errors.ErrValidation(err.Error())
	}
	return nil
}
