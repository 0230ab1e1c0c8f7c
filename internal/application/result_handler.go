package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/internal/pipeline"
	"github.com/marmot-vision/marmot/internal/video"
	"github.com/marmot-vision/marmot/pkg/logging"
	"github.com/marmot-vision/marmot/pkg/metrics"
)

// ResultHandler persists pipeline results and publishes status events.
// Detections are written only when a zone status transitioned, so steady
// state produces no database traffic.
type ResultHandler struct {
	manager         *video.Manager
	workstationRepo domain.WorkstationRepository
	zoneRepo        domain.ZoneRepository
	detectionRepo   domain.DetectionRepository
	trackingRepo    domain.TrackingSessionRepository
	publisher       domain.EventPublisher
	logger          *logging.Logger
	metrics         *metrics.Metrics
}

// NewResultHandler creates a pipeline result handler
func NewResultHandler(
	manager *video.Manager,
	workstationRepo domain.WorkstationRepository,
	zoneRepo domain.ZoneRepository,
	detectionRepo domain.DetectionRepository,
	trackingRepo domain.TrackingSessionRepository,
	publisher domain.EventPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
) *ResultHandler {
	return &ResultHandler{
		manager:         manager,
		workstationRepo: workstationRepo,
		zoneRepo:        zoneRepo,
		detectionRepo:   detectionRepo,
		trackingRepo:    trackingRepo,
		publisher:       publisher,
		logger:          logger.WithComponent("result-handler"),
		metrics:         m,
	}
}

// HandleResult implements pipeline.Sink
func (h *ResultHandler) HandleResult(ctx context.Context, result *pipeline.Result) {
	workstationID := h.workstationID(result.StreamID)

	statusChanged := false
	for _, zone := range result.Analysis.Zones {
		if h.metrics != nil {
			h.metrics.SetZoneOccupancy(zone.ZoneID, zone.PersonCount)
		}
		if zone.StatusChanged {
			statusChanged = true
			if h.metrics != nil {
				h.metrics.RecordZoneStatusChange(zone.ZoneID, string(zone.Status))
			}
		}
	}

	if workstationID != "" {
		h.touchTrackingSessions(ctx, workstationID, result)
	}

	if !statusChanged {
		return
	}

	if workstationID != "" {
		h.updateWorkstation(ctx, workstationID, result)
	}

	persisted := h.updateZones(ctx, result)

	if h.detectionRepo != nil {
		h.persistDetection(ctx, workstationID, result)
	}

	h.publishZoneEvents(ctx, workstationID, result, persisted)
}

// HandleStreamStatus marks the bound workstation offline when its stream
// is lost. Registered as the manager's stream listener.
func (h *ResultHandler) HandleStreamStatus(config video.StreamConfig, from, to video.Status) {
	if config.WorkstationID == "" {
		return
	}
	if to != video.StatusError && to != video.StatusStopped {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	workstation, err := h.workstationRepo.FindByID(ctx, config.WorkstationID)
	if err != nil || workstation == nil {
		if err != nil {
			h.logger.WithError(err).Warn("Failed to load workstation", "workstationId", config.WorkstationID)
		}
		return
	}

	if err := workstation.MarkOffline(); err != nil {
		return
	}
	if err := h.workstationRepo.Save(ctx, workstation); err != nil {
		h.logger.WithError(err).Warn("Failed to mark workstation offline", "workstationId", config.WorkstationID)
		return
	}

	if h.publisher != nil && len(workstation.DomainEvents) > 0 {
		if err := h.publisher.PublishAll(ctx, workstation.DomainEvents); err != nil {
			h.logger.WithError(err).Warn("Failed to publish workstation events", "workstationId", config.WorkstationID)
		}
	}
	workstation.ClearDomainEvents()

	h.logger.Info("Workstation marked offline",
		"workstationId", config.WorkstationID,
		"streamId", config.StreamID,
		"streamStatus", string(to),
	)
}

// workstationID resolves the workstation bound to a stream, if any
func (h *ResultHandler) workstationID(streamID string) string {
	stream, err := h.manager.GetStream(streamID)
	if err != nil {
		return ""
	}
	return stream.Worker.Config().WorkstationID
}

func (h *ResultHandler) updateWorkstation(ctx context.Context, workstationID string, result *pipeline.Result) {
	workstation, err := h.workstationRepo.FindByID(ctx, workstationID)
	if err != nil || workstation == nil {
		if err != nil {
			h.logger.WithError(err).Warn("Failed to load workstation", "workstationId", workstationID)
		}
		return
	}

	if err := workstation.RecordDetection(domain.StatusForCount(result.PersonCount), result.Timestamp); err != nil {
		return
	}

	if err := h.workstationRepo.Save(ctx, workstation); err != nil {
		h.logger.WithError(err).Warn("Failed to save workstation status", "workstationId", workstationID)
		return
	}

	if h.publisher != nil && len(workstation.DomainEvents) > 0 {
		if err := h.publisher.PublishAll(ctx, workstation.DomainEvents); err != nil {
			h.logger.WithError(err).Warn("Failed to publish workstation events", "workstationId", workstationID)
		}
	}
	workstation.ClearDomainEvents()
}

// updateZones writes the observed occupancy back to the persisted zones.
// It returns the IDs whose status events were already published through
// the aggregate, so publishZoneEvents does not duplicate them.
func (h *ResultHandler) updateZones(ctx context.Context, result *pipeline.Result) map[string]bool {
	persisted := make(map[string]bool)
	if h.zoneRepo == nil {
		return persisted
	}

	for _, zr := range result.Analysis.Zones {
		if !zr.StatusChanged {
			continue
		}

		zone, err := h.zoneRepo.FindByID(ctx, zr.ZoneID)
		if err != nil {
			h.logger.WithError(err).Warn("Failed to load zone", "zoneId", zr.ZoneID)
			continue
		}
		if zone == nil {
			// Stream-only zone, nothing persisted to update
			continue
		}

		changed := zone.UpdateOccupancy(zr.PersonCount, result.Timestamp)
		if err := h.zoneRepo.Save(ctx, zone); err != nil {
			h.logger.WithError(err).Warn("Failed to save zone status", "zoneId", zr.ZoneID)
			continue
		}

		if changed && h.publisher != nil && len(zone.DomainEvents) > 0 {
			if err := h.publisher.PublishAll(ctx, zone.DomainEvents); err != nil {
				h.logger.WithError(err).Warn("Failed to publish zone events", "zoneId", zr.ZoneID)
			}
		}
		zone.ClearDomainEvents()
		persisted[zr.ZoneID] = true
	}

	return persisted
}

func (h *ResultHandler) persistDetection(ctx context.Context, workstationID string, result *pipeline.Result) {
	detection := &domain.Detection{
		DetectionID:      uuid.New().String(),
		WorkstationID:    workstationID,
		FrameTimestamp:   result.Timestamp,
		PersonCount:      result.PersonCount,
		ZoneStatuses:     make(map[string]domain.ActivityStatus, len(result.Analysis.Zones)),
		ProcessingTimeMs: result.ProcessingTimeMs,
		CreatedAt:        time.Now(),
	}

	for _, track := range result.Tracks {
		detection.Confidences = append(detection.Confidences, track.Confidence)
		detection.BoundingBoxes = append(detection.BoundingBoxes, track.BBox)
		if track.TrackID != nil {
			detection.TrackIDs = append(detection.TrackIDs, *track.TrackID)
		}
	}

	for zoneID, zone := range result.Analysis.Zones {
		detection.ZoneStatuses[zoneID] = zone.Status
	}

	if err := h.detectionRepo.Save(ctx, detection); err != nil {
		h.logger.WithError(err).Warn("Failed to persist detection", "streamId", result.StreamID)
	}
}

func (h *ResultHandler) touchTrackingSessions(ctx context.Context, workstationID string, result *pipeline.Result) {
	if h.trackingRepo == nil {
		return
	}

	for _, track := range result.Tracks {
		if track.TrackID == nil {
			continue
		}

		zoneID := zoneForTrack(result, *track.TrackID)

		session, err := h.trackingRepo.FindByTrackID(ctx, *track.TrackID)
		if err != nil {
			h.logger.WithError(err).Warn("Failed to load tracking session", "trackId", *track.TrackID)
			continue
		}
		if session == nil {
			session = domain.NewTrackingSession(*track.TrackID, workstationID, result.Timestamp)
			session.CurrentZoneID = zoneID
		} else {
			session.Touch(zoneID, result.Timestamp)
		}

		if err := h.trackingRepo.Save(ctx, session); err != nil {
			h.logger.WithError(err).Warn("Failed to save tracking session", "trackId", *track.TrackID)
		}
	}
}

// zoneForTrack returns the zone the analyzer assigned the track to
func zoneForTrack(result *pipeline.Result, trackID int) string {
	for id, zone := range result.Analysis.Zones {
		for _, candidate := range zone.TrackIDs {
			if candidate == trackID {
				return id
			}
		}
	}
	return ""
}

func (h *ResultHandler) publishZoneEvents(ctx context.Context, workstationID string, result *pipeline.Result, persisted map[string]bool) {
	if h.publisher == nil {
		return
	}

	events := make([]domain.DomainEvent, 0)
	for _, zone := range result.Analysis.Zones {
		if !zone.StatusChanged || persisted[zone.ZoneID] {
			continue
		}
		events = append(events, &domain.ZoneStatusChangedEvent{
			ZoneID:        zone.ZoneID,
			WorkstationID: workstationID,
			CurrentStatus: string(zone.Status),
			PersonCount:   zone.PersonCount,
			ChangedAt:     result.Timestamp,
		})
	}
	if len(events) == 0 {
		return
	}

	if err := h.publisher.PublishAll(ctx, events); err != nil {
		h.logger.WithError(err).Warn("Failed to publish zone events",
			"streamId", result.StreamID,
			"events", fmt.Sprintf("%d", len(events)),
		)
	}
}
