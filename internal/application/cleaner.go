package application

import (
	"context"
	"fmt"
	"time"

	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/internal/video"
	"github.com/marmot-vision/marmot/pkg/logging"
)

// Sessions with no sighting for this long are closed during cleanup
const staleSessionAge = 5 * time.Minute

// Cleaner prunes in-memory tracking history and persisted detection data
type Cleaner struct {
	manager       *video.Manager
	detectionRepo domain.DetectionRepository
	trackingRepo  domain.TrackingSessionRepository
	logger        *logging.Logger
}

// NewCleaner creates a cleaner
func NewCleaner(
	manager *video.Manager,
	detectionRepo domain.DetectionRepository,
	trackingRepo domain.TrackingSessionRepository,
	logger *logging.Logger,
) *Cleaner {
	return &Cleaner{
		manager:       manager,
		detectionRepo: detectionRepo,
		trackingRepo:  trackingRepo,
		logger:        logger.WithComponent("cleaner"),
	}
}

// Run removes data older than the retention horizon
func (c *Cleaner) Run(ctx context.Context, retention time.Duration) (*CleanupResultDTO, error) {
	result := &CleanupResultDTO{}

	for _, stream := range c.manager.List() {
		statusRemoved, tracksRemoved := stream.Analyzer.Cleanup(retention)
		result.StatusEntriesRemoved += statusRemoved
		result.TracksRemoved += tracksRemoved
	}

	cutoff := time.Now().Add(-retention)

	if c.detectionRepo != nil {
		removed, err := c.detectionRepo.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			c.logger.WithError(err).Error("Failed to prune detections")
			return nil, fmt.Errorf("failed to prune detections: %w", err)
		}
		result.DetectionsRemoved = removed
	}

	if c.trackingRepo != nil {
		closed, err := c.trackingRepo.CloseStale(ctx, time.Now().Add(-staleSessionAge))
		if err != nil {
			c.logger.WithError(err).Error("Failed to close stale sessions")
			return nil, fmt.Errorf("failed to close stale sessions: %w", err)
		}
		result.SessionsClosed = closed

		if _, err := c.trackingRepo.DeleteOlderThan(ctx, cutoff); err != nil {
			c.logger.WithError(err).Error("Failed to prune tracking sessions")
			return nil, fmt.Errorf("failed to prune tracking sessions: %w", err)
		}
	}

	c.logger.Info("Cleanup completed",
		"statusEntriesRemoved", result.StatusEntriesRemoved,
		"tracksRemoved", result.TracksRemoved,
		"detectionsRemoved", result.DetectionsRemoved,
		"sessionsClosed", result.SessionsClosed,
	)

	return result, nil
}
