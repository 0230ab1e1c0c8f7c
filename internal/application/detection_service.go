package application

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/marmot-vision/marmot/internal/analyzer"
	"github.com/marmot-vision/marmot/internal/detector"
	"github.com/marmot-vision/marmot/internal/video"
	"github.com/marmot-vision/marmot/pkg/errors"
	"github.com/marmot-vision/marmot/pkg/logging"
)

const (
	maxImageBytes = 10 << 20

	defaultCleanupHours = 24
)

// DetectionService handles ad hoc detection and tracking history use cases
type DetectionService struct {
	detector detector.Detector
	manager  *video.Manager
	cleaner  *Cleaner
	logger   *logging.Logger
}

// NewDetectionService creates a new detection service
func NewDetectionService(
	det detector.Detector,
	manager *video.Manager,
	cleaner *Cleaner,
	logger *logging.Logger,
) *DetectionService {
	return &DetectionService{
		detector: det,
		manager:  manager,
		cleaner:  cleaner,
		logger:   logger.WithComponent("detection-service"),
	}
}

// DetectImage runs person detection on a single uploaded image
func (s *DetectionService) DetectImage(ctx context.Context, cmd DetectImageCommand) (*DetectionResultDTO, error) {
	if len(cmd.ImageData) == 0 {
		return nil, errors.ErrValidation("image data is required")
	}
	if len(cmd.ImageData) > maxImageBytes {
		return nil, errors.ErrValidation(fmt.Sprintf("image exceeds the %d MB limit", maxImageBytes>>20))
	}

	frame, err := decodeToFrame(cmd.ImageData)
	if err != nil {
		return nil, errors.ErrValidation(fmt.Sprintf("failed to decode image: %v", err))
	}

	tracks, err := s.detector.TrackPersons(ctx, frame)
	if err != nil {
		if err == detector.ErrBusy {
			return nil, errors.ErrServiceUnavailable("detector")
		}
		s.logger.WithError(err).Error("Single image detection failed")
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	analysis := analyzer.FrameAnalysis{Timestamp: frame.CapturedAt, PersonCount: len(tracks)}
	return ToDetectionResultDTO(tracks, analysis), nil
}

// GetTrackingHistory returns the recorded movement of one tracked person.
// Track IDs are assigned per detector process, so the first stream holding
// history for the ID wins.
func (s *DetectionService) GetTrackingHistory(ctx context.Context, query TrackingHistoryQuery) (*TrackingHistoryDTO, error) {
	for _, stream := range s.manager.List() {
		points := stream.Analyzer.TrackHistory(query.TrackID)
		if len(points) > 0 {
			return &TrackingHistoryDTO{TrackID: query.TrackID, Points: points}, nil
		}
	}
	return nil, errors.ErrNotFoundWithID("track", fmt.Sprintf("%d", query.TrackID))
}

// GetZoneAnalysis returns the recorded status history of a stream zone
func (s *DetectionService) GetZoneAnalysis(ctx context.Context, query ZoneAnalysisQuery) (*ZoneAnalysisDTO, error) {
	minutes := query.Minutes
	if minutes == 0 {
		minutes = defaultEfficiencyMinutes
	}
	if minutes < minEfficiencyMinutes || minutes > maxEfficiencyMinutes {
		return nil, errors.ErrValidation(
			fmt.Sprintf("minutes must be between %d and %d", minEfficiencyMinutes, maxEfficiencyMinutes))
	}

	cutoff := time.Now().Add(-time.Duration(minutes) * time.Minute)

	for _, stream := range s.manager.List() {
		history := stream.Analyzer.StatusHistory(query.ZoneID)
		if len(history) == 0 {
			continue
		}

		recent := make([]analyzer.StatusChange, 0, len(history))
		for _, change := range history {
			if change.ChangedAt.After(cutoff) {
				recent = append(recent, change)
			}
		}

		return &ZoneAnalysisDTO{
			ZoneID:        query.ZoneID,
			WindowMinutes: minutes,
			History:       recent,
		}, nil
	}

	return nil, errors.ErrNotFoundWithID("zone", query.ZoneID)
}

// Cleanup prunes tracking history older than the retention horizon
func (s *DetectionService) Cleanup(ctx context.Context, cmd CleanupCommand) (*CleanupResultDTO, error) {
	hours := cmd.HoursToKeep
	if hours <= 0 {
		hours = defaultCleanupHours
	}

	return s.cleaner.Run(ctx, time.Duration(hours)*time.Hour)
}

// decodeToFrame converts an encoded image into the RGB24 frame layout the
// detector expects
func decodeToFrame(data []byte) (*video.Frame, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	pixels := make([]byte, 0, width*height*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			pixels = append(pixels, byte(r>>8), byte(g>>8), byte(b>>8))
		}
	}

	return &video.Frame{
		StreamID:   "upload",
		Width:      width,
		Height:     height,
		Data:       pixels,
		CapturedAt: time.Now(),
	}, nil
}
