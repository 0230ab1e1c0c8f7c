package application

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/internal/video"
	"github.com/marmot-vision/marmot/pkg/errors"
)

type fakeDetector struct {
	tracks    []domain.Tracking
	err       error
	lastFrame *video.Frame
}

func (d *fakeDetector) TrackPersons(ctx context.Context, frame *video.Frame) ([]domain.Tracking, error) {
	d.lastFrame = frame
	return d.tracks, d.err
}

type mockDetectionRepo struct {
	deleteOlderThanFn func(context.Context, time.Time) (int64, error)
}

func (m *mockDetectionRepo) Save(ctx context.Context, d *domain.Detection) error { return nil }

func (m *mockDetectionRepo) FindByWorkstationID(ctx context.Context, workstationID string, limit int) ([]*domain.Detection, error) {
	return nil, nil
}

func (m *mockDetectionRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.deleteOlderThanFn != nil {
		return m.deleteOlderThanFn(ctx, cutoff)
	}
	return 0, nil
}

type mockTrackingRepo struct {
	findByTrackFn func(context.Context, int) (*domain.TrackingSession, error)
	closeStaleFn  func(context.Context, time.Time) (int64, error)

	lastSaved *domain.TrackingSession
}

func (m *mockTrackingRepo) Save(ctx context.Context, s *domain.TrackingSession) error {
	m.lastSaved = s
	return nil
}

func (m *mockTrackingRepo) FindByTrackID(ctx context.Context, trackID int) (*domain.TrackingSession, error) {
	if m.findByTrackFn != nil {
		return m.findByTrackFn(ctx, trackID)
	}
	return nil, nil
}

func (m *mockTrackingRepo) FindActive(ctx context.Context) ([]*domain.TrackingSession, error) {
	return nil, nil
}

func (m *mockTrackingRepo) CloseStale(ctx context.Context, lastSeenBefore time.Time) (int64, error) {
	if m.closeStaleFn != nil {
		return m.closeStaleFn(ctx, lastSeenBefore)
	}
	return 0, nil
}

func (m *mockTrackingRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func TestDetectImage(t *testing.T) {
	trackID := 7
	det := &fakeDetector{tracks: []domain.Tracking{{
		BBox:       domain.BoundingBox{X1: 1, Y1: 2, X2: 3, Y2: 4},
		Confidence: 0.88,
		TrackID:    &trackID,
	}}}

	service := NewDetectionService(det, nil, nil, testLogger())

	dto, err := service.DetectImage(context.Background(), DetectImageCommand{
		ImageData: encodePNG(t, 4, 3),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, dto.PersonCount)
	require.Len(t, dto.Detections, 1)
	assert.Equal(t, []float64{1, 2, 3, 4}, dto.Detections[0].BBox)
	require.NotNil(t, dto.Detections[0].TrackID)
	assert.Equal(t, 7, *dto.Detections[0].TrackID)

	require.NotNil(t, det.lastFrame)
	assert.Equal(t, 4, det.lastFrame.Width)
	assert.Equal(t, 3, det.lastFrame.Height)
	assert.Len(t, det.lastFrame.Data, 4*3*3)
}

func TestDetectImageValidation(t *testing.T) {
	service := NewDetectionService(&fakeDetector{}, nil, nil, testLogger())

	_, err := service.DetectImage(context.Background(), DetectImageCommand{})
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeValidationError, appErr.Code)

	_, err = service.DetectImage(context.Background(), DetectImageCommand{
		ImageData: []byte("not an image"),
	})
	require.Error(t, err)
	appErr, ok = errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeValidationError, appErr.Code)
}

func TestCleanerRun(t *testing.T) {
	manager := video.NewManager(func(config video.StreamConfig) video.Source {
		return &stillSource{}
	}, nil, testLogger(), nil)
	defer manager.Shutdown(time.Second)

	detectionRepo := &mockDetectionRepo{
		deleteOlderThanFn: func(ctx context.Context, cutoff time.Time) (int64, error) { return 3, nil },
	}
	trackingRepo := &mockTrackingRepo{
		closeStaleFn: func(ctx context.Context, lastSeenBefore time.Time) (int64, error) { return 2, nil },
	}

	cleaner := NewCleaner(manager, detectionRepo, trackingRepo, testLogger())

	result, err := cleaner.Run(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.DetectionsRemoved)
	assert.Equal(t, int64(2), result.SessionsClosed)
	assert.Zero(t, result.StatusEntriesRemoved)
}
