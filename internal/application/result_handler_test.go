package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmot-vision/marmot/internal/analyzer"
	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/internal/pipeline"
	"github.com/marmot-vision/marmot/internal/video"
)

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
}

func (m *mockPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *mockPublisher) zoneEvents() []*domain.ZoneStatusChangedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.ZoneStatusChangedEvent, 0)
	for _, event := range m.events {
		if e, ok := event.(*domain.ZoneStatusChangedEvent); ok {
			out = append(out, e)
		}
	}
	return out
}

// boundManager runs one stream bound to a workstation so results from
// "cam-1" resolve to it
func boundManager(t *testing.T, workstationID string) *video.Manager {
	t.Helper()

	manager := video.NewManager(func(config video.StreamConfig) video.Source {
		return &stillSource{}
	}, nil, testLogger(), nil)
	t.Cleanup(func() { manager.Shutdown(time.Second) })

	_, err := manager.AddStream(video.StreamConfig{
		StreamID:      "cam-1",
		WorkstationID: workstationID,
		SourceType:    domain.SourceRTSP,
		SourceURL:     "rtsp://cam/stream",
	}, nil)
	require.NoError(t, err)
	return manager
}

func createZoneAggregate(t *testing.T, zoneID string) *domain.Zone {
	t.Helper()
	zone, err := domain.NewZone(zoneID, "Work Area", "WS-1",
		domain.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}, "")
	require.NoError(t, err)
	return zone
}

func changedZoneResult(zoneID string, personCount int, trackIDs []int) *pipeline.Result {
	return &pipeline.Result{
		StreamID:    "cam-1",
		Timestamp:   time.Now(),
		PersonCount: personCount,
		Analysis: analyzer.FrameAnalysis{
			PersonCount: personCount,
			Zones: map[string]analyzer.ZoneResult{
				zoneID: {
					ZoneID:        zoneID,
					PersonCount:   personCount,
					TrackIDs:      trackIDs,
					Status:        domain.StatusForCount(personCount),
					StatusChanged: true,
				},
			},
		},
	}
}

func TestHandleResultPersistsZoneOccupancy(t *testing.T) {
	manager := boundManager(t, "WS-1")

	ws := createWorkstation(t, "WS-1")
	wsRepo := &mockWorkstationRepo{
		findFn: func(ctx context.Context, id string) (*domain.Workstation, error) { return ws, nil },
	}

	zone := createZoneAggregate(t, "ZONE-1")
	zoneRepo := &mockZoneRepo{
		findFn: func(ctx context.Context, id string) (*domain.Zone, error) { return zone, nil },
	}

	pub := &mockPublisher{}
	handler := NewResultHandler(manager, wsRepo, zoneRepo, nil, nil, pub, testLogger(), nil)

	handler.HandleResult(context.Background(), changedZoneResult("ZONE-1", 1, []int{1}))

	// The persisted zone carries the observed occupancy and status
	require.NotNil(t, zoneRepo.lastSaved)
	assert.Equal(t, 1, zoneRepo.lastSaved.PersonCount)
	assert.Equal(t, domain.StatusWork, zoneRepo.lastSaved.Status)

	// The aggregate's own event is published exactly once, with the
	// previous status filled in
	zoneEvents := pub.zoneEvents()
	require.Len(t, zoneEvents, 1)
	assert.Equal(t, "ZONE-1", zoneEvents[0].ZoneID)
	assert.Equal(t, string(domain.StatusIdle), zoneEvents[0].PreviousStatus)
	assert.Equal(t, string(domain.StatusWork), zoneEvents[0].CurrentStatus)

	assert.Equal(t, domain.StatusWork, wsRepo.lastSaved.CurrentStatus)
}

func TestHandleResultStreamOnlyZoneStillPublishes(t *testing.T) {
	manager := boundManager(t, "")

	zoneRepo := &mockZoneRepo{}
	pub := &mockPublisher{}
	handler := NewResultHandler(manager, &mockWorkstationRepo{}, zoneRepo, nil, nil, pub, testLogger(), nil)

	handler.HandleResult(context.Background(), changedZoneResult("zone-a", 2, []int{1, 2}))

	// Nothing persisted to save, but the status change is still announced
	assert.Nil(t, zoneRepo.lastSaved)
	zoneEvents := pub.zoneEvents()
	require.Len(t, zoneEvents, 1)
	assert.Equal(t, "zone-a", zoneEvents[0].ZoneID)
	assert.Equal(t, string(domain.StatusOther), zoneEvents[0].CurrentStatus)
}

func TestHandleResultAssignsSessionZone(t *testing.T) {
	manager := boundManager(t, "WS-1")

	ws := createWorkstation(t, "WS-1")
	wsRepo := &mockWorkstationRepo{
		findFn: func(ctx context.Context, id string) (*domain.Workstation, error) { return ws, nil },
	}

	trackingRepo := &mockTrackingRepo{}
	handler := NewResultHandler(manager, wsRepo, &mockZoneRepo{}, nil, trackingRepo, nil, testLogger(), nil)

	trackID := 7
	result := changedZoneResult("ZONE-2", 1, []int{7})
	result.Analysis.Zones["ZONE-1"] = analyzer.ZoneResult{ZoneID: "ZONE-1", Status: domain.StatusIdle}
	result.Tracks = []domain.Tracking{{
		BBox:       domain.BoundingBox{X1: 10, Y1: 10, X2: 20, Y2: 20},
		Confidence: 0.9,
		TrackID:    &trackID,
	}}

	handler.HandleResult(context.Background(), result)

	require.NotNil(t, trackingRepo.lastSaved)
	assert.Equal(t, 7, trackingRepo.lastSaved.TrackID)
	assert.Equal(t, "WS-1", trackingRepo.lastSaved.WorkstationID)
	assert.Equal(t, "ZONE-2", trackingRepo.lastSaved.CurrentZoneID)
}

func TestStreamLossMarksWorkstationOffline(t *testing.T) {
	ws := createWorkstation(t, "WS-1")
	require.NoError(t, ws.RecordDetection(domain.StatusWork, time.Now()))
	ws.ClearDomainEvents()

	wsRepo := &mockWorkstationRepo{
		findFn: func(ctx context.Context, id string) (*domain.Workstation, error) { return ws, nil },
	}
	pub := &mockPublisher{}
	handler := NewResultHandler(nil, wsRepo, &mockZoneRepo{}, nil, nil, pub, testLogger(), nil)

	config := video.StreamConfig{StreamID: "cam-1", WorkstationID: "WS-1"}
	handler.HandleStreamStatus(config, video.StatusConnected, video.StatusError)

	require.NotNil(t, wsRepo.lastSaved)
	assert.Equal(t, domain.StatusOffline, wsRepo.lastSaved.CurrentStatus)

	require.Len(t, pub.events, 1)
	event, ok := pub.events[0].(*domain.WorkstationStatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, string(domain.StatusWork), event.PreviousStatus)
	assert.Equal(t, string(domain.StatusOffline), event.CurrentStatus)
}

func TestStreamLossIgnoresHealthyTransitions(t *testing.T) {
	wsRepo := &mockWorkstationRepo{}
	handler := NewResultHandler(nil, wsRepo, &mockZoneRepo{}, nil, nil, nil, testLogger(), nil)

	config := video.StreamConfig{StreamID: "cam-1", WorkstationID: "WS-1"}
	handler.HandleStreamStatus(config, video.StatusConnecting, video.StatusConnected)
	handler.HandleStreamStatus(video.StreamConfig{StreamID: "cam-2"}, video.StatusConnected, video.StatusError)

	assert.Nil(t, wsRepo.lastSaved)
}

func TestStreamLossSkipsInactiveWorkstation(t *testing.T) {
	ws := createWorkstation(t, "WS-1")
	inactive := false
	require.NoError(t, ws.UpdateDetails(nil, nil, nil, nil, nil, &inactive))

	wsRepo := &mockWorkstationRepo{
		findFn: func(ctx context.Context, id string) (*domain.Workstation, error) { return ws, nil },
	}
	handler := NewResultHandler(nil, wsRepo, &mockZoneRepo{}, nil, nil, nil, testLogger(), nil)

	config := video.StreamConfig{StreamID: "cam-1", WorkstationID: "WS-1"}
	handler.HandleStreamStatus(config, video.StatusConnected, video.StatusStopped)

	assert.Nil(t, wsRepo.lastSaved)
}
