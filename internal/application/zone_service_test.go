package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/internal/video"
	"github.com/marmot-vision/marmot/pkg/errors"
)

func createZone(t *testing.T, zoneID, workstationID string) *domain.Zone {
	t.Helper()
	zone, err := domain.NewZone(zoneID, "Work Area", workstationID,
		domain.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}, "")
	require.NoError(t, err)
	return zone
}

func TestCreateZone(t *testing.T) {
	ws := createWorkstation(t, "WS-1")
	wsRepo := &mockWorkstationRepo{
		findFn: func(ctx context.Context, id string) (*domain.Workstation, error) { return ws, nil },
	}
	zoneRepo := &mockZoneRepo{}

	service := NewZoneService(zoneRepo, wsRepo, testLogger())

	dto, err := service.CreateZone(context.Background(), CreateZoneCommand{
		Name:          "Work Area",
		WorkstationID: "WS-1",
		Points:        []domain.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, dto.ZoneID)
	assert.Equal(t, "WS-1", dto.WorkstationID)
	assert.Equal(t, string(domain.StatusIdle), dto.Status)
	require.NotNil(t, zoneRepo.lastSaved)
	assert.Equal(t, dto.ZoneID, zoneRepo.lastSaved.ZoneID)
}

func TestCreateZoneWorkstationNotFound(t *testing.T) {
	service := NewZoneService(&mockZoneRepo{}, &mockWorkstationRepo{}, testLogger())

	_, err := service.CreateZone(context.Background(), CreateZoneCommand{
		Name:          "Work Area",
		WorkstationID: "missing",
		Points:        []domain.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}},
	})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeNotFound, appErr.Code)
}

func TestCreateZoneLimitExceeded(t *testing.T) {
	ws := createWorkstation(t, "WS-1")

	existing := make([]*domain.Zone, 0, video.MaxZonesPerStream)
	for i := 0; i < video.MaxZonesPerStream; i++ {
		existing = append(existing, createZone(t, "ZONE-"+string(rune('a'+i)), "WS-1"))
	}

	wsRepo := &mockWorkstationRepo{
		findFn: func(ctx context.Context, id string) (*domain.Workstation, error) { return ws, nil },
	}
	zoneRepo := &mockZoneRepo{
		findByWsFn: func(ctx context.Context, id string) ([]*domain.Zone, error) { return existing, nil },
	}

	service := NewZoneService(zoneRepo, wsRepo, testLogger())

	_, err := service.CreateZone(context.Background(), CreateZoneCommand{
		Name:          "One Too Many",
		WorkstationID: "WS-1",
		Points:        []domain.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}},
	})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeLimitExceeded, appErr.Code)
}

func TestCreateZoneInvalidPolygon(t *testing.T) {
	ws := createWorkstation(t, "WS-1")
	wsRepo := &mockWorkstationRepo{
		findFn: func(ctx context.Context, id string) (*domain.Workstation, error) { return ws, nil },
	}

	service := NewZoneService(&mockZoneRepo{}, wsRepo, testLogger())

	_, err := service.CreateZone(context.Background(), CreateZoneCommand{
		Name:          "Degenerate",
		WorkstationID: "WS-1",
		Points:        []domain.Point{{X: 0, Y: 0}, {X: 10, Y: 0}},
	})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeValidationError, appErr.Code)
}

func TestListZonesByWorkstation(t *testing.T) {
	zones := []*domain.Zone{createZone(t, "ZONE-1", "WS-1"), createZone(t, "ZONE-2", "WS-1")}

	var askedFor string
	zoneRepo := &mockZoneRepo{
		findByWsFn: func(ctx context.Context, id string) ([]*domain.Zone, error) {
			askedFor = id
			return zones, nil
		},
	}

	service := NewZoneService(zoneRepo, &mockWorkstationRepo{}, testLogger())

	dtos, err := service.ListZones(context.Background(), ListZonesQuery{WorkstationID: "WS-1"})
	require.NoError(t, err)
	assert.Equal(t, "WS-1", askedFor)
	require.Len(t, dtos, 2)
	assert.Equal(t, "ZONE-1", dtos[0].ZoneID)
}

func TestUpdateZone(t *testing.T) {
	zone := createZone(t, "ZONE-1", "WS-1")
	zoneRepo := &mockZoneRepo{
		findFn: func(ctx context.Context, id string) (*domain.Zone, error) { return zone, nil },
	}

	service := NewZoneService(zoneRepo, &mockWorkstationRepo{}, testLogger())

	newName := "Inspection Area"
	inactive := false
	dto, err := service.UpdateZone(context.Background(), UpdateZoneCommand{
		ZoneID:   "ZONE-1",
		Name:     &newName,
		IsActive: &inactive,
	})
	require.NoError(t, err)

	assert.Equal(t, "Inspection Area", dto.Name)
	assert.False(t, dto.IsActive)
	assert.Equal(t, "Inspection Area", zoneRepo.lastSaved.Name)
}

func TestDeleteZone(t *testing.T) {
	zone := createZone(t, "ZONE-1", "WS-1")

	var deletedID string
	zoneRepo := &mockZoneRepo{
		findFn: func(ctx context.Context, id string) (*domain.Zone, error) { return zone, nil },
		deleteFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}

	service := NewZoneService(zoneRepo, &mockWorkstationRepo{}, testLogger())

	require.NoError(t, service.DeleteZone(context.Background(), DeleteZoneCommand{ZoneID: "ZONE-1"}))
	assert.Equal(t, "ZONE-1", deletedID)
}

func TestGetZoneStatus(t *testing.T) {
	zone := createZone(t, "ZONE-1", "WS-1")
	zone.UpdateOccupancy(1, zone.CreatedAt)

	zoneRepo := &mockZoneRepo{
		findFn: func(ctx context.Context, id string) (*domain.Zone, error) { return zone, nil },
	}

	service := NewZoneService(zoneRepo, &mockWorkstationRepo{}, testLogger())

	status, err := service.GetZoneStatus(context.Background(), GetZoneQuery{ZoneID: "ZONE-1"})
	require.NoError(t, err)

	assert.Equal(t, string(domain.StatusWork), status.Status)
	assert.Equal(t, 1, status.PersonCount)
}

func TestGetZoneNotFound(t *testing.T) {
	service := NewZoneService(&mockZoneRepo{}, &mockWorkstationRepo{}, testLogger())

	_, err := service.GetZone(context.Background(), GetZoneQuery{ZoneID: "missing"})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeNotFound, appErr.Code)
}
