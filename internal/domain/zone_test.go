package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squarePolygon() Polygon {
	return Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
}

func TestNewZone(t *testing.T) {
	tests := []struct {
		name        string
		zoneName    string
		coordinates Polygon
		color       string
		expectError error
	}{
		{
			name:        "Valid zone",
			zoneName:    "Work Area",
			coordinates: squarePolygon(),
			color:       "#00FF00",
		},
		{
			name:        "Default color applied",
			zoneName:    "Work Area",
			coordinates: squarePolygon(),
			color:       "",
		},
		{
			name:        "Name required",
			zoneName:    "",
			coordinates: squarePolygon(),
			expectError: ErrNameRequired,
		},
		{
			name:        "Too few points",
			zoneName:    "Work Area",
			coordinates: Polygon{{X: 0, Y: 0}, {X: 1, Y: 1}},
			expectError: ErrTooFewPoints,
		},
		{
			name:        "Invalid color",
			zoneName:    "Work Area",
			coordinates: squarePolygon(),
			color:       "green",
			expectError: ErrInvalidColor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zone, err := NewZone("ZONE-1", tt.zoneName, "WS-1", tt.coordinates, tt.color)

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, zone)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, zone)
			assert.Equal(t, "ZONE-1", zone.ZoneID)
			assert.Equal(t, StatusIdle, zone.Status)
			assert.True(t, zone.IsActive)
			if tt.color == "" {
				assert.Equal(t, DefaultZoneColor, zone.Color)
			} else {
				assert.Equal(t, tt.color, zone.Color)
			}
		})
	}
}

func TestZoneContainsPoint(t *testing.T) {
	zone, err := NewZone("ZONE-1", "Work Area", "WS-1", squarePolygon(), "")
	require.NoError(t, err)

	assert.True(t, zone.ContainsPoint(Point{X: 5, Y: 5}))
	assert.False(t, zone.ContainsPoint(Point{X: 15, Y: 5}))
	assert.False(t, zone.ContainsPoint(Point{X: -1, Y: -1}))
}

func TestZoneUpdateOccupancy(t *testing.T) {
	zone, err := NewZone("ZONE-1", "Work Area", "WS-1", squarePolygon(), "")
	require.NoError(t, err)

	at := time.Now()

	changed := zone.UpdateOccupancy(1, at)
	assert.True(t, changed)
	assert.Equal(t, StatusWork, zone.Status)
	assert.Equal(t, 1, zone.PersonCount)

	require.Len(t, zone.DomainEvents, 1)
	event, ok := zone.DomainEvents[0].(*ZoneStatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, string(StatusIdle), event.PreviousStatus)
	assert.Equal(t, string(StatusWork), event.CurrentStatus)
	assert.Equal(t, 1, event.PersonCount)

	// Same derived status does not transition
	zone.ClearDomainEvents()
	changed = zone.UpdateOccupancy(1, time.Now())
	assert.False(t, changed)
	assert.Empty(t, zone.DomainEvents)

	changed = zone.UpdateOccupancy(3, time.Now())
	assert.True(t, changed)
	assert.Equal(t, StatusOther, zone.Status)
}
