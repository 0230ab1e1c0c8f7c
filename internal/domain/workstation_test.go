package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkstation(t *testing.T) {
	tests := []struct {
		name        string
		wsName      string
		sourceType  VideoSourceType
		expectError bool
	}{
		{
			name:       "Valid workstation",
			wsName:     "Assembly 1",
			sourceType: SourceRTSP,
		},
		{
			name:       "Empty source type allowed",
			wsName:     "Assembly 2",
			sourceType: "",
		},
		{
			name:        "Name required",
			wsName:      "",
			sourceType:  SourceRTSP,
			expectError: true,
		},
		{
			name:        "Invalid source type",
			wsName:      "Assembly 3",
			sourceType:  "webcam",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, err := NewWorkstation("WS-1", tt.wsName, "desc", tt.sourceType, "rtsp://cam/stream", nil)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, ws)
			} else {
				require.NoError(t, err)
				require.NotNil(t, ws)
				assert.Equal(t, "WS-1", ws.WorkstationID)
				assert.True(t, ws.IsActive)
				assert.Equal(t, StatusOffline, ws.CurrentStatus)
				assert.Nil(t, ws.LastDetectionAt)
				assert.NotZero(t, ws.CreatedAt)
				assert.Empty(t, ws.DomainEvents)
			}
		})
	}
}

func TestWorkstationUpdateDetails(t *testing.T) {
	ws, err := NewWorkstation("WS-1", "Assembly", "", SourceRTSP, "rtsp://cam/stream", nil)
	require.NoError(t, err)

	newName := "Assembly 2"
	inactive := false
	require.NoError(t, ws.UpdateDetails(&newName, nil, nil, nil, nil, &inactive))

	assert.Equal(t, "Assembly 2", ws.Name)
	assert.False(t, ws.IsActive)
	assert.Equal(t, SourceRTSP, ws.VideoSourceType)

	empty := ""
	assert.ErrorIs(t, ws.UpdateDetails(&empty, nil, nil, nil, nil, nil), ErrNameRequired)

	bad := VideoSourceType("webcam")
	assert.ErrorIs(t, ws.UpdateDetails(nil, nil, &bad, nil, nil, nil), ErrInvalidSourceType)
}

func TestWorkstationRecordDetection(t *testing.T) {
	ws, err := NewWorkstation("WS-1", "Assembly", "", SourceRTSP, "rtsp://cam/stream", nil)
	require.NoError(t, err)

	at := time.Now()
	require.NoError(t, ws.RecordDetection(StatusWork, at))

	assert.Equal(t, StatusWork, ws.CurrentStatus)
	require.NotNil(t, ws.LastDetectionAt)
	assert.Equal(t, at, *ws.LastDetectionAt)

	require.Len(t, ws.DomainEvents, 1)
	event, ok := ws.DomainEvents[0].(*WorkstationStatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, string(StatusOffline), event.PreviousStatus)
	assert.Equal(t, string(StatusWork), event.CurrentStatus)

	// Same status again produces no event
	ws.ClearDomainEvents()
	require.NoError(t, ws.RecordDetection(StatusWork, time.Now()))
	assert.Empty(t, ws.DomainEvents)
}

func TestWorkstationInactiveRejectsDetections(t *testing.T) {
	ws, err := NewWorkstation("WS-1", "Assembly", "", SourceRTSP, "rtsp://cam/stream", nil)
	require.NoError(t, err)

	inactive := false
	require.NoError(t, ws.UpdateDetails(nil, nil, nil, nil, nil, &inactive))

	assert.ErrorIs(t, ws.RecordDetection(StatusWork, time.Now()), ErrWorkstationInactive)
	assert.ErrorIs(t, ws.MarkOffline(), ErrWorkstationInactive)
	assert.Equal(t, StatusOffline, ws.CurrentStatus)
	assert.Empty(t, ws.DomainEvents)
}

func TestStatusForCount(t *testing.T) {
	assert.Equal(t, StatusIdle, StatusForCount(0))
	assert.Equal(t, StatusWork, StatusForCount(1))
	assert.Equal(t, StatusOther, StatusForCount(2))
	assert.Equal(t, StatusOther, StatusForCount(5))
}
