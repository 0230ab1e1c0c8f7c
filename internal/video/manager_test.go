package video

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmot-vision/marmot/internal/analyzer"
	"github.com/marmot-vision/marmot/internal/domain"
)

func fakeFactory() SourceFactory {
	return func(config StreamConfig) Source {
		return &fakeSource{}
	}
}

func testManager() *Manager {
	return NewManager(fakeFactory(), nil, testLogger(), nil)
}

func streamConfig(streamID string) StreamConfig {
	return StreamConfig{
		StreamID:   streamID,
		SourceType: domain.SourceRTSP,
		SourceURL:  "rtsp://cam/stream",
	}
}

func rectZones(count int) []analyzer.Zone {
	zones := make([]analyzer.Zone, 0, count)
	for i := 0; i < count; i++ {
		zones = append(zones, analyzer.Zone{
			ZoneID: fmt.Sprintf("zone-%d", i),
			Rect:   domain.Rectangle{XMin: 0, YMin: 0, XMax: 10, YMax: 10},
		})
	}
	return zones
}

func TestManagerAddAndGetStream(t *testing.T) {
	m := testManager()
	defer m.Shutdown(time.Second)

	stream, err := m.AddStream(streamConfig("cam-1"), rectZones(2))
	require.NoError(t, err)
	require.NotNil(t, stream)
	assert.Len(t, stream.Analyzer.Zones(), 2)

	got, err := m.GetStream("cam-1")
	require.NoError(t, err)
	assert.Same(t, stream, got)

	_, err = m.GetStream("missing")
	assert.ErrorIs(t, err, ErrStreamNotFound)
}

func TestManagerRejectsDuplicate(t *testing.T) {
	m := testManager()
	defer m.Shutdown(time.Second)

	_, err := m.AddStream(streamConfig("cam-1"), nil)
	require.NoError(t, err)

	_, err = m.AddStream(streamConfig("cam-1"), nil)
	assert.ErrorIs(t, err, ErrStreamExists)
}

func TestManagerStreamLimit(t *testing.T) {
	m := testManager()
	defer m.Shutdown(time.Second)

	for i := 0; i < MaxStreams; i++ {
		_, err := m.AddStream(streamConfig(fmt.Sprintf("cam-%d", i)), nil)
		require.NoError(t, err)
	}

	_, err := m.AddStream(streamConfig("cam-overflow"), nil)
	assert.ErrorIs(t, err, ErrMaxStreams)
}

func TestManagerZoneLimits(t *testing.T) {
	m := testManager()
	defer m.Shutdown(time.Second)

	_, err := m.AddStream(streamConfig("cam-1"), rectZones(MaxZonesPerStream+1))
	assert.ErrorIs(t, err, ErrMaxZonesPerStream)

	// Filling every stream to the per-stream cap exactly meets the
	// total budget
	for i := 0; i < MaxStreams; i++ {
		_, err = m.AddStream(streamConfig(fmt.Sprintf("cam-%d", i)), rectZones(MaxZonesPerStream))
		require.NoError(t, err)
	}
	assert.Equal(t, MaxTotalZones, m.Statistics().TotalZones)

	zones := rectZones(MaxZonesPerStream + 1)
	assert.ErrorIs(t, m.UpdateStream("cam-0", nil, nil, nil, zones), ErrMaxZonesPerStream)
}

func TestManagerUpdateStream(t *testing.T) {
	m := testManager()
	defer m.Shutdown(time.Second)

	_, err := m.AddStream(streamConfig("cam-1"), rectZones(2))
	require.NoError(t, err)

	fps := 5
	require.NoError(t, m.UpdateStream("cam-1", nil, &fps, nil, rectZones(4)))

	stream, err := m.GetStream("cam-1")
	require.NoError(t, err)
	assert.Equal(t, 5, stream.Worker.Config().TargetFPS)
	assert.Len(t, stream.Analyzer.Zones(), 4)

	// Nil zones leave configuration unchanged
	require.NoError(t, m.UpdateStream("cam-1", nil, nil, nil, nil))
	assert.Len(t, stream.Analyzer.Zones(), 4)

	assert.ErrorIs(t, m.UpdateStream("missing", nil, &fps, nil, nil), ErrStreamNotFound)
}

func TestManagerRemoveStream(t *testing.T) {
	m := testManager()
	defer m.Shutdown(time.Second)

	_, err := m.AddStream(streamConfig("cam-1"), nil)
	require.NoError(t, err)

	require.NoError(t, m.RemoveStream("cam-1", time.Second))
	_, err = m.GetStream("cam-1")
	assert.ErrorIs(t, err, ErrStreamNotFound)

	assert.ErrorIs(t, m.RemoveStream("cam-1", time.Second), ErrStreamNotFound)
}

func TestManagerStatistics(t *testing.T) {
	m := testManager()
	defer m.Shutdown(time.Second)

	_, err := m.AddStream(streamConfig("cam-1"), rectZones(3))
	require.NoError(t, err)
	_, err = m.AddStream(streamConfig("cam-2"), rectZones(2))
	require.NoError(t, err)

	stats := m.Statistics()
	assert.Equal(t, 2, stats.ActiveStreams)
	assert.Equal(t, MaxStreams, stats.MaxStreams)
	assert.Equal(t, 5, stats.TotalZones)
	assert.Len(t, stats.Streams, 2)
}

func TestManagerList(t *testing.T) {
	m := testManager()
	defer m.Shutdown(time.Second)

	for _, id := range []string{"cam-b", "cam-a", "cam-c"} {
		_, err := m.AddStream(streamConfig(id), nil)
		require.NoError(t, err)
	}

	streams := m.List()
	require.Len(t, streams, 3)
	assert.Equal(t, "cam-a", streams[0].Worker.Config().StreamID)
	assert.Equal(t, "cam-b", streams[1].Worker.Config().StreamID)
	assert.Equal(t, "cam-c", streams[2].Worker.Config().StreamID)
}

func TestManagerStreamListener(t *testing.T) {
	m := NewManager(func(config StreamConfig) Source {
		return &fakeSource{readErr: errors.New("stream lost")}
	}, nil, testLogger(), nil)
	defer m.Shutdown(time.Second)

	type transition struct {
		config StreamConfig
		to     Status
	}
	got := make(chan transition, 16)
	m.SetStreamListener(func(config StreamConfig, from, to Status) {
		got <- transition{config: config, to: to}
	})

	config := streamConfig("cam-1")
	config.WorkstationID = "WS-1"
	_, err := m.AddStream(config, nil)
	require.NoError(t, err)

	// The listener sees every transition with the stream's binding, so
	// the terminal error state can be acted on downstream
	deadline := time.After(3 * time.Second)
	for {
		select {
		case tr := <-got:
			assert.Equal(t, "cam-1", tr.config.StreamID)
			assert.Equal(t, "WS-1", tr.config.WorkstationID)
			if tr.to == StatusError {
				return
			}
		case <-deadline:
			t.Fatal("no error transition observed")
		}
	}
}

func TestManagerTestSource(t *testing.T) {
	m := testManager()
	defer m.Shutdown(time.Second)

	err := m.TestSource(context.Background(), domain.SourceRTSP, "rtsp://cam/stream", time.Second)
	assert.NoError(t, err)

	err = m.TestSource(context.Background(), "webcam", "rtsp://cam/stream", time.Second)
	assert.Error(t, err)
}
