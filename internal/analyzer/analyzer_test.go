package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/pkg/logging"
)

func testLogger() *logging.Logger {
	cfg := logging.DefaultConfig("analyzer-test")
	cfg.Level = logging.LevelError
	return logging.New(cfg)
}

func testAnalyzer() *Analyzer {
	a := New(testLogger())
	a.SetZones([]Zone{
		{ZoneID: "zone-a", Name: "Left", Rect: domain.Rectangle{XMin: 0, YMin: 0, XMax: 100, YMax: 100}},
		{ZoneID: "zone-b", Name: "Right", Rect: domain.Rectangle{XMin: 100.01, YMin: 0, XMax: 200, YMax: 100}},
	})
	return a
}

func track(id int, cx, cy float64) domain.Tracking {
	return domain.Tracking{
		BBox:       domain.BoundingBox{X1: cx - 5, Y1: cy - 5, X2: cx + 5, Y2: cy + 5},
		Confidence: 0.9,
		TrackID:    &id,
	}
}

func TestProcessFrameAssignsZones(t *testing.T) {
	a := testAnalyzer()
	at := time.Now()

	analysis := a.ProcessFrame([]domain.Tracking{
		track(1, 50, 50),
		track(2, 150, 50),
		track(3, 150, 60),
	}, at)

	assert.Equal(t, 3, analysis.PersonCount)
	require.Len(t, analysis.Zones, 2)

	left := analysis.Zones["zone-a"]
	assert.Equal(t, 1, left.PersonCount)
	assert.Equal(t, []int{1}, left.TrackIDs)
	assert.Equal(t, domain.StatusWork, left.Status)
	assert.True(t, left.StatusChanged)

	right := analysis.Zones["zone-b"]
	assert.Equal(t, 2, right.PersonCount)
	assert.Equal(t, []int{2, 3}, right.TrackIDs)
	assert.Equal(t, domain.StatusOther, right.Status)
}

func TestProcessFrameRecordsChangesOnly(t *testing.T) {
	a := testAnalyzer()
	at := time.Now()

	a.ProcessFrame([]domain.Tracking{track(1, 50, 50)}, at)
	a.ProcessFrame([]domain.Tracking{track(1, 55, 50)}, at.Add(time.Second))
	a.ProcessFrame(nil, at.Add(2*time.Second))

	history := a.StatusHistory("zone-a")
	require.Len(t, history, 2)
	assert.Equal(t, domain.StatusWork, history[0].Status)
	assert.Equal(t, domain.StatusIdle, history[1].Status)
}

func TestTrackHistory(t *testing.T) {
	a := testAnalyzer()
	at := time.Now()

	a.ProcessFrame([]domain.Tracking{track(7, 50, 50)}, at)
	a.ProcessFrame([]domain.Tracking{track(7, 150, 50)}, at.Add(time.Second))

	points := a.TrackHistory(7)
	require.Len(t, points, 2)
	assert.Equal(t, "zone-a", points[0].ZoneID)
	assert.Equal(t, "zone-b", points[1].ZoneID)
	assert.Equal(t, 50.0, points[0].Position.X)

	assert.Equal(t, []int{7}, a.ActiveTracks())
	assert.Empty(t, a.TrackHistory(99))
}

func TestTrackHistoryCapped(t *testing.T) {
	a := testAnalyzer()
	at := time.Now()

	for i := 0; i < maxTrackHistoryPerTrack+20; i++ {
		a.ProcessFrame([]domain.Tracking{track(1, 50, 50)}, at.Add(time.Duration(i)*time.Second))
	}

	assert.Len(t, a.TrackHistory(1), maxTrackHistoryPerTrack)
}

func TestEfficiency(t *testing.T) {
	a := testAnalyzer()

	base := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return base.Add(10 * time.Minute) }

	// work 10:00-10:04, idle 10:04-10:06, work 10:06-now (10:10)
	a.ProcessFrame([]domain.Tracking{track(1, 50, 50)}, base)
	a.ProcessFrame(nil, base.Add(4*time.Minute))
	a.ProcessFrame([]domain.Tracking{track(1, 50, 50)}, base.Add(6*time.Minute))

	report, err := a.Efficiency("zone-a", 10*time.Minute)
	require.NoError(t, err)

	assert.InDelta(t, 480, report.WorkSeconds, 1)
	assert.InDelta(t, 120, report.IdleSeconds, 1)
	assert.Zero(t, report.OtherSeconds)
	assert.InDelta(t, 80, report.EfficiencyPercent, 0.5)
	assert.Equal(t, 3, report.StatusChanges)
	assert.Equal(t, 10, report.WindowMinutes)
}

func TestEfficiencyCarryInStatus(t *testing.T) {
	a := testAnalyzer()

	base := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return base.Add(time.Hour) }

	// Transition well before the window start carries in as the initial status
	a.ProcessFrame([]domain.Tracking{track(1, 50, 50)}, base)

	report, err := a.Efficiency("zone-a", 10*time.Minute)
	require.NoError(t, err)

	assert.InDelta(t, 600, report.WorkSeconds, 1)
	assert.InDelta(t, 100, report.EfficiencyPercent, 0.5)
	// The carried-in status is not a transition inside the window
	assert.Zero(t, report.StatusChanges)
}

func TestEfficiencyWindowValidation(t *testing.T) {
	a := testAnalyzer()

	_, err := a.Efficiency("zone-a", 30*time.Second)
	assert.Error(t, err)

	_, err = a.Efficiency("zone-a", 25*time.Hour)
	assert.Error(t, err)
}

func TestEfficiencyUnknownZoneEmptyReport(t *testing.T) {
	a := testAnalyzer()

	report, err := a.Efficiency("missing", 10*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, report.WorkSeconds)
	assert.Zero(t, report.EfficiencyPercent)
}

func TestCleanup(t *testing.T) {
	a := testAnalyzer()

	base := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return base.Add(48 * time.Hour) }

	a.ProcessFrame([]domain.Tracking{track(1, 50, 50)}, base)
	a.ProcessFrame(nil, base.Add(time.Minute))
	a.ProcessFrame([]domain.Tracking{track(2, 50, 50)}, a.now().Add(-time.Minute))

	statusRemoved, tracksRemoved := a.Cleanup(24 * time.Hour)

	// The first frame also records zone-b's initial idle entry, which
	// ages out alongside zone-a's two old entries
	assert.Equal(t, 3, statusRemoved)
	assert.Equal(t, 1, tracksRemoved)
	assert.Equal(t, []int{2}, a.ActiveTracks())
}
