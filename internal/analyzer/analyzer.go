// Package analyzer derives zone occupancy, status history and efficiency
// from tracked person detections. Zones are axis-aligned rectangles so a
// containment check is a pair of interval comparisons per person.
package analyzer

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/pkg/logging"
)

const (
	maxStatusHistoryPerZone = 1000
	maxTrackHistoryPerTrack = 100

	minEfficiencyWindow = time.Minute
	maxEfficiencyWindow = 24 * time.Hour
)

// Zone is a rectangular analysis region
type Zone struct {
	ZoneID string
	Name   string
	Rect   domain.Rectangle
}

// StatusChange records one zone status transition
type StatusChange struct {
	Status      domain.ActivityStatus `json:"status"`
	PersonCount int                   `json:"personCount"`
	ChangedAt   time.Time             `json:"changedAt"`
}

// TrackPoint records one observed position of a tracked person
type TrackPoint struct {
	Position domain.Point `json:"position"`
	ZoneID   string       `json:"zoneId,omitempty"`
	SeenAt   time.Time    `json:"seenAt"`
}

// ZoneResult is the per-zone outcome of analyzing one frame
type ZoneResult struct {
	ZoneID        string                `json:"zoneId"`
	PersonCount   int                   `json:"personCount"`
	TrackIDs      []int                 `json:"trackIds"`
	Status        domain.ActivityStatus `json:"status"`
	StatusChanged bool                  `json:"statusChanged"`
}

// FrameAnalysis is the outcome of analyzing one frame
type FrameAnalysis struct {
	Timestamp   time.Time             `json:"timestamp"`
	PersonCount int                   `json:"personCount"`
	Zones       map[string]ZoneResult `json:"zones"`
}

// EfficiencyReport summarizes zone activity over a trailing window
type EfficiencyReport struct {
	ZoneID            string  `json:"zoneId"`
	WindowMinutes     int     `json:"windowMinutes"`
	WorkSeconds       float64 `json:"workSeconds"`
	IdleSeconds       float64 `json:"idleSeconds"`
	OtherSeconds      float64 `json:"otherSeconds"`
	EfficiencyPercent float64 `json:"efficiencyPercent"`
	StatusChanges     int     `json:"statusChanges"`
}

// Analyzer tracks zone occupancy and status history for one stream
type Analyzer struct {
	mu            sync.RWMutex
	zones         map[string]Zone
	lastStatus    map[string]domain.ActivityStatus
	statusHistory map[string][]StatusChange
	trackHistory  map[int][]TrackPoint
	logger        *logging.Logger

	now func() time.Time
}

// New creates an Analyzer with no zones configured
func New(logger *logging.Logger) *Analyzer {
	return &Analyzer{
		zones:         make(map[string]Zone),
		lastStatus:    make(map[string]domain.ActivityStatus),
		statusHistory: make(map[string][]StatusChange),
		trackHistory:  make(map[int][]TrackPoint),
		logger:        logger.WithComponent("analyzer"),
		now:           time.Now,
	}
}

// SetZones replaces the configured zones. History for removed zones is kept
// so efficiency queries remain answerable until cleanup.
func (a *Analyzer) SetZones(zones []Zone) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.zones = make(map[string]Zone, len(zones))
	for _, z := range zones {
		a.zones[z.ZoneID] = z
	}
}

// Zones returns the configured zones sorted by ID
func (a *Analyzer) Zones() []Zone {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Zone, 0, len(a.zones))
	for _, z := range a.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZoneID < out[j].ZoneID })
	return out
}

// ProcessFrame assigns tracked persons to zones and derives per-zone status.
// Status history is appended only when a zone's status transitions.
func (a *Analyzer) ProcessFrame(tracks []domain.Tracking, at time.Time) FrameAnalysis {
	a.mu.Lock()
	defer a.mu.Unlock()

	analysis := FrameAnalysis{
		Timestamp:   at,
		PersonCount: len(tracks),
		Zones:       make(map[string]ZoneResult, len(a.zones)),
	}

	occupancy := make(map[string][]int, len(a.zones))

	for _, track := range tracks {
		center := track.Center()
		trackZone := ""

		for zoneID, zone := range a.zones {
			if zone.Rect.Contains(center) {
				trackID := -1
				if track.TrackID != nil {
					trackID = *track.TrackID
				}
				occupancy[zoneID] = append(occupancy[zoneID], trackID)
				trackZone = zoneID
			}
		}

		if track.TrackID != nil {
			a.recordTrackPoint(*track.TrackID, center, trackZone, at)
		}
	}

	for zoneID := range a.zones {
		ids := occupancy[zoneID]
		sort.Ints(ids)
		status := domain.StatusForCount(len(ids))

		changed := a.lastStatus[zoneID] != status
		if changed {
			a.lastStatus[zoneID] = status
			a.recordStatusChange(zoneID, status, len(ids), at)
		}

		analysis.Zones[zoneID] = ZoneResult{
			ZoneID:        zoneID,
			PersonCount:   len(ids),
			TrackIDs:      ids,
			Status:        status,
			StatusChanged: changed,
		}
	}

	return analysis
}

func (a *Analyzer) recordStatusChange(zoneID string, status domain.ActivityStatus, personCount int, at time.Time) {
	history := append(a.statusHistory[zoneID], StatusChange{
		Status:      status,
		PersonCount: personCount,
		ChangedAt:   at,
	})
	if len(history) > maxStatusHistoryPerZone {
		history = history[len(history)-maxStatusHistoryPerZone:]
	}
	a.statusHistory[zoneID] = history
}

func (a *Analyzer) recordTrackPoint(trackID int, position domain.Point, zoneID string, at time.Time) {
	history := append(a.trackHistory[trackID], TrackPoint{
		Position: position,
		ZoneID:   zoneID,
		SeenAt:   at,
	})
	if len(history) > maxTrackHistoryPerTrack {
		history = history[len(history)-maxTrackHistoryPerTrack:]
	}
	a.trackHistory[trackID] = history
}

// StatusHistory returns the recorded status changes for a zone, newest last
func (a *Analyzer) StatusHistory(zoneID string) []StatusChange {
	a.mu.RLock()
	defer a.mu.RUnlock()

	history := a.statusHistory[zoneID]
	out := make([]StatusChange, len(history))
	copy(out, history)
	return out
}

// TrackHistory returns the recorded movement of one tracked person
func (a *Analyzer) TrackHistory(trackID int) []TrackPoint {
	a.mu.RLock()
	defer a.mu.RUnlock()

	history := a.trackHistory[trackID]
	out := make([]TrackPoint, len(history))
	copy(out, history)
	return out
}

// Efficiency computes activity durations for a zone over a trailing window.
// Durations are measured between consecutive status changes, with the last
// segment extending to now.
func (a *Analyzer) Efficiency(zoneID string, window time.Duration) (*EfficiencyReport, error) {
	if window < minEfficiencyWindow || window > maxEfficiencyWindow {
		return nil, fmt.Errorf("invalid efficiency window %s, must be between %s and %s",
			window, minEfficiencyWindow, maxEfficiencyWindow)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	now := a.now()
	cutoff := now.Add(-window)

	report := &EfficiencyReport{
		ZoneID:        zoneID,
		WindowMinutes: int(window / time.Minute),
	}

	history := a.statusHistory[zoneID]
	if len(history) == 0 {
		return report, nil
	}

	// Find the status in effect at the window start
	segments := make([]StatusChange, 0, len(history)+1)
	for i, change := range history {
		if change.ChangedAt.Before(cutoff) {
			if i == len(history)-1 || history[i+1].ChangedAt.After(cutoff) {
				segments = append(segments, StatusChange{
					Status:    change.Status,
					ChangedAt: cutoff,
				})
			}
			continue
		}
		segments = append(segments, change)
	}

	for i, segment := range segments {
		end := now
		if i < len(segments)-1 {
			end = segments[i+1].ChangedAt
		}
		seconds := end.Sub(segment.ChangedAt).Seconds()
		if seconds < 0 {
			continue
		}

		switch segment.Status {
		case domain.StatusWork:
			report.WorkSeconds += seconds
		case domain.StatusIdle:
			report.IdleSeconds += seconds
		case domain.StatusOther:
			report.OtherSeconds += seconds
		}
	}

	// Only transitions recorded inside the window count; the carried-in
	// segment is not one of them
	for _, change := range history {
		if !change.ChangedAt.Before(cutoff) {
			report.StatusChanges++
		}
	}
	total := report.WorkSeconds + report.IdleSeconds + report.OtherSeconds
	if total > 0 {
		report.EfficiencyPercent = report.WorkSeconds / total * 100
	}

	return report, nil
}

// Cleanup drops status history older than the retention horizon and
// removes tracks with no recent sightings. It returns the number of
// removed status entries and tracks.
func (a *Analyzer) Cleanup(retention time.Duration) (statusRemoved, tracksRemoved int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := a.now().Add(-retention)

	for zoneID, history := range a.statusHistory {
		kept := history[:0]
		for _, change := range history {
			if change.ChangedAt.After(cutoff) {
				kept = append(kept, change)
			}
		}
		statusRemoved += len(history) - len(kept)
		if len(kept) == 0 {
			delete(a.statusHistory, zoneID)
		} else {
			a.statusHistory[zoneID] = kept
		}
	}

	for trackID, history := range a.trackHistory {
		if len(history) == 0 || history[len(history)-1].SeenAt.Before(cutoff) {
			delete(a.trackHistory, trackID)
			tracksRemoved++
		}
	}

	if statusRemoved > 0 || tracksRemoved > 0 {
		a.logger.Info("Analyzer history cleaned up",
			"statusEntriesRemoved", statusRemoved,
			"tracksRemoved", tracksRemoved,
		)
	}

	return statusRemoved, tracksRemoved
}

// ActiveTracks returns the IDs of tracks with recorded history
func (a *Analyzer) ActiveTracks() []int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]int, 0, len(a.trackHistory))
	for trackID := range a.trackHistory {
		out = append(out, trackID)
	}
	sort.Ints(out)
	return out
}
