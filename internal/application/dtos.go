package application

import (
	"time"

	"github.com/marmot-vision/marmot/internal/analyzer"
	"github.com/marmot-vision/marmot/internal/pipeline"
	"github.com/marmot-vision/marmot/internal/video"
)

// WorkstationDTO represents a workstation in responses
type WorkstationDTO struct {
	WorkstationID   string         `json:"workstationId"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	IsActive        bool           `json:"isActive"`
	VideoSourceType string         `json:"videoSourceType,omitempty"`
	VideoSourceURL  string         `json:"videoSourceUrl,omitempty"`
	VideoConfig     map[string]any `json:"videoConfig,omitempty"`
	CurrentStatus   string         `json:"currentStatus"`
	LastDetectionAt *time.Time     `json:"lastDetectionAt,omitempty"`
	Zones           []ZoneDTO      `json:"zones"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// ZoneDTO represents a zone in responses
type ZoneDTO struct {
	ZoneID        string      `json:"zoneId"`
	Name          string      `json:"name"`
	WorkstationID string      `json:"workstationId"`
	Coordinates   [][]float64 `json:"coordinates"`
	IsActive      bool        `json:"isActive"`
	Color         string      `json:"color"`
	PersonCount   int         `json:"personCount"`
	Status        string      `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// WorkstationStatusDTO summarizes the live state of a workstation
type WorkstationStatusDTO struct {
	WorkstationID   string     `json:"workstationId"`
	CurrentStatus   string     `json:"currentStatus"`
	IsActive        bool       `json:"isActive"`
	LastDetectionAt *time.Time `json:"lastDetectionAt,omitempty"`
	ZoneCount       int        `json:"zoneCount"`
	ActiveZoneCount int        `json:"activeZoneCount"`
	TotalPersons    int        `json:"totalPersons"`
}

// ZoneStatusDTO summarizes the live state of a zone
type ZoneStatusDTO struct {
	ZoneID      string    `json:"zoneId"`
	Status      string    `json:"status"`
	PersonCount int       `json:"personCount"`
	IsActive    bool      `json:"isActive"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StreamZoneDTO represents one rectangular analysis zone on a stream
type StreamZoneDTO struct {
	ZoneID string  `json:"zoneId"`
	Name   string  `json:"name,omitempty"`
	XMin   float64 `json:"xMin"`
	YMin   float64 `json:"yMin"`
	XMax   float64 `json:"xMax"`
	YMax   float64 `json:"yMax"`
}

// StreamDTO represents a capture stream in responses
type StreamDTO struct {
	StreamID      string          `json:"streamId"`
	Name          string          `json:"name"`
	WorkstationID string          `json:"workstationId,omitempty"`
	SourceType    string          `json:"sourceType"`
	SourceURL     string          `json:"sourceUrl"`
	TargetFPS     int             `json:"targetFps"`
	AutoReconnect bool            `json:"autoReconnect"`
	Status        string          `json:"status"`
	Zones         []StreamZoneDTO `json:"zones"`
}

// StreamStatusDTO carries live capture counters for a stream
type StreamStatusDTO struct {
	StreamID string      `json:"streamId"`
	Stats    video.Stats `json:"stats"`
}

// SystemStatisticsDTO aggregates manager, pipeline and detector statistics
type SystemStatisticsDTO struct {
	Video    video.SystemStats `json:"video"`
	Pipeline pipeline.Stats    `json:"pipeline"`
	Detector any               `json:"detector,omitempty"`
}

// EfficiencyDTO wraps a zone efficiency report
type EfficiencyDTO struct {
	StreamID string                    `json:"streamId"`
	Report   analyzer.EfficiencyReport `json:"report"`
}

// DetectionResultDTO is the outcome of single-image detection
type DetectionResultDTO struct {
	PersonCount int              `json:"personCount"`
	Detections  []DetectedPerson `json:"detections"`
	Timestamp   time.Time        `json:"timestamp"`
}

// DetectedPerson is one person found in a submitted image
type DetectedPerson struct {
	BBox       []float64 `json:"bbox"`
	Confidence float64   `json:"confidence"`
	TrackID    *int      `json:"trackId,omitempty"`
}

// TrackingHistoryDTO is the recorded movement of one tracked person
type TrackingHistoryDTO struct {
	TrackID int                   `json:"trackId"`
	Points  []analyzer.TrackPoint `json:"points"`
}

// ZoneAnalysisDTO is the recorded status history of a stream zone
type ZoneAnalysisDTO struct {
	ZoneID        string                  `json:"zoneId"`
	WindowMinutes int                     `json:"windowMinutes"`
	History       []analyzer.StatusChange `json:"history"`
}

// CleanupResultDTO summarizes a tracking cleanup pass
type CleanupResultDTO struct {
	StatusEntriesRemoved int   `json:"statusEntriesRemoved"`
	TracksRemoved        int   `json:"tracksRemoved"`
	DetectionsRemoved    int64 `json:"detectionsRemoved"`
	SessionsClosed       int64 `json:"sessionsClosed"`
}
