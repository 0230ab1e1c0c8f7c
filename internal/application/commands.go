package application

import "github.com/marmot-vision/marmot/internal/domain"

// CreateWorkstationCommand represents the command to create a workstation
type CreateWorkstationCommand struct {
	Name        string
	Description string
	SourceType  string
	SourceURL   string
	VideoConfig map[string]any
}

// UpdateWorkstationCommand represents a partial workstation update.
// Nil pointers leave the corresponding field unchanged.
type UpdateWorkstationCommand struct {
	WorkstationID string
	Name          *string
	Description   *string
	SourceType    *string
	SourceURL     *string
	VideoConfig   map[string]any
	IsActive      *bool
}

// ListWorkstationsQuery represents the query to list workstations
type ListWorkstationsQuery struct {
	Skip  int
	Limit int
}

// GetWorkstationQuery represents the query to get a workstation by ID
type GetWorkstationQuery struct {
	WorkstationID string
}

// DeleteWorkstationCommand represents the command to delete a workstation
type DeleteWorkstationCommand struct {
	WorkstationID string
}

// CreateZoneCommand represents the command to create a zone
type CreateZoneCommand struct {
	Name          string
	WorkstationID string
	Points        []domain.Point
	Color         string
}

// UpdateZoneCommand represents a partial zone update
type UpdateZoneCommand struct {
	ZoneID   string
	Name     *string
	Points   []domain.Point
	Color    *string
	IsActive *bool
}

// ListZonesQuery represents the query to list zones
type ListZonesQuery struct {
	WorkstationID string
	Skip          int
	Limit         int
}

// GetZoneQuery represents the query to get a zone by ID
type GetZoneQuery struct {
	ZoneID string
}

// DeleteZoneCommand represents the command to delete a zone
type DeleteZoneCommand struct {
	ZoneID string
}

// StreamZoneConfig is one rectangular analysis zone on a stream
type StreamZoneConfig struct {
	ZoneID string
	Name   string
	XMin   float64
	YMin   float64
	XMax   float64
	YMax   float64
}

// CreateStreamCommand represents the command to start a capture stream
type CreateStreamCommand struct {
	StreamID      string
	Name          string
	WorkstationID string
	SourceType    string
	SourceURL     string
	TargetFPS     int
	AutoReconnect *bool
	Zones         []StreamZoneConfig
}

// UpdateStreamCommand represents a runtime stream update.
// A nil Zones slice leaves the zone configuration unchanged.
type UpdateStreamCommand struct {
	StreamID      string
	Name          *string
	TargetFPS     *int
	AutoReconnect *bool
	Zones         []StreamZoneConfig
}

// GetStreamQuery represents the query to get a stream by ID
type GetStreamQuery struct {
	StreamID string
}

// DeleteStreamCommand represents the command to stop and remove a stream
type DeleteStreamCommand struct {
	StreamID string
}

// StreamResultsQuery represents the query for recent processing results
type StreamResultsQuery struct {
	StreamID string
	Limit    int
}

// EfficiencyQuery represents the query for zone efficiency on a stream
type EfficiencyQuery struct {
	StreamID string
	ZoneID   string
	Minutes  int
}

// TestStreamCommand represents the command to probe a video source
type TestStreamCommand struct {
	SourceType string
	SourceURL  string
}

// DetectImageCommand represents the command to run detection on one image
type DetectImageCommand struct {
	ImageData []byte
}

// TrackingHistoryQuery represents the query for one track's movement history
type TrackingHistoryQuery struct {
	TrackID int
}

// ZoneAnalysisQuery represents the query for a zone's status history
type ZoneAnalysisQuery struct {
	ZoneID  string
	Minutes int
}

// CleanupCommand represents the command to prune tracking history
type CleanupCommand struct {
	HoursToKeep int
}
