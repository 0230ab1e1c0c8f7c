package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Detection is a persisted record of one processed frame
type Detection struct {
	ID               primitive.ObjectID        `bson:"_id,omitempty"`
	DetectionID      string                    `bson:"detectionId"`
	WorkstationID    string                    `bson:"workstationId"`
	FrameTimestamp   time.Time                 `bson:"frameTimestamp"`
	PersonCount      int                       `bson:"personCount"`
	Confidences      []float64                 `bson:"confidences,omitempty"`
	BoundingBoxes    []BoundingBox             `bson:"boundingBoxes,omitempty"`
	TrackIDs         []int                     `bson:"trackIds,omitempty"`
	ZoneStatuses     map[string]ActivityStatus `bson:"zoneStatuses,omitempty"`
	ProcessingTimeMs float64                   `bson:"processingTimeMs"`
	CreatedAt        time.Time                 `bson:"createdAt"`
}

// TrackingSession records the lifetime of one tracked person
type TrackingSession struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	TrackID         int                `bson:"trackId"`
	WorkstationID   string             `bson:"workstationId"`
	FirstSeen       time.Time          `bson:"firstSeen"`
	LastSeen        time.Time          `bson:"lastSeen"`
	TotalDetections int                `bson:"totalDetections"`
	CurrentZoneID   string             `bson:"currentZoneId,omitempty"`
	IsActive        bool               `bson:"isActive"`
}

// NewTrackingSession starts a session for a newly seen track
func NewTrackingSession(trackID int, workstationID string, seenAt time.Time) *TrackingSession {
	return &TrackingSession{
		TrackID:         trackID,
		WorkstationID:   workstationID,
		FirstSeen:       seenAt,
		LastSeen:        seenAt,
		TotalDetections: 1,
		IsActive:        true,
	}
}

// Touch records another sighting of the tracked person
func (s *TrackingSession) Touch(zoneID string, seenAt time.Time) {
	s.LastSeen = seenAt
	s.TotalDetections++
	s.CurrentZoneID = zoneID
}

// Close marks the session inactive
func (s *TrackingSession) Close() {
	s.IsActive = false
}
