package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrNameRequired          = errors.New("name is required")
	ErrInvalidSourceType     = errors.New("invalid video source type")
	ErrWorkstationInactive   = errors.New("workstation is inactive")
)

// VideoSourceType represents the kind of video input attached to a workstation
type VideoSourceType string

const (
	SourceRTSP VideoSourceType = "rtsp"
	SourceUSB  VideoSourceType = "usb"
	SourceIP   VideoSourceType = "ip"
	SourceFile VideoSourceType = "file"
)

// IsValid reports whether the source type is one of the supported kinds
func (t VideoSourceType) IsValid() bool {
	switch t {
	case SourceRTSP, SourceUSB, SourceIP, SourceFile:
		return true
	}
	return false
}

// ActivityStatus represents the observed activity at a workstation or zone
type ActivityStatus string

const (
	StatusWork    ActivityStatus = "work"
	StatusIdle    ActivityStatus = "idle"
	StatusOther   ActivityStatus = "other"
	StatusOffline ActivityStatus = "offline"
)

// StatusForCount derives the activity status from a person count.
// Exactly one person means focused work, more than one means
// interaction or interference.
func StatusForCount(personCount int) ActivityStatus {
	switch {
	case personCount == 0:
		return StatusIdle
	case personCount == 1:
		return StatusWork
	default:
		return StatusOther
	}
}

// Workstation is the aggregate root for a monitored work position
type Workstation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	WorkstationID   string             `bson:"workstationId"`
	Name            string             `bson:"name"`
	Description     string             `bson:"description,omitempty"`
	IsActive        bool               `bson:"isActive"`
	VideoSourceType VideoSourceType    `bson:"videoSourceType"`
	VideoSourceURL  string             `bson:"videoSourceUrl"`
	VideoConfig     map[string]any     `bson:"videoConfig,omitempty"`
	CurrentStatus   ActivityStatus     `bson:"currentStatus"`
	LastDetectionAt *time.Time         `bson:"lastDetectionAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
	DomainEvents    []DomainEvent      `bson:"-"`
}

// NewWorkstation creates a new Workstation aggregate
func NewWorkstation(workstationID, name, description string, sourceType VideoSourceType, sourceURL string, videoConfig map[string]any) (*Workstation, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if sourceType != "" && !sourceType.IsValid() {
		return nil, ErrInvalidSourceType
	}

	now := time.Now()
	return &Workstation{
		WorkstationID:   workstationID,
		Name:            name,
		Description:     description,
		IsActive:        true,
		VideoSourceType: sourceType,
		VideoSourceURL:  sourceURL,
		VideoConfig:     videoConfig,
		CurrentStatus:   StatusOffline,
		CreatedAt:       now,
		UpdatedAt:       now,
		DomainEvents:    make([]DomainEvent, 0),
	}, nil
}

// UpdateDetails updates the editable workstation fields.
// Nil pointers leave the corresponding field unchanged.
func (w *Workstation) UpdateDetails(name, description *string, sourceType *VideoSourceType, sourceURL *string, videoConfig map[string]any, isActive *bool) error {
	if name != nil {
		if *name == "" {
			return ErrNameRequired
		}
		w.Name = *name
	}
	if description != nil {
		w.Description = *description
	}
	if sourceType != nil {
		if !sourceType.IsValid() {
			return ErrInvalidSourceType
		}
		w.VideoSourceType = *sourceType
	}
	if sourceURL != nil {
		w.VideoSourceURL = *sourceURL
	}
	if videoConfig != nil {
		w.VideoConfig = videoConfig
	}
	if isActive != nil {
		w.IsActive = *isActive
	}

	w.UpdatedAt = time.Now()
	return nil
}

// RecordDetection updates the workstation with the outcome of a processed
// frame. Disabled workstations reject live status updates.
func (w *Workstation) RecordDetection(status ActivityStatus, at time.Time) error {
	if !w.IsActive {
		return ErrWorkstationInactive
	}

	previous := w.CurrentStatus
	w.CurrentStatus = status
	w.LastDetectionAt = &at
	w.UpdatedAt = time.Now()

	if previous != status {
		w.AddDomainEvent(&WorkstationStatusChangedEvent{
			WorkstationID:  w.WorkstationID,
			PreviousStatus: string(previous),
			CurrentStatus:  string(status),
			ChangedAt:      at,
		})
	}
	return nil
}

// MarkOffline marks the workstation as offline when its stream is lost
func (w *Workstation) MarkOffline() error {
	return w.RecordDetection(StatusOffline, time.Now())
}

// AddDomainEvent adds a domain event
func (w *Workstation) AddDomainEvent(event DomainEvent) {
	w.DomainEvents = append(w.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (w *Workstation) ClearDomainEvents() {
	w.DomainEvents = make([]DomainEvent, 0)
}
