package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// ZoneStatusChangedEvent is published when a zone transitions between statuses
type ZoneStatusChangedEvent struct {
	ZoneID         string    `json:"zoneId"`
	WorkstationID  string    `json:"workstationId"`
	PreviousStatus string    `json:"previousStatus"`
	CurrentStatus  string    `json:"currentStatus"`
	PersonCount    int       `json:"personCount"`
	ChangedAt      time.Time `json:"changedAt"`
}

func (e *ZoneStatusChangedEvent) EventType() string     { return "marmot.zone.status-changed" }
func (e *ZoneStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// WorkstationStatusChangedEvent is published when a workstation's derived status changes
type WorkstationStatusChangedEvent struct {
	WorkstationID  string    `json:"workstationId"`
	PreviousStatus string    `json:"previousStatus"`
	CurrentStatus  string    `json:"currentStatus"`
	ChangedAt      time.Time `json:"changedAt"`
}

func (e *WorkstationStatusChangedEvent) EventType() string     { return "marmot.workstation.status-changed" }
func (e *WorkstationStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// StreamStatusChangedEvent is published when a capture worker transitions between states
type StreamStatusChangedEvent struct {
	StreamID       string    `json:"streamId"`
	PreviousStatus string    `json:"previousStatus"`
	CurrentStatus  string    `json:"currentStatus"`
	ChangedAt      time.Time `json:"changedAt"`
}

func (e *StreamStatusChangedEvent) EventType() string     { return "marmot.stream.status-changed" }
func (e *StreamStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }
