package domain

import (
	"context"
	"time"
)

// WorkstationRepository defines the interface for workstation persistence
type WorkstationRepository interface {
	Save(ctx context.Context, workstation *Workstation) error
	FindByID(ctx context.Context, workstationID string) (*Workstation, error)
	FindAll(ctx context.Context, skip, limit int) ([]*Workstation, error)
	Delete(ctx context.Context, workstationID string) error
}

// ZoneRepository defines the interface for zone persistence
type ZoneRepository interface {
	Save(ctx context.Context, zone *Zone) error
	FindByID(ctx context.Context, zoneID string) (*Zone, error)
	FindAll(ctx context.Context, skip, limit int) ([]*Zone, error)
	FindByWorkstationID(ctx context.Context, workstationID string) ([]*Zone, error)
	Delete(ctx context.Context, zoneID string) error
	DeleteByWorkstationID(ctx context.Context, workstationID string) error
}

// DetectionRepository defines the interface for detection persistence
type DetectionRepository interface {
	Save(ctx context.Context, detection *Detection) error
	FindByWorkstationID(ctx context.Context, workstationID string, limit int) ([]*Detection, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// TrackingSessionRepository defines the interface for tracking session persistence
type TrackingSessionRepository interface {
	Save(ctx context.Context, session *TrackingSession) error
	FindByTrackID(ctx context.Context, trackID int) (*TrackingSession, error)
	FindActive(ctx context.Context) ([]*TrackingSession, error)
	CloseStale(ctx context.Context, lastSeenBefore time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishAll(ctx context.Context, events []DomainEvent) error
}
