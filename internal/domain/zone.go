package domain

import (
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrTooFewPoints = errors.New("zone requires at least 3 points")
	ErrInvalidColor = errors.New("invalid color, expected #RRGGBB")
)

// DefaultZoneColor is used when a zone is created without an explicit color
const DefaultZoneColor = "#FF0000"

var colorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Zone is a monitored region within a workstation's camera view
type Zone struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	ZoneID        string             `bson:"zoneId"`
	Name          string             `bson:"name"`
	WorkstationID string             `bson:"workstationId"`
	Coordinates   Polygon            `bson:"coordinates"`
	IsActive      bool               `bson:"isActive"`
	Color         string             `bson:"color"`
	PersonCount   int                `bson:"personCount"`
	Status        ActivityStatus     `bson:"status"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
	DomainEvents  []DomainEvent      `bson:"-"`
}

// NewZone creates a new Zone aggregate
func NewZone(zoneID, name, workstationID string, coordinates Polygon, color string) (*Zone, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if len(coordinates) < 3 {
		return nil, ErrTooFewPoints
	}
	if color == "" {
		color = DefaultZoneColor
	}
	if !colorRegex.MatchString(color) {
		return nil, ErrInvalidColor
	}

	now := time.Now()
	return &Zone{
		ZoneID:        zoneID,
		Name:          name,
		WorkstationID: workstationID,
		Coordinates:   coordinates,
		IsActive:      true,
		Color:         color,
		PersonCount:   0,
		Status:        StatusIdle,
		CreatedAt:     now,
		UpdatedAt:     now,
		DomainEvents:  make([]DomainEvent, 0),
	}, nil
}

// UpdateDetails updates the editable zone fields.
// Nil pointers leave the corresponding field unchanged.
func (z *Zone) UpdateDetails(name *string, coordinates Polygon, color *string, isActive *bool) error {
	if name != nil {
		if *name == "" {
			return ErrNameRequired
		}
		z.Name = *name
	}
	if coordinates != nil {
		if len(coordinates) < 3 {
			return ErrTooFewPoints
		}
		z.Coordinates = coordinates
	}
	if color != nil {
		if !colorRegex.MatchString(*color) {
			return ErrInvalidColor
		}
		z.Color = *color
	}
	if isActive != nil {
		z.IsActive = *isActive
	}

	z.UpdatedAt = time.Now()
	return nil
}

// ContainsPoint reports whether a point lies inside the zone polygon
func (z *Zone) ContainsPoint(p Point) bool {
	return z.Coordinates.Contains(p)
}

// UpdateOccupancy records the observed person count and derives the status.
// It returns true when the status transitioned.
func (z *Zone) UpdateOccupancy(personCount int, at time.Time) bool {
	previous := z.Status
	z.PersonCount = personCount
	z.Status = StatusForCount(personCount)
	z.UpdatedAt = time.Now()

	if previous == z.Status {
		return false
	}

	z.AddDomainEvent(&ZoneStatusChangedEvent{
		ZoneID:         z.ZoneID,
		WorkstationID:  z.WorkstationID,
		PreviousStatus: string(previous),
		CurrentStatus:  string(z.Status),
		PersonCount:    personCount,
		ChangedAt:      at,
	})
	return true
}

// AddDomainEvent adds a domain event
func (z *Zone) AddDomainEvent(event DomainEvent) {
	z.DomainEvents = append(z.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (z *Zone) ClearDomainEvents() {
	z.DomainEvents = make([]DomainEvent, 0)
}
