package video

import (
	"errors"

	"github.com/marmot-vision/marmot/internal/domain"
)

// Errors
var (
	ErrStreamIDRequired = errors.New("stream id is required")
	ErrInvalidFPS       = errors.New("target fps must be between 1 and 30")
	ErrSourceRequired   = errors.New("source url is required")
)

const (
	// DefaultTargetFPS is used when a stream is created without an explicit rate
	DefaultTargetFPS = 15

	MinTargetFPS = 1
	MaxTargetFPS = 30
)

// StreamConfig describes one video stream to capture.
// WorkstationID optionally binds the stream to a persisted workstation
// so processing results update its status.
type StreamConfig struct {
	StreamID      string
	Name          string
	WorkstationID string
	SourceType    domain.VideoSourceType
	SourceURL     string
	TargetFPS     int
	AutoReconnect bool
	FrameWidth    int
	FrameHeight   int
}

// Normalize applies defaults and validates the configuration
func (c *StreamConfig) Normalize() error {
	if c.StreamID == "" {
		return ErrStreamIDRequired
	}
	if c.SourceURL == "" {
		return ErrSourceRequired
	}
	if !c.SourceType.IsValid() {
		return domain.ErrInvalidSourceType
	}
	if c.TargetFPS == 0 {
		c.TargetFPS = DefaultTargetFPS
	}
	if c.TargetFPS < MinTargetFPS || c.TargetFPS > MaxTargetFPS {
		return ErrInvalidFPS
	}
	if c.Name == "" {
		c.Name = c.StreamID
	}
	return nil
}
