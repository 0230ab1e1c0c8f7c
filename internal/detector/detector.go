// Package detector runs person detection and tracking over video frames.
// Inference happens in an external worker process speaking length-prefixed
// msgpack over stdin/stdout, keeping the GPU runtime out of this binary.
package detector

import (
	"context"
	"errors"

	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/internal/video"
)

// Errors
var (
	ErrNotRunning = errors.New("detector is not running")
	ErrBusy       = errors.New("detector input buffer full")
)

// Tracker selects the multi-object tracking algorithm in the worker
type Tracker string

const (
	TrackerBoTSORT   Tracker = "botsort"
	TrackerByteTrack Tracker = "bytetrack"
)

// Settings are the runtime-updatable inference parameters
type Settings struct {
	Confidence float64 `json:"confidence"`
	Tracker    Tracker `json:"tracker"`
}

// DefaultSettings returns the default inference parameters
func DefaultSettings() Settings {
	return Settings{
		Confidence: 0.5,
		Tracker:    TrackerBoTSORT,
	}
}

// Detector produces tracked person detections for a frame
type Detector interface {
	TrackPersons(ctx context.Context, frame *video.Frame) ([]domain.Tracking, error)
}
