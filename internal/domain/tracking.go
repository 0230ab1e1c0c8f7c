package domain

// Tracking is a single tracked person detection within a frame.
// TrackID is nil when the tracker has not yet assigned an identity.
type Tracking struct {
	BBox       BoundingBox
	Confidence float64
	TrackID    *int
}

// Center returns the point used for zone containment checks
func (t Tracking) Center() Point {
	return t.BBox.Center()
}
