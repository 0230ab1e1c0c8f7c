package video

import "time"

// Frame is one decoded video frame in RGB24 layout
type Frame struct {
	StreamID   string
	Sequence   uint64
	Width      int
	Height     int
	Data       []byte
	CapturedAt time.Time
}

// Size returns the expected byte length of the pixel data
func (f *Frame) Size() int {
	return f.Width * f.Height * 3
}
