package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundingBoxCenter(t *testing.T) {
	box := BoundingBox{X1: 10, Y1: 20, X2: 30, Y2: 60}
	center := box.Center()
	assert.Equal(t, 20.0, center.X)
	assert.Equal(t, 40.0, center.Y)
}

func TestRectangleContains(t *testing.T) {
	rect := Rectangle{XMin: 0, YMin: 0, XMax: 100, YMax: 50}

	tests := []struct {
		name     string
		point    Point
		expected bool
	}{
		{"Inside", Point{X: 50, Y: 25}, true},
		{"On left border", Point{X: 0, Y: 25}, true},
		{"On corner", Point{X: 100, Y: 50}, true},
		{"Right of rect", Point{X: 101, Y: 25}, false},
		{"Above rect", Point{X: 50, Y: -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rect.Contains(tt.point))
		})
	}
}

func TestPolygonContains(t *testing.T) {
	// Concave L shape
	poly := Polygon{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5},
		{X: 5, Y: 5}, {X: 5, Y: 10}, {X: 0, Y: 10},
	}

	assert.True(t, poly.Contains(Point{X: 2, Y: 2}))
	assert.True(t, poly.Contains(Point{X: 8, Y: 2}))
	assert.True(t, poly.Contains(Point{X: 2, Y: 8}))
	assert.False(t, poly.Contains(Point{X: 8, Y: 8}))
	assert.False(t, poly.Contains(Point{X: 11, Y: 2}))

	// Degenerate polygons contain nothing
	assert.False(t, Polygon{{X: 0, Y: 0}, {X: 1, Y: 1}}.Contains(Point{X: 0.5, Y: 0.5}))
}

func TestPolygonBounds(t *testing.T) {
	poly := Polygon{{X: 3, Y: 7}, {X: -2, Y: 4}, {X: 9, Y: 12}}
	bounds := poly.Bounds()

	assert.Equal(t, Rectangle{XMin: -2, YMin: 4, XMax: 9, YMax: 12}, bounds)
	assert.Equal(t, Rectangle{}, Polygon{}.Bounds())
}
