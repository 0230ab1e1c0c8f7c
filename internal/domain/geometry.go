package domain

// Point is a coordinate in frame space
type Point struct {
	X float64 `bson:"x" json:"x"`
	Y float64 `bson:"y" json:"y"`
}

// BoundingBox is an axis-aligned person detection box
type BoundingBox struct {
	X1 float64 `bson:"x1" json:"x1"`
	Y1 float64 `bson:"y1" json:"y1"`
	X2 float64 `bson:"x2" json:"x2"`
	Y2 float64 `bson:"y2" json:"y2"`
}

// Center returns the midpoint of the box, used for zone containment
func (b BoundingBox) Center() Point {
	return Point{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Rectangle is an axis-aligned zone region with O(1) containment
type Rectangle struct {
	XMin float64 `bson:"x_min" json:"x_min"`
	YMin float64 `bson:"y_min" json:"y_min"`
	XMax float64 `bson:"x_max" json:"x_max"`
	YMax float64 `bson:"y_max" json:"y_max"`
}

// Contains reports whether p lies inside the rectangle, borders included
func (r Rectangle) Contains(p Point) bool {
	return p.X >= r.XMin && p.X <= r.XMax && p.Y >= r.YMin && p.Y <= r.YMax
}

// Polygon is an ordered list of vertices
type Polygon []Point

// Contains reports whether p lies inside the polygon using ray casting
func (poly Polygon) Contains(p Point) bool {
	if len(poly) < 3 {
		return false
	}

	inside := false
	j := len(poly) - 1
	for i := 0; i < len(poly); i++ {
		pi, pj := poly[i], poly[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) &&
			p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Bounds returns the axis-aligned bounding rectangle of the polygon
func (poly Polygon) Bounds() Rectangle {
	if len(poly) == 0 {
		return Rectangle{}
	}

	r := Rectangle{
		XMin: poly[0].X, XMax: poly[0].X,
		YMin: poly[0].Y, YMax: poly[0].Y,
	}
	for _, p := range poly[1:] {
		if p.X < r.XMin {
			r.XMin = p.X
		}
		if p.X > r.XMax {
			r.XMax = p.X
		}
		if p.Y < r.YMin {
			r.YMin = p.Y
		}
		if p.Y > r.YMax {
			r.YMax = p.Y
		}
	}
	return r
}
