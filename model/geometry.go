package model

import "math"

// Point is a position in user or device space.
type Point struct {
	X, Y float64
}

// Distance returns the Euclidean distance to other.
func (p Point) Distance(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// BBox is an axis-aligned rectangle anchored at its lower-left corner.
type BBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewBBox creates a box from its lower-left corner and size.
func NewBBox(x, y, width, height float64) BBox {
	return BBox{X: x, Y: y, Width: width, Height: height}
}

// RectBBox creates a box from two opposite corners in any order, as found
// in /MediaBox and /BBox arrays.
func RectBBox(x1, y1, x2, y2 float64) BBox {
	return BBox{
		X:      math.Min(x1, x2),
		Y:      math.Min(y1, y2),
		Width:  math.Abs(x2 - x1),
		Height: math.Abs(y2 - y1),
	}
}

// PointsBBox returns the smallest box containing every point.
func PointsBBox(pts ...Point) BBox {
	if len(pts) == 0 {
		return BBox{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return BBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func (b BBox) Left() float64   { return b.X }
func (b BBox) Right() float64  { return b.X + b.Width }
func (b BBox) Bottom() float64 { return b.Y }
func (b BBox) Top() float64    { return b.Y + b.Height }

// Center returns the midpoint.
func (b BBox) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Contains reports whether p lies inside b or on its edge.
func (b BBox) Contains(p Point) bool {
	return p.X >= b.Left() && p.X <= b.Right() && p.Y >= b.Bottom() && p.Y <= b.Top()
}

// Intersects reports whether the boxes share any point.
func (b BBox) Intersects(other BBox) bool {
	return b.Right() >= other.Left() && b.Left() <= other.Right() &&
		b.Top() >= other.Bottom() && b.Bottom() <= other.Top()
}

// Intersection returns the overlap, or the zero box when there is none.
func (b BBox) Intersection(other BBox) BBox {
	if !b.Intersects(other) {
		return BBox{}
	}
	return RectBBox(
		math.Max(b.Left(), other.Left()), math.Max(b.Bottom(), other.Bottom()),
		math.Min(b.Right(), other.Right()), math.Min(b.Top(), other.Top()),
	)
}

// Union returns the smallest box containing both. An empty box is ignored.
func (b BBox) Union(other BBox) BBox {
	if b.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return b
	}
	return RectBBox(
		math.Min(b.Left(), other.Left()), math.Min(b.Bottom(), other.Bottom()),
		math.Max(b.Right(), other.Right()), math.Max(b.Top(), other.Top()),
	)
}

// Area returns Width × Height.
func (b BBox) Area() float64 { return b.Width * b.Height }

// Inset shrinks the box by d on every side. A negative d grows it.
func (b BBox) Inset(d float64) BBox {
	w, h := math.Max(b.Width-2*d, 0), math.Max(b.Height-2*d, 0)
	return BBox{X: b.X + d, Y: b.Y + d, Width: w, Height: h}
}

// IsEmpty reports whether the box has no area.
func (b BBox) IsEmpty() bool { return b.Width <= 0 || b.Height <= 0 }

// Transform maps the four corners through m and returns their bounds.
func (b BBox) Transform(m Matrix) BBox {
	return PointsBBox(
		m.Transform(Point{b.Left(), b.Bottom()}),
		m.Transform(Point{b.Right(), b.Bottom()}),
		m.Transform(Point{b.Left(), b.Top()}),
		m.Transform(Point{b.Right(), b.Top()}),
	)
}

// Matrix is an affine transform [a b c d e f].
type Matrix [6]float64

// Identity returns the identity transform.
func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

// Translate returns a translation by (tx, ty).
func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }

// Scale returns a scaling by (sx, sy).
func Scale(sx, sy float64) Matrix { return Matrix{sx, 0, 0, sy, 0, 0} }

// Rotate returns a counter-clockwise rotation by angle radians.
func Rotate(angle float64) Matrix {
	sin, cos := math.Sincos(angle)
	return Matrix{cos, sin, -sin, cos, 0, 0}
}

// Transform maps p through m.
func (m Matrix) Transform(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// TransformVector maps a displacement, ignoring translation.
func (m Matrix) TransformVector(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y, Y: m[1]*p.X + m[3]*p.Y}
}

// Multiply returns m × other: the transform that applies m, then other.
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		m[0]*other[0] + m[1]*other[2],
		m[0]*other[1] + m[1]*other[3],
		m[2]*other[0] + m[3]*other[2],
		m[2]*other[1] + m[3]*other[3],
		m[4]*other[0] + m[5]*other[2] + other[4],
		m[4]*other[1] + m[5]*other[3] + other[5],
	}
}

// Inverse returns the inverse transform and false when m is singular.
func (m Matrix) Inverse() (Matrix, bool) {
	det := m[0]*m[3] - m[1]*m[2]
	if det == 0 || math.IsNaN(det) {
		return Matrix{}, false
	}
	return Matrix{
		m[3] / det,
		-m[1] / det,
		-m[2] / det,
		m[0] / det,
		(m[2]*m[5] - m[3]*m[4]) / det,
		(m[1]*m[4] - m[0]*m[5]) / det,
	}, true
}

// ScaleX is the length of the transformed unit x vector.
func (m Matrix) ScaleX() float64 { return math.Hypot(m[0], m[1]) }

// ScaleY is the length of the transformed unit y vector.
func (m Matrix) ScaleY() float64 { return math.Hypot(m[2], m[3]) }

// IsIdentity reports whether m is exactly the identity.
func (m Matrix) IsIdentity() bool { return m == Identity() }

// PageMatrix maps user space of a page with the given box to an upright
// device space of the same size scaled by scale, after rotating the page
// clockwise by rotation degrees (a multiple of 90). The device origin is
// at the lower left of the rotated page.
func PageMatrix(box BBox, rotation int, scale float64) Matrix {
	if scale <= 0 {
		scale = 1
	}
	m := Translate(-box.X, -box.Y)
	switch ((rotation%360)+360) % 360 {
	case 90:
		m = m.Multiply(Matrix{0, -1, 1, 0, 0, box.Width})
	case 180:
		m = m.Multiply(Matrix{-1, 0, 0, -1, box.Width, box.Height})
	case 270:
		m = m.Multiply(Matrix{0, 1, -1, 0, box.Height, 0})
	}
	return m.Multiply(Scale(scale, scale))
}
