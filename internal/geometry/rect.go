package geometry

import "math"

// Quadrant indices returned by Rect.Quadrant and used to order the result of
// Rect.Quarter:
//
//	+---+---+
//	| 0 | 1 |
//	+---+---+
//	| 2 | 3 |
//	+---+---+
const (
	UpperLeft  = 0
	UpperRight = 1
	LowerLeft  = 2
	LowerRight = 3
)

// Rect is an axis-aligned rectangle given by its bottom-left (minimum) and
// top-right (maximum) corners. Construct it with NewRect so that BL <= TR
// holds componentwise.
type Rect struct {
	BL, TR Vec2
}

// NewRect builds a Rect from any two opposite corners.
func NewRect(a, b Vec2) Rect {
	return Rect{
		BL: Vec2{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		TR: Vec2{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// NewCenteredRect builds a Rect of the given side lengths around center.
func NewCenteredRect(center, sides Vec2) Rect {
	half := sides.DivScalar(2)
	return NewRect(center.Sub(half), center.Add(half))
}

func (r Rect) Center() Vec2 {
	return r.BL.Add(r.TR).DivScalar(2)
}

func (r Rect) Width() float64 {
	return r.TR.X - r.BL.X
}

func (r Rect) Height() float64 {
	return r.TR.Y - r.BL.Y
}

// Contains reports whether p lies in r, edges included.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.BL.X && p.X <= r.TR.X && p.Y >= r.BL.Y && p.Y <= r.TR.Y
}

// Intersects reports whether r and o overlap. Rectangles that only touch
// along an edge or at a corner intersect.
func (r Rect) Intersects(o Rect) bool {
	return !(r.BL.X > o.TR.X ||
		o.BL.X > r.TR.X ||
		r.BL.Y > o.TR.Y ||
		o.BL.Y > r.TR.Y)
}

// Quadrant classifies p relative to the center of r. Points on a center line
// belong to the upper or right side. p does not need to be inside r; the
// quadrants extend outward to infinity.
func (r Rect) Quadrant(p Vec2) int {
	c := r.Center()
	x, y := 0, 0
	if p.X >= c.X {
		x = 1
	}
	if p.Y >= c.Y {
		y = 1
	}
	return 2 - 2*y + x
}

// Quarter splits r in half along both axes. The result is indexed by the
// Quadrant convention, and neighbouring quarters share their edges.
func (r Rect) Quarter() [4]Rect {
	c := r.Center()
	return [4]Rect{
		UpperLeft:  NewRect(Vec2{X: r.BL.X, Y: c.Y}, Vec2{X: c.X, Y: r.TR.Y}),
		UpperRight: NewRect(c, r.TR),
		LowerLeft:  NewRect(r.BL, c),
		LowerRight: NewRect(Vec2{X: c.X, Y: r.BL.Y}, Vec2{X: r.TR.X, Y: c.Y}),
	}
}

func (r Rect) String() string {
	return "[" + r.BL.String() + " " + r.TR.String() + "]"
}
