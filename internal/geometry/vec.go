// Package geometry provides the 2D vector and rectangle primitives shared by
// the spatial index and the simulation.
package geometry

import (
	"math"
	"math/rand"
	"strconv"
)

// Vec2 is a 2D floating-point vector. A NaN component marks a vector as
// unset; see IsNaN.
type Vec2 struct {
	X, Y float64
}

// V is shorthand for Vec2{x, y}.
func V(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// NaN returns a vector with both components set to NaN.
func NaN() Vec2 {
	return Vec2{X: math.NaN(), Y: math.NaN()}
}

// Zero returns the zero vector.
func Zero() Vec2 {
	return Vec2{}
}

// One returns the vector (1, 1).
func One() Vec2 {
	return Vec2{X: 1, Y: 1}
}

// RandomIn returns a vector uniformly distributed over [min.X, max.X) x [min.Y, max.Y).
func RandomIn(rng *rand.Rand, min, max Vec2) Vec2 {
	return Vec2{
		X: min.X + rng.Float64()*(max.X-min.X),
		Y: min.Y + rng.Float64()*(max.Y-min.Y),
	}
}

// IsNaN reports whether any component is NaN.
func (v Vec2) IsNaN() bool {
	return math.IsNaN(v.X) || math.IsNaN(v.Y)
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// SubScalar subtracts s from both components.
func (v Vec2) SubScalar(s float64) Vec2 {
	return Vec2{X: v.X - s, Y: v.Y - s}
}

// Mul is the componentwise (Hadamard) product.
func (v Vec2) Mul(o Vec2) Vec2 {
	return Vec2{X: v.X * o.X, Y: v.Y * o.Y}
}

// Div is the componentwise quotient.
func (v Vec2) Div(o Vec2) Vec2 {
	return Vec2{X: v.X / o.X, Y: v.Y / o.Y}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

func (v Vec2) DivScalar(s float64) Vec2 {
	return Vec2{X: v.X / s, Y: v.Y / s}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Mag returns the Euclidean length of v.
func (v Vec2) Mag() float64 {
	return math.Hypot(v.X, v.Y)
}

// Dist returns the Euclidean distance between v and o.
func (v Vec2) Dist(o Vec2) float64 {
	return v.Sub(o).Mag()
}

// Normalize returns v scaled to unit length.
// The caller must ensure v has a nonzero magnitude; the zero vector
// normalizes to NaN.
func (v Vec2) Normalize() Vec2 {
	return v.DivScalar(v.Mag())
}

// ClampMag rescales v to have a magnitude of at most limit. Shorter vectors
// are returned unchanged.
func (v Vec2) ClampMag(limit float64) Vec2 {
	if v.Mag() > limit {
		return v.Normalize().Scale(limit)
	}
	return v
}

// Clamp returns v with each component clipped to the rectangle r.
func (v Vec2) Clamp(r Rect) Vec2 {
	return Vec2{
		X: math.Min(math.Max(v.X, r.BL.X), r.TR.X),
		Y: math.Min(math.Max(v.Y, r.BL.Y), r.TR.Y),
	}
}

func (v Vec2) String() string {
	return "(" + strconv.FormatFloat(v.X, 'f', -1, 64) + "," + strconv.FormatFloat(v.Y, 'f', -1, 64) + ")"
}
