package domain

import "math"

// Vec2 is a point on the ground plane.
type Vec2 struct {
	X float64
	Z float64
}

// DistanceTo returns the euclidean distance to other.
func (p Vec2) DistanceTo(other Vec2) float64 {
	return math.Sqrt(p.DistanceSquaredTo(other))
}

// DistanceSquaredTo is for comparisons that do not need the root.
func (p Vec2) DistanceSquaredTo(other Vec2) float64 {
	dx := p.X - other.X
	dz := p.Z - other.Z
	return dx*dx + dz*dz
}

// Shift returns a new point offset by (dx, dz).
func (p Vec2) Shift(dx, dz float64) Vec2 {
	return Vec2{X: p.X + dx, Z: p.Z + dz}
}
