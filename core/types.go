package core

import (
	"github.com/go-gl/mathgl/mgl64"
)

// GroundTolerance is the height at or below which a vertex counts as grounded
const GroundTolerance = 1e-6

// Face is an ordered triple of vertex indices. The order fixes the winding.
type Face [3]int

// Edges returns the three undirected edges of the face in winding order:
// (f0,f1), (f1,f2), (f2,f0)
func (f Face) Edges() [3]Edge {
	return [3]Edge{MakeEdge(f[0], f[1]), MakeEdge(f[1], f[2]), MakeEdge(f[2], f[0])}
}

// Edge is an undirected vertex pair stored with the smaller index first
type Edge [2]int

// MakeEdge returns the sorted key for the pair (a, b)
func MakeEdge(a, b int) Edge {
	if a > b {
		return Edge{b, a}
	}
	return Edge{a, b}
}

// IsGrounded reports whether a vertex at height z is held by the ground
func IsGrounded(z float64) bool {
	return z <= GroundTolerance
}

// SafeNormalize scales v to unit length, returning the zero vector when v is
// too short to carry a direction
func SafeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l <= 1e-8 {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}
