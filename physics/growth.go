package physics

import (
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"reefcraft/core"
)

// SigmaEpsilon keeps the curvature proxy finite for near-horizontal normals
const SigmaEpsilon = 1e-6

// Trigger selects how the curvature proxy is compared with the threshold
type Trigger int

const (
	// TriggerAbove grows when sigma > threshold
	TriggerAbove Trigger = iota
	// TriggerAtLeast grows when sigma >= threshold
	TriggerAtLeast
)

func (t Trigger) String() string {
	switch t {
	case TriggerAbove:
		return "above"
	case TriggerAtLeast:
		return "at-least"
	default:
		return "unknown"
	}
}

// GrowParams configures one growth pass
type GrowParams struct {
	Threshold float64
	Amount    float64
	Trigger   Trigger
}

// Curvature returns the upward-facing proxy nz / sqrt(nx^2 + ny^2 + eps)
func Curvature(n mgl64.Vec3) float64 {
	return n.Z() / math.Sqrt(n.X()*n.X()+n.Y()*n.Y()+SigmaEpsilon)
}

func (p GrowParams) fires(sigma float64) bool {
	if p.Trigger == TriggerAtLeast {
		return sigma >= p.Threshold
	}
	return sigma > p.Threshold
}

// Grow displaces every ungrounded vertex whose curvature proxy fires by
// Amount along its unit normal. Vertices are independent, so the pass runs
// fully in parallel. It returns the number of vertices moved.
func Grow(vertices, normals []mgl64.Vec3, grounded []bool, p GrowParams, workers int) int {
	var moved atomic.Int64
	ParallelFor(len(vertices), workers, func(lo, hi int) {
		var local int64
		for i := lo; i < hi; i++ {
			if grounded[i] {
				continue
			}
			n := normals[i]
			if !p.fires(Curvature(n)) {
				continue
			}
			dir := core.SafeNormalize(n)
			if dir == (mgl64.Vec3{}) {
				continue
			}
			vertices[i] = vertices[i].Add(dir.Mul(p.Amount))
			local++
		}
		moved.Add(local)
	})
	return int(moved.Load())
}
