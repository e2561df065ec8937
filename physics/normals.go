package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"reefcraft/core"
)

// faceEpsilon is the smallest cross product length that still yields a face normal
const faceEpsilon = 1e-8

// ComputeNormals overwrites dst with per-vertex unit normals. Every
// non-degenerate face adds its unit normal (not area weighted) to its three
// corners. Vertices with no contributing face get the zero vector. Grounded
// vertices have their vertical component dropped so growth stays tangent
// to the ground.
//
// Face normals go into one slot per face first and are combined per vertex
// afterwards, so concurrent faces never race on a shared corner.
func ComputeNormals(vertices []mgl64.Vec3, faces []core.Face, grounded []bool, dst []mgl64.Vec3, workers int) {
	faceNormals := make([]mgl64.Vec3, len(faces))
	ParallelFor(len(faces), workers, func(lo, hi int) {
		for fi := lo; fi < hi; fi++ {
			f := faces[fi]
			v0 := vertices[f[0]]
			cross := vertices[f[1]].Sub(v0).Cross(vertices[f[2]].Sub(v0))
			if l := cross.Len(); l > faceEpsilon {
				faceNormals[fi] = cross.Mul(1 / l)
			}
		}
	})

	clear(dst)
	for fi, f := range faces {
		n := faceNormals[fi]
		dst[f[0]] = dst[f[0]].Add(n)
		dst[f[1]] = dst[f[1]].Add(n)
		dst[f[2]] = dst[f[2]].Add(n)
	}

	ParallelFor(len(dst), workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			n := core.SafeNormalize(dst[i])
			if grounded[i] {
				n = horizontal(n)
			}
			dst[i] = n
		}
	})
}

// horizontal drops the z component and renormalizes what is left
func horizontal(n mgl64.Vec3) mgl64.Vec3 {
	l := math.Hypot(n.X(), n.Y())
	if l <= faceEpsilon {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{n.X() / l, n.Y() / l, 0}
}
