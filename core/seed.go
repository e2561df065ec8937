package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// HexSeed builds the starting colony: an apex at (0, 0, height) fanned to a
// grounded hexagonal ring of the given radius. Vertex 0 is the apex, ring
// vertex 1+i sits at angle i*60 degrees, and face i is (0, 1+i, 1+(i+1)%6),
// which winds every face normal upward.
func HexSeed(radius, height float64) (*Mesh, error) {
	if err := requirePositive("seed radius", radius); err != nil {
		return nil, err
	}
	if err := requirePositive("seed height", height); err != nil {
		return nil, err
	}

	vertices := make([]mgl64.Vec3, 0, 7)
	vertices = append(vertices, mgl64.Vec3{0, 0, height})
	for i := 0; i < 6; i++ {
		angle := float64(i) * math.Pi / 3
		vertices = append(vertices, mgl64.Vec3{radius * math.Cos(angle), radius * math.Sin(angle), 0})
	}

	faces := make([]Face, 0, 6)
	for i := 0; i < 6; i++ {
		faces = append(faces, Face{0, 1 + i, 1 + (i+1)%6})
	}

	return NewMesh(vertices, faces)
}

// Hemisphere builds a dome of the given radius with a single apex vertex,
// rings latitude bands and segments vertices per band. The last band lies
// on the ground.
func Hemisphere(radius float64, rings, segments int) (*Mesh, error) {
	if err := requirePositive("hemisphere radius", radius); err != nil {
		return nil, err
	}
	if rings < 1 {
		return nil, &ConfigError{Field: "hemisphere rings", Value: float64(rings), Reason: "must be at least 1"}
	}
	if segments < 3 {
		return nil, &ConfigError{Field: "hemisphere segments", Value: float64(segments), Reason: "must be at least 3"}
	}

	vertices := make([]mgl64.Vec3, 0, 1+rings*segments)
	vertices = append(vertices, mgl64.Vec3{0, 0, radius})
	for k := 1; k <= rings; k++ {
		theta := math.Pi / 2 * float64(k) / float64(rings)
		z := radius * math.Cos(theta)
		if k == rings {
			// cos(pi/2) is not exactly zero in floating point
			z = 0
		}
		for j := 0; j < segments; j++ {
			phi := 2 * math.Pi * float64(j) / float64(segments)
			vertices = append(vertices, mgl64.Vec3{
				radius * math.Sin(theta) * math.Cos(phi),
				radius * math.Sin(theta) * math.Sin(phi),
				z,
			})
		}
	}

	ring := func(k, j int) int { return 1 + (k-1)*segments + (j % segments) }

	faces := make([]Face, 0, segments*(2*rings-1))
	for j := 0; j < segments; j++ {
		faces = append(faces, Face{0, ring(1, j), ring(1, j+1)})
	}
	for k := 1; k < rings; k++ {
		for j := 0; j < segments; j++ {
			a, b := ring(k, j), ring(k, j+1)
			c, d := ring(k+1, j), ring(k+1, j+1)
			faces = append(faces, Face{a, c, d}, Face{a, d, b})
		}
	}

	return NewMesh(vertices, faces)
}

// PolypMound builds a res x res grid spanning size on each side with a
// gaussian mound of the given peak height. Heights are shifted so the mound
// meets the ground on its unit circle; everything outside is grounded.
func PolypMound(size, height float64, res int) (*Mesh, error) {
	if err := requirePositive("mound size", size); err != nil {
		return nil, err
	}
	if err := requirePositive("mound height", height); err != nil {
		return nil, err
	}
	if res < 2 {
		return nil, &ConfigError{Field: "mound resolution", Value: float64(res), Reason: "must be at least 2"}
	}

	half := size / 2
	base := math.Exp(-5)
	peak := 1 - base

	vertices := make([]mgl64.Vec3, 0, res*res)
	for i := 0; i < res; i++ {
		y := -half + size*float64(i)/float64(res-1)
		for j := 0; j < res; j++ {
			x := -half + size*float64(j)/float64(res-1)
			rr := (x/half)*(x/half) + (y/half)*(y/half)
			z := height * (math.Exp(-5*rr) - base) / peak
			if z < 0 {
				z = 0
			}
			vertices = append(vertices, mgl64.Vec3{x, y, z})
		}
	}

	faces := make([]Face, 0, 2*(res-1)*(res-1))
	for i := 0; i < res-1; i++ {
		for j := 0; j < res-1; j++ {
			i0 := i*res + j
			i1 := i0 + 1
			i2 := i0 + res
			i3 := i2 + 1
			faces = append(faces, Face{i0, i1, i2}, Face{i1, i3, i2})
		}
	}

	return NewMesh(vertices, faces)
}
