// Package viewer turns reef frames into flat triangle buffers for a window
// renderer. It holds no graphics state of its own.
package viewer

import (
	"github.com/go-gl/mathgl/mgl32"

	"reefcraft/simulation"
)

// LightDir is the default key light, in the Y-up render frame
var LightDir = mgl32.Vec3{0.4, 1, 0.3}.Normalize()

// ambient keeps faces turned away from the light visible
const ambient = 0.25

// MeshBuffer holds one coral as unindexed triangles, three corners per face.
// Corners are stored reversed because the Y/Z swap into the render frame
// mirrors the mesh, and window renderers treat counter-clockwise as front.
type MeshBuffer struct {
	Coral     string
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	// Shade is the lambert term per corner, in [ambient, 1]
	Shade []float32

	generation int
	// Reallocs counts how many times the buffers were replaced
	Reallocs int
}

// Triangles returns the number of triangles in the buffer
func (b *MeshBuffer) Triangles() int { return len(b.Positions) / 3 }

// Update copies s into the buffer. The slices are only reallocated when the
// topology changed since the last update; otherwise positions and normals
// are overwritten in place. It reports whether a reallocation happened.
func (b *MeshBuffer) Update(s simulation.Snapshot) bool {
	n := 3 * len(s.Faces)
	realloc := b.Positions == nil || s.Generation != b.generation || len(b.Positions) != n
	if realloc {
		b.Positions = make([]mgl32.Vec3, n)
		b.Normals = make([]mgl32.Vec3, n)
		b.Shade = make([]float32, n)
		b.generation = s.Generation
		b.Reallocs++
	}
	b.Coral = s.Coral

	verts := s.RenderVertices()
	norms := s.RenderNormals()
	for fi, f := range s.Faces {
		corners := [3]int{f[0], f[2], f[1]}
		for k, vi := range corners {
			i := 3*fi + k
			p, nm := verts[vi], norms[vi]
			b.Positions[i] = mgl32.Vec3{float32(p[0]), float32(p[1]), float32(p[2])}
			b.Normals[i] = mgl32.Vec3{float32(nm[0]), float32(nm[1]), float32(nm[2])}
			b.Shade[i] = Lambert(b.Normals[i], LightDir)
		}
	}
	return realloc
}

// Lambert returns the diffuse term for normal n lit from dir, floored at ambient
func Lambert(n, dir mgl32.Vec3) float32 {
	d := n.Dot(dir)
	if d < 0 {
		d = 0
	}
	return ambient + (1-ambient)*d
}

// Scene keeps one buffer per coral, in frame order
type Scene struct {
	Buffers []*MeshBuffer
	byName  map[string]*MeshBuffer
	last    *simulation.Frame

	Tick    int
	Running bool
}

// NewScene creates an empty scene
func NewScene() *Scene {
	return &Scene{byName: make(map[string]*MeshBuffer)}
}

// Apply updates the scene from f. Applying the frame already shown is a
// no-op. It returns the number of buffers that were reallocated.
func (sc *Scene) Apply(f *simulation.Frame) int {
	if f == nil || f == sc.last {
		return 0
	}
	sc.last = f
	sc.Tick = f.Tick
	sc.Running = f.Running

	realloc := 0
	buffers := sc.Buffers[:0]
	for _, s := range f.Corals {
		b, ok := sc.byName[s.Coral]
		if !ok {
			b = &MeshBuffer{}
			sc.byName[s.Coral] = b
		}
		if b.Update(s) {
			realloc++
		}
		buffers = append(buffers, b)
	}
	sc.Buffers = buffers
	return realloc
}
