package simulation

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"reefcraft/core"
)

// SubdivisionStats describes one subdivision pass
type SubdivisionStats struct {
	FacesBefore int
	FacesAfter  int
	// ByClass counts source faces by how many of their edges were split
	ByClass   [4]int
	Midpoints int
	Changed   bool
}

// midpointCache maps a split edge to the index of its midpoint vertex. It
// lives for exactly one Subdivide call. The first face to split an edge
// appends the midpoint; every other face sharing that edge reuses it, which
// keeps neighbouring faces with different split counts stitched together.
type midpointCache struct {
	index    map[core.Edge]int
	vertices []mgl64.Vec3
}

func newMidpointCache(vertices []mgl64.Vec3, expected int) *midpointCache {
	v := make([]mgl64.Vec3, len(vertices), len(vertices)+expected)
	copy(v, vertices)
	return &midpointCache{
		index:    make(map[core.Edge]int, expected),
		vertices: v,
	}
}

// insert returns the midpoint of e, creating it on first use
func (c *midpointCache) insert(e core.Edge) int {
	if idx, ok := c.index[e]; ok {
		return idx
	}
	mid := c.vertices[e[0]].Add(c.vertices[e[1]]).Mul(0.5)
	idx := len(c.vertices)
	c.vertices = append(c.vertices, mid)
	c.index[e] = idx
	return idx
}

func (c *midpointCache) lookup(fi, a, b int) (int, error) {
	e := core.MakeEdge(a, b)
	idx, ok := c.index[e]
	if !ok {
		return 0, &core.TopologyError{Face: fi, Edge: e, Reason: "split edge has no midpoint"}
	}
	return idx, nil
}

// facePlan records which edges of a face exceed the split length. split[k]
// refers to the edge from corner k to corner k+1.
type facePlan struct {
	split [3]bool
	count int
}

// Subdivide splits every face edge longer than maxEdge at its midpoint and
// retriangulates each face with the template for its split count. Winding is
// preserved, so sub-face normals agree with their source face. When no edge
// is long enough the input mesh is returned as is. Otherwise a new
// generation is built: edges rederived, grounded flags recomputed from
// height and a fresh zeroed normal buffer.
//
// A face referencing a missing vertex, a split edge without a registered
// midpoint, or a split count outside 0..3 yields a *core.TopologyError and
// no mesh.
func Subdivide(m *core.Mesh, maxEdge float64) (*core.Mesh, SubdivisionStats, error) {
	stats := SubdivisionStats{FacesBefore: len(m.Faces), FacesAfter: len(m.Faces)}

	// 1. classify faces by split count
	plans := make([]facePlan, len(m.Faces))
	splitEdges := 0
	for fi, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(m.Vertices) {
				return nil, stats, &core.TopologyError{Face: fi, Reason: fmt.Sprintf("vertex index %d out of range", idx)}
			}
		}
		var p facePlan
		for k := 0; k < 3; k++ {
			a, b := m.Vertices[f[k]], m.Vertices[f[(k+1)%3]]
			if a.Sub(b).Len() > maxEdge {
				p.split[k] = true
				p.count++
			}
		}
		plans[fi] = p
		splitEdges += p.count
	}
	if splitEdges == 0 {
		for _, p := range plans {
			stats.ByClass[p.count]++
		}
		return m, stats, nil
	}

	// 2. register one midpoint per split edge, in face order
	cache := newMidpointCache(m.Vertices, splitEdges)
	for fi, f := range m.Faces {
		for k := 0; k < 3; k++ {
			if plans[fi].split[k] {
				cache.insert(core.MakeEdge(f[k], f[(k+1)%3]))
			}
		}
	}

	// 3. retriangulate
	faces := make([]core.Face, 0, len(m.Faces)+splitEdges)
	for fi, f := range m.Faces {
		p := plans[fi]
		var err error
		switch p.count {
		case 0:
			faces = append(faces, f)
		case 1:
			faces, err = splitOne(faces, cache, fi, f, p)
		case 2:
			faces, err = splitTwo(faces, cache, fi, f, p)
		case 3:
			faces, err = splitThree(faces, cache, fi, f)
		default:
			err = &core.TopologyError{Face: fi, Splits: p.count, Reason: "impossible split count"}
		}
		if err != nil {
			return nil, stats, err
		}
		stats.ByClass[p.count]++
	}

	next, err := core.NewMesh(cache.vertices, faces)
	if err != nil {
		return nil, stats, fmt.Errorf("rebuild subdivided mesh: %w", err)
	}

	stats.FacesAfter = len(faces)
	stats.Midpoints = len(cache.vertices) - len(m.Vertices)
	stats.Changed = true
	return next, stats, nil
}

// splitOne rotates the face so the long edge is (v0, v1) with o opposite,
// then emits (v0, m, o) and (m, v1, o)
func splitOne(out []core.Face, c *midpointCache, fi int, f core.Face, p facePlan) ([]core.Face, error) {
	k := 0
	for !p.split[k] {
		k++
	}
	v0, v1, o := f[k], f[(k+1)%3], f[(k+2)%3]

	mid, err := c.lookup(fi, v0, v1)
	if err != nil {
		return out, err
	}
	return append(out,
		core.Face{v0, mid, o},
		core.Face{mid, v1, o},
	), nil
}

// splitTwo rotates the face to (o1, o2, o3) with o3-o1 the unsplit edge and
// o2 shared by both split edges, then emits a corner at o2 and two
// triangles over the remaining quad
func splitTwo(out []core.Face, c *midpointCache, fi int, f core.Face, p facePlan) ([]core.Face, error) {
	k := 0
	for p.split[k] {
		k++
	}
	o3, o1, o2 := f[k], f[(k+1)%3], f[(k+2)%3]

	m0, err := c.lookup(fi, o1, o2)
	if err != nil {
		return out, err
	}
	m1, err := c.lookup(fi, o2, o3)
	if err != nil {
		return out, err
	}
	return append(out,
		core.Face{o1, m0, o3},
		core.Face{m0, m1, o3},
		core.Face{m0, o2, m1},
	), nil
}

// splitThree emits the three corner triangles and the center triangle
func splitThree(out []core.Face, c *midpointCache, fi int, f core.Face) ([]core.Face, error) {
	i0, i1, i2 := f[0], f[1], f[2]

	m01, err := c.lookup(fi, i0, i1)
	if err != nil {
		return out, err
	}
	m12, err := c.lookup(fi, i1, i2)
	if err != nil {
		return out, err
	}
	m20, err := c.lookup(fi, i2, i0)
	if err != nil {
		return out, err
	}
	return append(out,
		core.Face{i0, m01, m20},
		core.Face{i1, m12, m01},
		core.Face{i2, m20, m12},
		core.Face{m01, m12, m20},
	), nil
}
