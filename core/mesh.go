package core

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Mesh is one generation of the coral surface. Vertices, Normals and
// Grounded are parallel slices indexed by vertex. Edges is derived from
// Faces and is never authored on its own.
type Mesh struct {
	Vertices []mgl64.Vec3
	Normals  []mgl64.Vec3
	Faces    []Face
	Edges    []Edge
	Grounded []bool
}

// NewMesh builds a generation from positions and faces. Every face index is
// checked, the edge set is derived and the grounded flags are computed from
// the current heights. The normal buffer starts zeroed.
func NewMesh(vertices []mgl64.Vec3, faces []Face) (*Mesh, error) {
	if err := checkFaces(len(vertices), faces); err != nil {
		return nil, err
	}

	m := &Mesh{
		Vertices: vertices,
		Normals:  make([]mgl64.Vec3, len(vertices)),
		Faces:    faces,
		Edges:    BuildEdges(faces),
	}
	m.RefreshGrounded()
	return m, nil
}

func checkFaces(vertexCount int, faces []Face) error {
	for fi, f := range faces {
		for _, idx := range f {
			if idx < 0 || idx >= vertexCount {
				return &TopologyError{Face: fi, Reason: fmt.Sprintf("vertex index %d out of range [0,%d)", idx, vertexCount)}
			}
		}
		if f[0] == f[1] || f[1] == f[2] || f[2] == f[0] {
			return &TopologyError{Face: fi, Reason: fmt.Sprintf("repeated vertex in %v", f)}
		}
	}
	return nil
}

// BuildEdges returns the distinct undirected edges of faces in first-seen order
func BuildEdges(faces []Face) []Edge {
	seen := make(map[Edge]struct{}, len(faces)*3/2+1)
	edges := make([]Edge, 0, len(faces)*3/2+1)
	for _, f := range faces {
		for _, e := range f.Edges() {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			edges = append(edges, e)
		}
	}
	return edges
}

// RefreshGrounded recomputes the grounded flag of every vertex from its height
func (m *Mesh) RefreshGrounded() {
	if cap(m.Grounded) >= len(m.Vertices) {
		m.Grounded = m.Grounded[:len(m.Vertices)]
	} else {
		m.Grounded = make([]bool, len(m.Vertices))
	}
	for i, v := range m.Vertices {
		m.Grounded[i] = IsGrounded(v.Z())
	}
}

// ResetNormals zeroes the normal buffer, sizing it to the vertex count
func (m *Mesh) ResetNormals() {
	if len(m.Normals) != len(m.Vertices) {
		m.Normals = make([]mgl64.Vec3, len(m.Vertices))
		return
	}
	clear(m.Normals)
}

// VertexCount returns the number of vertices
func (m *Mesh) VertexCount() int { return len(m.Vertices) }

// FaceCount returns the number of faces
func (m *Mesh) FaceCount() int { return len(m.Faces) }

// Clone returns a deep copy of the mesh
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Vertices: append([]mgl64.Vec3(nil), m.Vertices...),
		Normals:  append([]mgl64.Vec3(nil), m.Normals...),
		Faces:    append([]Face(nil), m.Faces...),
		Edges:    append([]Edge(nil), m.Edges...),
		Grounded: append([]bool(nil), m.Grounded...),
	}
}

// Validate checks the mesh invariants: buffers sized to the vertex count,
// face indices in range, and an edge set equal to the face-derived set
// with no duplicates
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	if len(m.Normals) != n || len(m.Grounded) != n {
		return &TopologyError{Face: -1, Reason: fmt.Sprintf("buffer sizes differ: %d vertices, %d normals, %d grounded flags", n, len(m.Normals), len(m.Grounded))}
	}
	if err := checkFaces(n, m.Faces); err != nil {
		return err
	}

	want := make(map[Edge]struct{}, len(m.Edges))
	for _, e := range BuildEdges(m.Faces) {
		want[e] = struct{}{}
	}
	seen := make(map[Edge]struct{}, len(m.Edges))
	for _, e := range m.Edges {
		if e[0] > e[1] {
			return &TopologyError{Face: -1, Edge: e, Reason: "edge key not sorted"}
		}
		if _, dup := seen[e]; dup {
			return &TopologyError{Face: -1, Edge: e, Reason: "duplicate edge"}
		}
		if _, ok := want[e]; !ok {
			return &TopologyError{Face: -1, Edge: e, Reason: "edge not used by any face"}
		}
		seen[e] = struct{}{}
	}
	if len(seen) != len(want) {
		return &TopologyError{Face: -1, Reason: fmt.Sprintf("edge set has %d edges, faces define %d", len(seen), len(want))}
	}
	return nil
}

// FaceNormal returns the unit normal of face f, or the zero vector when the
// face is degenerate
func (m *Mesh) FaceNormal(f Face) mgl64.Vec3 {
	v0 := m.Vertices[f[0]]
	return SafeNormalize(m.Vertices[f[1]].Sub(v0).Cross(m.Vertices[f[2]].Sub(v0)))
}
