package physics

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"reefcraft/core"
)

const eps = 1e-9

// flatSquare is two upward-wound triangles lifted off the ground
func flatSquare(t *testing.T, z float64) *core.Mesh {
	t.Helper()
	verts := []mgl64.Vec3{{0, 0, z}, {1, 0, z}, {1, 1, z}, {0, 1, z}}
	m, err := core.NewMesh(verts, []core.Face{{0, 1, 2}, {0, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestParallelForCoversRange(t *testing.T) {
	for _, n := range []int{0, 1, 255, 256, 1000, 4099} {
		hits := make([]int32, n)
		var calls atomic.Int32
		ParallelFor(n, 4, func(lo, hi int) {
			calls.Add(1)
			for i := lo; i < hi; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, h)
			}
		}
		if n > 0 && calls.Load() > 4 {
			t.Errorf("n=%d: %d chunks for 4 workers", n, calls.Load())
		}
	}
}

func TestComputeNormalsFlat(t *testing.T) {
	m := flatSquare(t, 1)
	ComputeNormals(m.Vertices, m.Faces, m.Grounded, m.Normals, 1)

	for i, n := range m.Normals {
		if !near(n, mgl64.Vec3{0, 0, 1}, eps) {
			t.Errorf("normal %d = %v, want (0,0,1)", i, n)
		}
	}
}

func TestComputeNormalsIsUnweighted(t *testing.T) {
	// Vertex 0 touches a large and a small face with different normals;
	// each must count once regardless of area.
	verts := []mgl64.Vec3{{0, 0, 1}, {10, 0, 1}, {0, 10, 1}, {0, -0.1, 1.1}}
	m, err := core.NewMesh(verts, []core.Face{{0, 1, 2}, {0, 3, 1}})
	if err != nil {
		t.Fatal(err)
	}
	ComputeNormals(m.Vertices, m.Faces, m.Grounded, m.Normals, 1)

	want := core.SafeNormalize(m.FaceNormal(m.Faces[0]).Add(m.FaceNormal(m.Faces[1])))
	if !near(m.Normals[0], want, eps) {
		t.Errorf("normal = %v, want %v", m.Normals[0], want)
	}
}

func TestComputeNormalsGrounded(t *testing.T) {
	m, err := core.HexSeed(1, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	ComputeNormals(m.Vertices, m.Faces, m.Grounded, m.Normals, 1)

	if !near(m.Normals[0], mgl64.Vec3{0, 0, 1}, eps) {
		t.Errorf("apex normal = %v, want (0,0,1)", m.Normals[0])
	}
	for i := 1; i <= 6; i++ {
		n := m.Normals[i]
		if n.Z() != 0 {
			t.Errorf("grounded normal %d has z = %v", i, n.Z())
		}
		if math.Abs(n.Len()-1) > eps {
			t.Errorf("grounded normal %d length = %v", i, n.Len())
		}
		// tangent to the ground and pointing away from the apex
		if n.Dot(m.Vertices[i]) <= 0 {
			t.Errorf("grounded normal %d = %v points inward", i, n)
		}
	}
}

func TestComputeNormalsGuardsZero(t *testing.T) {
	// Vertex 3 belongs to no face and the only face is degenerate.
	verts := []mgl64.Vec3{{0, 0, 1}, {1, 0, 1}, {2, 0, 1}, {5, 5, 5}}
	m, err := core.NewMesh(verts, []core.Face{{0, 1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	ComputeNormals(m.Vertices, m.Faces, m.Grounded, m.Normals, 1)

	for i, n := range m.Normals {
		if n != (mgl64.Vec3{}) {
			t.Errorf("normal %d = %v, want zero", i, n)
		}
		for _, c := range n {
			if math.IsNaN(c) {
				t.Fatalf("normal %d is NaN", i)
			}
		}
	}
}

func TestComputeNormalsIdempotent(t *testing.T) {
	m, err := core.PolypMound(2, 0.5, 30)
	if err != nil {
		t.Fatal(err)
	}
	first := make([]mgl64.Vec3, m.VertexCount())
	second := make([]mgl64.Vec3, m.VertexCount())
	ComputeNormals(m.Vertices, m.Faces, m.Grounded, first, 4)
	ComputeNormals(m.Vertices, m.Faces, m.Grounded, second, 4)

	for i := range first {
		if !near(first[i], second[i], 1e-12) {
			t.Fatalf("normal %d changed: %v then %v", i, first[i], second[i])
		}
	}

	serial := make([]mgl64.Vec3, m.VertexCount())
	ComputeNormals(m.Vertices, m.Faces, m.Grounded, serial, 1)
	for i := range first {
		if !near(first[i], serial[i], 1e-12) {
			t.Fatalf("normal %d differs between parallel and serial passes", i)
		}
	}
}

func TestCurvature(t *testing.T) {
	tests := []struct {
		name string
		n    mgl64.Vec3
		want float64
	}{
		{"vertical", mgl64.Vec3{0, 0, 1}, 1 / math.Sqrt(SigmaEpsilon)},
		{"horizontal", mgl64.Vec3{1, 0, 0}, 0},
		{"diagonal", mgl64.Vec3{math.Sqrt2 / 2, 0, math.Sqrt2 / 2}, (math.Sqrt2 / 2) / math.Sqrt(0.5+SigmaEpsilon)},
		{"downward", mgl64.Vec3{0, 0, -1}, -1 / math.Sqrt(SigmaEpsilon)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Curvature(tc.n); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Curvature(%v) = %v, want %v", tc.n, got, tc.want)
			}
		})
	}
}

func TestGrowFlatMesh(t *testing.T) {
	m := flatSquare(t, 1)
	ComputeNormals(m.Vertices, m.Faces, m.Grounded, m.Normals, 1)

	moved := Grow(m.Vertices, m.Normals, m.Grounded, GrowParams{Threshold: 0.9, Amount: 0.05}, 1)
	if moved != 4 {
		t.Errorf("moved = %d, want 4", moved)
	}
	for i, v := range m.Vertices {
		if math.Abs(v.Z()-1.05) > eps {
			t.Errorf("vertex %d z = %v, want 1.05", i, v.Z())
		}
	}
}

func TestGrowKeepsGroundedFixed(t *testing.T) {
	m, err := core.PolypMound(2, 0.5, 20)
	if err != nil {
		t.Fatal(err)
	}
	before := append([]mgl64.Vec3(nil), m.Vertices...)
	ComputeNormals(m.Vertices, m.Faces, m.Grounded, m.Normals, 4)
	Grow(m.Vertices, m.Normals, m.Grounded, GrowParams{Threshold: 0, Amount: 0.1, Trigger: TriggerAtLeast}, 4)

	for i, v := range before {
		if v.Z() > 0 {
			continue
		}
		if m.Vertices[i] != v {
			t.Errorf("grounded vertex %d moved from %v to %v", i, v, m.Vertices[i])
		}
	}
}

func TestGrowTrigger(t *testing.T) {
	// A normal whose sigma lands exactly on the threshold.
	n := mgl64.Vec3{0, 0, 1}
	threshold := Curvature(n)

	tests := []struct {
		trigger Trigger
		want    int
	}{
		{TriggerAbove, 0},
		{TriggerAtLeast, 1},
	}
	for _, tc := range tests {
		t.Run(tc.trigger.String(), func(t *testing.T) {
			verts := []mgl64.Vec3{{0, 0, 1}}
			got := Grow(verts, []mgl64.Vec3{n}, []bool{false}, GrowParams{Threshold: threshold, Amount: 1, Trigger: tc.trigger}, 1)
			if got != tc.want {
				t.Errorf("moved = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestGrowSkipsBelowThreshold(t *testing.T) {
	verts := []mgl64.Vec3{{0, 0, 1}}
	normals := []mgl64.Vec3{{1, 0, 0}}
	if got := Grow(verts, normals, []bool{false}, GrowParams{Threshold: 0.5, Amount: 1}, 1); got != 0 {
		t.Errorf("moved = %d, want 0", got)
	}
	if verts[0] != (mgl64.Vec3{0, 0, 1}) {
		t.Errorf("vertex moved to %v", verts[0])
	}
}

// near reports whether a and b lie within tol of each other
func near(a, b mgl64.Vec3, tol float64) bool {
	return a.Sub(b).Len() <= tol
}
