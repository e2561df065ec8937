package viewer

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"reefcraft/simulation"
)

func newEngine(t *testing.T, split float64) *simulation.Engine {
	t.Helper()
	reef := simulation.NewReef(nil)
	for _, loc := range []simulation.Location{simulation.LocationLeft, simulation.LocationRight} {
		cfg := simulation.ModelConfig{
			Variant: simulation.VariantLlabres,
			Params:  simulation.Params{GrowThreshold: 0.47, GrowAmount: 0.01, SplitLength: split},
			Seed:    simulation.DefaultSeed(),
			Workers: 1,
		}
		if _, err := reef.AddCoral(loc.String(), loc, cfg); err != nil {
			t.Fatal(err)
		}
	}
	e := simulation.NewEngine(reef, nil, time.Hour, nil)
	e.Start()
	return e
}

func TestMeshBufferWindingFacesUp(t *testing.T) {
	e := newEngine(t, 5)
	var b MeshBuffer
	if !b.Update(e.Latest().Corals[0]) {
		t.Fatal("first update must allocate")
	}
	if b.Triangles() != 6 {
		t.Fatalf("triangles = %d, want 6", b.Triangles())
	}
	// counter-clockwise seen from +Y means the cross product points up
	for i := 0; i < b.Triangles(); i++ {
		a, c, d := b.Positions[3*i], b.Positions[3*i+1], b.Positions[3*i+2]
		if n := c.Sub(a).Cross(d.Sub(a)); n.Y() <= 0 {
			t.Errorf("triangle %d faces %v", i, n)
		}
	}
	if b.Coral != "left" || b.Positions[0].X() > 0 {
		t.Errorf("coral %s apex %v, want left of origin", b.Coral, b.Positions[0])
	}
}

func TestMeshBufferReallocatesOnTopologyChangeOnly(t *testing.T) {
	e := newEngine(t, 5)
	var b MeshBuffer
	b.Update(e.Latest().Corals[0])
	pos := &b.Positions[0]

	f := e.Tick()
	if b.Update(f.Corals[0]) {
		t.Error("growth without subdivision reallocated")
	}
	if &b.Positions[0] != pos {
		t.Error("buffer replaced without a topology change")
	}

	if err := e.SetParams("left", simulation.Params{GrowThreshold: 0.47, GrowAmount: 0.01, SplitLength: 0.9}); err != nil {
		t.Fatal(err)
	}
	f = e.Tick()
	if !b.Update(f.Corals[0]) {
		t.Error("subdivision did not reallocate")
	}
	if b.Triangles() != 24 || b.Reallocs != 2 {
		t.Errorf("triangles = %d reallocs = %d", b.Triangles(), b.Reallocs)
	}
}

func TestSceneApply(t *testing.T) {
	e := newEngine(t, 0.9)
	sc := NewScene()

	f := e.Latest()
	if got := sc.Apply(f); got != 2 {
		t.Errorf("first apply reallocated %d buffers, want 2", got)
	}
	if got := sc.Apply(f); got != 0 {
		t.Errorf("reapplying the same frame reallocated %d", got)
	}
	if got := sc.Apply(e.Tick()); got != 2 {
		t.Errorf("subdividing tick reallocated %d, want 2", got)
	}
	if len(sc.Buffers) != 2 || sc.Tick != 1 || !sc.Running {
		t.Errorf("scene = %d buffers tick %d running %v", len(sc.Buffers), sc.Tick, sc.Running)
	}
}

func TestLambert(t *testing.T) {
	up := mgl32.Vec3{0, 1, 0}
	if got := Lambert(up, up); got != 1 {
		t.Errorf("facing light = %v", got)
	}
	if got := Lambert(up.Mul(-1), up); got != ambient {
		t.Errorf("facing away = %v", got)
	}
}

func TestOrbitCamera(t *testing.T) {
	c := NewOrbitCamera(mgl32.Vec3{}, 3)
	if d := c.Position().Len(); math.Abs(float64(d-3)) > 1e-5 {
		t.Errorf("distance = %v", d)
	}
	c.Drag(0, 10000)
	if c.Pitch != 1.5 {
		t.Errorf("pitch = %v, want clamp at 1.5", c.Pitch)
	}
	c.Drag(0, -100000)
	if c.Pitch != 0.05 {
		t.Errorf("pitch = %v, want clamp at 0.05", c.Pitch)
	}
	for i := 0; i < 100; i++ {
		c.Zoom(1)
	}
	if c.Distance != c.MinDistance {
		t.Errorf("distance = %v, want %v", c.Distance, c.MinDistance)
	}
	if c.Position().Y() <= 0 {
		t.Error("camera dropped below the floor")
	}
}
