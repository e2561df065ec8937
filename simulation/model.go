package simulation

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"reefcraft/core"
	"reefcraft/logging"
	"reefcraft/physics"
)

// Variant selects a growth rule set at construction time
type Variant int

const (
	// VariantLlabres grows on sigma > threshold and subdivides with the full
	// 1/2/3-edge templates
	VariantLlabres Variant = iota
	// VariantBatch is the offline pipeline: inclusive trigger, larger growth
	// steps, same subdivision
	VariantBatch
	// VariantSurface grows along normals and never subdivides
	VariantSurface
)

var variantNames = map[Variant]string{
	VariantLlabres: "llabres",
	VariantBatch:   "batch",
	VariantSurface: "surface",
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// ParseVariant maps a model name to its Variant (case-insensitive)
func ParseVariant(s string) (Variant, error) {
	for v, name := range variantNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown growth model %q", core.ErrConfig, s)
}

// Defaults returns the tuned parameters of the variant
func (v Variant) Defaults() Params {
	switch v {
	case VariantBatch:
		return Params{GrowThreshold: 0.57, GrowAmount: 0.1, SplitLength: 1.0}
	default:
		return Params{GrowThreshold: 0.47, GrowAmount: 0.001, SplitLength: 1.0}
	}
}

func (v Variant) trigger() physics.Trigger {
	if v == VariantBatch {
		return physics.TriggerAtLeast
	}
	return physics.TriggerAbove
}

func (v Variant) subdivides() bool { return v != VariantSurface }

// Params are the tunables a caller may change between steps
type Params struct {
	GrowThreshold float64
	GrowAmount    float64
	SplitLength   float64
	// MaxVertices skips subdivision while the mesh has more vertices than
	// this. Zero disables the ceiling.
	MaxVertices int
}

// Validate rejects parameters that would corrupt the mesh
func (p Params) Validate() error {
	switch {
	case p.GrowThreshold < 0:
		return &core.ConfigError{Field: "growth threshold", Value: p.GrowThreshold, Reason: "must not be negative"}
	case p.GrowAmount < 0:
		return &core.ConfigError{Field: "growth amount", Value: p.GrowAmount, Reason: "must not be negative"}
	case !(p.SplitLength > 0):
		return &core.ConfigError{Field: "split length", Value: p.SplitLength, Reason: "must be positive"}
	case p.MaxVertices < 0:
		return &core.ConfigError{Field: "vertex ceiling", Value: float64(p.MaxVertices), Reason: "must not be negative"}
	}
	return nil
}

// SeedConfig describes the starting mesh
type SeedConfig struct {
	Kind       string
	Radius     float64
	Height     float64
	Rings      int
	Segments   int
	Resolution int
}

// DefaultSeed is the hexagonal fan of radius 1 and apex height 0.1
func DefaultSeed() SeedConfig {
	return SeedConfig{Kind: "hex", Radius: 1, Height: 0.1, Rings: 4, Segments: 12, Resolution: 16}
}

// Build generates the seed mesh
func (s SeedConfig) Build() (*core.Mesh, error) {
	switch strings.ToLower(s.Kind) {
	case "", "hex":
		return core.HexSeed(s.Radius, s.Height)
	case "hemisphere":
		return core.Hemisphere(s.Radius, s.Rings, s.Segments)
	case "mound":
		return core.PolypMound(2*s.Radius, s.Height, s.Resolution)
	default:
		return nil, fmt.Errorf("%w: unknown seed kind %q", core.ErrConfig, s.Kind)
	}
}

// ModelConfig is everything needed to construct a GrowthModel
type ModelConfig struct {
	Variant Variant
	Params  Params
	Seed    SeedConfig
	// Workers bounds the parallel passes; zero uses every CPU
	Workers int
}

// StepResult reports what one step did
type StepResult struct {
	Step  int
	Moved int
	// TopologyChanged is set when subdivision replaced the mesh; derived
	// draw buffers must be reallocated rather than updated in place
	TopologyChanged bool
	CeilingSkipped  bool
	Subdivision     SubdivisionStats
	Vertices        int
	Faces           int
}

// GrowthModel owns one coral mesh and advances it a step at a time
type GrowthModel struct {
	variant Variant
	params  Params
	seed    SeedConfig
	workers int
	log     *slog.Logger

	mesh       *core.Mesh
	steps      int
	generation int
	changed    bool
}

// NewGrowthModel validates cfg and seeds the model
func NewGrowthModel(cfg ModelConfig, log *slog.Logger) (*GrowthModel, error) {
	if _, ok := variantNames[cfg.Variant]; !ok {
		return nil, fmt.Errorf("%w: unknown growth model %d", core.ErrConfig, int(cfg.Variant))
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	mesh, err := cfg.Seed.Build()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}

	return &GrowthModel{
		variant: cfg.Variant,
		params:  cfg.Params,
		seed:    cfg.Seed,
		workers: cfg.Workers,
		log:     log.With("model", cfg.Variant.String()),
		mesh:    mesh,
	}, nil
}

// Variant returns the rule set chosen at construction
func (g *GrowthModel) Variant() Variant { return g.variant }

// Params returns the current parameters
func (g *GrowthModel) Params() Params { return g.params }

// SetParams replaces the parameters; invalid values leave the model untouched
func (g *GrowthModel) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	g.params = p
	return nil
}

// Steps returns how many steps have run since the last reset
func (g *GrowthModel) Steps() int { return g.steps }

// Mesh returns the live mesh. Callers must not modify it.
func (g *GrowthModel) Mesh() *core.Mesh { return g.mesh }

// Reset restores the seed mesh
func (g *GrowthModel) Reset() error {
	mesh, err := g.seed.Build()
	if err != nil {
		return err
	}
	g.mesh = mesh
	g.steps = 0
	g.generation++
	g.changed = true
	return nil
}

// Step runs normals, growth and subdivision in order. A subdivision
// failure is returned alongside the result: growth has already been applied
// and the mesh keeps its current topology.
func (g *GrowthModel) Step() (StepResult, error) {
	mesh := g.mesh

	// 1. normals from the current geometry
	physics.ComputeNormals(mesh.Vertices, mesh.Faces, mesh.Grounded, mesh.Normals, g.workers)

	// 2. grow along them
	moved := physics.Grow(mesh.Vertices, mesh.Normals, mesh.Grounded, physics.GrowParams{
		Threshold: g.params.GrowThreshold,
		Amount:    g.params.GrowAmount,
		Trigger:   g.variant.trigger(),
	}, g.workers)

	g.steps++
	res := StepResult{Step: g.steps, Moved: moved}

	// 3. adaptive refinement against post-growth positions
	var stepErr error
	switch {
	case !g.variant.subdivides():
	case g.params.MaxVertices > 0 && mesh.VertexCount() > g.params.MaxVertices:
		res.CeilingSkipped = true
		g.log.Info("subdivision skipped",
			"step", g.steps,
			"vertices", mesh.VertexCount(),
			"ceiling", g.params.MaxVertices)
	default:
		next, stats, err := Subdivide(mesh, g.params.SplitLength)
		res.Subdivision = stats
		if err != nil {
			stepErr = fmt.Errorf("step %d: subdivide: %w", g.steps, err)
			break
		}
		if stats.Changed {
			g.mesh = next
			g.generation++
			res.TopologyChanged = true
			g.log.Debug("subdivided",
				"step", g.steps,
				"one", stats.ByClass[1],
				"two", stats.ByClass[2],
				"three", stats.ByClass[3],
				"midpoints", stats.Midpoints,
				"faces", stats.FacesAfter)
		}
	}

	// 4. grounded flags follow current heights; normals wait for the next step
	g.mesh.RefreshGrounded()
	g.mesh.ResetNormals()
	g.changed = res.TopologyChanged

	res.Vertices = g.mesh.VertexCount()
	res.Faces = g.mesh.FaceCount()
	return res, stepErr
}

// Snapshot is a read-only copy of a coral mesh for renderers
type Snapshot struct {
	Coral    string
	Offset   mgl64.Vec3
	Step     int
	Vertices []mgl64.Vec3
	Normals  []mgl64.Vec3
	Faces    []core.Face
	// TopologyChanged is true when the last step or reset replaced the mesh
	TopologyChanged bool
	// Generation increments on every topology change, so a renderer that
	// skipped frames can still tell its buffers are stale
	Generation int
}

// Snapshot copies the current mesh. Normals are computed into a fresh
// buffer from the current positions.
func (g *GrowthModel) Snapshot() Snapshot {
	m := g.mesh
	normals := make([]mgl64.Vec3, m.VertexCount())
	physics.ComputeNormals(m.Vertices, m.Faces, m.Grounded, normals, g.workers)

	return Snapshot{
		Step:            g.steps,
		Vertices:        append([]mgl64.Vec3(nil), m.Vertices...),
		Normals:         normals,
		Faces:           append([]core.Face(nil), m.Faces...),
		TopologyChanged: g.changed,
		Generation:      g.generation,
	}
}

// RenderVertices returns positions in a Y-up frame, shifted by the coral offset
func (s Snapshot) RenderVertices() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(s.Vertices))
	for i, v := range s.Vertices {
		p := v.Add(s.Offset)
		out[i] = mgl64.Vec3{p.X(), p.Z(), p.Y()}
	}
	return out
}

// RenderNormals returns normals in the same Y-up frame as RenderVertices
func (s Snapshot) RenderNormals() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(s.Normals))
	for i, n := range s.Normals {
		out[i] = mgl64.Vec3{n.X(), n.Z(), n.Y()}
	}
	return out
}

// Indices flattens the faces into a triangle index list
func (s Snapshot) Indices() []uint32 {
	out := make([]uint32, 0, 3*len(s.Faces))
	for _, f := range s.Faces {
		out = append(out, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}
	return out
}
