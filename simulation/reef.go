package simulation

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"reefcraft/logging"
)

// Location is one of the fixed spots a coral can occupy on the reef floor
type Location int

const (
	LocationCenter Location = iota
	LocationLeft
	LocationRight
	LocationFront
)

var locationNames = [...]string{"center", "left", "right", "front"}

func (l Location) String() string {
	if l >= 0 && int(l) < len(locationNames) {
		return locationNames[l]
	}
	return fmt.Sprintf("Location(%d)", int(l))
}

// Offset returns the floor position of the location
func (l Location) Offset() mgl64.Vec3 {
	switch l {
	case LocationLeft:
		return mgl64.Vec3{-0.3, 0, 0}
	case LocationRight:
		return mgl64.Vec3{0.3, 0, 0}
	case LocationFront:
		return mgl64.Vec3{0, 0.3, 0}
	default:
		return mgl64.Vec3{}
	}
}

// ParseLocation maps a name to its Location (case-insensitive)
func ParseLocation(s string) (Location, error) {
	for i, name := range locationNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Location(i), nil
		}
	}
	return 0, fmt.Errorf("unknown coral location %q", s)
}

// Coral is a named growth model placed on the reef
type Coral struct {
	Name     string
	Location Location
	Model    *GrowthModel
}

// StepReport is the outcome of one step for one coral
type StepReport struct {
	Coral  string
	Result StepResult
	Err    error
}

// Reef steps a set of corals together. It is safe for concurrent use.
type Reef struct {
	mu     sync.Mutex
	corals []*Coral
	log    *slog.Logger
}

// NewReef creates an empty reef
func NewReef(log *slog.Logger) *Reef {
	if log == nil {
		log = logging.Nop()
	}
	return &Reef{log: log}
}

// AddCoral seeds a new coral at loc. Names must be unique.
func (r *Reef) AddCoral(name string, loc Location, cfg ModelConfig) (*Coral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.corals {
		if c.Name == name {
			return nil, fmt.Errorf("coral %q already exists", name)
		}
	}
	model, err := NewGrowthModel(cfg, r.log.With("coral", name))
	if err != nil {
		return nil, fmt.Errorf("coral %q: %w", name, err)
	}

	c := &Coral{Name: name, Location: loc, Model: model}
	r.corals = append(r.corals, c)
	r.log.Info("coral added",
		"coral", name,
		"location", loc.String(),
		"model", cfg.Variant.String(),
		"vertices", model.Mesh().VertexCount())
	return c, nil
}

// Len returns the number of corals
func (r *Reef) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.corals)
}

// Step advances every coral once. A coral whose subdivision fails is logged
// and keeps growing on later steps.
func (r *Reef) Step() []StepReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	reports := make([]StepReport, 0, len(r.corals))
	for _, c := range r.corals {
		res, err := c.Model.Step()
		if err != nil {
			r.log.Error("step failed, keeping current topology",
				"coral", c.Name,
				"step", res.Step,
				"err", err)
		}
		reports = append(reports, StepReport{Coral: c.Name, Result: res, Err: err})
	}
	return reports
}

// SetParams updates the parameters of the named coral
func (r *Reef) SetParams(name string, p Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.corals {
		if c.Name == name {
			return c.Model.SetParams(p)
		}
	}
	return fmt.Errorf("no coral named %q", name)
}

// Params returns the current parameters of the named coral
func (r *Reef) Params(name string) (Params, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.corals {
		if c.Name == name {
			return c.Model.Params(), nil
		}
	}
	return Params{}, fmt.Errorf("no coral named %q", name)
}

// Reset reseeds every coral
func (r *Reef) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.corals {
		if err := c.Model.Reset(); err != nil {
			return fmt.Errorf("reset coral %q: %w", c.Name, err)
		}
	}
	return nil
}

// Snapshots copies every coral mesh, tagged with its name and offset
func (r *Reef) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Snapshot, 0, len(r.corals))
	for _, c := range r.corals {
		s := c.Model.Snapshot()
		s.Coral = c.Name
		s.Offset = c.Location.Offset()
		out = append(out, s)
	}
	return out
}
