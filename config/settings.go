// Package config loads reefcraft settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"reefcraft/simulation"
)

// Settings is the full reefcraft configuration
type Settings struct {
	Simulation SimulationSettings `yaml:"simulation"`
	Server     ServerSettings     `yaml:"server"`
	Logging    LoggingSettings    `yaml:"logging"`
}

// SimulationSettings configures the reef and its growth models
type SimulationSettings struct {
	// Model is the growth variant: "llabres", "batch" or "surface"
	Model string       `yaml:"model"`
	Seed  SeedSettings `yaml:"seed"`

	// Growth parameters. Zero values fall back to the defaults of the
	// coral's model.
	GrowThreshold float64 `yaml:"grow_threshold"`
	GrowAmount    float64 `yaml:"grow_amount"`
	SplitLength   float64 `yaml:"split_length"`

	// MaxVertices skips subdivision above this count; 0 disables
	MaxVertices int `yaml:"max_vertices"`
	// Workers bounds the parallel passes; 0 uses every CPU
	Workers int `yaml:"workers"`
	TickMs  int `yaml:"tick_ms"`

	Corals []CoralSettings `yaml:"corals"`
}

// SeedSettings describes the starting mesh of every coral
type SeedSettings struct {
	Kind       string  `yaml:"kind"`
	Radius     float64 `yaml:"radius"`
	Height     float64 `yaml:"height"`
	Rings      int     `yaml:"rings"`
	Segments   int     `yaml:"segments"`
	Resolution int     `yaml:"resolution"`
}

// CoralSettings places one coral. An empty model inherits the simulation model.
type CoralSettings struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	Model    string `yaml:"model,omitempty"`
}

type ServerSettings struct {
	Addr             string `yaml:"addr"`
	UpdateIntervalMs int    `yaml:"update_interval_ms"`
}

type LoggingSettings struct {
	// Level is one of trace, debug, info, warn or error
	Level string `yaml:"level"`
}

// Default returns the settings used when no file is given
func Default() *Settings {
	seed := simulation.DefaultSeed()
	return &Settings{
		Simulation: SimulationSettings{
			Model: simulation.VariantLlabres.String(),
			Seed: SeedSettings{
				Kind:       seed.Kind,
				Radius:     seed.Radius,
				Height:     seed.Height,
				Rings:      seed.Rings,
				Segments:   seed.Segments,
				Resolution: seed.Resolution,
			},
			MaxVertices: 20000,
			TickMs:      100,
			Corals: []CoralSettings{
				{Name: "coral", Location: simulation.LocationCenter.String()},
			},
		},
		Server: ServerSettings{
			Addr:             ":8080",
			UpdateIntervalMs: 100,
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path or a missing file yields the defaults.
func Load(path string) (*Settings, error) {
	s := Default()
	if path != "" {
		fileSettings, err := LoadFromFile(path)
		switch {
		case err == nil:
			s = fileSettings
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	if err := applyEnvOverrides(s); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFromFile parses a YAML file over the defaults without validating it
func LoadFromFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	return s, nil
}

func applyEnvOverrides(s *Settings) error {
	if v := os.Getenv("REEFCRAFT_LOG_LEVEL"); v != "" {
		s.Logging.Level = v
	}
	if v := os.Getenv("REEFCRAFT_MODEL"); v != "" {
		s.Simulation.Model = v
	}
	if v := os.Getenv("REEFCRAFT_ADDR"); v != "" {
		s.Server.Addr = v
	}
	if v := os.Getenv("REEFCRAFT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REEFCRAFT_WORKERS must be an integer, got %q", v)
		}
		s.Simulation.Workers = n
	}
	return nil
}

// Validate checks every section and the model configuration it produces
func (s *Settings) Validate() error {
	validLevels := map[string]bool{"": true, "trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: trace, debug, info, warn, error)", s.Logging.Level)
	}
	if s.Simulation.TickMs < 0 {
		return fmt.Errorf("tick_ms must not be negative, got %d", s.Simulation.TickMs)
	}
	if s.Server.UpdateIntervalMs < 0 {
		return fmt.Errorf("update_interval_ms must not be negative, got %d", s.Server.UpdateIntervalMs)
	}
	if len(s.Simulation.Corals) == 0 {
		return errors.New("at least one coral is required")
	}

	seen := make(map[string]bool, len(s.Simulation.Corals))
	for _, c := range s.Simulation.Corals {
		if c.Name == "" {
			return errors.New("coral name must not be empty")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate coral name %q", c.Name)
		}
		seen[c.Name] = true
		if _, err := simulation.ParseLocation(c.Location); err != nil {
			return fmt.Errorf("coral %q: %w", c.Name, err)
		}
		cfg, err := s.ModelConfig(c.Model)
		if err != nil {
			return fmt.Errorf("coral %q: %w", c.Name, err)
		}
		if err := cfg.Params.Validate(); err != nil {
			return fmt.Errorf("coral %q: %w", c.Name, err)
		}
	}
	return nil
}

// ModelConfig builds the growth model configuration for a coral. An empty
// model name uses the simulation model.
func (s *Settings) ModelConfig(model string) (simulation.ModelConfig, error) {
	sim := s.Simulation
	if model == "" {
		model = sim.Model
	}
	variant, err := simulation.ParseVariant(model)
	if err != nil {
		return simulation.ModelConfig{}, err
	}

	p := variant.Defaults()
	if sim.GrowThreshold != 0 {
		p.GrowThreshold = sim.GrowThreshold
	}
	if sim.GrowAmount != 0 {
		p.GrowAmount = sim.GrowAmount
	}
	if sim.SplitLength != 0 {
		p.SplitLength = sim.SplitLength
	}
	p.MaxVertices = sim.MaxVertices

	return simulation.ModelConfig{
		Variant: variant,
		Params:  p,
		Seed: simulation.SeedConfig{
			Kind:       sim.Seed.Kind,
			Radius:     sim.Seed.Radius,
			Height:     sim.Seed.Height,
			Rings:      sim.Seed.Rings,
			Segments:   sim.Seed.Segments,
			Resolution: sim.Seed.Resolution,
		},
		Workers: sim.Workers,
	}, nil
}

// TickInterval is the engine step period
func (s *Settings) TickInterval() time.Duration {
	return time.Duration(s.Simulation.TickMs) * time.Millisecond
}

// UpdateInterval is the websocket broadcast period
func (s *Settings) UpdateInterval() time.Duration {
	return time.Duration(s.Server.UpdateIntervalMs) * time.Millisecond
}

// BuildReef seeds a reef with every configured coral
func (s *Settings) BuildReef(reef *simulation.Reef) error {
	for _, c := range s.Simulation.Corals {
		loc, err := simulation.ParseLocation(c.Location)
		if err != nil {
			return fmt.Errorf("coral %q: %w", c.Name, err)
		}
		cfg, err := s.ModelConfig(c.Model)
		if err != nil {
			return fmt.Errorf("coral %q: %w", c.Name, err)
		}
		if _, err := reef.AddCoral(c.Name, loc, cfg); err != nil {
			return err
		}
	}
	return nil
}
