package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig matches every *ConfigError
	ErrConfig = errors.New("invalid configuration")

	// ErrTopology matches every *TopologyError
	ErrTopology = errors.New("topology inconsistency")
)

// ConfigError reports a parameter rejected before any mesh mutation
type ConfigError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %g: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// TopologyError reports a face whose connectivity cannot be retriangulated
// safely. Face is -1 when the problem is not tied to a single face.
type TopologyError struct {
	Face   int
	Edge   Edge
	Splits int
	Reason string
}

func (e *TopologyError) Error() string {
	switch {
	case e.Face < 0 && e.Edge != (Edge{}):
		return fmt.Sprintf("topology: edge %d-%d: %s", e.Edge[0], e.Edge[1], e.Reason)
	case e.Face < 0:
		return fmt.Sprintf("topology: %s", e.Reason)
	case e.Edge != (Edge{}):
		return fmt.Sprintf("topology: face %d edge %d-%d: %s", e.Face, e.Edge[0], e.Edge[1], e.Reason)
	default:
		return fmt.Sprintf("topology: face %d (%d splits): %s", e.Face, e.Splits, e.Reason)
	}
}

func (e *TopologyError) Is(target error) bool { return target == ErrTopology }

// requirePositive returns a *ConfigError unless v > 0
func requirePositive(field string, v float64) error {
	if v > 0 {
		return nil
	}
	return &ConfigError{Field: field, Value: v, Reason: "must be positive"}
}
