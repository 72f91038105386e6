package piece

import (
	"fmt"
	"strings"
)

// State is the interaction state of a piece
type State int

const (
	Idle State = iota
	Dragging
	Snapping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Snapping:
		return "snapping"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state as its name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name
func (s *State) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "idle":
		*s = Idle
	case "dragging":
		*s = Dragging
	case "snapping":
		*s = Snapping
	default:
		return fmt.Errorf("unknown piece state %q", text)
	}
	return nil
}

// SnapPolicy decides what happens when a dragged piece is released
type SnapPolicy string

const (
	SnapAlways    SnapPolicy = "always"
	SnapThreshold SnapPolicy = "threshold"
)

// Defaults for Options
const (
	DefaultThreshold = 1.0
	DefaultSnapSpeed = 10.0
	DefaultEpsilon   = 0.01
)

// Options tune piece behaviour
type Options struct {
	// Policy applied on release
	Policy SnapPolicy `json:"policy" yaml:"policy"`
	// Threshold is the maximum release distance, in cells, that still snaps
	// under SnapThreshold
	Threshold float64 `json:"threshold" yaml:"threshold"`
	// Speed is the fraction of the remaining distance covered per second
	Speed float64 `json:"speed" yaml:"speed"`
	// Epsilon is the world distance at which the snap animation completes
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`
	// IdleTransforms also accepts rotate and mirror while Idle
	IdleTransforms bool `json:"idle_transforms" yaml:"idle_transforms"`
}

// DefaultOptions returns the threshold policy with the standard tuning
func DefaultOptions() Options {
	return Options{
		Policy:    SnapThreshold,
		Threshold: DefaultThreshold,
		Speed:     DefaultSnapSpeed,
		Epsilon:   DefaultEpsilon,
	}
}

// WithDefaults fills zero fields from DefaultOptions
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.Policy == "" {
		o.Policy = d.Policy
	}
	if o.Threshold == 0 {
		o.Threshold = d.Threshold
	}
	if o.Speed == 0 {
		o.Speed = d.Speed
	}
	if o.Epsilon == 0 {
		o.Epsilon = d.Epsilon
	}
	return o
}

// Validate rejects unknown policies and non-positive tuning values
func (o Options) Validate() error {
	switch o.Policy {
	case SnapAlways, SnapThreshold:
	default:
		return fmt.Errorf("%w: unknown snap policy %q", ErrConfiguration, o.Policy)
	}
	if o.Threshold <= 0 {
		return fmt.Errorf("%w: snap threshold must be positive, got %v", ErrConfiguration, o.Threshold)
	}
	if o.Speed <= 0 {
		return fmt.Errorf("%w: snap speed must be positive, got %v", ErrConfiguration, o.Speed)
	}
	if o.Epsilon <= 0 {
		return fmt.Errorf("%w: snap epsilon must be positive, got %v", ErrConfiguration, o.Epsilon)
	}
	return nil
}
