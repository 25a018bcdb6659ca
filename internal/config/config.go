// Package config provides unified configuration loading for metadynamics
// runs. A run file is YAML describing the engine parameters, the particle
// species of the host system, and the collective variables to bias.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/csadorf/metadynamics-plugin/internal/bias"
	"github.com/csadorf/metadynamics-plugin/internal/constants"
	"github.com/csadorf/metadynamics-plugin/internal/cv"
)

// Config describes one metadynamics run.
type Config struct {
	// Engine contains the deposition parameters.
	Engine EngineConfig `yaml:"engine"`

	// System describes the host system as far as the bias needs it.
	System SystemConfig `yaml:"system"`

	// Variables lists the collective variables to register, in order.
	Variables []VariableConfig `yaml:"variables"`

	// Logging configures operational output.
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig mirrors the engine construction surface:
// (dt, W, stride, deltaT, filename, overwrite, add_hills).
type EngineConfig struct {
	// Dt is the host integrator time step. The bias engine itself is
	// stepped by step index; dt is carried for the host and for
	// converting the stride to time units in logs.
	Dt float64 `yaml:"dt"`

	// Height is the initial Gaussian height W, in energy units.
	Height float64 `yaml:"height"`

	// Stride is the number of steps between depositions.
	Stride uint64 `yaml:"stride"`

	// DeltaT is the well-tempered temperature shift. The string
	// "standard" disables damping (standard metadynamics).
	DeltaT DeltaT `yaml:"delta_t"`

	// HillsFile, when non-empty, is the tab-separated deposition log.
	HillsFile string `yaml:"hills_file,omitempty"`

	// Overwrite truncates an existing hills file instead of appending.
	Overwrite bool `yaml:"overwrite,omitempty"`

	// AddHills gates deposition. Evaluation always runs.
	AddHills bool `yaml:"add_hills"`

	// RestartGrid, when non-empty, pre-seeds the bias from a grid file
	// before the first step.
	RestartGrid string `yaml:"restart_grid,omitempty"`
}

// SystemConfig lists the particle species of the host system, in type index
// order. Amplitude maps of the variables are validated against it.
type SystemConfig struct {
	Species []string `yaml:"species"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", "warn" or
	// "error". "debug" additionally enables the JSONL deposition trace.
	Level string `yaml:"level"`

	// TraceFile is the JSONL deposition trace path, used at debug level.
	TraceFile string `yaml:"trace_file,omitempty"`
}

// VariableConfig describes one collective variable. Kind selects the
// variant; the remaining fields are interpreted by it.
type VariableConfig struct {
	Kind  string  `yaml:"kind"`
	Name  string  `yaml:"name,omitempty"`
	Sigma float64 `yaml:"sigma"`

	// Grid enables grid mode for this variable.
	Grid *GridConfig `yaml:"grid,omitempty"`

	// Lamellar parameters.
	Amplitudes     map[string]float64 `yaml:"amplitudes,omitempty"`
	LatticeVectors [][]int            `yaml:"lattice_vectors,omitempty"`
	Phases         []float64          `yaml:"phases,omitempty"`

	// Umbrella optionally adds a harmonic restraint on this variable.
	Umbrella *UmbrellaConfig `yaml:"umbrella,omitempty"`
}

// GridConfig is the per-variable grid range: (cv_min, cv_max, num_points).
type GridConfig struct {
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Points int     `yaml:"points"`
}

// UmbrellaConfig is a harmonic restraint kappa/2*(s-at)^2.
type UmbrellaConfig struct {
	Kappa float64 `yaml:"kappa"`
	At    float64 `yaml:"at"`
}

// DeltaT is a temperature shift that accepts the string "standard" as a
// sentinel for +Inf.
type DeltaT float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *DeltaT) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil && s == "standard" {
		*d = DeltaT(constants.StandardDeltaT)
		return nil
	}
	var v float64
	if err := node.Decode(&v); err != nil {
		return fmt.Errorf("config: delta_t must be a number or \"standard\": %w", err)
	}
	*d = DeltaT(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d DeltaT) MarshalYAML() (interface{}, error) {
	if math.IsInf(float64(d), 1) {
		return "standard", nil
	}
	return float64(d), nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Dt:       0.005,
			Height:   1.0,
			Stride:   5000,
			DeltaT:   DeltaT(constants.StandardDeltaT),
			AddHills: true,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads and validates a run file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Validate checks the configuration the way a starting run would: engine
// parameters, every variable definition, and the registration rules
// (unique names, grid mode for all variables or none).
func (c *Config) Validate() error {
	if c.Engine.Dt <= 0 {
		return fmt.Errorf("engine.dt must be positive, got %g", c.Engine.Dt)
	}
	e, err := bias.New(c.EngineParams())
	if err != nil {
		return err
	}
	vars, _, err := c.BuildVariables()
	if err != nil {
		return err
	}
	return e.Register(vars)
}

// EngineParams converts the engine section to bias.Params.
func (c *Config) EngineParams() bias.Params {
	return bias.Params{
		W:        c.Engine.Height,
		Stride:   c.Engine.Stride,
		DeltaT:   float64(c.Engine.DeltaT),
		AddHills: c.Engine.AddHills,
	}
}

// VariableNames returns the configured variable names in registration order.
func (c *Config) VariableNames() []string {
	names := make([]string, len(c.Variables))
	for i, v := range c.Variables {
		names[i] = v.resolvedName()
	}
	return names
}

func (v VariableConfig) resolvedName() string {
	if v.Name != "" {
		return v.Name
	}
	return v.Kind
}

// BuildVariables constructs the configured collective variables and their
// optional umbrella restraints. All variant configuration errors surface
// here.
func (c *Config) BuildVariables() ([]cv.Variable, []*cv.Umbrella, error) {
	variables := make([]cv.Variable, 0, len(c.Variables))
	var umbrellas []*cv.Umbrella

	for i, vc := range c.Variables {
		var (
			v   cv.Variable
			err error
		)
		switch vc.Kind {
		case "lamellar":
			v, err = cv.NewLamellar(cv.LamellarParams{
				Name:           vc.resolvedName(),
				Sigma:          vc.Sigma,
				Grid:           vc.gridSpec(),
				Amplitudes:     vc.Amplitudes,
				LatticeVectors: vc.LatticeVectors,
				Phases:         vc.Phases,
				Species:        c.System.Species,
			})
		case "":
			err = fmt.Errorf("variables[%d]: missing kind", i)
		default:
			err = fmt.Errorf("variables[%d]: unknown kind %q", i, vc.Kind)
		}
		if err != nil {
			return nil, nil, err
		}

		if vc.Umbrella != nil {
			u, err := cv.NewUmbrella(v, vc.Umbrella.Kappa, vc.Umbrella.At)
			if err != nil {
				return nil, nil, fmt.Errorf("variables[%d]: %w", i, err)
			}
			umbrellas = append(umbrellas, u)
		}
		variables = append(variables, v)
	}
	return variables, umbrellas, nil
}

func (v VariableConfig) gridSpec() *cv.GridSpec {
	if v.Grid == nil {
		return nil
	}
	return &cv.GridSpec{Min: v.Grid.Min, Max: v.Grid.Max, Points: v.Grid.Points}
}
