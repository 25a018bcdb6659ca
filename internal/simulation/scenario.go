package simulation

import (
	"github.com/csadorf/metadynamics-plugin/internal/bias"
	"github.com/csadorf/metadynamics-plugin/internal/cv"
)

// ParticleSpec defines one particle of the toy system.
type ParticleSpec struct {
	Position cv.Vec3
	Species  int
}

// Scenario defines a complete deposition experiment.
type Scenario struct {
	Name      string
	Particles []ParticleSpec
	TypeNames []string
	Box       cv.Box

	// Params configures the engine. A zero Stride defaults to 10.
	Params bias.Params

	// Variables are registered before the first step.
	Variables []cv.Variable

	// Umbrellas are optional harmonic restraints applied alongside the bias.
	Umbrellas []*cv.Umbrella

	// Steps is the number of integration steps to run.
	Steps uint64

	// Dt and Mobility parameterize the overdamped update
	// r += mobility * dt * F. Zero values default to 0.005 and 1.0.
	Dt       float64
	Mobility float64

	// RestartGrid, when non-empty, seeds the engine from a grid file.
	RestartGrid string

	// ExternalForces, when non-nil, supplies the host-system forces added
	// before the bias each step.
	ExternalForces func(snap *cv.Snapshot) []cv.Vec3

	// BeforeStep, when non-nil, is called before each step executes. Use
	// this to toggle deposition or dump the grid mid-run.
	BeforeStep func(step uint64, e *bias.Engine)
}

// StepRecord captures the state after one integration step.
type StepRecord struct {
	Step   uint64
	Values []float64
	Energy float64
	Hills  int
}

// Result captures the full run.
type Result struct {
	Steps  []StepRecord
	Engine *bias.Engine

	// Final is the snapshot after the last step.
	Final *cv.Snapshot

	// Records are the deposited hills in order.
	Records []HillRecord
}

// HillRecord is one deposited hill as replayed from the hill log.
type HillRecord struct {
	Step    uint64
	Height  float64
	Centers []float64
}
