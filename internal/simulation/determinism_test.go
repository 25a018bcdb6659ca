package simulation

import (
	"math"
	"testing"

	"github.com/csadorf/metadynamics-plugin/internal/bias"
	"github.com/csadorf/metadynamics-plugin/internal/cv"
)

func wellScenario(name string, grid *cv.GridSpec) Scenario {
	return Scenario{
		Name:      name,
		Particles: []ParticleSpec{{Position: cv.Vec3{X: 0.1}}},
		TypeNames: []string{"A"},
		Box:       cv.Box{Lx: 10, Ly: 10, Lz: 10},
		Params: bias.Params{
			W:        0.2,
			Stride:   10,
			DeltaT:   math.Inf(1),
			AddHills: true,
		},
		Variables:      []cv.Variable{NewLinearVariable("x", 0.1, 0, grid)},
		Steps:          400,
		ExternalForces: HarmonicWell(5.0),
	}
}

func TestRun_Deterministic(t *testing.T) {
	r := NewRunner(t)
	a := r.Run(wellScenario("determinism-a", nil))
	b := r.Run(wellScenario("determinism-b", nil))
	AssertIdenticalRuns(t, a, b)
}

func TestRun_DeterministicOnGrid(t *testing.T) {
	grid := &cv.GridSpec{Min: -3, Max: 3, Points: 1201}
	r := NewRunner(t)
	a := r.Run(wellScenario("grid-determinism-a", grid))
	b := r.Run(wellScenario("grid-determinism-b", grid))
	AssertIdenticalRuns(t, a, b)
}
