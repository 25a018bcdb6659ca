package simulation

import (
	"github.com/csadorf/metadynamics-plugin/internal/cv"
)

// LinearVariable is a minimal collective variable for scenarios: the x
// coordinate of one tagged particle. Its gradient is a unit vector on that
// particle, which makes the expected bias forces analytic.
type LinearVariable struct {
	name     string
	sigma    float64
	grid     *cv.GridSpec
	particle int
}

// NewLinearVariable builds a LinearVariable tracking the given particle.
func NewLinearVariable(name string, sigma float64, particle int, grid *cv.GridSpec) *LinearVariable {
	return &LinearVariable{name: name, sigma: sigma, grid: grid, particle: particle}
}

func (v *LinearVariable) Name() string       { return v.name }
func (v *LinearVariable) Sigma() float64     { return v.sigma }
func (v *LinearVariable) Grid() *cv.GridSpec { return v.grid }

func (v *LinearVariable) Value(snap *cv.Snapshot) float64 {
	return snap.Positions[v.particle].X
}

func (v *LinearVariable) Gradient(snap *cv.Snapshot) []cv.Vec3 {
	grad := make([]cv.Vec3, snap.NumParticles())
	grad[v.particle] = cv.Vec3{X: 1}
	return grad
}

// HarmonicWell returns an external force function for a 1-D harmonic well
// of stiffness k acting on the x coordinate of every particle.
func HarmonicWell(k float64) func(snap *cv.Snapshot) []cv.Vec3 {
	return func(snap *cv.Snapshot) []cv.Vec3 {
		forces := make([]cv.Vec3, snap.NumParticles())
		for i, p := range snap.Positions {
			forces[i] = cv.Vec3{X: -k * p.X}
		}
		return forces
	}
}
