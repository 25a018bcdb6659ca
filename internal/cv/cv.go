// Package cv defines the collective-variable abstraction for metadynamics.
//
// A collective variable is a scalar function of the particle configuration
// that summarizes a slow degree of freedom. Each variant implements the
// Variable interface: given a Snapshot it produces a value s and the gradient
// of s with respect to every particle position. Both are pure functions of
// the snapshot; variants may cache the result for a step index so that Value
// and Gradient requested in the same step cost one evaluation.
package cv

import "fmt"

// Vec3 is a Cartesian vector.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

// Scale returns v scaled by a.
func (v Vec3) Scale(a float64) Vec3 { return Vec3{a * v.X, a * v.Y, a * v.Z} }

// Dot returns the scalar product of v and w.
func (v Vec3) Dot(w Vec3) float64 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

// Box describes an orthorhombic simulation box by its edge lengths.
type Box struct {
	Lx, Ly, Lz float64
}

// Snapshot is an instantaneous particle configuration handed to the engine
// by the host simulation once per step. Species holds one type index per
// particle; TypeNames maps a type index to its name. The engine never
// mutates a snapshot.
type Snapshot struct {
	Positions []Vec3
	Species   []int
	TypeNames []string
	Box       Box
	Step      uint64
}

// NumParticles returns the number of particles in the snapshot.
func (s *Snapshot) NumParticles() int { return len(s.Positions) }

// Validate checks internal consistency of the snapshot.
func (s *Snapshot) Validate() error {
	if len(s.Species) != len(s.Positions) {
		return fmt.Errorf("cv: snapshot has %d positions but %d species entries",
			len(s.Positions), len(s.Species))
	}
	for i, t := range s.Species {
		if t < 0 || t >= len(s.TypeNames) {
			return fmt.Errorf("cv: particle %d has unknown type index %d", i, t)
		}
	}
	return nil
}

// GridSpec is the optional sampling range a variable requests for grid mode.
// A nil GridSpec on a variable means the variable runs off-grid.
type GridSpec struct {
	Min    float64
	Max    float64
	Points int
}

// Variable is the closed interface implemented by every collective-variable
// variant. Implementations are immutable after construction; all
// configuration errors are raised by the variant constructor, never at step
// time.
type Variable interface {
	// Name identifies the variable. Names must be unique among the
	// variables registered with one engine.
	Name() string

	// Sigma is the Gaussian deposition width for this variable.
	Sigma() float64

	// Grid returns the requested sampling range, or nil when the variable
	// has not enabled grid mode.
	Grid() *GridSpec

	// Value evaluates the variable on the snapshot.
	Value(snap *Snapshot) float64

	// Gradient evaluates the derivative of the variable with respect to
	// every particle position. The returned slice has one entry per
	// particle and may alias the variant's per-step cache; callers must
	// not modify it.
	Gradient(snap *Snapshot) []Vec3
}
