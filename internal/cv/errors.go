package cv

import "errors"

// Configuration errors raised by variant constructors. All of them are
// detected before the first simulation step; none can occur mid-run.
var (
	// ErrEmptyLatticeVectors indicates an empty list of lattice vectors.
	ErrEmptyLatticeVectors = errors.New("cv: list of lattice vectors is empty")

	// ErrBadLatticeVector indicates a lattice vector that is not an integer triple.
	ErrBadLatticeVector = errors.New("cv: lattice vector is not an integer triple")

	// ErrMissingAmplitude indicates a particle species without a mode amplitude.
	ErrMissingAmplitude = errors.New("cv: missing mode amplitude for particle species")

	// ErrPhaseCountMismatch indicates phase and lattice-vector lists of different length.
	ErrPhaseCountMismatch = errors.New("cv: phase count does not match lattice vector count")

	// ErrBadSigma indicates a non-positive deposition width.
	ErrBadSigma = errors.New("cv: sigma must be positive")

	// ErrBadGridRange indicates an invalid grid range or point count.
	ErrBadGridRange = errors.New("cv: invalid grid range")
)
