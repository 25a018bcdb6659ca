package grid

import "errors"

// Domain errors for grid operations.
var (
	// ErrBadAxis indicates an axis with an inverted range or too few points.
	ErrBadAxis = errors.New("grid: invalid axis")

	// ErrDimensionMismatch indicates a point whose length does not match
	// the grid dimensionality.
	ErrDimensionMismatch = errors.New("grid: point dimension does not match grid")

	// ErrFormat indicates a malformed or configuration-incompatible grid
	// file. A load that fails with ErrFormat leaves the grid untouched.
	ErrFormat = errors.New("grid: incompatible grid file")
)
