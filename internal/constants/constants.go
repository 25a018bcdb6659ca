// Package constants provides named constants used throughout the metadynamics codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

import "math"

// Deposition constants
const (
	// DefaultTruncation is the Gaussian splat cutoff, in units of sigma,
	// applied per dimension when a hill is added to the grid. Cells farther
	// than this many widths from the hill center contribute less than
	// exp(-32) and are skipped. A value <= 0 disables truncation and splats
	// over the entire grid.
	DefaultTruncation = 8.0

	// MinGridPoints is the smallest legal number of grid points per
	// collective variable. Two points are needed to bracket an interval.
	MinGridPoints = 2
)

// StandardDeltaT is the temperature-shift sentinel that disables
// well-tempered damping, recovering standard metadynamics. Any hill then
// deposits at the full height W regardless of the accumulated potential.
var StandardDeltaT = math.Inf(1)

// File format constants
const (
	// HillsDelimiter separates columns in the hills log file.
	HillsDelimiter = "\t"

	// FloatFormat is the printf verb used for values written to hills
	// logs: 10 significant digits, so replaying a log reproduces the bias
	// within formatting precision. Grid files use the shortest round-trip
	// encoding instead and are bit-exact.
	FloatFormat = "%.10g"

	// GridFileMode and HillsFileMode are the permissions for files the
	// engine creates.
	GridFileMode  = 0644
	HillsFileMode = 0644
)
