package bias

import "errors"

// Domain errors for engine setup and runtime operations.
var (
	// ErrConfiguration indicates invalid or inconsistent engine setup.
	// Configuration errors are detected at registration or at the first
	// step, never mid-run.
	ErrConfiguration = errors.New("bias: configuration error")

	// ErrActive indicates an attempt to reconfigure the engine after the
	// first step has executed. The collective-variable set and the
	// representation are frozen from that point on.
	ErrActive = errors.New("bias: engine already active, configuration is frozen")

	// ErrNoGrid indicates a grid-only operation (dump, restart) on an
	// engine running in closed-form mode.
	ErrNoGrid = errors.New("bias: operation requires grid mode")

	// ErrOutOfSequence indicates a deposition request for a step that was
	// not the last evaluated step. Evaluation and deposition for one step
	// are strictly sequenced.
	ErrOutOfSequence = errors.New("bias: deposition out of sequence with evaluation")
)
