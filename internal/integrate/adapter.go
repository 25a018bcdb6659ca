// Package integrate adapts the bias engine to a host simulation's per-step
// force loop. The host calls Adapter.Step once per simulation step with the
// current particle snapshot; the adapter evaluates the bias (and any
// umbrella restraints), hands the resulting forces and energy to the host's
// accumulator, and triggers deposition on stride steps. The host remains
// responsible for integrating the equations of motion.
package integrate

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/csadorf/metadynamics-plugin/internal/bias"
	"github.com/csadorf/metadynamics-plugin/internal/cv"
)

// ForceSink is the host side of the force/energy contract. The engine is
// one of possibly many independent force sources; contributions are
// additive.
type ForceSink interface {
	// AccumulateForces adds the per-particle forces to the host's force
	// array. The slice has one entry per particle in snapshot order.
	AccumulateForces(forces []cv.Vec3)

	// AccumulateEnergy adds a scalar contribution to the host's potential
	// energy.
	AccumulateEnergy(energy float64)
}

// Adapter drives the engine once per simulation step.
type Adapter struct {
	engine    *bias.Engine
	sink      ForceSink
	umbrellas []*cv.Umbrella
	log       *slog.Logger
}

// Option configures the adapter.
type Option func(*Adapter)

// WithUmbrellas attaches harmonic restraints evaluated alongside the bias.
func WithUmbrellas(u ...*cv.Umbrella) Option {
	return func(a *Adapter) { a.umbrellas = append(a.umbrellas, u...) }
}

// WithLogger attaches an operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// New constructs an adapter forwarding engine output into sink.
func New(engine *bias.Engine, sink ForceSink, opts ...Option) *Adapter {
	a := &Adapter{
		engine: engine,
		sink:   sink,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Step runs one evaluation-then-maybe-deposit cycle. Evaluation and
// deposition are strictly sequenced: the deposit at a stride step reuses the
// potential evaluated at the current point.
func (a *Adapter) Step(snap *cv.Snapshot, step uint64) error {
	res, err := a.engine.Step(snap, step)
	if err != nil {
		return fmt.Errorf("integrate: evaluating bias at step %d: %w", step, err)
	}

	a.sink.AccumulateForces(res.Forces)
	a.sink.AccumulateEnergy(res.Energy)

	for _, u := range a.umbrellas {
		a.sink.AccumulateForces(u.Forces(snap))
		a.sink.AccumulateEnergy(u.Energy(snap))
	}

	if err := a.engine.MaybeDeposit(step); err != nil {
		return fmt.Errorf("integrate: depositing at step %d: %w", step, err)
	}
	return nil
}

// Accumulator is a slice-backed ForceSink for hosts without their own force
// array, and for tests.
type Accumulator struct {
	Forces []cv.Vec3
	Energy float64
}

// NewAccumulator creates an accumulator for n particles.
func NewAccumulator(n int) *Accumulator {
	return &Accumulator{Forces: make([]cv.Vec3, n)}
}

// Reset zeroes the accumulated forces and energy, keeping capacity.
func (ac *Accumulator) Reset() {
	for i := range ac.Forces {
		ac.Forces[i] = cv.Vec3{}
	}
	ac.Energy = 0
}

// AccumulateForces implements ForceSink.
func (ac *Accumulator) AccumulateForces(forces []cv.Vec3) {
	for i, f := range forces {
		ac.Forces[i] = ac.Forces[i].Add(f)
	}
}

// AccumulateEnergy implements ForceSink.
func (ac *Accumulator) AccumulateEnergy(energy float64) {
	ac.Energy += energy
}
