// Package bias implements the metadynamics bias-potential engine.
//
// The engine owns one of two interchangeable representations of the same
// potential, an append-only hill history evaluated in closed form or a
// discretized grid, and orchestrates the per-step cycle: evaluate the
// potential and its collective-variable-space gradient at the current CV
// values, back-propagate the gradient to per-particle forces through each
// variable's own gradient, and every stride steps deposit a new
// well-tempered Gaussian at the current point.
//
// An engine moves through two states. While unconfigured, the
// collective-variable set may be replaced and a grid restart loaded. The
// first call to Step freezes both for the lifetime of the engine; any later
// reconfiguration attempt fails with ErrActive. The deposition history only
// has meaning for one fixed variable set.
package bias

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/csadorf/metadynamics-plugin/internal/cv"
	"github.com/csadorf/metadynamics-plugin/internal/grid"
	"github.com/csadorf/metadynamics-plugin/internal/hills"
	"github.com/csadorf/metadynamics-plugin/internal/logging"
	"github.com/csadorf/metadynamics-plugin/internal/store"
)

// Params are the deposition parameters of a run.
type Params struct {
	// W is the initial Gaussian height (energy units). Must be positive.
	W float64

	// Stride is the number of steps between depositions. Must be positive.
	Stride uint64

	// DeltaT is the well-tempered temperature shift in reduced units
	// (k_B = 1). Must be positive; +Inf disables the damping and recovers
	// standard metadynamics.
	DeltaT float64

	// AddHills gates deposition independent of evaluation. An engine with
	// AddHills false still applies bias forces from a previously
	// accumulated or loaded potential, the equilibration and histogram
	// sampling mode.
	AddHills bool
}

func (p Params) validate() error {
	if p.W <= 0 {
		return fmt.Errorf("%w: hill height W must be positive, got %g", ErrConfiguration, p.W)
	}
	if p.Stride == 0 {
		return fmt.Errorf("%w: stride must be positive", ErrConfiguration)
	}
	if p.DeltaT <= 0 || math.IsNaN(p.DeltaT) {
		return fmt.Errorf("%w: deltaT must be positive (or +Inf for standard metadynamics), got %g",
			ErrConfiguration, p.DeltaT)
	}
	return nil
}

// Result is the outcome of one evaluation step: the additive per-particle
// bias forces and the scalar bias energy for the host's accumulators, plus
// the current CV values for logging.
type Result struct {
	Forces []cv.Vec3
	Energy float64
	Values []float64
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithLogger attaches an operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithHillLog attaches a persistent deposition log.
func WithHillLog(hl store.HillLog) Option {
	return func(e *Engine) { e.hillLog = hl }
}

// WithDepositionTrace attaches a JSONL deposition trace.
func WithDepositionTrace(dl *logging.DepositionLogger) Option {
	return func(e *Engine) { e.trace = dl }
}

// Engine is the bias-potential engine. It is not safe for concurrent use:
// steps are strictly sequential, and evaluation and deposition for one step
// are sequenced by the caller (deposition uses the potential evaluated at
// the current point).
type Engine struct {
	params Params

	log     *slog.Logger
	trace   *logging.DepositionLogger
	hillLog store.HillLog

	variables []cv.Variable
	useGrid   bool
	set       *hills.Set
	grid      *grid.Grid

	active bool

	// lastStep/lastValues/lastEnergy cache the most recent evaluation so
	// MaybeDeposit can reuse the potential at the current point.
	lastStep   uint64
	lastValues []float64
	lastEnergy float64
	evaluated  bool
}

// New constructs an engine in the unconfigured state.
func New(params Params, opts ...Option) (*Engine, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		params: params,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Register fixes the set of collective variables the engine biases.
// Variables must have unique names, and either all or none of them may
// request grid mode. Register may be called again to replace the set, but
// only until the first step executes.
func (e *Engine) Register(variables []cv.Variable) error {
	if e.active {
		return ErrActive
	}

	seen := make(map[string]bool, len(variables))
	gridCount := 0
	for _, v := range variables {
		if seen[v.Name()] {
			return fmt.Errorf("%w: duplicate collective variable name %q", ErrConfiguration, v.Name())
		}
		seen[v.Name()] = true
		if v.Sigma() <= 0 {
			return fmt.Errorf("%w: variable %q has non-positive sigma %g",
				ErrConfiguration, v.Name(), v.Sigma())
		}
		if v.Grid() != nil {
			gridCount++
		}
	}

	useGrid := gridCount > 0
	if useGrid && gridCount != len(variables) {
		return fmt.Errorf("%w: %d of %d collective variables request grid mode; grid mode must be enabled for all variables simultaneously or none",
			ErrConfiguration, gridCount, len(variables))
	}

	var g *grid.Grid
	if useGrid {
		axes := make([]grid.Axis, len(variables))
		for i, v := range variables {
			spec := v.Grid()
			axes[i] = grid.Axis{Name: v.Name(), Min: spec.Min, Max: spec.Max, Points: spec.Points}
		}
		var err error
		if g, err = grid.New(axes); err != nil {
			return fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	}

	e.variables = append([]cv.Variable(nil), variables...)
	e.useGrid = useGrid
	e.grid = g
	e.set = nil
	return nil
}

// RestartFromGrid pre-seeds the bias potential from a previously dumped grid
// file. Only legal before the first step and only in grid mode. The file
// header must match the registered variables exactly; on any failure the
// current grid contents are left untouched.
func (e *Engine) RestartFromGrid(path string) error {
	if e.active {
		return ErrActive
	}
	if !e.useGrid {
		return fmt.Errorf("%w: restart from grid file", ErrNoGrid)
	}
	if err := e.grid.LoadFile(path); err != nil {
		return err
	}
	e.log.Info("restarted from grid file", "path", path)
	return nil
}

// DumpGrid writes the current bias potential grid to path, for later restart
// or free-energy analysis (the free energy is the negative of the dumped
// potential, up to the well-tempered scale factor).
func (e *Engine) DumpGrid(path string) error {
	if !e.useGrid {
		return fmt.Errorf("%w: dump grid", ErrNoGrid)
	}
	if err := e.grid.SaveFile(path); err != nil {
		return err
	}
	e.log.Info("dumped bias potential grid", "path", path)
	return nil
}

// SetAddHills toggles deposition at runtime. Evaluation is unaffected.
func (e *Engine) SetAddHills(add bool) { e.params.AddHills = add }

// Active reports whether the first step has executed and the configuration
// is frozen.
func (e *Engine) Active() bool { return e.active }

// UsingGrid reports whether the engine runs in grid mode. The choice is made
// at registration: grid mode iff every variable requests it.
func (e *Engine) UsingGrid() bool { return e.useGrid }

// BiasPotential returns the bias potential at the most recently evaluated
// point, the engine's loggable quantity.
func (e *Engine) BiasPotential() float64 { return e.lastEnergy }

// NumHills returns the number of hills deposited so far in closed-form mode,
// and 0 in grid mode (the grid does not retain individual hills).
func (e *Engine) NumHills() int {
	if e.set == nil {
		return 0
	}
	return e.set.Len()
}

// activate performs the irreversible Unconfigured -> Active transition.
func (e *Engine) activate() {
	if !e.useGrid {
		e.set = hills.NewSet()
	}
	if len(e.variables) == 0 {
		e.log.Warn("no collective variables registered, continuing without bias")
	}
	e.active = true
	e.log.Info("bias engine active",
		"variables", len(e.variables),
		"grid", e.useGrid,
		"W", e.params.W,
		"stride", e.params.Stride,
		"deltaT", e.params.DeltaT,
		"add_hills", e.params.AddHills)
}

// Step evaluates the bias at the snapshot's configuration: CV values and
// gradients, the potential and its CV-space gradient from the active
// representation, and the chain-rule per-particle forces
//
//	F_p = -sum_i dV/ds_i * grad_p s_i.
//
// Step is purely evaluative; it never deposits and may be called every
// simulation step. The first call freezes the configuration.
func (e *Engine) Step(snap *cv.Snapshot, step uint64) (Result, error) {
	if !e.active {
		e.activate()
	}

	n := snap.NumParticles()
	res := Result{
		Forces: make([]cv.Vec3, n),
		Values: make([]float64, len(e.variables)),
	}

	if len(e.variables) == 0 {
		e.cacheEvaluation(step, res.Values, 0)
		return res, nil
	}

	gradients := make([][]cv.Vec3, len(e.variables))
	for i, v := range e.variables {
		res.Values[i] = v.Value(snap)
		gradients[i] = v.Gradient(snap)
	}

	potential, cvGrad, err := e.evaluate(res.Values)
	if err != nil {
		return Result{}, err
	}
	res.Energy = potential

	if err := chainRuleForces(res.Forces, cvGrad, gradients); err != nil {
		return Result{}, err
	}

	e.cacheEvaluation(step, res.Values, potential)
	return res, nil
}

// evaluate returns the potential and CV-space gradient at the given point
// from the active representation.
func (e *Engine) evaluate(values []float64) (float64, []float64, error) {
	if e.useGrid {
		return e.grid.Evaluate(values)
	}
	v, g := e.set.Evaluate(values)
	return v, g, nil
}

func (e *Engine) cacheEvaluation(step uint64, values []float64, energy float64) {
	e.lastStep = step
	e.lastValues = values
	e.lastEnergy = energy
	e.evaluated = true
}

// chainRuleForces accumulates F_p = -sum_i cvGrad[i] * gradients[i][p] into
// forces, splitting the particle range across workers. Each particle is
// written by exactly one worker, so the result is identical to the
// sequential loop.
func chainRuleForces(forces []cv.Vec3, cvGrad []float64, gradients [][]cv.Vec3) error {
	n := len(forces)
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers == 0 {
		return nil
	}
	chunk := (n + workers - 1) / workers

	var eg errgroup.Group
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		eg.Go(func() error {
			for p := start; p < end; p++ {
				f := cv.Vec3{}
				for i, grad := range gradients {
					f = f.Add(grad[p].Scale(-cvGrad[i]))
				}
				forces[p] = f
			}
			return nil
		})
	}
	return eg.Wait()
}

// WellTemperedHeight returns the damped height for a hill deposited where
// the accumulated potential is v: W * exp(-v / deltaT). With deltaT = +Inf
// the height is W regardless of v.
func WellTemperedHeight(w, v, deltaT float64) float64 {
	if math.IsInf(deltaT, 1) {
		return w
	}
	return w * math.Exp(-v/deltaT)
}

// MaybeDeposit deposits a well-tempered hill at the point evaluated by the
// immediately preceding Step call, if deposition is enabled and step is a
// positive multiple of the stride. Step 0 never deposits: the first hill
// lands only after the host has run real dynamics for one stride.
func (e *Engine) MaybeDeposit(step uint64) error {
	if !e.params.AddHills || len(e.variables) == 0 {
		return nil
	}
	if step == 0 || step%e.params.Stride != 0 {
		return nil
	}
	if !e.evaluated || e.lastStep != step {
		return fmt.Errorf("%w: step %d was not the last evaluated step", ErrOutOfSequence, step)
	}

	height := WellTemperedHeight(e.params.W, e.lastEnergy, e.params.DeltaT)
	sigmas := make([]float64, len(e.variables))
	for i, v := range e.variables {
		sigmas[i] = v.Sigma()
	}

	if e.useGrid {
		if err := e.grid.Deposit(e.lastValues, height, sigmas); err != nil {
			return err
		}
	} else {
		e.set.Deposit(hills.Hill{
			Step:   step,
			Center: append([]float64(nil), e.lastValues...),
			Height: height,
			Widths: sigmas,
		})
	}

	if e.hillLog != nil {
		rec := store.Record{Step: step, Height: height, Centers: e.lastValues, Sigmas: sigmas}
		if err := e.hillLog.Append(rec); err != nil {
			return err
		}
	}
	e.trace.Log(map[string]any{
		"step":   step,
		"height": height,
		"center": e.lastValues,
		"bias":   e.lastEnergy,
	})
	e.log.Debug("deposited hill", "step", step, "height", height, "bias", e.lastEnergy)
	return nil
}
