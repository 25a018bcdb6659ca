package simulation

import (
	"os"
	"testing"

	"github.com/csadorf/metadynamics-plugin/internal/bias"
	"github.com/csadorf/metadynamics-plugin/internal/cv"
	"github.com/csadorf/metadynamics-plugin/internal/integrate"
	"github.com/csadorf/metadynamics-plugin/internal/logging"
	"github.com/csadorf/metadynamics-plugin/internal/store"
)

// Runner orchestrates deposition experiments against a real engine.
type Runner struct {
	t *testing.T
}

// NewRunner creates a simulation runner.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{t: t}
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) Result {
	r.t.Helper()

	params := scenario.Params
	if params.Stride == 0 {
		params.Stride = 10
	}
	dt := scenario.Dt
	if dt == 0 {
		dt = 0.005
	}
	mobility := scenario.Mobility
	if mobility == 0 {
		mobility = 1.0
	}

	names := make([]string, len(scenario.Variables))
	for i, v := range scenario.Variables {
		names[i] = v.Name()
	}
	hillLog := store.NewMemoryHillLog(names)

	// Warnings and errors only; scenario runs are otherwise silent.
	engine, err := bias.New(params,
		bias.WithHillLog(hillLog),
		bias.WithLogger(logging.NewLogger("warn", os.Stderr)))
	if err != nil {
		r.t.Fatalf("Run(%s): creating engine: %v", scenario.Name, err)
	}
	if err := engine.Register(scenario.Variables); err != nil {
		r.t.Fatalf("Run(%s): registering variables: %v", scenario.Name, err)
	}
	if scenario.RestartGrid != "" {
		if err := engine.RestartFromGrid(scenario.RestartGrid); err != nil {
			r.t.Fatalf("Run(%s): restarting from grid: %v", scenario.Name, err)
		}
	}

	snap := r.buildSnapshot(scenario)
	acc := integrate.NewAccumulator(snap.NumParticles())
	adapter := integrate.New(engine, acc, integrate.WithUmbrellas(scenario.Umbrellas...))

	result := Result{Engine: engine}
	for step := uint64(0); step < scenario.Steps; step++ {
		snap.Step = step
		if scenario.BeforeStep != nil {
			scenario.BeforeStep(step, engine)
		}

		acc.Reset()
		if scenario.ExternalForces != nil {
			acc.AccumulateForces(scenario.ExternalForces(snap))
		}
		if err := adapter.Step(snap, step); err != nil {
			r.t.Fatalf("Run(%s): step %d: %v", scenario.Name, step, err)
		}
		result.Steps = append(result.Steps, r.record(scenario, engine, snap, step))

		for i := range snap.Positions {
			snap.Positions[i] = snap.Positions[i].Add(acc.Forces[i].Scale(mobility * dt))
		}
	}

	result.Final = snap
	result.Records = r.replay(scenario, hillLog)
	return result
}

func (r *Runner) buildSnapshot(scenario Scenario) *cv.Snapshot {
	r.t.Helper()
	snap := &cv.Snapshot{
		Positions: make([]cv.Vec3, len(scenario.Particles)),
		Species:   make([]int, len(scenario.Particles)),
		TypeNames: scenario.TypeNames,
		Box:       scenario.Box,
	}
	for i, p := range scenario.Particles {
		snap.Positions[i] = p.Position
		snap.Species[i] = p.Species
	}
	if err := snap.Validate(); err != nil {
		r.t.Fatalf("Run(%s): invalid initial snapshot: %v", scenario.Name, err)
	}
	return snap
}

func (r *Runner) record(scenario Scenario, engine *bias.Engine, snap *cv.Snapshot, step uint64) StepRecord {
	rec := StepRecord{
		Step:   step,
		Values: make([]float64, len(scenario.Variables)),
		Energy: engine.BiasPotential(),
		Hills:  engine.NumHills(),
	}
	for i, v := range scenario.Variables {
		rec.Values[i] = v.Value(snap)
	}
	return rec
}

func (r *Runner) replay(scenario Scenario, hillLog store.HillLog) []HillRecord {
	r.t.Helper()
	records, err := hillLog.Records()
	if err != nil {
		r.t.Fatalf("Run(%s): replaying hill log: %v", scenario.Name, err)
	}
	out := make([]HillRecord, len(records))
	for i, rec := range records {
		out[i] = HillRecord{Step: rec.Step, Height: rec.Height, Centers: rec.Centers}
	}
	return out
}
