// Package simulation provides a multi-step test harness for validating
// emergent dynamics of the bias deposition pipeline.
//
// The harness exercises the real Engine, collective variables, grid, and
// hill log together, no mocks. Scenarios are Go builders that construct a
// small particle system and integrate it with overdamped dynamics under the
// accumulated bias, capturing per-step records for property assertions.
//
// The dynamics carry no thermal noise, so every run of a scenario is
// bit-for-bit reproducible.
//
// Usage:
//
//	func TestWellFilling(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:      "well-filling",
//	        Particles: []simulation.ParticleSpec{...},
//	        Steps:     2000,
//	        ...
//	    })
//	    simulation.AssertDeposits(t, result, 19)
//	}
package simulation
