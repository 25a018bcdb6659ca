package simulation

import (
	"math"
	"testing"
)

// A nearly immobile walker keeps depositing at the same spot. Under
// well-tempered damping the deposited heights must shrink toward zero,
// while standard metadynamics keeps them constant.
func TestRun_WellTemperedHeightsDecay(t *testing.T) {
	scenario := wellScenario("well-tempered", nil)
	scenario.Params.DeltaT = 2.0
	scenario.Mobility = 1e-9

	r := NewRunner(t)
	result := r.Run(scenario)

	AssertDeposits(t, result, 39)
	AssertHeightsNonIncreasing(t, result)

	first := result.Records[0].Height
	last := result.Records[len(result.Records)-1].Height
	if first != scenario.Params.W {
		t.Errorf("first hill height %.8g, want undamped %.8g", first, scenario.Params.W)
	}
	if last >= first/2 {
		t.Errorf("last hill height %.8g did not decay (first %.8g)", last, first)
	}

	// With the walker pinned at x0 the damping is exact: hill k has height
	// W*exp(-V_k/deltaT) with V_k the bias from the previous k hills at x0.
	x0 := result.Steps[0].Values[0]
	bias := 0.0
	for k, rec := range result.Records {
		want := scenario.Params.W * math.Exp(-bias/scenario.Params.DeltaT)
		if math.Abs(rec.Height-want) > 1e-6 {
			t.Errorf("hill %d height %.10g, want %.10g", k, rec.Height, want)
		}
		d := x0 - rec.Centers[0]
		bias += rec.Height * math.Exp(-d*d/(2*0.1*0.1))
	}
}

func TestRun_StandardHeightsConstant(t *testing.T) {
	scenario := wellScenario("standard-heights", nil)
	scenario.Mobility = 1e-9

	r := NewRunner(t)
	result := r.Run(scenario)

	for i, rec := range result.Records {
		if rec.Height != scenario.Params.W {
			t.Errorf("hill %d height %.8g, want constant %.8g", i, rec.Height, scenario.Params.W)
		}
	}
}
