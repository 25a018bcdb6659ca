package simulation

import (
	"math"
	"testing"
)

// AssertDeposits asserts the run deposited exactly want hills.
func AssertDeposits(t *testing.T, result Result, want int) {
	t.Helper()
	if got := len(result.Records); got != want {
		t.Errorf("AssertDeposits: got %d hills, want %d", got, want)
	}
}

// AssertIdenticalRuns asserts two runs of the same scenario produced
// bit-identical trajectories and records.
func AssertIdenticalRuns(t *testing.T, a, b Result) {
	t.Helper()
	if len(a.Steps) != len(b.Steps) {
		t.Fatalf("AssertIdenticalRuns: %d vs %d steps", len(a.Steps), len(b.Steps))
	}
	for i := range a.Steps {
		sa, sb := a.Steps[i], b.Steps[i]
		if sa.Energy != sb.Energy || sa.Hills != sb.Hills {
			t.Errorf("AssertIdenticalRuns: step %d: energy/hills %v/%d vs %v/%d",
				sa.Step, sa.Energy, sa.Hills, sb.Energy, sb.Hills)
		}
		for j := range sa.Values {
			if sa.Values[j] != sb.Values[j] {
				t.Errorf("AssertIdenticalRuns: step %d: value[%d] %v vs %v",
					sa.Step, j, sa.Values[j], sb.Values[j])
			}
		}
	}
	for i := range a.Final.Positions {
		if a.Final.Positions[i] != b.Final.Positions[i] {
			t.Errorf("AssertIdenticalRuns: final position %d: %v vs %v",
				i, a.Final.Positions[i], b.Final.Positions[i])
		}
	}
}

// AssertHeightsNonIncreasing asserts that deposited hill heights never grow,
// the expected behavior under well-tempered damping when the walker revisits
// already-biased regions.
func AssertHeightsNonIncreasing(t *testing.T, result Result) {
	t.Helper()
	for i := 1; i < len(result.Records); i++ {
		if result.Records[i].Height > result.Records[i-1].Height+1e-12 {
			t.Errorf("AssertHeightsNonIncreasing: hill %d height %.8g > previous %.8g",
				i, result.Records[i].Height, result.Records[i-1].Height)
		}
	}
}

// AssertExplores asserts the first collective variable covered at least
// minRange over the run. A filled well pushes the walker outward, so the
// covered range is the visible effect of the accumulating bias.
func AssertExplores(t *testing.T, result Result, minRange float64) {
	t.Helper()
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range result.Steps {
		lo = math.Min(lo, s.Values[0])
		hi = math.Max(hi, s.Values[0])
	}
	if hi-lo < minRange {
		t.Errorf("AssertExplores: covered range %.6g < %.6g", hi-lo, minRange)
	}
}

// AssertEnergyNonNegative asserts the accumulated bias never goes negative.
func AssertEnergyNonNegative(t *testing.T, result Result) {
	t.Helper()
	for _, s := range result.Steps {
		if s.Energy < 0 {
			t.Errorf("AssertEnergyNonNegative: step %d: bias %.6g < 0", s.Step, s.Energy)
		}
	}
}
