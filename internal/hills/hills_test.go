package hills

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_EvaluateSingleHill(t *testing.T) {
	s := NewSet()
	s.Deposit(Hill{Step: 5000, Center: []float64{0.3}, Height: 1.0, Widths: []float64{0.05}})

	// At the peak: full height, zero slope.
	v, g := s.Evaluate([]float64{0.3})
	assert.InDelta(t, 1.0, v, 1e-12)
	assert.InDelta(t, 0.0, g[0], 1e-12)

	// Four widths out: essentially zero.
	v, _ = s.Evaluate([]float64{0.3 + 4*0.05})
	assert.Less(t, v, 1e-3)

	// One width out: height * exp(-1/2), slope matches the analytic form.
	v, g = s.Evaluate([]float64{0.35})
	want := math.Exp(-0.5)
	assert.InDelta(t, want, v, 1e-12)
	assert.InDelta(t, -want*0.05/(0.05*0.05), g[0], 1e-9)
}

func TestSet_GradientMatchesFiniteDifference(t *testing.T) {
	s := NewSet()
	s.Deposit(Hill{Center: []float64{0.1, -0.4}, Height: 1.0, Widths: []float64{0.2, 0.3}})
	s.Deposit(Hill{Center: []float64{-0.2, 0.5}, Height: 0.7, Widths: []float64{0.25, 0.15}})

	point := []float64{0.05, 0.1}
	_, grad := s.Evaluate(point)

	const h = 1e-7
	for i := range point {
		plus := append([]float64(nil), point...)
		minus := append([]float64(nil), point...)
		plus[i] += h
		minus[i] -= h
		vp, _ := s.Evaluate(plus)
		vm, _ := s.Evaluate(minus)
		assert.InDelta(t, (vp-vm)/(2*h), grad[i], 1e-6, "dimension %d", i)
	}
}

// Evaluation must be invariant under permutation of deposition order: the
// sum over hills commutes.
func TestSet_OrderIndependentEvaluation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	var deposits []Hill
	for i := 0; i < 50; i++ {
		deposits = append(deposits, Hill{
			Step:   uint64(i),
			Center: []float64{rng.NormFloat64(), rng.NormFloat64()},
			Height: rng.Float64() + 0.1,
			Widths: []float64{0.1 + rng.Float64(), 0.1 + rng.Float64()},
		})
	}

	forward := NewSet()
	for _, h := range deposits {
		forward.Deposit(h)
	}
	backward := NewSet()
	for i := len(deposits) - 1; i >= 0; i-- {
		backward.Deposit(deposits[i])
	}

	for _, point := range [][]float64{{0, 0}, {0.5, -0.5}, {-1.2, 0.8}} {
		vf, gf := forward.Evaluate(point)
		vb, gb := backward.Evaluate(point)
		assert.InDelta(t, vf, vb, 1e-9)
		for i := range gf {
			assert.InDelta(t, gf[i], gb[i], 1e-9)
		}
	}
}

func TestSet_DepositCopiesSlices(t *testing.T) {
	s := NewSet()
	center := []float64{0.3}
	widths := []float64{0.05}
	s.Deposit(Hill{Center: center, Height: 1.0, Widths: widths})

	center[0] = 99
	widths[0] = 99

	require.Equal(t, 1, s.Len())
	got := s.Hills()[0]
	assert.Equal(t, 0.3, got.Center[0])
	assert.Equal(t, 0.05, got.Widths[0])
}
