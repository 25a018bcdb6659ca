package grid

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleAxisGrid(t *testing.T) *Grid {
	t.Helper()
	g, err := New([]Axis{{Name: "lamellar", Min: -2.0, Max: 2.0, Points: 400}})
	require.NoError(t, err)
	return g
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		axes []Axis
	}{
		{name: "no axes", axes: nil},
		{name: "inverted range", axes: []Axis{{Name: "cv", Min: 2, Max: -2, Points: 10}}},
		{name: "single point", axes: []Axis{{Name: "cv", Min: -1, Max: 1, Points: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.axes)
			assert.ErrorIs(t, err, ErrBadAxis)
		})
	}
}

func TestIndex_RoundTrip(t *testing.T) {
	ix := NewIndex([]int{3, 4, 5})
	require.Equal(t, 60, ix.NumElements())

	coords := make([]int, 3)
	for flat := 0; flat < ix.NumElements(); flat++ {
		ix.Coordinates(flat, coords)
		assert.Equal(t, flat, ix.Flatten(coords))
	}

	// Row-major: the last axis varies fastest.
	ix.Coordinates(1, coords)
	assert.Equal(t, []int{0, 0, 1}, coords)
	ix.Coordinates(5, coords)
	assert.Equal(t, []int{0, 1, 0}, coords)
}

func TestGrid_DepositedPeak(t *testing.T) {
	g := singleAxisGrid(t)
	require.NoError(t, g.Deposit([]float64{0.3}, 1.0, []float64{0.05}))

	// At the hill center the interpolated potential is the peak height and
	// the slope vanishes, up to discretization error of one grid spacing.
	v, grad, err := g.Evaluate([]float64{0.3})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 0.01)
	assert.InDelta(t, 0.0, grad[0], 0.05)

	// Four widths away the Gaussian has decayed to nothing.
	v, _, err = g.Evaluate([]float64{0.3 + 4*0.05})
	require.NoError(t, err)
	assert.Less(t, v, 1e-3)
}

func TestGrid_NodeExactness(t *testing.T) {
	g := singleAxisGrid(t)
	require.NoError(t, g.Deposit([]float64{0.3}, 1.0, []float64{0.05}))
	require.NoError(t, g.Deposit([]float64{-0.7}, 0.4, []float64{0.1}))

	// Interpolation at a node must return the stored value exactly.
	for _, k := range []int{0, 1, 137, 250, 399} {
		point := g.Axes()[0].ValueAt(k)
		v, _, err := g.Evaluate([]float64{point})
		require.NoError(t, err)
		assert.Equal(t, g.At([]int{k}), v, "node %d", k)
	}
}

func TestGrid_DepositIsAdditive(t *testing.T) {
	g := singleAxisGrid(t)
	require.NoError(t, g.Deposit([]float64{0.0}, 1.0, []float64{0.1}))
	v1, _, err := g.Evaluate([]float64{0.0})
	require.NoError(t, err)

	require.NoError(t, g.Deposit([]float64{0.0}, 1.0, []float64{0.1}))
	v2, _, err := g.Evaluate([]float64{0.0})
	require.NoError(t, err)

	assert.InDelta(t, 2*v1, v2, 1e-12)
}

func TestGrid_TruncationMatchesExhaustive(t *testing.T) {
	truncated := singleAxisGrid(t)
	exhaustive := singleAxisGrid(t)
	exhaustive.SetTruncation(0)

	require.NoError(t, truncated.Deposit([]float64{0.3}, 1.0, []float64{0.05}))
	require.NoError(t, exhaustive.Deposit([]float64{0.3}, 1.0, []float64{0.05}))

	// Inside the truncation box the two agree exactly; outside, the
	// truncated grid differs only by contributions below exp(-32).
	for k := 0; k < 400; k++ {
		assert.InDelta(t, exhaustive.At([]int{k}), truncated.At([]int{k}), 2e-14, "node %d", k)
	}
}

func TestGrid_OutOfRangeClampsToBoundary(t *testing.T) {
	g := singleAxisGrid(t)
	require.NoError(t, g.Deposit([]float64{-1.9}, 1.0, []float64{0.2}))

	edge, gradEdge, err := g.Evaluate([]float64{-2.0})
	require.NoError(t, err)
	beyond, gradBeyond, err := g.Evaluate([]float64{-5.0})
	require.NoError(t, err)

	assert.Equal(t, edge, beyond)
	// Clamped evaluation still reports the boundary slope (one-sided
	// difference), so the bias keeps pushing the system back into range.
	assert.NotZero(t, gradBeyond[0])
	assert.Equal(t, gradEdge[0], gradBeyond[0])
	// The hill sits just inside the lower boundary, so the potential rises
	// into the range and the resulting force (-gradient) points outward
	// while the gradient itself is positive.
	assert.Positive(t, gradBeyond[0])
}

func TestGrid_GradientMatchesAnalytic2D(t *testing.T) {
	g, err := New([]Axis{
		{Name: "a", Min: -2, Max: 2, Points: 201},
		{Name: "b", Min: -1, Max: 3, Points: 201},
	})
	require.NoError(t, err)
	require.NoError(t, g.Deposit([]float64{0.2, 1.1}, 1.0, []float64{0.3, 0.4}))

	point := []float64{0.35, 0.9}
	_, grad, err := g.Evaluate(point)
	require.NoError(t, err)

	// Analytic gradient of the deposited Gaussian.
	dx, dy := point[0]-0.2, point[1]-1.1
	gauss := math.Exp(-dx*dx/(2*0.3*0.3) - dy*dy/(2*0.4*0.4))
	assert.InDelta(t, -dx/(0.3*0.3)*gauss, grad[0], 0.01)
	assert.InDelta(t, -dy/(0.4*0.4)*gauss, grad[1], 0.01)
}

func TestGrid_EvaluateDimensionMismatch(t *testing.T) {
	g := singleAxisGrid(t)
	_, _, err := g.Evaluate([]float64{0.1, 0.2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.ErrorIs(t, g.Deposit([]float64{0.1, 0.2}, 1.0, []float64{0.05, 0.05}), ErrDimensionMismatch)
}

func TestGrid_SaveLoadRoundTrip(t *testing.T) {
	g := singleAxisGrid(t)
	require.NoError(t, g.Deposit([]float64{0.3}, 1.0, []float64{0.05}))
	require.NoError(t, g.Deposit([]float64{-0.2}, 0.8, []float64{0.05}))

	var buf bytes.Buffer
	require.NoError(t, g.Save(&buf))

	fresh := singleAxisGrid(t)
	require.NoError(t, fresh.Load(bytes.NewReader(buf.Bytes())))

	// Shortest round-trip float formatting makes the reload bit-exact.
	for k := 0; k < 400; k++ {
		assert.Equal(t, g.At([]int{k}), fresh.At([]int{k}), "node %d", k)
	}
}

func TestGrid_LoadRejectsMismatchedHeader(t *testing.T) {
	tests := []struct {
		name string
		axes []Axis
	}{
		{
			name: "different point count",
			axes: []Axis{{Name: "lamellar", Min: -2, Max: 2, Points: 200}},
		},
		{
			name: "different range",
			axes: []Axis{{Name: "lamellar", Min: -1, Max: 2, Points: 400}},
		},
		{
			name: "different name",
			axes: []Axis{{Name: "other", Min: -2, Max: 2, Points: 400}},
		},
		{
			name: "different dimensionality",
			axes: []Axis{
				{Name: "lamellar", Min: -2, Max: 2, Points: 400},
				{Name: "second", Min: 0, Max: 1, Points: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := New(tt.axes)
			require.NoError(t, err)
			var buf bytes.Buffer
			require.NoError(t, src.Save(&buf))

			g := singleAxisGrid(t)
			require.NoError(t, g.Deposit([]float64{0.3}, 1.0, []float64{0.05}))
			before := g.At([]int{200})

			err = g.Load(bytes.NewReader(buf.Bytes()))
			assert.ErrorIs(t, err, ErrFormat)
			// A rejected load leaves the grid untouched.
			assert.Equal(t, before, g.At([]int{200}))
		})
	}
}

func TestGrid_LoadRejectsMalformedFile(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty file", data: ""},
		{name: "garbage header", data: "not a grid file\n"},
		{name: "truncated values", data: "#ncv: 1\n#cv: lamellar -2 2 400\n1.0\n2.0\n"},
		{name: "non-numeric value", data: "#ncv: 1\n#cv: lamellar -2 2 400\n" + strings.Repeat("x\n", 400)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := singleAxisGrid(t)
			err := g.Load(strings.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestGrid_SaveFileAndLoadFile(t *testing.T) {
	g := singleAxisGrid(t)
	require.NoError(t, g.Deposit([]float64{0.3}, 1.0, []float64{0.05}))

	path := t.TempDir() + "/grid.dat"
	require.NoError(t, g.SaveFile(path))

	fresh := singleAxisGrid(t)
	require.NoError(t, fresh.LoadFile(path))
	assert.Equal(t, g.At([]int{200}), fresh.At([]int{200}))

	assert.Error(t, fresh.LoadFile(t.TempDir()+"/missing.dat"))
}

func TestGrid_DepositFarOutsideRangeIsNoop(t *testing.T) {
	g := singleAxisGrid(t)
	require.NoError(t, g.Deposit([]float64{50.0}, 1.0, []float64{0.05}))

	for k := 0; k < 400; k++ {
		if g.At([]int{k}) != 0 {
			t.Fatalf("node %d modified by out-of-range deposit", k)
		}
	}
}

func TestGrid_DepositDeterministic(t *testing.T) {
	// The parallel splat must be bit-identical across runs.
	reference := singleAxisGrid(t)
	require.NoError(t, reference.Deposit([]float64{0.3}, 1.0, []float64{0.05}))

	for run := 0; run < 5; run++ {
		g := singleAxisGrid(t)
		require.NoError(t, g.Deposit([]float64{0.3}, 1.0, []float64{0.05}))
		for k := 0; k < 400; k++ {
			if g.At([]int{k}) != reference.At([]int{k}) {
				t.Fatalf("run %d: node %d differs from reference", run, k)
			}
		}
	}
}

func TestReadFile_RecoversAxesFromHeader(t *testing.T) {
	g := singleAxisGrid(t)
	require.NoError(t, g.Deposit([]float64{0.3}, 1.0, []float64{0.05}))

	path := t.TempDir() + "/grid.dat"
	require.NoError(t, g.SaveFile(path))

	loaded, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, g.Axes(), loaded.Axes())
	for k := 0; k < 400; k++ {
		assert.Equal(t, g.At([]int{k}), loaded.At([]int{k}))
	}

	_, err = ReadFile(t.TempDir() + "/missing.dat")
	assert.Error(t, err)
}
