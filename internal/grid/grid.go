// Package grid implements the discretized bias-potential representation: an
// n-dimensional array of potential samples over the Cartesian product of
// each collective variable's sampling range.
//
// Depositions are additive Gaussian splats truncated at a configurable
// number of widths per dimension; evaluation is multilinear interpolation
// with points outside the sampled range clamped to the boundary. The
// collective-variable-space gradient is obtained by finite differences of
// one grid spacing, central in the interior and one-sided at the
// boundaries.
package grid

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/csadorf/metadynamics-plugin/internal/constants"
)

// Axis describes the sampling range of one collective variable.
type Axis struct {
	Name   string
	Min    float64
	Max    float64
	Points int
}

// Delta returns the grid spacing of the axis.
func (a Axis) Delta() float64 {
	return (a.Max - a.Min) / float64(a.Points-1)
}

// ValueAt returns the collective-variable value at node k.
func (a Axis) ValueAt(k int) float64 {
	return a.Min + float64(k)*a.Delta()
}

// validate reports whether the axis is usable.
func (a Axis) validate() error {
	if a.Min >= a.Max {
		return fmt.Errorf("%w: axis %q has min %g >= max %g", ErrBadAxis, a.Name, a.Min, a.Max)
	}
	if a.Points < constants.MinGridPoints {
		return fmt.Errorf("%w: axis %q has %d points, need at least %d",
			ErrBadAxis, a.Name, a.Points, constants.MinGridPoints)
	}
	return nil
}

// Index maps between flat array offsets and n-dimensional node coordinates
// in row-major order: the first axis varies slowest.
type Index struct {
	lengths []int
	strides []int
	total   int
}

// NewIndex builds an indexer over the given per-axis lengths.
func NewIndex(lengths []int) Index {
	strides := make([]int, len(lengths))
	total := 1
	for i := len(lengths) - 1; i >= 0; i-- {
		strides[i] = total
		total *= lengths[i]
	}
	return Index{
		lengths: append([]int(nil), lengths...),
		strides: strides,
		total:   total,
	}
}

// Dimension returns the number of axes.
func (ix Index) Dimension() int { return len(ix.lengths) }

// NumElements returns the total number of nodes.
func (ix Index) NumElements() int { return ix.total }

// Length returns the number of nodes along axis i.
func (ix Index) Length(i int) int { return ix.lengths[i] }

// Flatten converts node coordinates to a flat offset.
func (ix Index) Flatten(coords []int) int {
	flat := 0
	for i, c := range coords {
		flat += c * ix.strides[i]
	}
	return flat
}

// Coordinates fills coords with the node coordinates of a flat offset.
func (ix Index) Coordinates(flat int, coords []int) {
	for i, stride := range ix.strides {
		coords[i] = flat / stride
		flat %= stride
	}
}

// Grid is the discretized bias potential. It is exclusively owned by one
// engine; deposition and file loads mutate it in place, evaluation only
// reads it. Not safe for concurrent mutation.
type Grid struct {
	axes []Axis
	ix   Index
	data []float64

	// truncation is the splat cutoff in units of sigma per dimension.
	// Non-positive means exhaustive splats over the whole grid.
	truncation float64
}

// New constructs a zero-valued grid over the given axes.
func New(axes []Axis) (*Grid, error) {
	if len(axes) == 0 {
		return nil, fmt.Errorf("%w: no axes", ErrBadAxis)
	}
	lengths := make([]int, len(axes))
	for i, a := range axes {
		if err := a.validate(); err != nil {
			return nil, err
		}
		lengths[i] = a.Points
	}
	ix := NewIndex(lengths)
	return &Grid{
		axes:       append([]Axis(nil), axes...),
		ix:         ix,
		data:       make([]float64, ix.NumElements()),
		truncation: constants.DefaultTruncation,
	}, nil
}

// SetTruncation overrides the splat cutoff, in units of sigma per dimension.
// A value <= 0 disables truncation.
func (g *Grid) SetTruncation(widths float64) { g.truncation = widths }

// Axes returns the grid axes in registration order. The returned slice is
// shared with the grid; callers must not modify it.
func (g *Grid) Axes() []Axis { return g.axes }

// Dimension returns the number of collective variables sampled by the grid.
func (g *Grid) Dimension() int { return g.ix.Dimension() }

// NumElements returns the total number of grid nodes.
func (g *Grid) NumElements() int { return g.ix.NumElements() }

// At returns the stored potential at the given node coordinates.
func (g *Grid) At(coords []int) float64 { return g.data[g.ix.Flatten(coords)] }

// Deposit adds a separable Gaussian of the given height to every node within
// the truncation box around center. Widths and center have one entry per
// axis. The splat is additive and its cost is bounded by the truncation box,
// not by run length.
func (g *Grid) Deposit(center []float64, height float64, widths []float64) error {
	if len(center) != g.Dimension() || len(widths) != g.Dimension() {
		return fmt.Errorf("%w: got %d center and %d width entries for %d axes",
			ErrDimensionMismatch, len(center), len(widths), g.Dimension())
	}

	// Per-axis node ranges and separable kernel factors. The n-dimensional
	// Gaussian is the product of the per-axis factors, so each factor is
	// computed once per axis instead of once per node.
	lo := make([]int, g.Dimension())
	factors := make([][]float64, g.Dimension())
	for i, a := range g.axes {
		first, last := 0, a.Points-1
		if g.truncation > 0 {
			reach := g.truncation * widths[i]
			first = int(math.Ceil((center[i] - reach - a.Min) / a.Delta()))
			last = int(math.Floor((center[i] + reach - a.Min) / a.Delta()))
			if first < 0 {
				first = 0
			}
			if last > a.Points-1 {
				last = a.Points - 1
			}
			if first > last {
				// Hill center too far outside the sampled range to touch
				// any node along this axis; nothing to deposit.
				return nil
			}
		}
		lo[i] = first
		f := make([]float64, last-first+1)
		for k := range f {
			d := a.ValueAt(first+k) - center[i]
			f[k] = math.Exp(-d * d / (2 * widths[i] * widths[i]))
		}
		factors[i] = f
	}

	// Split the outermost axis range into contiguous chunks, one per
	// worker. Row-major layout makes each outer slice a disjoint region of
	// the flat array, and every node value is an independent product, so
	// the result is identical to the sequential splat.
	outer := len(factors[0])
	workers := runtime.GOMAXPROCS(0)
	if workers > outer {
		workers = outer
	}
	chunk := (outer + workers - 1) / workers

	var eg errgroup.Group
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > outer {
			end = outer
		}
		eg.Go(func() error {
			for k0 := start; k0 < end; k0++ {
				g.splatSlice(k0, lo, factors, height)
			}
			return nil
		})
	}
	return eg.Wait()
}

// splatSlice deposits into the slice of the grid where the outermost axis is
// fixed at lo[0]+k0.
func (g *Grid) splatSlice(k0 int, lo []int, factors [][]float64, height float64) {
	coords := make([]int, g.Dimension())
	coords[0] = lo[0] + k0
	g.splatAxis(1, coords, lo, factors, height*factors[0][k0])
}

// splatAxis recurses over the remaining axes, accumulating the separable
// kernel product.
func (g *Grid) splatAxis(axis int, coords, lo []int, factors [][]float64, partial float64) {
	if axis == g.Dimension() {
		g.data[g.ix.Flatten(coords)] += partial
		return
	}
	for k, f := range factors[axis] {
		coords[axis] = lo[axis] + k
		g.splatAxis(axis+1, coords, lo, factors, partial*f)
	}
}

// Evaluate returns the multilinearly interpolated potential at the given
// point and the finite-difference gradient with respect to each collective
// variable. Out-of-range coordinates are clamped to the sampled boundary;
// their gradient entries carry the one-sided boundary slope.
func (g *Grid) Evaluate(point []float64) (potential float64, gradient []float64, err error) {
	if len(point) != g.Dimension() {
		return 0, nil, fmt.Errorf("%w: got %d coordinates for %d axes",
			ErrDimensionMismatch, len(point), g.Dimension())
	}

	potential = g.interpolate(point)
	gradient = make([]float64, g.Dimension())

	shifted := append([]float64(nil), point...)
	for i, a := range g.axes {
		delta := a.Delta()
		switch {
		case point[i] <= a.Min:
			// Clamped below (or exactly on the lower boundary): the slope
			// between the boundary node and its interior neighbor, so the
			// bias keeps pushing an escaped walker back into range.
			shifted[i] = a.Min + delta
			gradient[i] = (g.interpolate(shifted) - potential) / delta
		case point[i] >= a.Max:
			// Clamped above: same, one-sided from the upper boundary.
			shifted[i] = a.Max - delta
			gradient[i] = (potential - g.interpolate(shifted)) / delta
		case point[i]-delta < a.Min:
			// forward difference
			shifted[i] = point[i] + delta
			gradient[i] = (g.interpolate(shifted) - potential) / delta
		case point[i]+delta > a.Max:
			// backward difference
			shifted[i] = point[i] - delta
			gradient[i] = (potential - g.interpolate(shifted)) / delta
		default:
			shifted[i] = point[i] + delta
			hi := g.interpolate(shifted)
			shifted[i] = point[i] - delta
			lo := g.interpolate(shifted)
			gradient[i] = (hi - lo) / (2 * delta)
		}
		shifted[i] = point[i]
	}

	return potential, gradient, nil
}

// interpolate returns the multilinear interpolation of the stored potential
// at point, with each coordinate clamped into its axis range.
func (g *Grid) interpolate(point []float64) float64 {
	dim := g.Dimension()
	lower := make([]int, dim)
	frac := make([]float64, dim)

	for i, a := range g.axes {
		p := point[i]
		if p <= a.Min {
			lower[i], frac[i] = 0, 0
			continue
		}
		if p >= a.Max {
			lower[i], frac[i] = a.Points-2, 1
			continue
		}
		delta := a.Delta()
		k := int((p - a.Min) / delta)
		if k > a.Points-2 {
			k = a.Points - 2
		}
		f := (p - a.ValueAt(k)) / delta

		// Snap float round-off so that a point exactly on a node returns
		// the stored node value exactly.
		const eps = 1e-12
		switch {
		case f < eps:
			f = 0
		case f > 1-eps:
			if k < a.Points-2 {
				k++
				f = 0
			} else {
				f = 1
			}
		}
		lower[i] = k
		frac[i] = f
	}

	// Sum over the 2^dim corners of the bracketing cell.
	coords := make([]int, dim)
	result := 0.0
	for corner := 0; corner < 1<<dim; corner++ {
		weight := 1.0
		for i := 0; i < dim; i++ {
			if corner&(1<<i) != 0 {
				coords[i] = lower[i] + 1
				weight *= frac[i]
			} else {
				coords[i] = lower[i]
				weight *= 1 - frac[i]
			}
		}
		result += weight * g.data[g.ix.Flatten(coords)]
	}
	return result
}
