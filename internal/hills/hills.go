// Package hills implements the closed-form bias-potential representation:
// an append-only history of deposited Gaussians summed on every evaluation.
//
// This mode trades memory and time for exactness: evaluation cost grows
// linearly with the number of hills deposited so far, which is the
// documented slow-down of long off-grid runs. The grid representation in
// the grid package avoids that growth at the price of discretization.
package hills

import "math"

// Hill is one deposited Gaussian. It is immutable once appended: Center and
// Widths have one entry per collective variable in registration order, and
// Height already includes the well-tempered scale factor applied at
// deposition time.
type Hill struct {
	Step   uint64
	Center []float64
	Height float64
	Widths []float64
}

// Set is an append-only ordered history of hills. Insertion order is
// deposition order is time order; hills are never mutated, removed, or
// reordered. Evaluation itself is order-independent (the sum commutes), but
// the well-tempered height of each new hill depends on the potential
// accumulated so far, so replay must preserve order.
type Set struct {
	hills []Hill
}

// NewSet returns an empty hill history.
func NewSet() *Set { return &Set{} }

// Len returns the number of deposited hills.
func (s *Set) Len() int { return len(s.hills) }

// Hills returns the deposition history in order. The returned slice is
// shared with the set; callers must not modify it.
func (s *Set) Hills() []Hill { return s.hills }

// Deposit appends a hill. Center and widths are copied.
func (s *Set) Deposit(h Hill) {
	s.hills = append(s.hills, Hill{
		Step:   h.Step,
		Center: append([]float64(nil), h.Center...),
		Height: h.Height,
		Widths: append([]float64(nil), h.Widths...),
	})
}

// Evaluate sums every deposited Gaussian and its analytic gradient at the
// given point in collective-variable space:
//
//	V(s)        = sum_h height * exp(-sum_i (s_i-c_i)^2 / (2*w_i^2))
//	dV/ds_i (s) = sum_h -height * (s_i-c_i)/w_i^2 * exp(...)
//
// The gradient slice has one entry per collective variable. Cost is
// O(len(point) * number of hills).
func (s *Set) Evaluate(point []float64) (potential float64, gradient []float64) {
	gradient = make([]float64, len(point))

	for _, h := range s.hills {
		exponent := 0.0
		for i, p := range point {
			d := p - h.Center[i]
			exponent += d * d / (2 * h.Widths[i] * h.Widths[i])
		}
		gauss := h.Height * math.Exp(-exponent)

		potential += gauss
		for i, p := range point {
			d := p - h.Center[i]
			gradient[i] -= gauss * d / (h.Widths[i] * h.Widths[i])
		}
	}

	return potential, gradient
}
