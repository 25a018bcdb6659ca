package cv

import (
	"fmt"
	"math"
)

// Lamellar is a collective variable for studying ordering transitions in
// block-copolymer systems. It projects the per-species density onto a set of
// Fourier modes of the simulation box:
//
//	s = (1/N) * sum_k sum_j a(type_j) * cos(q_k . r_j + phi_k)
//
// where q_k = 2*pi*(n_x/Lx, n_y/Ly, n_z/Lz) is the wave vector built from
// the integer lattice vector n_k, phi_k its phase shift, and a(type) the
// per-species mode amplitude. The gradient with respect to particle j is
//
//	grad_j s = -(1/N) * sum_k a(type_j) * sin(q_k . r_j + phi_k) * q_k
type Lamellar struct {
	name       string
	sigma      float64
	grid       *GridSpec
	amplitudes []float64 // indexed by species type index
	vectors    [][3]int
	phases     []float64

	cache stepCache
}

// stepCache memoizes one (value, gradient) evaluation keyed by step index,
// so that Value and Gradient requested within the same step cost a single
// pass over the particles.
type stepCache struct {
	valid bool
	step  uint64
	value float64
	grad  []Vec3
}

// LamellarParams configures a Lamellar collective variable.
type LamellarParams struct {
	// Name identifies the variable in logs and grid files.
	Name string

	// Sigma is the Gaussian deposition width. Must be positive.
	Sigma float64

	// Grid optionally enables grid mode with a sampling range.
	Grid *GridSpec

	// Amplitudes maps a species name to its mode amplitude. Every species
	// listed in Species must be present.
	Amplitudes map[string]float64

	// LatticeVectors are the Miller indices of the modes. Each entry must
	// be an integer triple and the list must be non-empty.
	LatticeVectors [][]int

	// Phases are the per-mode phase shifts. Must match LatticeVectors in
	// length.
	Phases []float64

	// Species lists the particle type names present in the system, in type
	// index order.
	Species []string
}

// NewLamellar constructs a lamellar order parameter. All configuration
// errors are raised here, never at step time.
func NewLamellar(p LamellarParams) (*Lamellar, error) {
	if p.Sigma <= 0 {
		return nil, fmt.Errorf("%w: sigma=%g for %q", ErrBadSigma, p.Sigma, p.Name)
	}
	if len(p.LatticeVectors) == 0 {
		return nil, fmt.Errorf("%w (variable %q)", ErrEmptyLatticeVectors, p.Name)
	}
	if len(p.Phases) != len(p.LatticeVectors) {
		return nil, fmt.Errorf("%w: %d phases for %d lattice vectors",
			ErrPhaseCountMismatch, len(p.Phases), len(p.LatticeVectors))
	}
	if p.Grid != nil {
		if err := validateGrid(p.Grid); err != nil {
			return nil, err
		}
	}

	vectors := make([][3]int, len(p.LatticeVectors))
	for i, lv := range p.LatticeVectors {
		if len(lv) != 3 {
			return nil, fmt.Errorf("%w: vector %d has %d components",
				ErrBadLatticeVector, i, len(lv))
		}
		vectors[i] = [3]int{lv[0], lv[1], lv[2]}
	}

	amplitudes := make([]float64, len(p.Species))
	for i, species := range p.Species {
		a, ok := p.Amplitudes[species]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingAmplitude, species)
		}
		amplitudes[i] = a
	}

	name := p.Name
	if name == "" {
		name = "lamellar"
	}

	return &Lamellar{
		name:       name,
		sigma:      p.Sigma,
		grid:       p.Grid,
		amplitudes: amplitudes,
		vectors:    vectors,
		phases:     append([]float64(nil), p.Phases...),
	}, nil
}

func validateGrid(g *GridSpec) error {
	if g.Min >= g.Max {
		return fmt.Errorf("%w: min %g >= max %g", ErrBadGridRange, g.Min, g.Max)
	}
	if g.Points < 2 {
		return fmt.Errorf("%w: need at least 2 points, got %d", ErrBadGridRange, g.Points)
	}
	return nil
}

// Name implements Variable.
func (l *Lamellar) Name() string { return l.name }

// Sigma implements Variable.
func (l *Lamellar) Sigma() float64 { return l.sigma }

// Grid implements Variable.
func (l *Lamellar) Grid() *GridSpec { return l.grid }

// Value implements Variable.
func (l *Lamellar) Value(snap *Snapshot) float64 {
	l.compute(snap)
	return l.cache.value
}

// Gradient implements Variable.
func (l *Lamellar) Gradient(snap *Snapshot) []Vec3 {
	l.compute(snap)
	return l.cache.grad
}

// compute evaluates the order parameter and its gradient in a single pass
// and memoizes the result for the snapshot's step index.
func (l *Lamellar) compute(snap *Snapshot) {
	if l.cache.valid && l.cache.step == snap.Step {
		return
	}

	n := snap.NumParticles()
	grad := make([]Vec3, n)
	value := 0.0
	norm := 1.0 / float64(n)

	for k, lv := range l.vectors {
		q := Vec3{
			X: 2 * math.Pi * float64(lv[0]) / snap.Box.Lx,
			Y: 2 * math.Pi * float64(lv[1]) / snap.Box.Ly,
			Z: 2 * math.Pi * float64(lv[2]) / snap.Box.Lz,
		}
		phi := l.phases[k]

		for j, r := range snap.Positions {
			a := l.amplitudes[snap.Species[j]]
			arg := q.Dot(r) + phi
			value += a * math.Cos(arg)
			grad[j] = grad[j].Add(q.Scale(-a * math.Sin(arg) * norm))
		}
	}

	l.cache = stepCache{
		valid: true,
		step:  snap.Step,
		value: value * norm,
		grad:  grad,
	}
}
