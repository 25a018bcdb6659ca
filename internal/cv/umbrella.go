package cv

import "fmt"

// Umbrella is an optional harmonic restraint on a collective variable,
//
//	U = kappa/2 * (s - s0)^2
//
// usable for umbrella sampling with the same variable machinery the bias
// engine uses. The restraint is evaluated alongside the bias potential and
// its force is propagated through the variable's gradient by the same chain
// rule.
type Umbrella struct {
	variable Variable
	kappa    float64
	center   float64
}

// NewUmbrella constructs a harmonic restraint of stiffness kappa (energy per
// squared variable unit) centered at s0.
func NewUmbrella(v Variable, kappa, s0 float64) (*Umbrella, error) {
	if kappa <= 0 {
		return nil, fmt.Errorf("cv: umbrella spring constant must be positive, got %g", kappa)
	}
	return &Umbrella{variable: v, kappa: kappa, center: s0}, nil
}

// Variable returns the restrained collective variable.
func (u *Umbrella) Variable() Variable { return u.variable }

// Energy returns the restraint potential at the snapshot.
func (u *Umbrella) Energy(snap *Snapshot) float64 {
	d := u.variable.Value(snap) - u.center
	return 0.5 * u.kappa * d * d
}

// Forces returns the per-particle restraint forces,
// F_p = -kappa*(s-s0) * grad_p s.
func (u *Umbrella) Forces(snap *Snapshot) []Vec3 {
	d := u.variable.Value(snap) - u.center
	grad := u.variable.Gradient(snap)
	forces := make([]Vec3, len(grad))
	for p, g := range grad {
		forces[p] = g.Scale(-u.kappa * d)
	}
	return forces
}
