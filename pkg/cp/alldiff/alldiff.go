// Package alldiff provides the all-different constraint: every variable must
// take a value distinct from the others.
//
// Filtering is split between two propagators. A cheap instantiation filter
// removes the value of each fixed variable from the others, and a
// bounds-consistency filter tightens the bounds of every variable with Hall
// interval reasoning.
package alldiff

import (
	"github.com/operator-framework/deppy-fd/pkg/cp"
)

// New returns an all-different constraint filtered by both the instantiation
// and the bounds-consistency propagators.
func New(vars ...*cp.IntVar) (*cp.Constraint, error) {
	if err := validate(vars); err != nil {
		return nil, err
	}
	return cp.NewConstraint("alldifferent", newInstPropagator(vars), newBoundsPropagator(vars)), nil
}

// NewBoundsOnly returns an all-different constraint filtered by the
// bounds-consistency propagator alone.
func NewBoundsOnly(vars ...*cp.IntVar) (*cp.Constraint, error) {
	if err := validate(vars); err != nil {
		return nil, err
	}
	return cp.NewConstraint("alldifferent_bc", newBoundsPropagator(vars)), nil
}

func validate(vars []*cp.IntVar) error {
	if len(vars) == 0 {
		return cp.ConfigError("alldifferent: no variables")
	}
	seen := make(map[*cp.IntVar]struct{}, len(vars))
	for i, x := range vars {
		if x == nil {
			return cp.ConfigError("alldifferent: variable %d is nil", i)
		}
		if _, ok := seen[x]; ok {
			return cp.ConfigError("alldifferent: variable %s appears twice", x.Name())
		}
		seen[x] = struct{}{}
	}
	return nil
}

// entailment is shared by both propagators: true once every variable is
// fixed to a distinct value, false as soon as two fixed variables collide.
func entailment(vars []*cp.IntVar) cp.Entailment {
	all := true
	fixed := make(map[int]struct{}, len(vars))
	for _, x := range vars {
		if !x.IsFixed() {
			all = false
			continue
		}
		if _, ok := fixed[x.Value()]; ok {
			return cp.EntailFalse
		}
		fixed[x.Value()] = struct{}{}
	}
	if all {
		return cp.EntailTrue
	}
	return cp.EntailUndefined
}
