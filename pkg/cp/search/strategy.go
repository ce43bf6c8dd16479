package search

import (
	"github.com/operator-framework/deppy-fd/pkg/cp"
)

// VarSelector picks the next variable to branch on among vars, or returns
// nil when every variable is fixed.
type VarSelector func(vars []*cp.IntVar) *cp.IntVar

// ValueSelector picks how to branch on a variable that is not fixed.
type ValueSelector func(x *cp.IntVar) (Operator, int)

// InputOrder selects the first free variable.
func InputOrder(vars []*cp.IntVar) *cp.IntVar {
	for _, x := range vars {
		if !x.IsFixed() {
			return x
		}
	}
	return nil
}

// FirstFail selects the free variable with the smallest domain, the first
// one in input order on ties.
func FirstFail(vars []*cp.IntVar) *cp.IntVar {
	var best *cp.IntVar
	for _, x := range vars {
		if x.IsFixed() {
			continue
		}
		if best == nil || x.Size() < best.Size() {
			best = x
		}
	}
	return best
}

// Min assigns the lower bound.
func Min(x *cp.IntVar) (Operator, int) {
	return Assign, x.Min()
}

// Max assigns the upper bound.
func Max(x *cp.IntVar) (Operator, int) {
	return Assign, x.Max()
}

// Mid splits the domain in two halves around its midpoint.
func Mid(x *cp.IntVar) (Operator, int) {
	lo, hi := x.Min(), x.Max()
	return Split, lo + (hi-lo)/2
}
