// Package satcheck decides the satisfiability of CNF formulas with an
// off-the-shelf SAT solver. It is independent of the CP engine and serves as
// an oracle for it.
package satcheck

import (
	"fmt"

	"github.com/crillab/gophersat/solver"
	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

// Backend names a SAT solver.
type Backend string

const (
	Gini      Backend = "gini"
	Gophersat Backend = "gophersat"
)

const (
	satisfiable = 1
)

// Result is the outcome of Check. Model holds the truth value of variable i
// at index i-1 and is only set when Satisfiable is true.
type Result struct {
	Satisfiable bool
	Model       []bool
}

// Holds reports whether the model satisfies every clause.
func (r Result) Holds(clauses [][]int) bool {
	if !r.Satisfiable {
		return false
	}
	for _, c := range clauses {
		ok := false
		for _, l := range c {
			v := abs(l)
			if v <= len(r.Model) && r.Model[v-1] == (l > 0) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// Check decides clauses, given in DIMACS literal form over nvars variables,
// with the selected backend.
func Check(b Backend, nvars int, clauses [][]int) (Result, error) {
	if err := validate(nvars, clauses); err != nil {
		return Result{}, err
	}
	switch b {
	case Gini, "":
		return checkGini(nvars, clauses), nil
	case Gophersat:
		return checkGophersat(nvars, clauses), nil
	}
	return Result{}, fmt.Errorf("unknown sat backend %q", b)
}

func validate(nvars int, clauses [][]int) error {
	for i, c := range clauses {
		for _, l := range c {
			if l == 0 || abs(l) > nvars {
				return fmt.Errorf("clause %d: literal %d out of range [1,%d]", i, l, nvars)
			}
		}
	}
	return nil
}

func checkGini(nvars int, clauses [][]int) Result {
	g := gini.New()
	for _, c := range clauses {
		for _, l := range c {
			g.Add(z.Dimacs2Lit(l))
		}
		g.Add(z.LitNull)
	}
	if g.Solve() != satisfiable {
		return Result{}
	}
	model := make([]bool, nvars)
	for i := range model {
		model[i] = g.Value(z.Dimacs2Lit(i + 1))
	}
	return Result{Satisfiable: true, Model: model}
}

func checkGophersat(nvars int, clauses [][]int) Result {
	if len(clauses) == 0 {
		return Result{Satisfiable: true, Model: make([]bool, nvars)}
	}
	for _, c := range clauses {
		if len(c) == 0 {
			return Result{}
		}
	}
	pb := solver.ParseSlice(clauses)
	s := solver.New(pb)
	if s.Solve() != solver.Sat {
		return Result{}
	}
	// The solver only knows variables that occur in some clause.
	model := make([]bool, nvars)
	copy(model, s.Model())
	return Result{Satisfiable: true, Model: model}
}

func abs(l int) int {
	if l < 0 {
		return -l
	}
	return l
}
