package search

import (
	"fmt"

	"github.com/operator-framework/deppy-fd/pkg/cp"
)

// Operator is the kind of branching a decision performs.
type Operator int

const (
	// Assign branches on x = v, then x != v.
	Assign Operator = iota
	// Split branches on x <= v, then x > v.
	Split
)

// Decision is one branching choice on the search path.
type Decision struct {
	Var   *cp.IntVar
	Op    Operator
	Value int
	// Refuted is set once the decision has been replaced by its negation.
	Refuted bool
}

func (d Decision) String() string {
	name := d.Var.Name()
	switch {
	case d.Op == Assign && !d.Refuted:
		return fmt.Sprintf("%s = %d", name, d.Value)
	case d.Op == Assign:
		return fmt.Sprintf("%s != %d", name, d.Value)
	case !d.Refuted:
		return fmt.Sprintf("%s <= %d", name, d.Value)
	}
	return fmt.Sprintf("%s > %d", name, d.Value)
}

func (d Decision) apply() error {
	var err error
	switch {
	case d.Op == Assign && !d.Refuted:
		_, err = d.Var.Instantiate(d.Value)
	case d.Op == Assign:
		_, err = d.Var.RemoveValue(d.Value)
	case !d.Refuted:
		_, err = d.Var.UpdateUpperBound(d.Value)
	default:
		_, err = d.Var.UpdateLowerBound(d.Value + 1)
	}
	return err
}

// node is a decision on the stack together with the mark taken just before
// it was applied.
type node struct {
	Decision
	mark cp.Mark
}

// newDecision turns the choice of a value selector into a decision whose
// negation the variable can represent. Interval domains cannot lose an
// interior value, so assigning one of their interior values becomes a split.
func newDecision(x *cp.IntVar, op Operator, v int) Decision {
	if op == Assign && !x.Enumerated() && v != x.Min() && v != x.Max() {
		return Decision{Var: x, Op: Split, Value: v}
	}
	if op == Split {
		v = max(min(v, x.Max()-1), x.Min())
	}
	return Decision{Var: x, Op: op, Value: v}
}
