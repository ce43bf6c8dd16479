package cp

import (
	"fmt"
	"strings"
)

// ConstraintStatus tracks where a constraint is in its lifecycle.
type ConstraintStatus int

const (
	Free ConstraintStatus = iota
	Posted
)

func (s ConstraintStatus) String() string {
	if s == Posted {
		return "POSTED"
	}
	return "FREE"
}

// Constraint groups the propagators that together enforce one relation.
type Constraint struct {
	name   string
	props  []Propagator
	status ConstraintStatus
	regs   []*registration
	// posts counts links, so a rollback hook can tell its own posting from
	// a later one.
	posts int
}

// NewConstraint returns a free constraint made of props.
func NewConstraint(name string, props ...Propagator) *Constraint {
	return &Constraint{
		name:  name,
		props: props,
	}
}

func (c *Constraint) Name() string              { return c.name }
func (c *Constraint) Status() ConstraintStatus  { return c.status }
func (c *Constraint) Propagators() []Propagator { return c.props }

// Entailed combines the entailment of all propagators: false if any is
// false, true if all are true.
func (c *Constraint) Entailed() Entailment {
	all := true
	for _, p := range c.props {
		switch p.Entailed() {
		case EntailFalse:
			return EntailFalse
		case EntailUndefined:
			all = false
		}
	}
	if all {
		return EntailTrue
	}
	return EntailUndefined
}

func (c *Constraint) String() string {
	names := make([]string, len(c.props))
	for i, p := range c.props {
		names[i] = propagatorName(p)
	}
	return fmt.Sprintf("%s(%s)", c.name, strings.Join(names, ", "))
}

type trueProp struct{}

func (trueProp) Vars() []*IntVar        { return nil }
func (trueProp) Priority() Priority     { return PriorityUnary }
func (trueProp) Interest(int) EventKind { return Instantiate }
func (trueProp) Propagate() error       { return nil }
func (trueProp) Entailed() Entailment   { return EntailTrue }

type falseProp struct{}

func (falseProp) Vars() []*IntVar        { return nil }
func (falseProp) Priority() Priority     { return PriorityUnary }
func (falseProp) Interest(int) EventKind { return Instantiate }
func (falseProp) Propagate() error       { return Fail("false constraint") }
func (falseProp) Entailed() Entailment   { return EntailFalse }

// TrueConstraint returns a constraint that never filters.
func TrueConstraint() *Constraint {
	return NewConstraint("true", trueProp{})
}

// FalseConstraint returns a constraint that fails as soon as it is
// propagated.
func FalseConstraint() *Constraint {
	return NewConstraint("false", falseProp{})
}
