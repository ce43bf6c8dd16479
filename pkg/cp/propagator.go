package cp

import (
	"fmt"

	"github.com/operator-framework/deppy-fd/internal/trail"
)

// Priority orders propagators in the engine queue. Cheaper propagators run
// first; priority never affects the fixpoint that is reached.
type Priority uint8

const (
	PriorityUnary Priority = iota
	PriorityBinary
	PriorityTernary
	PriorityLinear
	PriorityQuadratic
	PriorityCubic
	PriorityVerySlow

	numPriorities = int(PriorityVerySlow) + 1
)

// Entailment is the three-valued answer of a propagator's entailment check.
type Entailment int8

const (
	// EntailUndefined means the propagator may still filter.
	EntailUndefined Entailment = iota
	// EntailTrue means every remaining assignment satisfies the propagator.
	EntailTrue
	// EntailFalse means no remaining assignment satisfies the propagator.
	EntailFalse
)

func (e Entailment) String() string {
	switch e {
	case EntailTrue:
		return "TRUE"
	case EntailFalse:
		return "FALSE"
	}
	return "UNDEFINED"
}

// Propagator is a filtering algorithm over a fixed set of variables.
// Propagate must read domains afresh on every call and must terminate in
// bounded time; it reports infeasibility by returning the error of the
// failing domain operation, or one built with Fail.
type Propagator interface {
	// Vars returns the variables the propagator watches. The slice must
	// not change after posting.
	Vars() []*IntVar
	Priority() Priority
	// Interest returns the minimal event kind on Vars()[i] that should wake
	// the propagator.
	Interest(i int) EventKind
	Propagate() error
	Entailed() Entailment
}

func propagatorName(p Propagator) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", p)
}

// registration is the engine-side state of one posted propagator.
type registration struct {
	prop       Propagator
	constraint *Constraint
	priority   Priority
	queued     bool
	active     bool
	// passive is a reversible flag set once the propagator is entailed.
	passive trail.Cell
}
