// Package cp is the constraint network: finite-domain variables backed by a
// reversible store, the propagators that watch them, and the engine that runs
// those propagators to a fixpoint.
package cp

import (
	"fmt"
	"math"
	"slices"

	"github.com/go-logr/logr"

	"github.com/operator-framework/deppy-fd/internal/trail"
)

// maxEnumeratedSpan bounds the number of bits an enumerated domain may
// allocate.
const maxEnumeratedSpan = 1 << 24

// MinValue and MaxValue bound every domain value, so that domain sizes and
// the arithmetic of the propagators stay within int.
const (
	MinValue = math.MinInt / 4
	MaxValue = math.MaxInt / 4
)

func checkRange(name string, lo, hi int) error {
	if lo > hi {
		return configError("variable %s: empty range [%d,%d]", name, lo, hi)
	}
	if lo < MinValue || hi > MaxValue {
		return configError("variable %s: range [%d,%d] outside [%d,%d]", name, lo, hi, MinValue, MaxValue)
	}
	return nil
}

// Mark is a checkpoint of the network's reversible state.
type Mark = trail.Mark

// Network owns the variables, the posted constraints and the engine.
type Network struct {
	store       *trail.Store
	vars        []*IntVar
	constraints []*Constraint
	engine      *Engine
	log         logr.Logger
	// failed is non-zero from a contradiction until the rollback that undoes
	// it. A failure below every mark is permanent.
	failed trail.Cell
	// propagated is set once the network has been propagated at least once.
	propagated bool
}

// Option configures a Network.
type Option func(n *Network)

// WithLogger sets the logger used for posting and unposting.
func WithLogger(l logr.Logger) Option {
	return func(n *Network) {
		n.log = l
	}
}

func NewNetwork(options ...Option) *Network {
	n := &Network{
		store: trail.New(),
		log:   logr.Discard(),
	}
	n.failed = n.store.NewCell(0)
	n.engine = newEngine(n)
	for _, option := range options {
		option(n)
	}
	return n
}

// Vars returns every variable in creation order.
func (n *Network) Vars() []*IntVar {
	return n.vars
}

// Constraints returns the posted constraints.
func (n *Network) Constraints() []*Constraint {
	return n.constraints
}

func (n *Network) Engine() *Engine {
	return n.engine
}

func (n *Network) addVar(name string, d domain) *IntVar {
	x := &IntVar{
		id:   VarID(len(n.vars)),
		name: name,
		net:  n,
		dom:  d,
	}
	n.vars = append(n.vars, x)
	return x
}

// NewIntervalVar creates a variable whose domain is the interval [lo, hi].
// It supports bound operations only.
func (n *Network) NewIntervalVar(name string, lo, hi int) (*IntVar, error) {
	if err := checkRange(name, lo, hi); err != nil {
		return nil, err
	}
	return n.addVar(name, newIntervalDomain(n.store, lo, hi)), nil
}

// NewEnumVar creates a variable with the explicit domain {lo, ..., hi}.
func (n *Network) NewEnumVar(name string, lo, hi int) (*IntVar, error) {
	if err := checkRange(name, lo, hi); err != nil {
		return nil, err
	}
	if hi-lo >= maxEnumeratedSpan {
		return nil, configError("variable %s: range [%d,%d] too large for an enumerated domain", name, lo, hi)
	}
	values := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		values = append(values, v)
	}
	return n.addVar(name, newBitsetDomain(n.store, values)), nil
}

// NewEnumVarOf creates a variable whose domain is exactly values.
func (n *Network) NewEnumVarOf(name string, values ...int) (*IntVar, error) {
	if len(values) == 0 {
		return nil, configError("variable %s: no values", name)
	}
	lo, hi := slices.Min(values), slices.Max(values)
	if err := checkRange(name, lo, hi); err != nil {
		return nil, err
	}
	if hi-lo >= maxEnumeratedSpan {
		return nil, configError("variable %s: values span [%d,%d] too large for an enumerated domain", name, lo, hi)
	}
	return n.addVar(name, newBitsetDomain(n.store, values)), nil
}

// NewBoolVar creates an enumerated variable over {0, 1}.
func (n *Network) NewBoolVar(name string) *IntVar {
	return n.addVar(name, newBitsetDomain(n.store, []int{0, 1}))
}

// Level returns the current decision level.
func (n *Network) Level() int {
	return n.store.Level()
}

// Checkpoint saves the current state of every domain and constraint.
func (n *Network) Checkpoint() Mark {
	return n.store.Checkpoint()
}

// Rollback restores the state saved by m and discards pending events.
func (n *Network) Rollback(m Mark) error {
	if n.engine.state == Running {
		return &ProtocolError{Op: "rollback", Msg: "propagation in progress"}
	}
	if err := n.store.Rollback(m); err != nil {
		return &ProtocolError{Op: "rollback", Msg: fmt.Sprintf("mark %d", m), Err: err}
	}
	n.engine.clear()
	n.engine.state = Idle
	return nil
}

// Propagate runs the engine to a fixpoint. It returns a *Contradiction if a
// domain was wiped out, or if an earlier failure has not been rolled back.
func (n *Network) Propagate() error {
	if n.engine.state == Running {
		return &ProtocolError{Op: "propagate", Msg: "propagation in progress"}
	}
	n.propagated = true
	if n.Failed() {
		n.engine.clear()
		n.engine.state = Failed
		return &Contradiction{Msg: "network failed earlier and was not rolled back"}
	}
	return n.engine.propagate()
}

// Failed reports whether a contradiction happened since the last checkpoint
// still in effect.
func (n *Network) Failed() bool {
	return n.store.Get(n.failed) != 0
}

func (n *Network) markFailed() {
	n.store.Set(n.failed, 1)
}

// Post links c's propagators to their variables and runs an initial
// filtering pass. The returned error is a *Contradiction when that pass
// fails; c stays posted and the caller rolls back.
func (n *Network) Post(c *Constraint) error {
	if err := n.link(c, "post"); err != nil {
		return err
	}
	return n.Propagate()
}

// PostTemp posts c until search backtracks above the current level. It is
// only legal once the network has been propagated.
func (n *Network) PostTemp(c *Constraint) error {
	if !n.propagated {
		return &ProtocolError{Op: "post temporary", Msg: "network has not been propagated yet, use Post"}
	}
	if err := n.link(c, "post temporary"); err != nil {
		return err
	}
	posting := c.posts
	n.store.OnRollback(func() {
		if c.status == Posted && c.posts == posting {
			n.unlink(c)
		}
	})
	return n.Propagate()
}

// Unpost removes c's propagators from the network.
func (n *Network) Unpost(c *Constraint) error {
	if n.engine.state == Running {
		return &ProtocolError{Op: "unpost", Msg: fmt.Sprintf("constraint %s: propagation in progress", c.name)}
	}
	if c.status != Posted {
		return &ProtocolError{Op: "unpost", Msg: fmt.Sprintf("constraint %s is not posted", c.name)}
	}
	n.unlink(c)
	return nil
}

func (n *Network) link(c *Constraint, op string) error {
	if n.engine.state == Running {
		return &ProtocolError{Op: op, Msg: fmt.Sprintf("constraint %s: propagation in progress", c.name)}
	}
	if c.status == Posted {
		return &ProtocolError{Op: op, Msg: fmt.Sprintf("constraint %s is already posted", c.name)}
	}
	for _, p := range c.props {
		for _, x := range p.Vars() {
			if x.net != n {
				return configError("constraint %s: variable %s belongs to another network", c.name, x.name)
			}
		}
	}
	c.regs = make([]*registration, len(c.props))
	for i, p := range c.props {
		r := &registration{
			prop:       p,
			constraint: c,
			priority:   p.Priority(),
			active:     true,
			passive:    n.store.NewCell(0),
		}
		c.regs[i] = r
		for j, x := range p.Vars() {
			k := p.Interest(j)
			x.watchers[k] = append(x.watchers[k], r)
		}
		n.engine.schedule(r)
	}
	c.status = Posted
	c.posts++
	n.constraints = append(n.constraints, c)
	n.log.V(1).Info("posted constraint", "constraint", c.String(), "level", n.Level())
	return nil
}

func (n *Network) unlink(c *Constraint) {
	for i, r := range c.regs {
		r.active = false
		for j, x := range c.props[i].Vars() {
			k := c.props[i].Interest(j)
			x.watchers[k] = slices.DeleteFunc(x.watchers[k], func(w *registration) bool { return w == r })
		}
	}
	c.regs = nil
	c.status = Free
	n.constraints = slices.DeleteFunc(n.constraints, func(o *Constraint) bool { return o == c })
	n.log.V(1).Info("unposted constraint", "constraint", c.String(), "level", n.Level())
}
