package mdd

import (
	"github.com/operator-framework/deppy-fd/pkg/cp"
)

// Table returns a constraint restricting vars to the given tuples.
func Table(vars []*cp.IntVar, tuples *Tuples, opts ...Option) (*cp.Constraint, error) {
	m, err := New(vars, tuples, opts...)
	if err != nil {
		return nil, err
	}
	return NewConstraint(m), nil
}

// NewConstraint returns a constraint restricting the diagram's variables to
// the tuples it accepts.
func NewConstraint(m *MDD) *cp.Constraint {
	return cp.NewConstraint("mdd", newPropagator(m))
}

// propagator removes every value that no path from the root to the accept
// terminal supports under the current domains. Nodes are explored depth
// first and each is solved once per call.
type propagator struct {
	m *MDD

	epoch     uint32
	visited   []uint32
	alive     []bool
	supported [][]bool
}

func newPropagator(m *MDD) *propagator {
	p := &propagator{
		m:         m,
		visited:   make([]uint32, len(m.table)),
		alive:     make([]bool, len(m.table)),
		supported: make([][]bool, len(m.sizes)),
	}
	for l, size := range m.sizes {
		p.supported[l] = make([]bool, size)
	}
	return p
}

func (p *propagator) Vars() []*cp.IntVar        { return p.m.vars }
func (p *propagator) Priority() cp.Priority     { return cp.PriorityQuadratic }
func (p *propagator) Interest(int) cp.EventKind { return cp.Remove }
func (p *propagator) String() string            { return "mdd" }

func (p *propagator) Propagate() error {
	p.epoch++
	if p.epoch == 0 {
		clear(p.visited)
		p.epoch = 1
	}
	for _, s := range p.supported {
		clear(s)
	}
	if !p.walk(0, 0) {
		return cp.Fail("no tuple left in the diagram")
	}
	m := p.m
	for l, x := range m.vars {
		if x.Size() == 1 {
			continue
		}
		for _, v := range x.Values() {
			i := v - m.offsets[l]
			if i >= 0 && i < m.sizes[l] && p.supported[l][i] {
				continue
			}
			if _, err := x.RemoveValue(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// walk reports whether the node at start, on layer l, reaches the accept
// terminal through values still in the domains, recording every edge on such
// a path.
func (p *propagator) walk(start, l int) bool {
	if p.visited[start] == p.epoch {
		return p.alive[start]
	}
	m := p.m
	x := m.vars[l]
	last := l == len(m.sizes)-1
	alive := false
	for i := 0; i < m.sizes[l]; i++ {
		next := m.table[start+i]
		if next == Reject || !x.Contains(m.offsets[l]+i) {
			continue
		}
		if (last && next == Accept) || (!last && p.walk(next, l+1)) {
			alive = true
			p.supported[l][i] = true
		}
	}
	p.visited[start] = p.epoch
	p.alive[start] = alive
	return alive
}

// Entailed is decided once every variable is fixed.
func (p *propagator) Entailed() cp.Entailment {
	tuple := make([]int, len(p.m.vars))
	for i, x := range p.m.vars {
		if !x.IsFixed() {
			return cp.EntailUndefined
		}
		tuple[i] = x.Value()
	}
	if p.m.Exists(tuple) {
		return cp.EntailTrue
	}
	return cp.EntailFalse
}
