package cp

import (
	"errors"
)

// EngineState is the phase of the propagation engine.
type EngineState int

const (
	Idle EngineState = iota
	Awakened
	Running
	Fixpoint
	Failed
)

func (s EngineState) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Awakened:
		return "AWAKENED"
	case Running:
		return "RUNNING"
	case Fixpoint:
		return "FIXPOINT"
	case Failed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// fifo is a queue of registrations that reuses its backing array.
type fifo struct {
	items []*registration
	head  int
}

func (q *fifo) push(r *registration) {
	q.items = append(q.items, r)
}

func (q *fifo) pop() (*registration, bool) {
	if q.head == len(q.items) {
		return nil, false
	}
	r := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return r, true
}

func (q *fifo) reset() {
	for _, r := range q.items[q.head:] {
		r.queued = false
	}
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
}

// Engine drains awakened propagators to a fixpoint. It keeps one FIFO per
// priority so that ties are served in insertion order.
type Engine struct {
	net     *Network
	queues  [numPriorities]fifo
	pending []Event
	state   EngineState

	propagations int64
}

func newEngine(net *Network) *Engine {
	return &Engine{net: net}
}

// State returns the current phase.
func (e *Engine) State() EngineState {
	return e.state
}

// Propagations returns the number of propagator invocations so far.
func (e *Engine) Propagations() int64 {
	return e.propagations
}

// notify records an event. Events raised while a propagator runs become
// visible only after that propagator returns.
func (e *Engine) notify(ev Event) {
	e.pending = append(e.pending, ev)
	if e.state != Running {
		e.state = Awakened
	}
}

func (e *Engine) schedule(r *registration) {
	if r.queued || !r.active || e.net.store.Get(r.passive) != 0 {
		return
	}
	r.queued = true
	e.queues[r.priority].push(r)
	if e.state != Running {
		e.state = Awakened
	}
}

func (e *Engine) flush() {
	for _, ev := range e.pending {
		for k := Remove; k <= ev.Kind; k++ {
			for _, r := range ev.Var.watchers[k] {
				e.schedule(r)
			}
		}
	}
	e.pending = e.pending[:0]
}

func (e *Engine) next() (*registration, bool) {
	for p := range e.queues {
		if r, ok := e.queues[p].pop(); ok {
			return r, true
		}
	}
	return nil, false
}

// clear drops every pending event and queued propagator.
func (e *Engine) clear() {
	for p := range e.queues {
		e.queues[p].reset()
	}
	e.pending = e.pending[:0]
}

// propagate runs queued propagators until none is left or one fails. A
// failure aborts the pass and empties the queue; the caller is expected to
// roll back to its last checkpoint.
func (e *Engine) propagate() error {
	e.flush()
	for {
		r, ok := e.next()
		if !ok {
			break
		}
		r.queued = false
		if !r.active {
			continue
		}
		e.state = Running
		err := r.prop.Propagate()
		e.propagations++
		if err != nil {
			e.state = Failed
			e.clear()
			e.net.markFailed()
			var c *Contradiction
			if errors.As(err, &c) && c.Constraint == nil {
				c.Constraint = r.constraint
			}
			return err
		}
		if r.prop.Entailed() == EntailTrue {
			e.net.store.Set(r.passive, 1)
		}
		e.state = Awakened
		e.flush()
	}
	e.state = Fixpoint
	return nil
}
