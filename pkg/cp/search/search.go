// Package search explores a constraint network by depth-first branching,
// propagating after every decision and backtracking on contradictions.
package search

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/operator-framework/deppy-fd/pkg/cp"
)

// State is the phase of the search loop.
type State int

const (
	StateRoot State = iota
	StateDecide
	StatePropagate
	StateSolution
	StateFail
	StateBacktrack
	// StateExhausted means every branch was explored.
	StateExhausted
	// StateStopped means a limit or the context ended the run early.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRoot:
		return "ROOT"
	case StateDecide:
		return "DECIDE"
	case StatePropagate:
		return "PROPAGATE"
	case StateSolution:
		return "SOLUTION"
	case StateFail:
		return "FAIL"
	case StateBacktrack:
		return "BACKTRACK"
	case StateExhausted:
		return "EXHAUSTED"
	case StateStopped:
		return "STOPPED"
	}
	return "UNKNOWN"
}

// Search enumerates the solutions of a network lazily. It consumes the
// network's reversible state while running and restores it when it reaches
// a terminal state.
type Search struct {
	net       *cp.Network
	vars      []*cp.IntVar
	selectVar VarSelector
	selectVal ValueSelector

	solutionLimit int64
	nodeLimit     int64
	failLimit     int64
	timeLimit     time.Duration

	objective *cp.IntVar
	maximize  bool
	best      *Solution
	bound     int

	log      logr.Logger
	tracer   Tracer
	monitors []Monitor
	ids      RunIDProvider

	runID      string
	state      State
	stopReason string
	stack      []node
	root       cp.Mark
	started    time.Time
	stats      Stats
}

func New(net *cp.Network, options ...Option) (*Search, error) {
	s := &Search{net: net}
	for _, option := range append(options, defaults...) {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	s.runID = s.ids.NextRunID()
	s.log = s.log.WithValues("run", s.runID)
	return s, nil
}

func (s *Search) State() State         { return s.state }
func (s *Search) Stats() Stats         { return s.stats }
func (s *Search) RunID() string        { return s.runID }
func (s *Search) StopReason() string   { return s.stopReason }
func (s *Search) Best() *Solution      { return s.best }
func (s *Search) Network() *cp.Network { return s.net }

// Path returns the decisions from the root to the current node.
func (s *Search) Path() []Decision {
	out := make([]Decision, len(s.stack))
	for i, n := range s.stack {
		out[i] = n.Decision
	}
	return out
}

// Next resumes the search until it reaches the next solution. It returns a
// nil solution once the search is exhausted or stopped.
func (s *Search) Next(ctx context.Context) (*Solution, error) {
	ctx, span := s.startSpan(ctx, "Search.Next")
	sol, err := s.next(ctx)
	s.endSpan(span, err)
	return sol, err
}

// All collects every remaining solution.
func (s *Search) All(ctx context.Context) ([]*Solution, error) {
	ctx, span := s.startSpan(ctx, "Search.All")
	var out []*Solution
	for {
		sol, err := s.next(ctx)
		if err != nil {
			s.endSpan(span, err)
			return out, err
		}
		if sol == nil {
			break
		}
		out = append(out, sol)
	}
	s.endSpan(span, nil)
	return out, nil
}

// Optimize runs branch and bound on the objective set with Minimize or
// Maximize and returns the best solution found, or nil if there is none.
// When the run is stopped early the result is the best solution so far.
func (s *Search) Optimize(ctx context.Context) (*Solution, error) {
	ctx, span := s.startSpan(ctx, "Search.Optimize")
	if s.objective == nil {
		err := &cp.ProtocolError{Op: "optimize", Msg: "no objective, use Minimize or Maximize"}
		s.endSpan(span, err)
		return nil, err
	}
	for {
		sol, err := s.next(ctx)
		if err != nil {
			s.endSpan(span, err)
			return s.best, err
		}
		if sol == nil {
			break
		}
	}
	s.endSpan(span, nil)
	return s.best, nil
}

func (s *Search) next(ctx context.Context) (*Solution, error) {
	for {
		switch s.state {
		case StateExhausted, StateStopped:
			return nil, nil

		case StateRoot:
			s.started = time.Now()
			for _, m := range s.monitors {
				m.OnStart(s.runID)
			}
			s.log.V(1).Info("starting search", "vars", len(s.vars))
			s.root = s.net.Checkpoint()
			if err := s.net.Propagate(); err != nil {
				if !cp.IsContradiction(err) {
					return nil, err
				}
				s.fail(err)
				if err := s.close(ctx, StateExhausted); err != nil {
					return nil, err
				}
				continue
			}
			s.state = StateDecide

		case StateDecide:
			if reason := s.limitReached(ctx); reason != "" {
				s.stopReason = reason
				if err := s.close(ctx, StateStopped); err != nil {
					return nil, err
				}
				continue
			}
			x := s.selectVar(s.vars)
			if x == nil && s.objective != nil && !s.objective.IsFixed() {
				x = s.objective
			}
			if x == nil {
				s.state = StateSolution
				continue
			}
			op, v := s.selectVal(x)
			d := newDecision(x, op, v)
			s.stack = append(s.stack, node{Decision: d, mark: s.net.Checkpoint()})
			s.stats.Nodes++
			s.stats.MaxDepth = max(s.stats.MaxDepth, len(s.stack))
			for _, m := range s.monitors {
				m.OnDecision(s.runID, d, len(s.stack))
			}
			s.log.V(2).Info("decision", "decision", d.String(), "depth", len(s.stack))
			if err := d.apply(); err != nil {
				if !cp.IsContradiction(err) {
					return nil, err
				}
				s.fail(err)
				continue
			}
			s.state = StatePropagate

		case StatePropagate:
			if err := s.net.Propagate(); err != nil {
				if !cp.IsContradiction(err) {
					return nil, err
				}
				s.fail(err)
				continue
			}
			s.state = StateDecide

		case StateSolution:
			sol := snapshot(s.net.Vars())
			s.stats.Solutions++
			if s.objective != nil {
				s.best = sol
				s.bound = s.objective.Value()
			}
			for _, m := range s.monitors {
				m.OnSolution(s.runID, sol)
			}
			s.log.V(1).Info("solution found", "solution", sol.String(), "count", s.stats.Solutions)
			s.state = StateBacktrack
			return sol, nil

		case StateFail:
			s.state = StateBacktrack

		case StateBacktrack:
			if err := s.backtrack(ctx); err != nil {
				return nil, err
			}
		}
	}
}

// fail records a dead branch.
func (s *Search) fail(conflict error) {
	s.state = StateFail
	s.stats.Failures++
	s.tracer.Trace(position{decisions: s.Path(), conflict: conflict})
	for _, m := range s.monitors {
		m.OnFailure(s.runID, len(s.stack))
	}
	s.log.V(2).Info("branch failed", "depth", len(s.stack), "reason", conflict.Error())
}

// backtrack undoes decisions until one can be refuted, applies its negation
// and moves to PROPAGATE, or closes the run when none is left.
func (s *Search) backtrack(ctx context.Context) error {
	for len(s.stack) > 0 {
		top := &s.stack[len(s.stack)-1]
		if err := s.net.Rollback(top.mark); err != nil {
			return err
		}
		s.stats.Backtracks++
		for _, m := range s.monitors {
			m.OnBacktrack(s.runID)
		}
		if top.Refuted {
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}
		top.Refuted = true
		top.mark = s.net.Checkpoint()
		s.log.V(2).Info("refutation", "decision", top.Decision.String(), "depth", len(s.stack))
		err := top.apply()
		if err == nil {
			err = s.cut()
		}
		if err != nil {
			if !cp.IsContradiction(err) {
				return err
			}
			s.fail(err)
			return nil
		}
		s.state = StatePropagate
		return nil
	}
	return s.close(ctx, StateExhausted)
}

// cut requires the objective to improve on the best solution so far.
func (s *Search) cut() error {
	if s.objective == nil || s.best == nil {
		return nil
	}
	var err error
	if s.maximize {
		_, err = s.objective.UpdateLowerBound(s.bound + 1)
	} else {
		_, err = s.objective.UpdateUpperBound(s.bound - 1)
	}
	return err
}

func (s *Search) limitReached(ctx context.Context) string {
	switch {
	case ctx.Err() != nil:
		return ctx.Err().Error()
	case s.solutionLimit > 0 && s.stats.Solutions >= s.solutionLimit:
		return "solution limit reached"
	case s.nodeLimit > 0 && s.stats.Nodes >= s.nodeLimit:
		return "node limit reached"
	case s.failLimit > 0 && s.stats.Failures >= s.failLimit:
		return "failure limit reached"
	case s.timeLimit > 0 && time.Since(s.started) >= s.timeLimit:
		return "time limit reached"
	}
	return ""
}

// close enters a terminal state and restores the network to the state it
// had before the search started.
func (s *Search) close(ctx context.Context, state State) error {
	s.state = state
	s.stack = s.stack[:0]
	if err := s.net.Rollback(s.root); err != nil {
		return err
	}
	for _, m := range s.monitors {
		m.OnClose(s.runID, state, s.stats)
	}
	recordRun(ctx, state, s.stats)
	s.log.V(1).Info("search finished",
		"state", state.String(),
		"reason", s.stopReason,
		"nodes", s.stats.Nodes,
		"failures", s.stats.Failures,
		"solutions", s.stats.Solutions,
		"elapsed", time.Since(s.started).String(),
	)
	return nil
}
