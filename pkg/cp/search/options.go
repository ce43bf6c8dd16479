package search

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/operator-framework/deppy-fd/pkg/cp"
)

type Option func(s *Search) error

// WithVars restricts branching to vars, in that order. By default the
// search branches on every variable of the network.
func WithVars(vars ...*cp.IntVar) Option {
	return func(s *Search) error {
		for _, x := range vars {
			if x.Network() != s.net {
				return cp.ConfigError("search: variable %s belongs to another network", x.Name())
			}
		}
		s.vars = vars
		return nil
	}
}

func WithVarSelector(f VarSelector) Option {
	return func(s *Search) error {
		s.selectVar = f
		return nil
	}
}

func WithValueSelector(f ValueSelector) Option {
	return func(s *Search) error {
		s.selectVal = f
		return nil
	}
}

// WithSolutionLimit stops the search once n solutions were found. Zero means
// no limit.
func WithSolutionLimit(n int64) Option {
	return func(s *Search) error {
		if n < 0 {
			return cp.ConfigError("search: negative solution limit %d", n)
		}
		s.solutionLimit = n
		return nil
	}
}

// WithNodeLimit stops the search once n decisions were taken.
func WithNodeLimit(n int64) Option {
	return func(s *Search) error {
		if n < 0 {
			return cp.ConfigError("search: negative node limit %d", n)
		}
		s.nodeLimit = n
		return nil
	}
}

// WithFailLimit stops the search once n branches failed.
func WithFailLimit(n int64) Option {
	return func(s *Search) error {
		if n < 0 {
			return cp.ConfigError("search: negative failure limit %d", n)
		}
		s.failLimit = n
		return nil
	}
}

// WithTimeLimit stops the search once d has elapsed since it started.
func WithTimeLimit(d time.Duration) Option {
	return func(s *Search) error {
		if d < 0 {
			return cp.ConfigError("search: negative time limit %s", d)
		}
		s.timeLimit = d
		return nil
	}
}

// Minimize makes every solution strictly improve x.
func Minimize(x *cp.IntVar) Option {
	return objective(x, false)
}

// Maximize makes every solution strictly improve x.
func Maximize(x *cp.IntVar) Option {
	return objective(x, true)
}

func objective(x *cp.IntVar, maximize bool) Option {
	return func(s *Search) error {
		if x.Network() != s.net {
			return cp.ConfigError("search: objective %s belongs to another network", x.Name())
		}
		if s.objective != nil && s.objective != x {
			return cp.ConfigError("search: objective already set to %s", s.objective.Name())
		}
		s.objective = x
		s.maximize = maximize
		return nil
	}
}

func WithLogger(l logr.Logger) Option {
	return func(s *Search) error {
		s.log = l
		return nil
	}
}

func WithTracer(t Tracer) Option {
	return func(s *Search) error {
		s.tracer = t
		return nil
	}
}

// WithMonitor adds m to the monitors notified of search events.
func WithMonitor(m Monitor) Option {
	return func(s *Search) error {
		s.monitors = append(s.monitors, m)
		return nil
	}
}

func WithRunIDProvider(p RunIDProvider) Option {
	return func(s *Search) error {
		s.ids = p
		return nil
	}
}

var defaults = []Option{
	func(s *Search) error {
		if s.net == nil {
			return cp.ConfigError("search: no network")
		}
		if s.vars == nil {
			s.vars = s.net.Vars()
		}
		return nil
	},
	func(s *Search) error {
		if s.selectVar == nil {
			s.selectVar = InputOrder
		}
		if s.selectVal == nil {
			s.selectVal = Min
		}
		return nil
	},
	func(s *Search) error {
		if s.tracer == nil {
			s.tracer = DefaultTracer{}
		}
		if s.ids == nil {
			s.ids = NewUUIDRunIDProvider()
		}
		if s.log.GetSink() == nil {
			s.log = logr.Discard()
		}
		return nil
	},
}
