// Package metrics exposes search activity as prometheus metrics.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/operator-framework/deppy-fd/pkg/cp/search"
)

var _ search.Monitor = &Monitor{}

// Monitor is a search.Monitor that counts decisions, failures, solutions
// and backtracks, and records the depth of each decision.
type Monitor struct {
	decisions  prometheus.Counter
	failures   prometheus.Counter
	solutions  prometheus.Counter
	backtracks prometheus.Counter
	runs       *prometheus.CounterVec
	depth      prometheus.Histogram
}

// NewMonitor registers the search metrics on reg.
func NewMonitor(reg prometheus.Registerer) *Monitor {
	f := promauto.With(reg)
	return &Monitor{
		decisions: f.NewCounter(prometheus.CounterOpts{
			Name: "deppy_fd_search_decisions_total",
			Help: "Total decisions taken by the search loop",
		}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Name: "deppy_fd_search_failures_total",
			Help: "Total branches that ended in a contradiction",
		}),
		solutions: f.NewCounter(prometheus.CounterOpts{
			Name: "deppy_fd_search_solutions_total",
			Help: "Total solutions found",
		}),
		backtracks: f.NewCounter(prometheus.CounterOpts{
			Name: "deppy_fd_search_backtracks_total",
			Help: "Total decisions refuted on backtrack",
		}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "deppy_fd_search_runs_total",
			Help: "Total search runs by terminal state",
		}, []string{"state"}),
		depth: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "deppy_fd_search_decision_depth",
			Help:    "Depth of the decision stack after each decision",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

func (m *Monitor) OnStart(string) {}

func (m *Monitor) OnDecision(_ string, _ search.Decision, depth int) {
	m.decisions.Inc()
	m.depth.Observe(float64(depth))
}

func (m *Monitor) OnFailure(string, int)               { m.failures.Inc() }
func (m *Monitor) OnSolution(string, *search.Solution) { m.solutions.Inc() }
func (m *Monitor) OnBacktrack(string)                  { m.backtracks.Inc() }

func (m *Monitor) OnClose(_ string, state search.State, _ search.Stats) {
	m.runs.WithLabelValues(state.String()).Inc()
}

// Dump writes every metric family gathered from g in the text exposition
// format.
func Dump(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
