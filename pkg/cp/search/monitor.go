package search

// Stats counts the work done by a search run.
type Stats struct {
	Nodes      int64
	Failures   int64
	Solutions  int64
	Backtracks int64
	MaxDepth   int
}

// Monitor observes a search run. Every hook is called synchronously from the
// search loop and must not touch the network.
type Monitor interface {
	OnStart(runID string)
	OnDecision(runID string, d Decision, depth int)
	OnFailure(runID string, depth int)
	OnSolution(runID string, s *Solution)
	OnBacktrack(runID string)
	OnClose(runID string, state State, stats Stats)
}
