package search

import (
	"fmt"
	"io"
)

// Position is the state of the search when a branch fails.
type Position interface {
	Decisions() []Decision
	Conflict() error
}

type Tracer interface {
	Trace(p Position)
}

type DefaultTracer struct{}

func (DefaultTracer) Trace(_ Position) {
}

type LoggingTracer struct {
	Writer io.Writer
}

func (t LoggingTracer) Trace(p Position) {
	fmt.Fprintf(t.Writer, "---\nDecisions:\n")
	for _, d := range p.Decisions() {
		fmt.Fprintf(t.Writer, "- %s\n", d)
	}
	fmt.Fprintf(t.Writer, "Conflict:\n")
	if err := p.Conflict(); err != nil {
		fmt.Fprintf(t.Writer, "- %s\n", err)
	}
}

type position struct {
	decisions []Decision
	conflict  error
}

func (p position) Decisions() []Decision { return p.decisions }
func (p position) Conflict() error       { return p.conflict }
