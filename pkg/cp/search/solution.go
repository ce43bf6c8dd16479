package search

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/operator-framework/deppy-fd/pkg/cp"
)

// Solution is a snapshot of the fixed variables of a network taken when the
// search reached a solution.
type Solution struct {
	values map[cp.VarID]int
	names  map[cp.VarID]string
}

func snapshot(vars []*cp.IntVar) *Solution {
	s := &Solution{
		values: make(map[cp.VarID]int, len(vars)),
		names:  make(map[cp.VarID]string, len(vars)),
	}
	for _, x := range vars {
		if x.IsFixed() {
			s.values[x.ID()] = x.Value()
			s.names[x.ID()] = x.Name()
		}
	}
	return s
}

// Value returns the value x took in the solution.
func (s *Solution) Value(x *cp.IntVar) (int, error) {
	v, ok := s.values[x.ID()]
	if !ok {
		return 0, &cp.ProtocolError{Op: "solution value", Msg: fmt.Sprintf("variable %s was not fixed", x.Name())}
	}
	return v, nil
}

// Values returns a copy of the assignment, keyed by variable id.
func (s *Solution) Values() map[cp.VarID]int {
	return maps.Clone(s.values)
}

func (s *Solution) Len() int {
	return len(s.values)
}

func (s *Solution) String() string {
	ids := slices.Sorted(maps.Keys(s.values))
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s=%d", s.names[id], s.values[id])
	}
	return strings.Join(parts, " ")
}
