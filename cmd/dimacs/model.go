package dimacs

import (
	"fmt"
	"strconv"

	"github.com/operator-framework/deppy-fd/pkg/cp"
	"github.com/operator-framework/deppy-fd/pkg/cp/mdd"
)

// maxClauseWidth bounds the variables of one clause, since its table lists
// every satisfying assignment.
const maxClauseWidth = 16

// Model is a CP encoding of a CNF problem: a boolean variable per DIMACS
// variable and a table constraint per clause.
type Model struct {
	Network *cp.Network
	// Vars[i] is DIMACS variable i+1.
	Vars []*cp.IntVar
}

func NewModel(d *Dimacs, options ...cp.Option) (*Model, error) {
	m := &Model{Network: cp.NewNetwork(options...)}
	m.Vars = make([]*cp.IntVar, d.NumVariables())
	for i := range m.Vars {
		m.Vars[i] = m.Network.NewBoolVar(strconv.Itoa(i + 1))
	}
	for i, clause := range d.Clauses() {
		c, err := m.clause(clause)
		if err != nil {
			return nil, fmt.Errorf("clause %d: %w", i+1, err)
		}
		// a contradiction stays recorded in the network, the search finds
		// nothing
		if err := m.Network.Post(c); err != nil && !cp.IsContradiction(err) {
			return nil, err
		}
	}
	return m, nil
}

// clause returns a table over the distinct variables of the clause listing
// every assignment that makes one of its literals true.
func (m *Model) clause(lits []int) (*cp.Constraint, error) {
	var vars []*cp.IntVar
	pos := map[int]int{}
	for _, l := range lits {
		v := abs(l)
		if _, ok := pos[v]; !ok {
			pos[v] = len(vars)
			vars = append(vars, m.Vars[v-1])
		}
	}
	if len(vars) > maxClauseWidth {
		return nil, fmt.Errorf("%d variables, at most %d are supported", len(vars), maxClauseWidth)
	}
	if len(vars) == 0 {
		return cp.FalseConstraint(), nil
	}
	tuples := mdd.Generate(vars, func(t []int) bool {
		for _, l := range lits {
			if (t[pos[abs(l)]] == 1) == (l > 0) {
				return true
			}
		}
		return false
	})
	return mdd.Table(vars, tuples)
}

// Assignment returns the truth value of each DIMACS variable once every
// variable is fixed, indexed from variable 1 at position 0.
func (m *Model) Assignment(value func(*cp.IntVar) (int, error)) ([]bool, error) {
	out := make([]bool, len(m.Vars))
	for i, x := range m.Vars {
		v, err := value(x)
		if err != nil {
			return nil, err
		}
		out[i] = v == 1
	}
	return out, nil
}
