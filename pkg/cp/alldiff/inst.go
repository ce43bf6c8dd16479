package alldiff

import (
	"github.com/operator-framework/deppy-fd/pkg/cp"
)

// instPropagator removes the value of every fixed variable from the domains
// of the others. Removals that fix another variable are chased within the
// same call.
type instPropagator struct {
	vars []*cp.IntVar
}

func newInstPropagator(vars []*cp.IntVar) *instPropagator {
	return &instPropagator{vars: vars}
}

func (p *instPropagator) Vars() []*cp.IntVar        { return p.vars }
func (p *instPropagator) Priority() cp.Priority     { return cp.PriorityUnary }
func (p *instPropagator) Interest(int) cp.EventKind { return cp.Instantiate }
func (p *instPropagator) Entailed() cp.Entailment   { return entailment(p.vars) }
func (p *instPropagator) String() string            { return "alldiff_inst" }

func (p *instPropagator) Propagate() error {
	done := make([]bool, len(p.vars))
	var work []int
	for i, x := range p.vars {
		if x.IsFixed() {
			work = append(work, i)
		}
	}
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		if done[i] {
			continue
		}
		done[i] = true
		v := p.vars[i].Value()
		for j, y := range p.vars {
			if j == i {
				continue
			}
			if y.IsFixed() && y.Value() == v {
				return cp.Fail("%s and %s both take %d", p.vars[i].Name(), y.Name(), v)
			}
			changed, err := y.RemoveValue(v)
			if err != nil {
				return err
			}
			if changed && y.IsFixed() {
				work = append(work, j)
			}
		}
	}
	return nil
}
