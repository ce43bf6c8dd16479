package alldiff

import (
	"cmp"
	"slices"

	"github.com/operator-framework/deppy-fd/pkg/cp"
)

// interval is the bounds view of one variable during a filtering pass.
// minrank and maxrank index lb and ub+1 in the compressed bounds array.
type interval struct {
	x                *cp.IntVar
	lb, ub           int
	minrank, maxrank int
}

// boundsPropagator achieves bounds consistency with the algorithm of
// Lopez-Ortiz, Quimper, Tromp and van Beek: bounds are sorted and rank
// compressed, then two sweeps over a union-find-like forest detect Hall
// intervals and push lower and upper bounds past them.
type boundsPropagator struct {
	vars []*cp.IntVar
	occ  *union

	intervals []interval
	minsorted []*interval
	maxsorted []*interval

	bounds  []int
	t, d, h []int
	nb      int
}

func newBoundsPropagator(vars []*cp.IntVar) *boundsPropagator {
	n := len(vars)
	p := &boundsPropagator{
		vars:      vars,
		occ:       newUnion(vars),
		intervals: make([]interval, n),
		minsorted: make([]*interval, n),
		maxsorted: make([]*interval, n),
		bounds:    make([]int, 2*n+2),
		t:         make([]int, 2*n+2),
		d:         make([]int, 2*n+2),
		h:         make([]int, 2*n+2),
	}
	for i := range p.intervals {
		p.intervals[i].x = vars[i]
		p.minsorted[i] = &p.intervals[i]
		p.maxsorted[i] = &p.intervals[i]
	}
	return p
}

func (p *boundsPropagator) Vars() []*cp.IntVar        { return p.vars }
func (p *boundsPropagator) Priority() cp.Priority     { return cp.PriorityLinear }
func (p *boundsPropagator) Interest(int) cp.EventKind { return cp.Bound }
func (p *boundsPropagator) Entailed() cp.Entailment   { return entailment(p.vars) }
func (p *boundsPropagator) String() string            { return "alldiff_bc" }

func (p *boundsPropagator) Propagate() error {
	if p.occ.sync() && p.occ.live() < len(p.vars) {
		return cp.Fail("%d variables share %d values", len(p.vars), p.occ.live())
	}
	for {
		p.sortIt()
		lower, err := p.filterLower()
		if err != nil {
			return err
		}
		upper, err := p.filterUpper()
		if err != nil {
			return err
		}
		if !lower && !upper {
			return nil
		}
	}
}

func (p *boundsPropagator) sortIt() {
	for i := range p.intervals {
		iv := &p.intervals[i]
		iv.lb, iv.ub = iv.x.Min(), iv.x.Max()
	}
	slices.SortFunc(p.minsorted, func(a, b *interval) int { return cmp.Compare(a.lb, b.lb) })
	slices.SortFunc(p.maxsorted, func(a, b *interval) int { return cmp.Compare(a.ub, b.ub) })

	n := len(p.intervals)
	lo := p.minsorted[0].lb
	hi := p.maxsorted[0].ub + 1
	last := lo - 2
	nb := 0
	p.bounds[0] = last
	i, j := 0, 0
	for {
		if i < n && lo <= hi {
			if lo != last {
				nb++
				p.bounds[nb] = lo
				last = lo
			}
			p.minsorted[i].minrank = nb
			i++
			if i < n {
				lo = p.minsorted[i].lb
			}
		} else {
			if hi != last {
				nb++
				p.bounds[nb] = hi
				last = hi
			}
			p.maxsorted[j].maxrank = nb
			j++
			if j == n {
				break
			}
			hi = p.maxsorted[j].ub + 1
		}
	}
	p.nb = nb
	p.bounds[nb+1] = p.bounds[nb] + 2
}

func pathset(t []int, start, end, to int) {
	for l := start; l != end; {
		k := l
		l = t[k]
		t[k] = to
	}
}

func pathmin(t []int, i int) int {
	for t[i] < i {
		i = t[i]
	}
	return i
}

func pathmax(t []int, i int) int {
	for t[i] > i {
		i = t[i]
	}
	return i
}

func (p *boundsPropagator) filterLower() (bool, error) {
	t, d, h, bounds := p.t, p.d, p.h, p.bounds
	for i := 1; i <= p.nb+1; i++ {
		t[i] = i - 1
		h[i] = i - 1
		d[i] = bounds[i] - bounds[i-1]
	}
	changed := false
	for _, iv := range p.maxsorted {
		x, y := iv.minrank, iv.maxrank
		z := pathmax(t, x+1)
		j := t[z]
		d[z]--
		if d[z] == 0 {
			t[z] = z + 1
			z = pathmax(t, t[z])
			t[z] = j
		}
		pathset(t, x+1, z, z)
		if d[z] < bounds[z]-bounds[y] {
			return false, cp.Fail("no room left for %s below %d", iv.x.Name(), bounds[y])
		}
		if h[x] > x {
			w := pathmax(h, h[x])
			ok, err := iv.x.UpdateLowerBound(bounds[w])
			if err != nil {
				return false, err
			}
			changed = changed || ok
			pathset(h, x, w, w)
		}
		if d[z] == bounds[z]-bounds[y] {
			pathset(h, h[y], j-1, y)
			h[y] = j - 1
		}
	}
	return changed, nil
}

func (p *boundsPropagator) filterUpper() (bool, error) {
	t, d, h, bounds := p.t, p.d, p.h, p.bounds
	for i := 0; i <= p.nb; i++ {
		t[i] = i + 1
		h[i] = i + 1
		d[i] = bounds[i+1] - bounds[i]
	}
	changed := false
	for i := len(p.minsorted) - 1; i >= 0; i-- {
		iv := p.minsorted[i]
		x, y := iv.maxrank, iv.minrank
		z := pathmin(t, x-1)
		j := t[z]
		d[z]--
		if d[z] == 0 {
			t[z] = z - 1
			z = pathmin(t, t[z])
			t[z] = j
		}
		pathset(t, x-1, z, z)
		if d[z] < bounds[y]-bounds[z] {
			return false, cp.Fail("no room left for %s above %d", iv.x.Name(), bounds[y])
		}
		if h[x] < x {
			w := pathmin(h, h[x])
			ok, err := iv.x.UpdateUpperBound(bounds[w] - 1)
			if err != nil {
				return false, err
			}
			changed = changed || ok
			pathset(h, x, w, w)
		}
		if d[z] == bounds[y]-bounds[z] {
			pathset(h, h[y], j+1, y)
			h[y] = j + 1
		}
	}
	return changed, nil
}
