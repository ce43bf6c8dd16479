package alldiff

import (
	"github.com/operator-framework/deppy-fd/pkg/cp"
)

// maxUnionSpan is the widest value range the occurrence union tracks.
const maxUnionSpan = 1 << 16

// union counts, for every value v, how many variables still have v within
// their bounds. Slots [0, size) of the arena hold the values counted at
// least once. A value whose count drops to zero is swapped to the end of
// the live prefix; the swap itself is not trailed since rolling size back
// revives exactly the values that were live at that level.
type union struct {
	net  *cp.Network
	vars []*cp.IntVar

	// built is reset when search backtracks above the level of the last
	// build, which invalidates every other field.
	built cp.StoredInt

	base int
	vals []int
	occ  []cp.StoredInt
	// pos maps v-base to the arena slot of v.
	pos  []int
	size cp.StoredInt

	lastLB, lastUB []cp.StoredInt
}

func newUnion(vars []*cp.IntVar) *union {
	net := vars[0].Network()
	u := &union{
		net:    net,
		vars:   vars,
		built:  net.NewStoredInt(0),
		size:   net.NewStoredInt(0),
		lastLB: make([]cp.StoredInt, len(vars)),
		lastUB: make([]cp.StoredInt, len(vars)),
	}
	for i := range vars {
		u.lastLB[i] = net.NewStoredInt(0)
		u.lastUB[i] = net.NewStoredInt(0)
	}
	return u
}

// sync brings the counts up to date with the current bounds. It reports
// false when the union cannot be maintained for the current domains.
func (u *union) sync() bool {
	if u.built.Get() == 0 {
		return u.build()
	}
	for i, x := range u.vars {
		lb, ub := x.Min(), x.Max()
		for v := u.lastLB[i].Get(); v < lb; v++ {
			u.decr(v)
		}
		for v := u.lastUB[i].Get(); v > ub; v-- {
			u.decr(v)
		}
		u.lastLB[i].Set(lb)
		u.lastUB[i].Set(ub)
	}
	return true
}

func (u *union) build() bool {
	lo, hi := u.vars[0].Min(), u.vars[0].Max()
	for _, x := range u.vars[1:] {
		lo = min(lo, x.Min())
		hi = max(hi, x.Max())
	}
	if hi-lo >= maxUnionSpan {
		return false
	}
	if lo < u.base || hi >= u.base+len(u.pos) {
		u.base = lo
		u.vals = make([]int, hi-lo+1)
		u.pos = make([]int, hi-lo+1)
		u.occ = make([]cp.StoredInt, hi-lo+1)
		for i := range u.occ {
			u.occ[i] = u.net.NewStoredInt(0)
		}
	}

	counts := make([]int, len(u.vals))
	for i, x := range u.vars {
		lb, ub := x.Min(), x.Max()
		for v := lb; v <= ub; v++ {
			counts[v-u.base]++
		}
		u.lastLB[i].Set(lb)
		u.lastUB[i].Set(ub)
	}

	// live values first, then the rest
	slot := 0
	for pass := 0; pass < 2; pass++ {
		for off, c := range counts {
			if (c > 0) != (pass == 0) {
				continue
			}
			u.vals[slot] = u.base + off
			u.pos[off] = slot
			u.occ[slot].Set(c)
			slot++
		}
		if pass == 0 {
			u.size.Set(slot)
		}
	}
	u.built.Set(1)
	return true
}

func (u *union) decr(v int) {
	i := u.pos[v-u.base]
	last := u.size.Get() - 1
	if i > last {
		return
	}
	if u.occ[i].Add(-1) > 0 {
		return
	}
	w := u.vals[last]
	u.vals[i], u.vals[last] = w, v
	u.occ[i], u.occ[last] = u.occ[last], u.occ[i]
	u.pos[w-u.base], u.pos[v-u.base] = i, last
	u.size.Add(-1)
}

// live returns the number of values still covered by some variable.
func (u *union) live() int {
	return u.size.Get()
}

// occurrences returns how many variables have v within their bounds.
func (u *union) occurrences(v int) int {
	if v < u.base || v >= u.base+len(u.pos) {
		return 0
	}
	i := u.pos[v-u.base]
	if i >= u.size.Get() {
		return 0
	}
	return u.occ[i].Get()
}
