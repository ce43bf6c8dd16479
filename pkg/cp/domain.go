package cp

import (
	"math/bits"

	"github.com/operator-framework/deppy-fd/internal/trail"
)

// domain is the storage behind an IntVar. Implementations never see a
// request that would empty them: IntVar checks for that first and raises a
// Contradiction instead.
type domain interface {
	min() int
	max() int
	size() int
	contains(v int) bool
	// next returns the smallest value greater than v.
	next(v int) (int, bool)
	// prev returns the largest value smaller than v.
	prev(v int) (int, bool)
	// setMin moves the lower bound to the smallest value >= v.
	setMin(v int)
	// setMax moves the upper bound to the largest value <= v.
	setMax(v int)
	// remove drops an interior value. Only enumerated domains support it.
	remove(v int)
	fix(v int)
	enumerated() bool
}

// intervalDomain keeps only the two bounds.
type intervalDomain struct {
	s      *trail.Store
	lb, ub trail.Cell
}

func newIntervalDomain(s *trail.Store, lo, hi int) *intervalDomain {
	return &intervalDomain{
		s:  s,
		lb: s.NewCell(int64(lo)),
		ub: s.NewCell(int64(hi)),
	}
}

func (d *intervalDomain) min() int { return int(d.s.Get(d.lb)) }
func (d *intervalDomain) max() int { return int(d.s.Get(d.ub)) }
func (d *intervalDomain) size() int {
	return d.max() - d.min() + 1
}

func (d *intervalDomain) contains(v int) bool {
	return v >= d.min() && v <= d.max()
}

func (d *intervalDomain) next(v int) (int, bool) {
	if v < d.min() {
		return d.min(), true
	}
	if v >= d.max() {
		return 0, false
	}
	return v + 1, true
}

func (d *intervalDomain) prev(v int) (int, bool) {
	if v > d.max() {
		return d.max(), true
	}
	if v <= d.min() {
		return 0, false
	}
	return v - 1, true
}

func (d *intervalDomain) setMin(v int) { d.s.Set(d.lb, int64(v)) }
func (d *intervalDomain) setMax(v int) { d.s.Set(d.ub, int64(v)) }
func (d *intervalDomain) remove(int)   {}
func (d *intervalDomain) enumerated() bool {
	return false
}

func (d *intervalDomain) fix(v int) {
	d.s.Set(d.lb, int64(v))
	d.s.Set(d.ub, int64(v))
}

// bitsetDomain stores one bit per value of [offset, offset+64*len(words)),
// plus cached bounds and cardinality. Bits outside [lb, ub] are always
// cleared.
type bitsetDomain struct {
	s            *trail.Store
	offset       int
	words        []trail.Cell
	lb, ub, card trail.Cell
}

func newBitsetDomain(s *trail.Store, values []int) *bitsetDomain {
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	raw := make([]uint64, (hi-lo)/64+1)
	n := 0
	for _, v := range values {
		i := v - lo
		if raw[i/64]&(1<<(i%64)) == 0 {
			raw[i/64] |= 1 << (i % 64)
			n++
		}
	}
	d := &bitsetDomain{
		s:      s,
		offset: lo,
		words:  make([]trail.Cell, len(raw)),
		lb:     s.NewCell(int64(lo)),
		ub:     s.NewCell(int64(hi)),
		card:   s.NewCell(int64(n)),
	}
	for i, w := range raw {
		d.words[i] = s.NewCell(int64(w))
	}
	return d
}

func (d *bitsetDomain) word(i int) uint64 {
	return uint64(d.s.Get(d.words[i]))
}

func (d *bitsetDomain) min() int  { return int(d.s.Get(d.lb)) }
func (d *bitsetDomain) max() int  { return int(d.s.Get(d.ub)) }
func (d *bitsetDomain) size() int { return int(d.s.Get(d.card)) }

func (d *bitsetDomain) enumerated() bool {
	return true
}

func (d *bitsetDomain) contains(v int) bool {
	if v < d.min() || v > d.max() {
		return false
	}
	i := v - d.offset
	return d.word(i/64)&(1<<(i%64)) != 0
}

// nextSet returns the index of the first set bit at or after i, or -1.
func (d *bitsetDomain) nextSet(i int) int {
	if i < 0 {
		i = 0
	}
	w := i / 64
	if w >= len(d.words) {
		return -1
	}
	word := d.word(w) & (^uint64(0) << (i % 64))
	for {
		if word != 0 {
			return w*64 + bits.TrailingZeros64(word)
		}
		w++
		if w == len(d.words) {
			return -1
		}
		word = d.word(w)
	}
}

// prevSet returns the index of the last set bit at or before i, or -1.
func (d *bitsetDomain) prevSet(i int) int {
	if i < 0 {
		return -1
	}
	w := i / 64
	if w >= len(d.words) {
		w = len(d.words) - 1
		i = w*64 + 63
	}
	word := d.word(w) & (^uint64(0) >> (63 - i%64))
	for {
		if word != 0 {
			return w*64 + 63 - bits.LeadingZeros64(word)
		}
		w--
		if w < 0 {
			return -1
		}
		word = d.word(w)
	}
}

// clearRange clears bits [from, to] and returns how many were set.
func (d *bitsetDomain) clearRange(from, to int) int {
	if from > to {
		return 0
	}
	n := 0
	for w := from / 64; w <= to/64; w++ {
		mask := ^uint64(0)
		if w == from/64 {
			mask &= ^uint64(0) << (from % 64)
		}
		if w == to/64 {
			mask &= ^uint64(0) >> (63 - to%64)
		}
		word := d.word(w)
		if hit := word & mask; hit != 0 {
			n += bits.OnesCount64(hit)
			d.s.Set(d.words[w], int64(word&^mask))
		}
	}
	return n
}

func (d *bitsetDomain) next(v int) (int, bool) {
	if v >= d.max() {
		return 0, false
	}
	if v < d.min() {
		return d.min(), true
	}
	return d.nextSet(v-d.offset+1) + d.offset, true
}

func (d *bitsetDomain) prev(v int) (int, bool) {
	if v <= d.min() {
		return 0, false
	}
	if v > d.max() {
		return d.max(), true
	}
	return d.prevSet(v-d.offset-1) + d.offset, true
}

func (d *bitsetDomain) setMin(v int) {
	lb := d.min()
	nlb := d.nextSet(v-d.offset) + d.offset
	removed := d.clearRange(lb-d.offset, nlb-d.offset-1)
	d.s.Set(d.lb, int64(nlb))
	d.s.Add(d.card, int64(-removed))
}

func (d *bitsetDomain) setMax(v int) {
	ub := d.max()
	nub := d.prevSet(v-d.offset) + d.offset
	removed := d.clearRange(nub-d.offset+1, ub-d.offset)
	d.s.Set(d.ub, int64(nub))
	d.s.Add(d.card, int64(-removed))
}

func (d *bitsetDomain) remove(v int) {
	d.clearRange(v-d.offset, v-d.offset)
	d.s.Add(d.card, -1)
}

func (d *bitsetDomain) fix(v int) {
	lb, ub := d.min(), d.max()
	d.clearRange(lb-d.offset, v-d.offset-1)
	d.clearRange(v-d.offset+1, ub-d.offset)
	d.s.Set(d.lb, int64(v))
	d.s.Set(d.ub, int64(v))
	d.s.Set(d.card, 1)
}
