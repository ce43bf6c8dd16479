package cp

import (
	"fmt"
	"strings"
)

// VarID is the stable identifier of a variable within its Network.
type VarID int

// IntVar is a finite-domain integer variable. All mutators return whether
// the domain changed and fail with a *Contradiction when the domain would
// become empty; every change raises exactly one Event of the finest
// applicable kind.
type IntVar struct {
	id   VarID
	name string
	net  *Network
	dom  domain

	// watchers are indexed by the minimal event kind the propagator wants.
	watchers [numEventKinds][]*registration
}

func (x *IntVar) ID() VarID         { return x.id }
func (x *IntVar) Name() string      { return x.name }
func (x *IntVar) Network() *Network { return x.net }
func (x *IntVar) Min() int          { return x.dom.min() }
func (x *IntVar) Max() int          { return x.dom.max() }
func (x *IntVar) Size() int         { return x.dom.size() }

// Enumerated reports whether the domain can hold holes.
func (x *IntVar) Enumerated() bool {
	return x.dom.enumerated()
}

func (x *IntVar) Contains(v int) bool {
	return x.dom.contains(v)
}

func (x *IntVar) IsFixed() bool {
	return x.dom.size() == 1
}

// Value returns the value of a fixed variable. For a variable that is not
// fixed it returns the lower bound.
func (x *IntVar) Value() int {
	return x.dom.min()
}

// Next returns the smallest value in the domain greater than v.
func (x *IntVar) Next(v int) (int, bool) {
	return x.dom.next(v)
}

// Prev returns the largest value in the domain smaller than v.
func (x *IntVar) Prev(v int) (int, bool) {
	return x.dom.prev(v)
}

// Values returns the current domain in increasing order.
func (x *IntVar) Values() []int {
	out := make([]int, 0, x.Size())
	for v, ok := x.Min(), true; ok; v, ok = x.Next(v) {
		out = append(out, v)
	}
	return out
}

func (x *IntVar) String() string {
	if x.IsFixed() {
		return fmt.Sprintf("%s = %d", x.name, x.Value())
	}
	if !x.Enumerated() || x.Size() == x.Max()-x.Min()+1 {
		return fmt.Sprintf("%s = [%d,%d]", x.name, x.Min(), x.Max())
	}
	vals := x.Values()
	s := make([]string, len(vals))
	for i, v := range vals {
		s[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("%s = {%s}", x.name, strings.Join(s, ","))
}

func (x *IntVar) fail(format string, args ...interface{}) error {
	x.net.markFailed()
	return &Contradiction{Var: x, Msg: fmt.Sprintf(format, args...)}
}

func (x *IntVar) changed(boundMoved bool) {
	kind := Remove
	switch {
	case x.IsFixed():
		kind = Instantiate
	case boundMoved:
		kind = Bound
	}
	x.net.engine.notify(Event{Var: x, Kind: kind})
}

// UpdateLowerBound removes every value below v.
func (x *IntVar) UpdateLowerBound(v int) (bool, error) {
	if v <= x.Min() {
		return false, nil
	}
	if v > x.Max() {
		return false, x.fail("lower bound %d above max %d", v, x.Max())
	}
	x.dom.setMin(v)
	x.changed(true)
	return true, nil
}

// UpdateUpperBound removes every value above v.
func (x *IntVar) UpdateUpperBound(v int) (bool, error) {
	if v >= x.Max() {
		return false, nil
	}
	if v < x.Min() {
		return false, x.fail("upper bound %d below min %d", v, x.Min())
	}
	x.dom.setMax(v)
	x.changed(true)
	return true, nil
}

// RemoveValue removes v. Interval domains only honor removals at one of
// their bounds; an interior removal is ignored and reports no change.
func (x *IntVar) RemoveValue(v int) (bool, error) {
	if !x.Contains(v) {
		return false, nil
	}
	if x.IsFixed() {
		return false, x.fail("removing last value %d", v)
	}
	switch {
	case v == x.Min():
		x.dom.setMin(v + 1)
		x.changed(true)
	case v == x.Max():
		x.dom.setMax(v - 1)
		x.changed(true)
	case !x.dom.enumerated():
		return false, nil
	default:
		x.dom.remove(v)
		x.changed(false)
	}
	return true, nil
}

// Instantiate reduces the domain to v.
func (x *IntVar) Instantiate(v int) (bool, error) {
	if !x.Contains(v) {
		return false, x.fail("value %d not in domain", v)
	}
	if x.IsFixed() {
		return false, nil
	}
	x.dom.fix(v)
	x.changed(true)
	return true, nil
}
