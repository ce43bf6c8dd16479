package mdd

import (
	"github.com/operator-framework/deppy-fd/pkg/cp"
)

// Tuples is a list of fixed-arity integer tuples stored back to back.
type Tuples struct {
	arity int
	data  []int
}

func NewTuples(arity int) *Tuples {
	return &Tuples{arity: arity}
}

func (t *Tuples) Arity() int {
	return t.arity
}

// Add appends one tuple.
func (t *Tuples) Add(values ...int) error {
	if len(values) != t.arity {
		return cp.ConfigError("tuple %v has arity %d, expected %d", values, len(values), t.arity)
	}
	t.data = append(t.data, values...)
	return nil
}

func (t *Tuples) Len() int {
	if t.arity == 0 {
		return 0
	}
	return len(t.data) / t.arity
}

// Get returns the i-th tuple. The slice aliases the list's storage.
func (t *Tuples) Get(i int) []int {
	return t.data[i*t.arity : (i+1)*t.arity : (i+1)*t.arity]
}

// Generate enumerates the cross product of the current domains of vars and
// keeps the tuples accepted by pred.
func Generate(vars []*cp.IntVar, pred func(tuple []int) bool) *Tuples {
	t := NewTuples(len(vars))
	if len(vars) == 0 {
		return t
	}
	domains := make([][]int, len(vars))
	for i, x := range vars {
		domains[i] = x.Values()
	}
	tuple := make([]int, len(vars))
	var walk func(i int)
	walk = func(i int) {
		if i == len(vars) {
			if pred(tuple) {
				t.data = append(t.data, tuple...)
			}
			return
		}
		for _, v := range domains[i] {
			tuple[i] = v
			walk(i + 1)
		}
	}
	walk(0)
	return t
}
