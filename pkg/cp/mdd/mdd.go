// Package mdd implements table constraints on top of a multi-valued decision
// diagram.
//
// The diagram is stored as a flat transition table. Every node is a block of
// consecutive entries, one per value of its layer's construction-time range;
// an entry holds the index of the child node in the next layer, Reject when
// the value leads nowhere, or Accept on the last layer when the tuple is
// allowed. The root node starts at index 0, which is never a child, so 0
// doubles as the reject sentinel.
package mdd

import (
	"encoding/binary"
	"slices"

	"github.com/operator-framework/deppy-fd/pkg/cp"
)

const (
	Reject = 0
	Accept = -1
)

// maxLayerSpan bounds the value range of one variable, since every node of
// its layer holds an entry per value.
const maxLayerSpan = 1 << 16

type options struct {
	compact bool
	sort    bool
}

// Option configures diagram construction.
type Option func(o *options)

// WithCompaction merges nodes of the same layer that have identical outgoing
// edges. It is on by default.
func WithCompaction(on bool) Option {
	return func(o *options) {
		o.compact = on
	}
}

// WithSortedTuples inserts tuples in lexicographic order, which makes the
// layout independent of the input order. It is off by default.
func WithSortedTuples(on bool) Option {
	return func(o *options) {
		o.sort = on
	}
}

// MDD is an immutable decision diagram over an ordered list of variables.
type MDD struct {
	vars    []*cp.IntVar
	offsets []int
	sizes   []int
	table   []int
	nodes   int
}

// node is a block of the table under construction.
type node struct {
	start, layer int
}

// New builds the diagram accepting exactly tuples. Every coordinate must lie
// within the current bounds of the matching variable.
func New(vars []*cp.IntVar, tuples *Tuples, opts ...Option) (*MDD, error) {
	o := options{compact: true}
	for _, opt := range opts {
		opt(&o)
	}
	if len(vars) == 0 {
		return nil, cp.ConfigError("mdd: no variables")
	}
	if tuples.Arity() != len(vars) {
		return nil, cp.ConfigError("mdd: tuples of arity %d over %d variables", tuples.Arity(), len(vars))
	}
	m := &MDD{
		vars:    vars,
		offsets: make([]int, len(vars)),
		sizes:   make([]int, len(vars)),
	}
	for i, x := range vars {
		span := x.Max() - x.Min() + 1
		if span > maxLayerSpan {
			return nil, cp.ConfigError("mdd: variable %s spans %d values, at most %d are supported", x.Name(), span, maxLayerSpan)
		}
		m.offsets[i] = x.Min()
		m.sizes[i] = span
	}

	rows := make([][]int, tuples.Len())
	for i := range rows {
		t := tuples.Get(i)
		for l, v := range t {
			if v < m.offsets[l] || v >= m.offsets[l]+m.sizes[l] {
				return nil, cp.ConfigError("mdd: tuple %v: %d outside the domain of %s", t, v, vars[l].Name())
			}
		}
		rows[i] = t
	}
	if o.sort {
		slices.SortFunc(rows, slices.Compare[[]int])
		rows = slices.CompactFunc(rows, slices.Equal[[]int])
	}

	table, nodes := m.insert(rows)
	if o.compact {
		m.reduce(table, nodes)
	}
	m.layout(table)
	return m, nil
}

// insert builds a trie holding rows.
func (m *MDD) insert(rows [][]int) ([]int, []node) {
	table := make([]int, m.sizes[0])
	nodes := []node{{start: 0, layer: 0}}
	last := len(m.sizes) - 1
	for _, row := range rows {
		at := 0
		for l, v := range row {
			slot := at + v - m.offsets[l]
			if l == last {
				table[slot] = Accept
				break
			}
			if table[slot] == Reject {
				child := len(table)
				table = append(table, make([]int, m.sizes[l+1])...)
				nodes = append(nodes, node{start: child, layer: l + 1})
				table[slot] = child
			}
			at = table[slot]
		}
	}
	return table, nodes
}

// reduce redirects every edge to the first node of its layer with the same
// outgoing edges, working bottom-up so that children are already canonical.
func (m *MDD) reduce(table []int, nodes []node) {
	byLayer := make([][]int, len(m.sizes))
	for _, n := range nodes {
		byLayer[n.layer] = append(byLayer[n.layer], n.start)
	}
	canon := make(map[int]int, len(nodes))
	var key []byte
	for l := len(m.sizes) - 1; l >= 0; l-- {
		seen := make(map[string]int, len(byLayer[l]))
		for _, start := range byLayer[l] {
			block := table[start : start+m.sizes[l]]
			key = key[:0]
			for i, child := range block {
				if child > 0 {
					block[i] = canon[child]
				}
				key = binary.AppendVarint(key, int64(block[i]))
			}
			if first, ok := seen[string(key)]; ok {
				canon[start] = first
				continue
			}
			seen[string(key)] = start
			canon[start] = start
		}
	}
}

// layout copies the nodes reachable from the root into m.table in
// depth-first order.
func (m *MDD) layout(table []int) {
	index := make(map[int]int)
	m.table = make([]int, 0, len(table))
	var visit func(start, layer int) int
	visit = func(start, layer int) int {
		if at, ok := index[start]; ok {
			return at
		}
		at := len(m.table)
		index[start] = at
		m.nodes++
		m.table = append(m.table, table[start:start+m.sizes[layer]]...)
		for i := 0; i < m.sizes[layer]; i++ {
			if child := table[start+i]; child > 0 {
				next := visit(child, layer+1)
				m.table[at+i] = next
			}
		}
		return at
	}
	visit(0, 0)
}

// Vars returns the layered variables in layer order.
func (m *MDD) Vars() []*cp.IntVar {
	return m.vars
}

// Diagram returns a copy of the flat transition table.
func (m *MDD) Diagram() []int {
	return slices.Clone(m.table)
}

// NodeCount returns the number of nodes, terminals excluded.
func (m *MDD) NodeCount() int {
	return m.nodes
}

// Exists reports whether tuple is accepted.
func (m *MDD) Exists(tuple []int) bool {
	if len(tuple) != len(m.sizes) {
		return false
	}
	at := 0
	for l, v := range tuple {
		i := v - m.offsets[l]
		if i < 0 || i >= m.sizes[l] {
			return false
		}
		next := m.table[at+i]
		if l == len(m.sizes)-1 {
			return next == Accept
		}
		if next == Reject {
			return false
		}
		at = next
	}
	return false
}
