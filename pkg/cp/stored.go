package cp

import "github.com/operator-framework/deppy-fd/internal/trail"

// StoredInt is an integer whose value is restored on rollback. Propagators
// use it for incremental state that must follow the search.
type StoredInt struct {
	s *trail.Store
	c trail.Cell
}

// NewStoredInt allocates a reversible integer in n's store.
func (n *Network) NewStoredInt(v int) StoredInt {
	return StoredInt{s: n.store, c: n.store.NewCell(int64(v))}
}

func (v StoredInt) Get() int {
	return int(v.s.Get(v.c))
}

func (v StoredInt) Set(x int) {
	v.s.Set(v.c, int64(x))
}

func (v StoredInt) Add(delta int) int {
	return int(v.s.Add(v.c, int64(delta)))
}
