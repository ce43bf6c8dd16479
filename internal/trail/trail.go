// Package trail implements the reversible store that every piece of mutable
// search state is built on. Cells are addressed by index; writes are logged at
// most once per cell per decision level so that Rollback can restore the
// values that were current when a checkpoint was taken.
package trail

import (
	"errors"
	"fmt"
)

// ErrInvalidMark is returned when Rollback is called with a mark that was
// never handed out by Checkpoint.
var ErrInvalidMark = errors.New("invalid trail mark")

// Cell identifies a reversible integer slot in a Store.
type Cell int32

// Mark is the decision level that was current when Checkpoint was called.
// Rolling back to a Mark restores that level.
type Mark int

type entry struct {
	cell  Cell
	prev  int64
	stamp uint64
	undo  func()
}

// Store owns the values of all cells and the undo log.
type Store struct {
	values []int64
	stamps []uint64

	log []entry
	// marks[l] is the log length when level l+1 was entered.
	marks []int
	// worlds[l] is the stamp of level l; worlds[0] belongs to the root.
	worlds []uint64
	clock  uint64
}

// New returns an empty store positioned at the root level.
func New() *Store {
	return &Store{
		worlds: []uint64{0},
	}
}

// NewCell allocates a cell holding initial. A cell allocated below the root
// keeps its initial value across rollbacks of the level it was created in.
func (s *Store) NewCell(initial int64) Cell {
	s.values = append(s.values, initial)
	s.stamps = append(s.stamps, 0)
	return Cell(len(s.values) - 1)
}

// Get returns the value of c as of the current level.
func (s *Store) Get(c Cell) int64 {
	return s.values[c]
}

// Set writes v into c, logging the previous value the first time c is
// written at the current level.
func (s *Store) Set(c Cell, v int64) {
	if s.values[c] == v {
		return
	}
	if now := s.current(); s.stamps[c] != now {
		s.log = append(s.log, entry{cell: c, prev: s.values[c], stamp: s.stamps[c]})
		s.stamps[c] = now
	}
	s.values[c] = v
}

// Add increments c by delta and returns the new value.
func (s *Store) Add(c Cell, delta int64) int64 {
	v := s.values[c] + delta
	s.Set(c, v)
	return v
}

// OnRollback registers fn to run when the current level is undone. Hooks run
// in reverse registration order, interleaved with cell restores, and must not
// write to cells.
func (s *Store) OnRollback(fn func()) {
	s.log = append(s.log, entry{cell: -1, undo: fn})
}

// Level returns the current decision level; the root is level 0.
func (s *Store) Level() int {
	return len(s.marks)
}

// Size returns the number of entries in the undo log.
func (s *Store) Size() int {
	return len(s.log)
}

// Checkpoint enters a new level and returns the mark that restores the
// level being left.
func (s *Store) Checkpoint() Mark {
	m := Mark(len(s.marks))
	s.marks = append(s.marks, len(s.log))
	s.clock++
	s.worlds = append(s.worlds, s.clock)
	return m
}

// Rollback undoes every write made since m was taken, newest first. Calling
// it with a mark at or above the current level does nothing.
func (s *Store) Rollback(m Mark) error {
	if m < 0 {
		return fmt.Errorf("rollback to %d: %w", m, ErrInvalidMark)
	}
	if int(m) >= len(s.marks) {
		return nil
	}
	floor := s.marks[m]
	for i := len(s.log) - 1; i >= floor; i-- {
		e := s.log[i]
		if e.cell < 0 {
			e.undo()
			continue
		}
		s.values[e.cell] = e.prev
		s.stamps[e.cell] = e.stamp
	}
	clear(s.log[floor:])
	s.log = s.log[:floor]
	s.marks = s.marks[:m]
	s.worlds = s.worlds[:m+1]
	return nil
}

func (s *Store) current() uint64 {
	return s.worlds[len(s.worlds)-1]
}
