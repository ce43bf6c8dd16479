package cp

// EventKind classifies a domain change. Kinds are ordered by how much
// information they carry: an instantiation is also a bound change, which is
// also a value removal.
type EventKind uint8

const (
	// Remove is raised when an interior value leaves a domain.
	Remove EventKind = iota
	// Bound is raised when the lower or upper bound moves.
	Bound
	// Instantiate is raised when a domain becomes a singleton.
	Instantiate

	numEventKinds = 3
)

func (k EventKind) String() string {
	switch k {
	case Remove:
		return "REMOVE"
	case Bound:
		return "BOUND"
	case Instantiate:
		return "INSTANTIATE"
	}
	return "UNKNOWN"
}

// Wakes reports whether an event of kind k should wake a propagator that
// declared interest in kind.
func (k EventKind) Wakes(interest EventKind) bool {
	return k >= interest
}

// Event is the notification produced by every successful domain mutation.
type Event struct {
	Var  *IntVar
	Kind EventKind
}
