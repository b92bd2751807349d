package sale

// Root is a 32-byte Merkle root committing to a window's allow list.
// The zero value means the window is public (no membership check).
type Root [32]byte

// IsZero reports whether the root is the public/unrestricted sentinel.
func (r Root) IsZero() bool { return r == Root{} }

// Window is one sale period in the registry. Windows form a doubly-linked
// chain ordered by strictly increasing start time; Prev/Next are window ids
// with 0 meaning none. A window whose Limits slice is nil is a tombstone
// left behind by removal and is treated as absent everywhere.
type Window struct {
	ID     uint64
	Root   Root
	Start  uint64 // unix seconds
	Limits []uint64
	Prev   uint64
	Next   uint64
}

// WindowState is the lifecycle state of a window at a given instant.
type WindowState int

const (
	StateNotStarted WindowState = iota
	StateOngoing
	StateFinished
)

// String returns the wire name of the state.
func (s WindowState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateOngoing:
		return "ongoing"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

func (w *Window) clone() Window {
	c := *w
	if w.Limits != nil {
		c.Limits = make([]uint64, len(w.Limits))
		copy(c.Limits, w.Limits)
	}
	return c
}
