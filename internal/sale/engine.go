package sale

import "sort"

// VerifyFunc checks a membership proof against a committed root for one
// leaf digest. It must be a pure function.
type VerifyFunc func(proof [][32]byte, root [32]byte, leaf [32]byte) bool

// LeafFunc derives the allow-list leaf digest for a recipient.
type LeafFunc func(recipient string) [32]byte

// Engine holds the full drop state: the type catalog, the ordered window
// registry, the per-window mint ledger and the active-window cursor. It is
// purely in-memory and single-threaded; the owning service serializes all
// calls behind one mutex. Time is injected through a clock function so the
// state machine is deterministic under test.
type Engine struct {
	catalog   []ItemType
	idCeiling uint64 // highest identifier covered by any appended range

	reg registry

	// ledger: window id -> recipient -> per-type minted counts,
	// lazily created on first mint.
	ledger map[uint64]map[string][]uint64

	// active is the window currently believed to be ongoing. It starts
	// at 1; once the cursored window has finished it is never re-adopted.
	active uint64

	now    func() uint64
	verify VerifyFunc
	leaf   LeafFunc

	minting bool // re-entrancy guard around Mint
}

// NewEngine creates an empty engine. The clock returns unix seconds.
func NewEngine(clock func() uint64, verify VerifyFunc, leaf LeafFunc) *Engine {
	return &Engine{
		reg:    registry{windows: make(map[uint64]*Window)},
		ledger: make(map[uint64]map[string][]uint64),
		active: 1,
		now:    clock,
		verify: verify,
		leaf:   leaf,
	}
}

// Window returns a copy of the identified window record, tombstones
// excluded.
func (e *Engine) Window(id uint64) (Window, error) {
	w := e.reg.get(id)
	if w == nil {
		return Window{}, ErrNotFound
	}
	return w.clone(), nil
}

// Contains reports whether a live (non-tombstoned) window exists under id.
func (e *Engine) Contains(id uint64) bool { return e.reg.get(id) != nil }

// Windows returns copies of all live windows in chain order, head to tail.
func (e *Engine) Windows() []Window {
	out := make([]Window, 0, e.reg.size)
	for id := e.reg.first; id != 0; {
		w := e.reg.get(id)
		if w == nil {
			break
		}
		out = append(out, w.clone())
		id = w.Next
	}
	return out
}

// WindowCount returns the number of live windows.
func (e *Engine) WindowCount() int { return e.reg.size }

// StateOf evaluates the identified window's state at the current time.
func (e *Engine) StateOf(id uint64) (WindowState, error) {
	w := e.reg.get(id)
	if w == nil {
		return 0, ErrNotFound
	}
	return e.stateOf(w, e.now()), nil
}

// ActiveWindow refreshes the cursor and returns the active window, or
// ok=false when no window is currently ongoing.
func (e *Engine) ActiveWindow() (Window, bool) {
	now := e.now()
	e.refresh(now)
	w := e.reg.get(e.active)
	if w == nil || e.stateOf(w, now) != StateOngoing {
		return Window{}, false
	}
	return w.clone(), true
}

// ActiveWindowID returns the raw cursor value without refreshing.
func (e *Engine) ActiveWindowID() uint64 { return e.active }

// MintedCounts returns the per-type minted counts for a recipient within a
// window. An untouched ledger entry reads as all zeros.
func (e *Engine) MintedCounts(windowID uint64, recipient string) ([]uint64, error) {
	if e.reg.get(windowID) == nil {
		return nil, ErrNotFound
	}
	out := make([]uint64, len(e.catalog))
	if perRecipient, ok := e.ledger[windowID]; ok {
		if counts, ok := perRecipient[recipient]; ok {
			copy(out, counts)
		}
	}
	return out, nil
}

// Snapshot is the full persistable engine state.
type Snapshot struct {
	Types        []ItemType
	IDCeiling    uint64
	Windows      []Window // live windows only, any order
	Ledger       []LedgerEntry
	ActiveWindow uint64
}

// LedgerEntry is one (window, recipient, type) minted count.
type LedgerEntry struct {
	WindowID  uint64
	Recipient string
	TypeIndex int
	Minted    uint64
}

// Snapshot exports the engine state for persistence.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Types:        e.Catalog(),
		IDCeiling:    e.idCeiling,
		Windows:      e.Windows(),
		ActiveWindow: e.active,
	}
	for windowID, perRecipient := range e.ledger {
		for recipient, counts := range perRecipient {
			for idx, n := range counts {
				if n > 0 {
					s.Ledger = append(s.Ledger, LedgerEntry{
						WindowID:  windowID,
						Recipient: recipient,
						TypeIndex: idx,
						Minted:    n,
					})
				}
			}
		}
	}
	return s
}

// Restore rebuilds the engine from a snapshot. Windows are relinked in
// start-time order; restored windows may legitimately lie in the past, so
// the usual insertion validations do not apply here.
func (e *Engine) Restore(s Snapshot) error {
	if e.reg.size != 0 || len(e.catalog) != 0 {
		return ErrInvalidInput
	}
	e.catalog = make([]ItemType, len(s.Types))
	copy(e.catalog, s.Types)
	e.idCeiling = s.IDCeiling

	windows := make([]Window, len(s.Windows))
	copy(windows, s.Windows)
	sort.Slice(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })
	var prev uint64
	for i := range windows {
		w := windows[i]
		if w.ID == 0 || w.Limits == nil || e.reg.windows[w.ID] != nil {
			return ErrInvalidInput
		}
		w.Prev = prev
		w.Next = 0
		if prev == 0 {
			e.reg.first = w.ID
		} else {
			e.reg.windows[prev].Next = w.ID
		}
		e.reg.windows[w.ID] = &w
		e.reg.last = w.ID
		e.reg.size++
		prev = w.ID
	}

	for _, le := range s.Ledger {
		if e.reg.get(le.WindowID) == nil || le.TypeIndex < 0 || le.TypeIndex >= len(e.catalog) {
			return ErrInvalidInput
		}
		counts := e.ledgerCounts(le.WindowID, le.Recipient)
		counts[le.TypeIndex] = le.Minted
	}

	if s.ActiveWindow != 0 {
		e.active = s.ActiveWindow
	}
	return nil
}

// ledgerCounts returns the mutable counts slice for (window, recipient),
// creating it lazily.
func (e *Engine) ledgerCounts(windowID uint64, recipient string) []uint64 {
	perRecipient, ok := e.ledger[windowID]
	if !ok {
		perRecipient = make(map[string][]uint64)
		e.ledger[windowID] = perRecipient
	}
	counts, ok := perRecipient[recipient]
	if !ok || len(counts) < len(e.catalog) {
		grown := make([]uint64, len(e.catalog))
		copy(grown, counts)
		perRecipient[recipient] = grown
		counts = grown
	}
	return counts
}
