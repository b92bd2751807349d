package sale

// registry is the doubly-linked collection of sale windows, keyed by id and
// chained in strictly increasing start-time order. The map is the backing
// arena; Prev/Next ids replace pointers so splices stay O(1) given a
// correct adjacent pair.
type registry struct {
	first   uint64
	last    uint64
	size    int
	windows map[uint64]*Window
}

// get returns the live window under id, or nil when the id is unknown or
// tombstoned.
func (r *registry) get(id uint64) *Window {
	w := r.windows[id]
	if w == nil || w.Limits == nil {
		return nil
	}
	return w
}

// validPair reports whether (prev, next) is an existing adjacent pair that
// brackets start per the ordering invariant, covering the empty-list and
// boundary cases.
func (r *registry) validPair(prev, next, start uint64) bool {
	switch {
	case prev == 0 && next == 0:
		return r.size == 0
	case prev == 0:
		n := r.get(next)
		return n != nil && next == r.first && start < n.Start
	case next == 0:
		p := r.get(prev)
		return p != nil && prev == r.last && p.Start < start
	default:
		p := r.get(prev)
		n := r.get(next)
		return p != nil && n != nil && p.Next == next && p.Start < start && start < n.Start
	}
}

// findSlot locates the adjacent pair bracketing start. Caller-supplied
// hints are never trusted: a hint that no longer exists or is
// time-inconsistent with start is discarded, then the chain is walked from
// whichever hint survives (or from the head). The walk is derived from the
// invariant - find prev with prev.Start < start and next with
// start < next.Start - not from pointer gymnastics.
func (r *registry) findSlot(start, prevHint, nextHint uint64) (uint64, uint64) {
	if r.validPair(prevHint, nextHint, start) {
		return prevHint, nextHint
	}

	prev := prevHint
	if prev != 0 {
		if w := r.get(prev); w == nil || w.Start >= start {
			prev = 0
		}
	}
	next := nextHint
	if next != 0 {
		if w := r.get(next); w == nil || w.Start <= start {
			next = 0
		}
	}

	switch {
	case prev != 0:
		// walk forward until the successor is past start
		for {
			w := r.get(prev)
			if w.Next == 0 || r.get(w.Next).Start >= start {
				return prev, w.Next
			}
			prev = w.Next
		}
	case next != 0:
		// walk backward until the predecessor is before start
		for {
			w := r.get(next)
			if w.Prev == 0 || r.get(w.Prev).Start <= start {
				return w.Prev, next
			}
			next = w.Prev
		}
	default:
		if r.first == 0 {
			return 0, 0
		}
		if r.get(r.first).Start >= start {
			return 0, r.first
		}
		prev = r.first
		for {
			w := r.get(prev)
			if w.Next == 0 || r.get(w.Next).Start >= start {
				return prev, w.Next
			}
			prev = w.Next
		}
	}
}

// splice links w between prev and next, handling the empty list, new head,
// new tail and interior cases.
func (r *registry) splice(w *Window, prev, next uint64) {
	w.Prev = prev
	w.Next = next
	if prev == 0 {
		r.first = w.ID
	} else {
		r.windows[prev].Next = w.ID
	}
	if next == 0 {
		r.last = w.ID
	} else {
		r.windows[next].Prev = w.ID
	}
	r.windows[w.ID] = w
	r.size++
}

// unlink splices w out of the chain without tombstoning it.
func (r *registry) unlink(w *Window) {
	if w.Prev == 0 {
		r.first = w.Next
	} else {
		r.windows[w.Prev].Next = w.Next
	}
	if w.Next == 0 {
		r.last = w.Prev
	} else {
		r.windows[w.Next].Prev = w.Prev
	}
	w.Prev = 0
	w.Next = 0
	r.size--
}

// duplicateStart reports whether any live window other than exclude shares
// the start time. Insertion requires a future start, so only not-yet-started
// windows can ever collide.
func (r *registry) duplicateStart(start, exclude uint64) bool {
	for id := r.first; id != 0; {
		w := r.get(id)
		if w == nil {
			break
		}
		if w.Start == start && w.ID != exclude {
			return true
		}
		if w.Start > start {
			break
		}
		id = w.Next
	}
	return false
}

// InsertWindow adds a sale window to the registry. prevHint/nextHint are an
// optional positional hint (0 for none); they are validated and fall back
// to a chain search when stale.
func (e *Engine) InsertWindow(id uint64, root Root, start uint64, limits []uint64, public bool, prevHint, nextHint uint64) error {
	e.refresh(e.now())
	if id == 0 {
		return ErrInvalidInput
	}
	if e.reg.get(id) != nil {
		return ErrDuplicateID
	}
	if err := e.validateWindow(id, root, start, limits, public, 0); err != nil {
		return err
	}

	w := &Window{ID: id, Root: root, Start: start, Limits: append([]uint64(nil), limits...)}
	prev, next := e.reg.findSlot(start, prevHint, nextHint)
	e.reg.splice(w, prev, next)
	return nil
}

// EditWindow replaces a not-yet-started window's fields. The window is
// unlinked and re-inserted under the same id, using itself as both position
// hints; since the unlinked window no longer exists the hints are discarded
// and a fresh search runs, so the window moves wherever its new start time
// belongs.
func (e *Engine) EditWindow(id uint64, root Root, start uint64, limits []uint64, public bool) error {
	now := e.now()
	e.refresh(now)
	w := e.reg.get(id)
	if w == nil {
		return ErrNotFound
	}
	if e.stateOf(w, now) != StateNotStarted {
		return ErrNotModifiable
	}
	if err := e.validateWindow(id, root, start, limits, public, id); err != nil {
		return err
	}

	e.reg.unlink(w)
	w.Root = root
	w.Start = start
	w.Limits = append([]uint64(nil), limits...)
	prev, next := e.reg.findSlot(start, id, id)
	e.reg.splice(w, prev, next)
	return nil
}

// RemoveWindow deletes a not-yet-started window. The record is tombstoned
// by clearing its limits; the id may later be reused by a fresh insert.
func (e *Engine) RemoveWindow(id uint64) error {
	now := e.now()
	e.refresh(now)
	w := e.reg.get(id)
	if w == nil {
		return ErrNotFound
	}
	if e.stateOf(w, now) != StateNotStarted {
		return ErrNotModifiable
	}
	e.reg.unlink(w)
	w.Limits = nil
	return nil
}

// validateWindow runs the shared insert/edit validations in fixed order.
// exclude names the window to skip in the duplicate-start check (the window
// itself during edit).
func (e *Engine) validateWindow(id uint64, root Root, start uint64, limits []uint64, public bool, exclude uint64) error {
	if id == 0 {
		return ErrInvalidInput
	}
	if public {
		if !root.IsZero() {
			return ErrInvalidInput
		}
	} else if root.IsZero() {
		return ErrEmptyMembershipRoot
	}
	if start <= e.now() {
		return ErrPastStartTime
	}
	if e.reg.duplicateStart(start, exclude) {
		return ErrDuplicateStartTime
	}
	if len(limits) != len(e.catalog) || len(limits) == 0 {
		return ErrLimitsLengthMismatch
	}
	return nil
}
