package sale

// stateOf evaluates a window's lifecycle state at now. A window is ongoing
// once its start has passed, for as long as it is the tail of the chain or
// the successor has not yet started. The comparisons are strict: at the
// exact start instant a window is neither not-started nor ongoing.
func (e *Engine) stateOf(w *Window, now uint64) WindowState {
	if now < w.Start {
		return StateNotStarted
	}
	if now > w.Start {
		if w.Next == 0 {
			return StateOngoing
		}
		if next := e.reg.get(w.Next); next != nil && now < next.Start {
			return StateOngoing
		}
	}
	return StateFinished
}

// refresh lazily advances the active-window cursor. If the cursored window
// is still ongoing nothing changes. When it has finished, the scan starts
// at its successor: insertion demands a strictly future start, so nothing
// before a window adopted as ongoing can become ongoing again. In every
// other case (the cursor names no live window, or one that has not yet
// started, as after a fresh boot or a restore) the scan starts from the
// head, since an ongoing window may sit anywhere in the chain. The first
// ongoing window found is adopted; when none is found the cursor is left
// alone and downstream checks report the sale as closed.
func (e *Engine) refresh(now uint64) {
	scan := e.reg.first
	if cur := e.reg.get(e.active); cur != nil {
		switch e.stateOf(cur, now) {
		case StateOngoing:
			return
		case StateFinished:
			scan = cur.Next
		}
	}
	for id := scan; id != 0; {
		w := e.reg.get(id)
		if w == nil {
			return
		}
		switch e.stateOf(w, now) {
		case StateOngoing:
			e.active = id
			return
		case StateNotStarted:
			// chain is ordered by start time; everything after
			// this one has not started either
			return
		}
		id = w.Next
	}
}

// Refresh re-evaluates the active-window cursor against the current time.
// It runs implicitly at the top of every operation that depends on the
// active window; this export exists for the read surface.
func (e *Engine) Refresh() { e.refresh(e.now()) }
