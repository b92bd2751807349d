package sale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registryEngine returns an engine with a one-type catalog so windows can
// carry a limits slice of length 1.
func registryEngine(t *testing.T, start uint64) (*Engine, *uint64) {
	t.Helper()
	e, now := testEngine(start)
	require.NoError(t, e.AppendTypes([]uint64{100}, []uint64{1}))
	return e, now
}

func insertPublic(t *testing.T, e *Engine, id, start, prevHint, nextHint uint64) {
	t.Helper()
	require.NoError(t, e.InsertWindow(id, Root{}, start, []uint64{5}, true, prevHint, nextHint))
}

// chainIDs walks the chain and also asserts prev/next symmetry and the
// ordering invariant along the way.
func chainIDs(t *testing.T, e *Engine) []uint64 {
	t.Helper()
	windows := e.Windows()
	require.Equal(t, e.WindowCount(), len(windows))
	var ids []uint64
	var prev uint64
	var prevStart uint64
	for _, w := range windows {
		assert.Equal(t, prev, w.Prev, "window %d prev pointer", w.ID)
		if prev != 0 {
			pw, err := e.Window(prev)
			require.NoError(t, err)
			assert.Equal(t, w.ID, pw.Next, "window %d next pointer", prev)
			assert.GreaterOrEqual(t, w.Start, prevStart)
		}
		ids = append(ids, w.ID)
		prev = w.ID
		prevStart = w.Start
	}
	if len(windows) > 0 {
		assert.Equal(t, uint64(0), windows[len(windows)-1].Next)
	}
	return ids
}

func TestInsertOrdersByStartTime(t *testing.T) {
	e, _ := registryEngine(t, 1000)

	// inserted out of order, no hints
	insertPublic(t, e, 3, 4000, 0, 0)
	insertPublic(t, e, 1, 2000, 0, 0)
	insertPublic(t, e, 2, 3000, 0, 0)

	assert.Equal(t, []uint64{1, 2, 3}, chainIDs(t, e))
}

func TestInsertWithValidHints(t *testing.T) {
	e, _ := registryEngine(t, 1000)

	insertPublic(t, e, 1, 2000, 0, 0)
	insertPublic(t, e, 3, 4000, 1, 0)
	// exact bracketing pair
	insertPublic(t, e, 2, 3000, 1, 3)

	assert.Equal(t, []uint64{1, 2, 3}, chainIDs(t, e))
}

func TestInsertWithStaleHints(t *testing.T) {
	e, _ := registryEngine(t, 1000)

	insertPublic(t, e, 1, 2000, 0, 0)
	insertPublic(t, e, 2, 3000, 0, 0)
	insertPublic(t, e, 3, 4000, 0, 0)

	// hints point at the wrong end of the list
	insertPublic(t, e, 4, 2500, 3, 0)
	assert.Equal(t, []uint64{1, 4, 2, 3}, chainIDs(t, e))

	// hints name a window that was never inserted
	insertPublic(t, e, 5, 3500, 99, 98)
	assert.Equal(t, []uint64{1, 4, 2, 5, 3}, chainIDs(t, e))

	// only a successor hint survives, forcing the backward walk
	insertPublic(t, e, 6, 2200, 0, 3)
	assert.Equal(t, []uint64{1, 6, 4, 2, 5, 3}, chainIDs(t, e))
}

func TestInsertValidation(t *testing.T) {
	e, _ := registryEngine(t, 1000)
	insertPublic(t, e, 1, 2000, 0, 0)

	tests := []struct {
		name string
		err  error
		fn   func() error
	}{
		{"zero id", ErrInvalidInput, func() error {
			return e.InsertWindow(0, Root{}, 3000, []uint64{5}, true, 0, 0)
		}},
		{"duplicate id", ErrDuplicateID, func() error {
			return e.InsertWindow(1, Root{}, 3000, []uint64{5}, true, 0, 0)
		}},
		{"restricted window without root", ErrEmptyMembershipRoot, func() error {
			return e.InsertWindow(2, Root{}, 3000, []uint64{5}, false, 0, 0)
		}},
		{"public window with root", ErrInvalidInput, func() error {
			return e.InsertWindow(2, Root{1}, 3000, []uint64{5}, true, 0, 0)
		}},
		{"start in the past", ErrPastStartTime, func() error {
			return e.InsertWindow(2, Root{}, 999, []uint64{5}, true, 0, 0)
		}},
		{"start right now", ErrPastStartTime, func() error {
			return e.InsertWindow(2, Root{}, 1000, []uint64{5}, true, 0, 0)
		}},
		{"duplicate start time", ErrDuplicateStartTime, func() error {
			return e.InsertWindow(2, Root{}, 2000, []uint64{5}, true, 0, 0)
		}},
		{"limits length mismatch", ErrLimitsLengthMismatch, func() error {
			return e.InsertWindow(2, Root{}, 3000, []uint64{5, 5}, true, 0, 0)
		}},
		{"empty limits", ErrLimitsLengthMismatch, func() error {
			return e.InsertWindow(2, Root{}, 3000, nil, true, 0, 0)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.fn(), tc.err)
		})
	}

	// nothing leaked into the registry
	assert.Equal(t, []uint64{1}, chainIDs(t, e))
}

func TestRemoveSpliceCases(t *testing.T) {
	e, _ := registryEngine(t, 1000)
	for i, start := range []uint64{2000, 3000, 4000, 5000} {
		insertPublic(t, e, uint64(i+1), start, 0, 0)
	}

	require.NoError(t, e.RemoveWindow(2)) // interior
	assert.Equal(t, []uint64{1, 3, 4}, chainIDs(t, e))

	require.NoError(t, e.RemoveWindow(1)) // head
	assert.Equal(t, []uint64{3, 4}, chainIDs(t, e))

	require.NoError(t, e.RemoveWindow(4)) // tail
	assert.Equal(t, []uint64{3}, chainIDs(t, e))

	require.NoError(t, e.RemoveWindow(3)) // sole element
	assert.Empty(t, chainIDs(t, e))

	// tombstoned records read as absent
	assert.False(t, e.Contains(2))
	_, err := e.Window(2)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, e.RemoveWindow(2), ErrNotFound)
}

func TestRemoveThenReinsertReproducesShape(t *testing.T) {
	e, _ := registryEngine(t, 1000)
	for i, start := range []uint64{2000, 3000, 4000} {
		insertPublic(t, e, uint64(i+1), start, 0, 0)
	}
	before, err := e.Window(2)
	require.NoError(t, err)

	require.NoError(t, e.RemoveWindow(2))
	insertPublic(t, e, 2, 3000, 1, 3)

	after, err := e.Window(2)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []uint64{1, 2, 3}, chainIDs(t, e))
}

func TestRemoveStartedWindowRejected(t *testing.T) {
	e, now := registryEngine(t, 1000)
	insertPublic(t, e, 1, 2000, 0, 0)
	insertPublic(t, e, 2, 3000, 0, 0)

	*now = 2500 // window 1 is now ongoing
	assert.ErrorIs(t, e.RemoveWindow(1), ErrNotModifiable)

	*now = 3500 // window 1 finished, window 2 ongoing
	assert.ErrorIs(t, e.RemoveWindow(1), ErrNotModifiable)
	assert.ErrorIs(t, e.RemoveWindow(2), ErrNotModifiable)
}

func TestEditMovesWindow(t *testing.T) {
	e, _ := registryEngine(t, 1000)
	for i, start := range []uint64{2000, 3000, 4000} {
		insertPublic(t, e, uint64(i+1), start, 0, 0)
	}

	// move the head past the tail
	require.NoError(t, e.EditWindow(1, Root{}, 5000, []uint64{7}, true))
	assert.Equal(t, []uint64{2, 3, 1}, chainIDs(t, e))

	w, err := e.Window(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), w.Start)
	assert.Equal(t, []uint64{7}, w.Limits)

	// edit in place keeps the position
	require.NoError(t, e.EditWindow(3, Root{}, 4100, []uint64{9}, true))
	assert.Equal(t, []uint64{2, 3, 1}, chainIDs(t, e))
}

func TestEditValidation(t *testing.T) {
	e, now := registryEngine(t, 1000)
	insertPublic(t, e, 1, 2000, 0, 0)
	insertPublic(t, e, 2, 3000, 0, 0)

	assert.ErrorIs(t, e.EditWindow(9, Root{}, 5000, []uint64{5}, true), ErrNotFound)
	assert.ErrorIs(t, e.EditWindow(2, Root{}, 2000, []uint64{5}, true), ErrDuplicateStartTime)
	assert.ErrorIs(t, e.EditWindow(2, Root{}, 500, []uint64{5}, true), ErrPastStartTime)
	assert.ErrorIs(t, e.EditWindow(2, Root{}, 5000, []uint64{5, 5}, true), ErrLimitsLengthMismatch)

	// self-comparison is excluded from the duplicate-start check
	require.NoError(t, e.EditWindow(2, Root{}, 3000, []uint64{8}, true))

	*now = 2500
	assert.ErrorIs(t, e.EditWindow(1, Root{}, 5000, []uint64{5}, true), ErrNotModifiable)

	assert.Equal(t, []uint64{1, 2}, chainIDs(t, e))
}

func TestTombstonedIDIsReusable(t *testing.T) {
	e, _ := registryEngine(t, 1000)
	insertPublic(t, e, 1, 2000, 0, 0)
	require.NoError(t, e.RemoveWindow(1))

	insertPublic(t, e, 1, 2500, 0, 0)
	w, err := e.Window(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2500), w.Start)
}
