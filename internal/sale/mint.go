package sale

import "math"

// Allocator is the external asset collaborator: it assigns ownership of a
// newly numbered item, and releases it again when a mint must be unwound.
type Allocator interface {
	Allocate(recipient string, id uint64) error
	Release(recipient string, id uint64) error
}

// Refunder returns excess payment to the payer. A refund failure is fatal
// for the whole mint.
type Refunder interface {
	Refund(payer string, amount uint64) error
}

// MintRequest carries one mint attempt.
type MintRequest struct {
	Recipient string
	Quantity  uint64
	TypeIndex int
	Payment   uint64
	Proof     [][32]byte
}

// MintResult reports a successful mint.
type MintResult struct {
	WindowID uint64
	FirstID  uint64
	LastID   uint64
	Paid     uint64
	Refunded uint64
}

// Mint validates the request against the active window and, on success,
// allocates sequential identifiers through the allocator and records the
// consumption. The checks run in fixed order; any failure aborts with no
// state change. Identifiers already handed to the allocator are released
// again if a later step fails, so the operation is all-or-nothing.
func (e *Engine) Mint(req MintRequest, alloc Allocator, refund Refunder) (MintResult, error) {
	if e.minting {
		return MintResult{}, ErrReentrancy
	}
	e.minting = true
	defer func() { e.minting = false }()

	now := e.now()
	e.refresh(now)

	w := e.reg.get(e.active)
	if w == nil || e.stateOf(w, now) != StateOngoing {
		return MintResult{}, ErrSaleClosed
	}

	if !w.Root.IsZero() {
		if !e.verify(req.Proof, w.Root, e.leaf(req.Recipient)) {
			return MintResult{}, ErrNotEligible
		}
	}

	if req.TypeIndex < 0 || req.TypeIndex >= len(e.catalog) {
		return MintResult{}, ErrUnknownType
	}
	if req.Quantity == 0 || req.Recipient == "" {
		return MintResult{}, ErrInvalidInput
	}

	t := &e.catalog[req.TypeIndex]
	if t.Remaining < req.Quantity {
		return MintResult{}, ErrSoldOut
	}

	var limit uint64
	if req.TypeIndex < len(w.Limits) {
		limit = w.Limits[req.TypeIndex]
	}
	var already uint64
	if perRecipient, ok := e.ledger[w.ID]; ok {
		if counts, ok := perRecipient[req.Recipient]; ok && req.TypeIndex < len(counts) {
			already = counts[req.TypeIndex]
		}
	}
	if already+req.Quantity > limit {
		return MintResult{}, ErrQuotaExceeded
	}

	// a price that would wrap uint64 can never be covered
	if t.Price != 0 && req.Quantity > math.MaxUint64/t.Price {
		return MintResult{}, ErrInsufficientPayment
	}
	price := t.Price * req.Quantity
	if req.Payment < price {
		return MintResult{}, ErrInsufficientPayment
	}

	// commit: every effect below must be undone on any failure
	counts := e.ledgerCounts(w.ID, req.Recipient)
	counts[req.TypeIndex] = already + req.Quantity
	t.Remaining -= req.Quantity

	firstID := t.NextID
	allocated := uint64(0)
	rollback := func() {
		for i := uint64(0); i < allocated; i++ {
			// release errors cannot be surfaced mid-unwind; the
			// allocator owns reconciling its side
			_ = alloc.Release(req.Recipient, firstID+i)
		}
		t.NextID = firstID
		t.Remaining += req.Quantity
		counts[req.TypeIndex] = already
	}

	for i := uint64(0); i < req.Quantity; i++ {
		id := t.NextID
		if err := alloc.Allocate(req.Recipient, id); err != nil {
			rollback()
			return MintResult{}, err
		}
		t.NextID = id + 1
		allocated++
	}

	excess := req.Payment - price
	if excess > 0 {
		if err := refund.Refund(req.Recipient, excess); err != nil {
			rollback()
			return MintResult{}, ErrPaymentRefundFailed
		}
	}

	return MintResult{
		WindowID: w.ID,
		FirstID:  firstID,
		LastID:   firstID + req.Quantity - 1,
		Paid:     price,
		Refunded: excess,
	}, nil
}
