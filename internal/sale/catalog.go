package sale

import "math"

// ItemType is one entry of the type catalog: a category of item with a
// finite supply and a fixed unit price. Identifiers for all types are
// allocated from packed, contiguous, non-overlapping ranges starting at 1,
// so NextID for a freshly appended type is one plus the total quantity of
// everything appended before it.
type ItemType struct {
	Remaining uint64 `json:"remaining"`
	Price     uint64 `json:"price"`
	NextID    uint64 `json:"next_id"`
}

// AppendTypes appends one catalog entry per quantity/price pair. The
// catalog is append-only; there is no removal operation.
func (e *Engine) AppendTypes(quantities, prices []uint64) error {
	if len(quantities) == 0 || len(quantities) != len(prices) {
		return ErrInvalidInput
	}
	// ranges must stay within uint64 or they would overlap after wrapping;
	// reject the whole append before touching the catalog
	ceiling := e.idCeiling
	for _, q := range quantities {
		if q > math.MaxUint64-ceiling {
			return ErrInvalidInput
		}
		ceiling += q
	}
	for i, q := range quantities {
		e.catalog = append(e.catalog, ItemType{
			Remaining: q,
			Price:     prices[i],
			NextID:    e.idCeiling + 1,
		})
		e.idCeiling += q
	}
	return nil
}

// Catalog returns a copy of the catalog entries.
func (e *Engine) Catalog() []ItemType {
	out := make([]ItemType, len(e.catalog))
	copy(out, e.catalog)
	return out
}

// CatalogSize returns the number of item types.
func (e *Engine) CatalogSize() int { return len(e.catalog) }

// IDCeiling returns the highest identifier covered by any appended range.
func (e *Engine) IDCeiling() uint64 { return e.idCeiling }
