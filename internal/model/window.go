package model

// WindowRecord is the wire/store representation of one sale window.
// Root is lowercase hex; an all-zero root marks a public window.
type WindowRecord struct {
	ID     uint64   `json:"id"`
	Root   string   `json:"membership_root"`
	Public bool     `json:"public"`
	Start  uint64   `json:"start_time"`
	Limits []uint64 `json:"per_type_limits"`
	Prev   uint64   `json:"prev_id"`
	Next   uint64   `json:"next_id"`
	State  string   `json:"state,omitempty"`
}

// CatalogEntry is the wire/store representation of one item type.
type CatalogEntry struct {
	Index     int    `json:"index"`
	Remaining uint64 `json:"remaining"`
	Price     uint64 `json:"price"`
	NextID    uint64 `json:"next_id"`
}

// LedgerEntry is one persisted (window, recipient, type) minted count.
type LedgerEntry struct {
	WindowID  uint64 `json:"window_id"`
	Recipient string `json:"recipient"`
	TypeIndex int    `json:"type_index"`
	Minted    uint64 `json:"minted"`
}

// Snapshot is the full persisted drop state loaded at startup.
type Snapshot struct {
	Types        []CatalogEntry
	IDCeiling    uint64
	Windows      []WindowRecord
	Ledger       []LedgerEntry
	ActiveWindow uint64
}
