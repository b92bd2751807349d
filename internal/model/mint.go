package model

import "time"

// MintRequest is the body of POST /api/v1/mint. Proof is the bottom-up
// sibling path as hex digests; empty for public windows.
type MintRequest struct {
	Recipient string   `json:"recipient"`
	Quantity  uint64   `json:"quantity"`
	TypeIndex int      `json:"type_index"`
	Payment   uint64   `json:"payment"`
	Proof     []string `json:"proof,omitempty"`
}

// MintReceipt reports a completed mint: the identifier range allocated, the
// exact price taken and any excess returned to the payer.
type MintReceipt struct {
	RequestID string    `json:"request_id"`
	WindowID  uint64    `json:"window_id"`
	Recipient string    `json:"recipient"`
	TypeIndex int       `json:"type_index"`
	Quantity  uint64    `json:"quantity"`
	FirstID   uint64    `json:"first_id"`
	LastID    uint64    `json:"last_id"`
	Paid      uint64    `json:"paid"`
	Refunded  uint64    `json:"refunded"`
	MintedAt  time.Time `json:"minted_at"`
}
