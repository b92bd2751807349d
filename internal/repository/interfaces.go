package repository

import (
	"context"

	"mintgate-api/internal/model"
)

// Meta keys persisted in the drop_meta table.
const (
	MetaActiveWindow = "active_window"
	MetaIDCeiling    = "id_ceiling"
)

// DropStore persists the drop state. The in-memory engine stays
// authoritative; the service writes through after each successful mutation
// and replays the store once at startup.
type DropStore interface {
	// Load reads the full persisted state.
	Load(ctx context.Context) (*model.Snapshot, error)

	// SaveType upserts one catalog entry by index.
	SaveType(ctx context.Context, entry model.CatalogEntry) error

	// SaveWindow upserts one window record.
	SaveWindow(ctx context.Context, w model.WindowRecord) error

	// DeleteWindow drops a removed window's record.
	DeleteWindow(ctx context.Context, id uint64) error

	// SaveLedger upserts one (window, recipient, type) minted count.
	SaveLedger(ctx context.Context, e model.LedgerEntry) error

	// SaveMeta upserts a named counter (active window cursor, id ceiling).
	SaveMeta(ctx context.Context, key string, value uint64) error

	// AppendMint appends one receipt to the audit journal.
	AppendMint(ctx context.Context, r model.MintReceipt) error

	// Ping checks connectivity for readiness probes.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
