// Package asset is the external allocation collaborator: it owns the
// mapping from item identifier to owner. The mint engine only ever calls
// Allocate and Release; transfers and anything downstream of ownership are
// out of scope here.
package asset

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// Store is a SQLite-backed ownership ledger.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens (and if needed creates) the ownership database.
func NewStore(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open asset store: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	query := `
	CREATE TABLE IF NOT EXISTS asset_items (
		item_id INTEGER PRIMARY KEY,
		owner TEXT NOT NULL,
		minted_at DATETIME NOT NULL DEFAULT (datetime('now'))
	);
	CREATE INDEX IF NOT EXISTS idx_asset_owner ON asset_items(owner);
	`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create asset tables: %w", err)
	}

	log.Printf("[AssetStore] Initialized with database: %s", dbPath)
	return &Store{db: db}, nil
}

// Allocate assigns ownership of a freshly numbered item. It fails if the
// identifier is already owned, which the engine treats as a fatal abort of
// the mint.
func (s *Store) Allocate(ctx context.Context, recipient string, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO asset_items (item_id, owner) VALUES (?, ?)`, id, recipient)
	if err != nil {
		return fmt.Errorf("failed to allocate item %d: %w", id, err)
	}
	return nil
}

// Release revokes ownership of an item during mint rollback. Releasing an
// item the recipient does not own is a no-op.
func (s *Store) Release(ctx context.Context, recipient string, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM asset_items WHERE item_id = ? AND owner = ?`, id, recipient)
	if err != nil {
		return fmt.Errorf("failed to release item %d: %w", id, err)
	}
	return nil
}

// Owner returns the owner of an item, or "" when unallocated.
func (s *Store) Owner(ctx context.Context, id uint64) (string, error) {
	var owner string
	err := s.db.QueryRowContext(ctx,
		`SELECT owner FROM asset_items WHERE item_id = ?`, id).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up item %d: %w", id, err)
	}
	return owner, nil
}

// Count returns how many items an owner holds.
func (s *Store) Count(ctx context.Context, owner string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM asset_items WHERE owner = ?`, owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count items for %s: %w", owner, err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }
