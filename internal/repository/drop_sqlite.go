package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"mintgate-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteDropStore implements DropStore using SQLite with WAL mode.
type SQLiteDropStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteDropStore creates a new SQLite drop store.
// dbPath is the path to the database file (e.g., "./data/mintgate.db").
func NewSQLiteDropStore(dbPath string) (*SQLiteDropStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createDropTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteDropStore] Initialized with database: %s", dbPath)
	return &SQLiteDropStore{db: db}, nil
}

func createDropTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS catalog_types (
		idx INTEGER PRIMARY KEY,
		remaining INTEGER NOT NULL,
		price INTEGER NOT NULL,
		next_id INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS sale_windows (
		id INTEGER PRIMARY KEY,
		root TEXT NOT NULL,
		public INTEGER NOT NULL DEFAULT 0,
		start_time INTEGER NOT NULL,
		limits_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_windows_start ON sale_windows(start_time);
	CREATE TABLE IF NOT EXISTS mint_ledger (
		window_id INTEGER NOT NULL,
		recipient TEXT NOT NULL,
		type_idx INTEGER NOT NULL,
		minted INTEGER NOT NULL,
		PRIMARY KEY (window_id, recipient, type_idx)
	);
	CREATE TABLE IF NOT EXISTS mint_journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		window_id INTEGER NOT NULL,
		recipient TEXT NOT NULL,
		type_idx INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		first_id INTEGER NOT NULL,
		paid INTEGER NOT NULL,
		refunded INTEGER NOT NULL,
		minted_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS drop_meta (
		k TEXT PRIMARY KEY,
		v INTEGER NOT NULL
	);
	`
	_, err := db.Exec(query)
	return err
}

// Load reads the full persisted state.
func (s *SQLiteDropStore) Load(ctx context.Context) (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &model.Snapshot{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, remaining, price, next_id FROM catalog_types ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e model.CatalogEntry
		if err := rows.Scan(&e.Index, &e.Remaining, &e.Price, &e.NextID); err != nil {
			return nil, err
		}
		snap.Types = append(snap.Types, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	wrows, err := s.db.QueryContext(ctx,
		`SELECT id, root, public, start_time, limits_json FROM sale_windows ORDER BY start_time`)
	if err != nil {
		return nil, fmt.Errorf("failed to load windows: %w", err)
	}
	defer wrows.Close()
	for wrows.Next() {
		var w model.WindowRecord
		var limitsJSON string
		if err := wrows.Scan(&w.ID, &w.Root, &w.Public, &w.Start, &limitsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(limitsJSON), &w.Limits); err != nil {
			return nil, fmt.Errorf("corrupt limits for window %d: %w", w.ID, err)
		}
		snap.Windows = append(snap.Windows, w)
	}
	if err := wrows.Err(); err != nil {
		return nil, err
	}

	lrows, err := s.db.QueryContext(ctx,
		`SELECT window_id, recipient, type_idx, minted FROM mint_ledger`)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		var e model.LedgerEntry
		if err := lrows.Scan(&e.WindowID, &e.Recipient, &e.TypeIndex, &e.Minted); err != nil {
			return nil, err
		}
		snap.Ledger = append(snap.Ledger, e)
	}
	if err := lrows.Err(); err != nil {
		return nil, err
	}

	snap.ActiveWindow, _ = s.meta(ctx, MetaActiveWindow)
	snap.IDCeiling, _ = s.meta(ctx, MetaIDCeiling)
	return snap, nil
}

func (s *SQLiteDropStore) meta(ctx context.Context, key string) (uint64, error) {
	var v uint64
	err := s.db.QueryRowContext(ctx, `SELECT v FROM drop_meta WHERE k = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return v, err
}

// SaveType upserts one catalog entry by index.
func (s *SQLiteDropStore) SaveType(ctx context.Context, e model.CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_types (idx, remaining, price, next_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(idx) DO UPDATE SET
			remaining = excluded.remaining,
			next_id = excluded.next_id`,
		e.Index, e.Remaining, e.Price, e.NextID)
	if err != nil {
		return fmt.Errorf("failed to save type %d: %w", e.Index, err)
	}
	return nil
}

// SaveWindow upserts one window record.
func (s *SQLiteDropStore) SaveWindow(ctx context.Context, w model.WindowRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	limitsJSON, err := json.Marshal(w.Limits)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sale_windows (id, root, public, start_time, limits_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			root = excluded.root,
			public = excluded.public,
			start_time = excluded.start_time,
			limits_json = excluded.limits_json`,
		w.ID, w.Root, w.Public, w.Start, string(limitsJSON))
	if err != nil {
		return fmt.Errorf("failed to save window %d: %w", w.ID, err)
	}
	return nil
}

// DeleteWindow drops a removed window's record.
func (s *SQLiteDropStore) DeleteWindow(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM sale_windows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete window %d: %w", id, err)
	}
	return nil
}

// SaveLedger upserts one minted count.
func (s *SQLiteDropStore) SaveLedger(ctx context.Context, e model.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mint_ledger (window_id, recipient, type_idx, minted)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(window_id, recipient, type_idx) DO UPDATE SET
			minted = excluded.minted`,
		e.WindowID, e.Recipient, e.TypeIndex, e.Minted)
	if err != nil {
		return fmt.Errorf("failed to save ledger entry: %w", err)
	}
	return nil
}

// SaveMeta upserts a named counter.
func (s *SQLiteDropStore) SaveMeta(ctx context.Context, key string, value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drop_meta (k, v) VALUES (?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save meta %s: %w", key, err)
	}
	return nil
}

// AppendMint appends one receipt to the audit journal.
func (s *SQLiteDropStore) AppendMint(ctx context.Context, r model.MintReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mint_journal
			(request_id, window_id, recipient, type_idx, quantity, first_id, paid, refunded, minted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RequestID, r.WindowID, r.Recipient, r.TypeIndex, r.Quantity, r.FirstID, r.Paid, r.Refunded, r.MintedAt)
	if err != nil {
		return fmt.Errorf("failed to append mint journal: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *SQLiteDropStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database connection.
func (s *SQLiteDropStore) Close() error { return s.db.Close() }

// Ensure SQLiteDropStore implements DropStore
var _ DropStore = (*SQLiteDropStore)(nil)
