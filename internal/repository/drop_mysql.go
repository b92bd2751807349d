package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"mintgate-api/internal/model"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDropStore implements DropStore using MySQL, for deployments that
// already run one. Semantics match the SQLite store.
type MySQLDropStore struct {
	db *sql.DB
}

// NewMySQLDropStore creates a new MySQL drop store from a DSN.
func NewMySQLDropStore(dsn string) (*MySQLDropStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS catalog_types (
			idx INT PRIMARY KEY,
			remaining BIGINT UNSIGNED NOT NULL,
			price BIGINT UNSIGNED NOT NULL,
			next_id BIGINT UNSIGNED NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sale_windows (
			id BIGINT UNSIGNED PRIMARY KEY,
			root VARCHAR(64) NOT NULL,
			public TINYINT(1) NOT NULL DEFAULT 0,
			start_time BIGINT UNSIGNED NOT NULL,
			limits_json TEXT NOT NULL,
			INDEX idx_windows_start (start_time)
		)`,
		`CREATE TABLE IF NOT EXISTS mint_ledger (
			window_id BIGINT UNSIGNED NOT NULL,
			recipient VARCHAR(128) NOT NULL,
			type_idx INT NOT NULL,
			minted BIGINT UNSIGNED NOT NULL,
			PRIMARY KEY (window_id, recipient, type_idx)
		)`,
		`CREATE TABLE IF NOT EXISTS mint_journal (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			request_id VARCHAR(64) NOT NULL,
			window_id BIGINT UNSIGNED NOT NULL,
			recipient VARCHAR(128) NOT NULL,
			type_idx INT NOT NULL,
			quantity BIGINT UNSIGNED NOT NULL,
			first_id BIGINT UNSIGNED NOT NULL,
			paid BIGINT UNSIGNED NOT NULL,
			refunded BIGINT UNSIGNED NOT NULL,
			minted_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS drop_meta (
			k VARCHAR(32) PRIMARY KEY,
			v BIGINT UNSIGNED NOT NULL
		)`,
	}
	for _, q := range ddl {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	log.Println("[MySQLDropStore] Initialized")
	return &MySQLDropStore{db: db}, nil
}

// Load reads the full persisted state.
func (s *MySQLDropStore) Load(ctx context.Context) (*model.Snapshot, error) {
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

func (s *MySQLDropStore) meta(ctx context.Context, key string) (uint64, error) {
	var v uint64
	err := s.db.QueryRowContext(ctx, `SELECT v FROM drop_meta WHERE k = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return v, err
}

// SaveType upserts one catalog entry by index.
func (s *MySQLDropStore) SaveType(ctx context.Context, e model.CatalogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_types (idx, remaining, price, next_id)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE remaining = VALUES(remaining), next_id = VALUES(next_id)`,
		e.Index, e.Remaining, e.Price, e.NextID)
	if err != nil {
		return fmt.Errorf("failed to save type %d: %w", e.Index, err)
	}
	return nil
}

// SaveWindow upserts one window record.
func (s *MySQLDropStore) SaveWindow(ctx context.Context, w model.WindowRecord) error {
	limitsJSON, err := json.Marshal(w.Limits)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sale_windows (id, root, public, start_time, limits_json)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			root = VALUES(root), public = VALUES(public),
			start_time = VALUES(start_time), limits_json = VALUES(limits_json)`,
		w.ID, w.Root, w.Public, w.Start, string(limitsJSON))
	if err != nil {
		return fmt.Errorf("failed to save window %d: %w", w.ID, err)
	}
	return nil
}

// DeleteWindow drops a removed window's record.
func (s *MySQLDropStore) DeleteWindow(ctx context.Context, id uint64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sale_windows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete window %d: %w", id, err)
	}
	return nil
}

// SaveLedger upserts one minted count.
func (s *MySQLDropStore) SaveLedger(ctx context.Context, e model.LedgerEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mint_ledger (window_id, recipient, type_idx, minted)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE minted = VALUES(minted)`,
		e.WindowID, e.Recipient, e.TypeIndex, e.Minted)
	if err != nil {
		return fmt.Errorf("failed to save ledger entry: %w", err)
	}
	return nil
}

// SaveMeta upserts a named counter.
func (s *MySQLDropStore) SaveMeta(ctx context.Context, key string, value uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drop_meta (k, v) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE v = VALUES(v)`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save meta %s: %w", key, err)
	}
	return nil
}

// AppendMint appends one receipt to the audit journal.
func (s *MySQLDropStore) AppendMint(ctx context.Context, r model.MintReceipt) error {
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
func (s *MySQLDropStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database connection.
func (s *MySQLDropStore) Close() error { return s.db.Close() }

// Ensure MySQLDropStore implements DropStore
var _ DropStore = (*MySQLDropStore)(nil)
