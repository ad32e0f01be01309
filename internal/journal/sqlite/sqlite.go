// Package sqlite provides an embedded journal backend, for single-node
// deployments that want a durable audit trail without an external database.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle shared by the stores in this package.
type DB struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the database and runs migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[journal] sqlite opened: %s", path)
	return d, nil
}

func (d *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transfer_records (
			transfer_id        TEXT PRIMARY KEY,
			sender             TEXT NOT NULL,
			recipient          TEXT NOT NULL,
			amount             TEXT NOT NULL,
			net_amount         TEXT NOT NULL,
			total_fee          TEXT NOT NULL,
			reflection_amount  TEXT NOT NULL DEFAULT '0',
			liquidity_amount   TEXT NOT NULL DEFAULT '0',
			marketing_amount   TEXT NOT NULL DEFAULT '0',
			burned_amount      TEXT NOT NULL DEFAULT '0',
			rate_pct           INTEGER NOT NULL DEFAULT 0,
			surcharge_applied  INTEGER NOT NULL DEFAULT 0,
			executed_at        INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transfer_sender ON transfer_records (sender, executed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_transfer_recipient ON transfer_records (recipient, executed_at)`,
		`CREATE TABLE IF NOT EXISTS policy_changes (
			change_id   TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			actor       TEXT NOT NULL,
			subject     TEXT NOT NULL DEFAULT '',
			detail      TEXT NOT NULL DEFAULT '',
			changed_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_policy_kind ON policy_changes (kind, changed_at)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}
