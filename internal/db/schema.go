package db

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		ref TEXT PRIMARY KEY,
		uid INTEGER NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		reason TEXT,
		ts INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS ledger_entries_uid ON ledger_entries(uid, ts);`,
	`CREATE TABLE IF NOT EXISTS bets (
		id TEXT PRIMARY KEY,
		round_id TEXT NOT NULL,
		game TEXT NOT NULL,
		uid INTEGER NOT NULL,
		amount TEXT NOT NULL,
		client_seed TEXT NOT NULL,
		nonce INTEGER NOT NULL,
		server_seed_hash TEXT NOT NULL,
		risk TEXT,
		rows_count INTEGER,
		bin INTEGER,
		multiplier TEXT NOT NULL,
		payout TEXT NOT NULL,
		result TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		settled_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS bets_uid ON bets(uid, settled_at);`,
	`CREATE TABLE IF NOT EXISTS epochs (
		hash TEXT PRIMARY KEY,
		seed TEXT,
		committed_at INTEGER NOT NULL,
		revealed_at INTEGER,
		rounds INTEGER DEFAULT 0
	);`,
}

func Migrate(db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
