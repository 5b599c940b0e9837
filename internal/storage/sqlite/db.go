// Package sqlite
package sqlite

import (
	"database/sql"
	"fmt"

	"coremeter/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

func NewSqliteDB(dbPath string, log logger.Logger) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database not responding: %w", err)
	}

	// one short-lived writer per run
	db.SetMaxOpenConns(1)

	log.Debug("sqlite connection established", "path", dbPath)

	if err := runMigration(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func runMigration(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP NOT NULL,
		window_ns INTEGER NOT NULL,
		processor_count INTEGER NOT NULL,
		tick_source TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS utilization (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		processor INTEGER NOT NULL,
		delta_total INTEGER NOT NULL,
		delta_idle INTEGER NOT NULL,
		percent REAL NOT NULL,
		anomalous INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, processor)
	);
	`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to migrate journal tables: %w", err)
	}
	return nil
}
