package shared

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// historyDSNParams are go-sqlite3 connection options for the history file.
// Writers from the engine's recorder and the CLI may overlap, so lock waits are bounded instead of failing fast.
const historyDSNParams = "_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL"

// NewDatabase opens the history database at path, creating its parent directory.
// ":memory:" opens a private in-memory database.
func NewDatabase(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		path = ExpandHome(path)
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = "file:" + path + "?" + historyDSNParams
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", path, err)
	}

	return db, nil
}

// ConfigureDatabase sets pool limits. Values below one are raised to one; sqlite serializes writers anyway.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	db.SetMaxOpenConns(max(maxOpenConns, 1))
	db.SetMaxIdleConns(max(maxIdleConns, 1))
}
