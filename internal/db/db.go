package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mutecomm/go-sqlcipher/v4"
)

type DB struct {
	*sql.DB
}

// Open opens an encrypted SQLite database with the given password.
// dbPath is the full path to the database file.
//
// Every pooled connection gets foreign keys, WAL and a busy timeout, and
// transactions take the write lock up front (BEGIN IMMEDIATE) so concurrent
// writers queue instead of failing on lock upgrade.
func Open(dbPath, password string) (*DB, error) {
	// Create parent directories if they don't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	params := url.Values{}
	params.Set("_key", password)
	params.Set("_foreign_keys", "1")
	params.Set("_busy_timeout", "5000")
	params.Set("_txlock", "immediate")
	params.Set("_journal_mode", "WAL")
	connStr := fmt.Sprintf("%s?%s", dbPath, params.Encode())

	sqlDB, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Ping to verify connection (and the key)
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLCipher only notices a wrong key on first read
	var n int
	if err := sqlDB.QueryRow("SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to read database (wrong key?): %w", err)
	}

	return &DB{DB: sqlDB}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
