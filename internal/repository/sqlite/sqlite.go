// Package sqlite implements the presence store using SQLite as the storage backend.
//
// STORAGE:
// SQLite is an embedded database; the whole store is a single file. Teammates
// that share the file (or a synced copy of it) share presence; the changefeed
// (in-process, or Redis when configured) tells every process when to re-read.
//
// modernc.org/sqlite is a pure Go translation of the SQLite C code, so the
// binary builds without a C compiler.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB      is a connection pool (NOT a single connection!)
//   - sql.Row     is a single result row
//   - sql.Rows    holds multiple result rows (must be closed!)
//
// After every successful write the store calls Notify(table) on its changefeed,
// which is how roster subscriptions learn that something changed.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// BLANK IMPORT:
	// The sqlite package's init() registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/teamsync/internal/changefeed"
	"github.com/sakif/teamsync/internal/repository"
)

// Feed is the changefeed the store writes to and hands out subscriptions from.
type Feed interface {
	repository.Changefeed
	repository.Notifier
}

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` fails to compile if *Y stops implementing X.
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
	feed Feed
}

// New opens the SQLite database at dbPath, runs migrations and attaches feed.
// A nil feed gets an in-process changefeed.Hub.
//
// dbPath examples:
//   - "data/teamsync.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests)
func New(dbPath string, feed Feed) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// ONE CONNECTION:
	// SQLite allows a single writer at a time, and every ":memory:" connection
	// would otherwise be its own empty database. One pooled connection serializes
	// access and keeps ":memory:" coherent.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) lets readers in other processes proceed while
	// this process writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	if feed == nil {
		feed = changefeed.NewHub()
	}

	db := &DB{conn: conn, feed: feed}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// SubscribeTable registers onChange for writes to table.
func (db *DB) SubscribeTable(table string, onChange func()) func() {
	return db.feed.SubscribeTable(table, onChange)
}

// migrate creates every table and index. CREATE ... IF NOT EXISTS makes it safe
// to run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			github_id  INTEGER NOT NULL UNIQUE,
			login      TEXT NOT NULL,
			email      TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// invite_code is UNIQUE: a code identifies exactly one team.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS teams (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			invite_code TEXT NOT NULL UNIQUE,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating teams table: %w", err)
	}

	// (team_id, user_id) is UNIQUE: one membership row per user per team.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS members (
			id              TEXT PRIMARY KEY,
			team_id         TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
			user_id         TEXT NOT NULL,
			github_username TEXT NOT NULL DEFAULT '',
			avatar_url      TEXT NOT NULL DEFAULT '',
			joined_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (team_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_members_user_id ON members(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating members table: %w", err)
	}

	// member_id is UNIQUE: at most one activity row per member.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS activities (
			id             TEXT PRIMARY KEY,
			member_id      TEXT NOT NULL UNIQUE REFERENCES members(id) ON DELETE CASCADE,
			file_path      TEXT NOT NULL DEFAULT '',
			status_message TEXT NOT NULL DEFAULT '',
			is_active      INTEGER NOT NULL DEFAULT 1,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating activities table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
