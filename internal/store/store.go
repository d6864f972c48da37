package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stamped into PRAGMA user_version. A database carrying a
// higher version was written by a newer tbrun and is refused.
const schemaVersion = 1

// Store is a run history database.
type Store struct {
	db *sql.DB
}

// Open opens the history database at path, creating it and its tables on
// first use. Opening an existing database leaves its runs untouched.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open run history %s: %w", path, err)
	}
	// One connection serializes RecordRun transactions against readers.
	db.SetMaxOpenConns(1)

	if err := initSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open run history %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// dsn attaches the connection settings go-sqlite3 applies to every new
// connection: WAL journaling, a 5s busy wait and foreign key enforcement.
func dsn(path string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_synchronous", "NORMAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	return "file:" + path + "?" + q.Encode()
}

// initSchema creates the run tables in one transaction and stamps the
// schema version.
func initSchema(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, schemaVersion)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("stamp schema version: %w", err)
	}
	return tx.Commit()
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
