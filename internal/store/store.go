// Package store provides SQLite storage for transcripts, predictions,
// recorded samples, plugin bindings and settings.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write would break a unique constraint.
	ErrDuplicate = errors.New("already exists")
)

// openTimeout bounds opening and migrating the database.
const openTimeout = 10 * time.Second

// Store represents a SQLite database connection.
type Store struct {
	db   *sql.DB
	path string
}

// New opens the database at dbPath, creating its directory, and migrates it
// to SchemaVersion. ":memory:" opens a private in-memory database.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; also keeps PRAGMAs on the single connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath}

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// dsn adds the connection pragmas to path.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	if path != ":memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	return "file:" + path + "?" + q.Encode()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Stats summarises what the database holds.
type Stats struct {
	SchemaVersion int            `json:"schema_version"`
	Transcripts   int            `json:"transcripts"`
	Predictions   int            `json:"predictions"`
	Samples       int            `json:"samples"`
	Actions       int            `json:"actions"`
	Letters       map[string]int `json:"letters"`
}

// Stats counts rows per table and accepted predictions per letter.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var err error
	if st.SchemaVersion, err = s.Version(ctx); err != nil {
		return Stats{}, err
	}

	for _, c := range []struct {
		table string
		dst   *int
	}{
		{"transcripts", &st.Transcripts},
		{"predictions", &st.Predictions},
		{"samples", &st.Samples},
		{"actions", &st.Actions},
	} {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", c.table, err)
		}
	}

	if st.Letters, err = s.Predictions().CountByLetter(); err != nil {
		return Stats{}, fmt.Errorf("count letters: %w", err)
	}
	return st, nil
}

// uniqueOrDuplicate maps SQLite unique constraint failures to ErrDuplicate.
func uniqueOrDuplicate(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// affectedOrNotFound turns a zero-row update or delete into ErrNotFound.
func affectedOrNotFound(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
