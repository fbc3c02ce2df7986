package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/archq/internal/querysql"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound is returned when a record id is not stored.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateID is returned when inserting an id that is already stored.
	ErrDuplicateID = errors.New("duplicate record id")

	// ErrParentNotFound is returned when a record names a parent that is
	// not stored yet.
	ErrParentNotFound = errors.New("parent record not found")
)

// connParams are go-sqlite3 connection parameters, applied to every
// connection the pool opens.
var connParams = url.Values{
	"_journal_mode": {"WAL"},
	"_synchronous":  {"NORMAL"},
	"_busy_timeout": {"5000"},
}

// migration upgrades the schema to version.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations run in order on databases whose user_version is below theirs.
// Version 0 is the bare schema.sql.
var migrations = []migration{
	{
		version: 1,
		name:    "index object groups of objects",
		stmt:    `CREATE INDEX IF NOT EXISTS idx_objects_og ON objects(json_extract(doc, '$._og'))`,
	},
}

// currentSchemaVersion is the version Open leaves a database at.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store is the SQLite reference store for archival metadata.
type Store struct {
	db  *sql.DB
	sql *querysql.SQLCompiler
}

// Open creates or opens the database at path (":memory:" for a private
// in-memory store), creates the model tables and migrates the schema.
// Opening an up-to-date database changes nothing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer, and an in-memory
	// database lives only as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, sql: querysql.NewSQLCompiler()}, nil
}

// dsn appends the connection parameters to path.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + connParams.Encode()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// migrate applies every pending migration, each in its own transaction
// together with the user_version bump.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		// PRAGMA takes no bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: set version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
	}
	return nil
}

// pragma reads a pragma's current value.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
