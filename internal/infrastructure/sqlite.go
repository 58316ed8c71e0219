package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/rs/zerolog/log"
)

const createPreferencesTable = `CREATE TABLE IF NOT EXISTS preferences (
	namespace  TEXT    NOT NULL,
	key        TEXT    NOT NULL,
	value      TEXT    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
)`

// SQLite stores preferences in a SQLite database file
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and creates if needed) the database at path
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite database %q: %w", path, err)
	}
	// A single connection serializes writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createPreferencesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create preferences table: %w", err)
	}
	log.Info().Str("path", path).Msg("Using sqlite preference store")

	return &SQLite{db: db}, nil
}

// Load returns the raw value stored for a namespace and key
func (s *SQLite) Load(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE namespace = ? AND key = ?`,
		namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("could not load preference %q: %w", key, err)
	}
	return []byte(value), true, nil
}

// Save replaces the raw value stored for a namespace and key
func (s *SQLite) Save(ctx context.Context, namespace, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, key, string(value), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("could not save preference %q: %w", key, err)
	}
	return nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}
