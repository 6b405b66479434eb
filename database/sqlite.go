// Package database provides the SQLite persistence layer for sudolite.
package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/sudolite/sudolite/database/sqliteconfig"
	"github.com/tailscale/squibble"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Database errors.
var (
	ErrBuildConnectionURL = errors.New("failed to build SQLite connection URL")
	ErrOpenDatabase       = errors.New("failed to open database")
	ErrPingDatabase       = errors.New("failed to ping database")
	ErrApplySchema        = errors.New("failed to apply schema")
)

// Database wraps the sqlx database connection.
type Database struct {
	db *sqlx.DB
}

// New opens the database at path with production settings and applies the
// schema.
func New(path string) (*Database, error) {
	return NewWithConfig(sqliteconfig.Default(path))
}

// NewMemory opens an in-memory database, used for tests.
func NewMemory() (*Database, error) {
	return NewWithConfig(sqliteconfig.Memory())
}

// NewWithConfig opens a database with custom SQLite configuration.
func NewWithConfig(cfg *sqliteconfig.Config) (*Database, error) {
	connectionURL, err := cfg.ToURL()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildConnectionURL, err)
	}

	log.Debug().
		Str("path", cfg.Path).
		Str("config", connectionURL).
		Msg("Opening SQLite database")

	db, err := sqlx.Open("sqlite", connectionURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenDatabase, err)
	}

	// SQLite concurrency settings: single connection model
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrPingDatabase, err)
	}

	s := &squibble.Schema{Current: schema}
	if err := s.Apply(context.Background(), db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrApplySchema, err)
	}

	return &Database{db: db}, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// DB returns the underlying *sqlx.DB for advanced operations.
func (d *Database) DB() *sqlx.DB {
	return d.db
}
