// Package store defines the composite Store interface for all filer
// persistence.
//
// Each subsystem defines its own store interface and the aggregate Store
// composes them, so one backend serves the whole engine.
package store

import (
	"context"
	"errors"

	"github.com/xraph/filer/credential"
	"github.com/xraph/filer/ledger"
)

var (
	// ErrStoreClosed is returned when a store operation is attempted after
	// the store is closed.
	ErrStoreClosed = errors.New("filer: store is closed")

	// ErrMigrationFailed is returned when a schema migration fails.
	ErrMigrationFailed = errors.New("filer: migration failed")
)

// Store is the aggregate persistence interface.
type Store interface {
	ledger.Store
	credential.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
