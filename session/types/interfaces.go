// Package types contains the core interface definitions for go-dbsession.
// These are separate from the session package to avoid import cycles between
// the transaction core and the vendor source packages, and to keep them
// easily accessible for mocking.
//
//revive:disable-next-line:var-naming // Package name "types" avoids circular imports.
package types

import (
	"context"
	"database/sql"
)

// Database vendor identifiers shared across the session packages.
type Vendor = string

const (
	PostgreSQL Vendor = "postgresql"
	Oracle     Vendor = "oracle"
)

// Conn is one physical database connection handed out by a Source.
//
// A Conn starts in auto-commit mode. SetAutoCommit(false) opens an explicit
// transaction; Commit and Rollback end it. Application code never closes a
// Conn directly: the owning transaction context returns it to the Source.
type Conn interface {
	// Statement execution. Statements run in call order on the single
	// underlying connection.
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	// Session characteristics. Setters apply to the in-progress transaction
	// when one is open, otherwise to the session.
	SetIsolation(ctx context.Context, level Isolation) error
	SetReadOnly(ctx context.Context, readOnly bool) error
	SetAutoCommit(ctx context.Context, enabled bool) error

	// Transaction control. Both are no-ops when no transaction is open.
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Source supplies physical connections. Implementations delegate pooling to
// an underlying pool (database/sql) and only add the acquisition parameters
// the session core needs.
type Source interface {
	// Acquire returns a connection in auto-commit mode with the requested
	// isolation level and read-only setting already applied. maxPerTask
	// caps concurrently outstanding acquisitions per caller identity (see
	// WithCaller); when a caller would exceed it, Acquire fails with
	// ErrPoolExhausted.
	Acquire(ctx context.Context, level Isolation, readOnly bool, maxPerTask int) (Conn, error)

	// Release returns a healthy connection to the pool.
	Release(conn Conn) error

	// ForceTerminate abandons a connection outside the normal release path.
	// Used when the connection is suspected poisoned.
	ForceTerminate(conn Conn) error

	// Close shuts down the source and its underlying pool.
	Close() error

	// Vendor reports which database vendor this source connects to.
	Vendor() string
}
