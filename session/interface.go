// Package session provides transaction-scoped access to a relational
// database on top of a pooled set of physical connections.
//
// Application code runs units of work through a Manager. The manager binds a
// transaction context to the calling task, acquires a physical connection
// lazily on the first statement, upgrades isolation level and read-only mode
// in place as statements require, and commits or rolls back based on how the
// unit of work finishes. Nested Run calls on the same task share one context
// and one physical connection; only the outermost call commits.
package session

import (
	"github.com/gaborage/go-dbsession/session/types"
)

// Interface aliases keep the session package the single import most callers
// need while the definitions live in session/types to avoid import cycles
// with the vendor source packages.
type (
	Conn      = types.Conn
	Source    = types.Source
	Isolation = types.Isolation

	DatabaseError = types.DatabaseError
)

// Isolation levels, ordered weakest to strongest.
const (
	ReadUncommitted = types.ReadUncommitted
	ReadCommitted   = types.ReadCommitted
	RepeatableRead  = types.RepeatableRead
	Serializable    = types.Serializable
)

// Database vendor identifiers.
const (
	PostgreSQL = types.PostgreSQL
	Oracle     = types.Oracle
)

// Result signal and pool errors, re-exported from types.
var (
	ErrNoRow         = types.ErrNoRow
	ErrExtraRow      = types.ErrExtraRow
	ErrNullData      = types.ErrNullData
	ErrPoolExhausted = types.ErrPoolExhausted
)
