package session

import (
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/gaborage/go-dbsession/session/types"
)

// FailureKind is the handling policy for a failure raised inside a unit of
// work.
type FailureKind int

const (
	// FailureResult is a benign result signal (no row, extra row, null
	// data). The outermost Run rolls the transaction back; nested Run calls
	// rethrow without touching the connection. The connection stays
	// reusable.
	FailureResult FailureKind = iota

	// FailureAbort rolls the transaction back at the current nesting level
	// and keeps the connection: the database is presumed uninvolved in the
	// failure.
	FailureAbort

	// FailurePoisoned rolls back and force-terminates the connection: the
	// database reported an error, so the connection state cannot be
	// trusted for reuse.
	FailurePoisoned
)

// String returns a short name for the kind, used in logs.
func (k FailureKind) String() string {
	switch k {
	case FailureResult:
		return "result"
	case FailureAbort:
		return "abort"
	case FailurePoisoned:
		return "poisoned"
	default:
		return "unknown"
	}
}

// sqlStater is implemented by driver errors that carry a SQLSTATE code,
// e.g. pgconn.PgError. Checked structurally so the classifier does not
// depend on any one driver.
type sqlStater interface {
	SQLState() string
}

// Classify maps a failure to its handling policy. Rules are checked in
// order: result signals first, then anything the data-access layer reported
// as a database error, then everything else.
func Classify(err error) FailureKind {
	if errors.Is(err, types.ErrNoRow) || errors.Is(err, types.ErrExtraRow) ||
		errors.Is(err, types.ErrNullData) || errors.Is(err, sql.ErrNoRows) {
		return FailureResult
	}

	var dbErr *types.DatabaseError
	var stater sqlStater
	if errors.As(err, &dbErr) || errors.As(err, &stater) || errors.Is(err, driver.ErrBadConn) {
		return FailurePoisoned
	}

	return FailureAbort
}
