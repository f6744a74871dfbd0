//revive:disable-next-line:var-naming // Package name "types" avoids circular imports.
package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the result signals a query helper can raise. These are
// recoverable application-level conditions: they roll back the outermost
// transaction but leave the connection healthy and reusable.
var (
	// ErrNoRow is returned when a query expected at least one row and got none.
	ErrNoRow = errors.New("query returned no rows")

	// ErrExtraRow is returned when a query expected at most one row and got more.
	ErrExtraRow = errors.New("query returned more than one row")

	// ErrNullData is returned when a query expected a non-null value and got NULL.
	ErrNullData = errors.New("query returned null for a required value")

	// ErrPoolExhausted is returned by Source.Acquire when the per-task
	// connection cap would be exceeded.
	ErrPoolExhausted = errors.New("connection pool exhausted for this task")
)

// DatabaseError wraps a failure reported by the database or driver. Any error
// of this kind leaves the connection in an indeterminate state, so the
// session core discards the connection instead of returning it to the pool.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// NewDatabaseError wraps err as a DatabaseError for operation op. Returns nil
// when err is nil so call sites can wrap unconditionally.
func NewDatabaseError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DatabaseError{Op: op, Err: err}
}
