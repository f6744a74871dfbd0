package oracle

import (
	"context"
	"database/sql"

	"github.com/gaborage/go-dbsession/session/types"
)

// conn adapts one checked-out *sql.Conn to types.Conn.
//
// Oracle opens transactions implicitly with the first DML statement and only
// supports READ COMMITTED and SERIALIZABLE isolation, so the adapter maps
// the two weaker levels up to READ COMMITTED and defers per-transaction
// characteristics (SET TRANSACTION must be the first statement of a
// transaction) until the transaction actually opens.
type conn struct {
	raw    *sql.Conn
	caller string
	inTx   bool

	serializable bool
	readOnly     bool
}

func (c *conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := c.raw.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.NewDatabaseError("query", err)
	}
	return rows, nil
}

func (c *conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := c.raw.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, types.NewDatabaseError("exec", err)
	}
	return res, nil
}

// SetIsolation records the requested level. Outside a transaction it also
// applies the level session-wide via ALTER SESSION; inside one it issues
// SET TRANSACTION, which Oracle accepts only as the first statement.
func (c *conn) SetIsolation(ctx context.Context, level types.Isolation) error {
	c.serializable = level >= types.RepeatableRead

	var stmt string
	if c.inTx {
		if c.serializable {
			stmt = "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE"
		} else {
			stmt = "SET TRANSACTION ISOLATION LEVEL READ COMMITTED"
		}
	} else {
		if c.serializable {
			stmt = "ALTER SESSION SET ISOLATION_LEVEL = SERIALIZABLE"
		} else {
			stmt = "ALTER SESSION SET ISOLATION_LEVEL = READ COMMITTED"
		}
	}
	if _, err := c.raw.ExecContext(ctx, stmt); err != nil {
		return types.NewDatabaseError("set isolation", err)
	}
	return nil
}

// SetReadOnly records the access mode. Oracle has no session-wide read-only
// switch; the mode is applied with SET TRANSACTION when the transaction
// opens. Downgrading an open read-only transaction is rejected by Oracle
// and surfaces as a DatabaseError.
func (c *conn) SetReadOnly(ctx context.Context, readOnly bool) error {
	if c.inTx && c.readOnly && !readOnly {
		if _, err := c.raw.ExecContext(ctx, "SET TRANSACTION READ WRITE"); err != nil {
			return types.NewDatabaseError("set read-only", err)
		}
	}
	c.readOnly = readOnly
	return nil
}

// SetAutoCommit opens an explicit transaction when disabling, issuing the
// deferred SET TRANSACTION characteristics, and commits any pending work
// when enabling.
func (c *conn) SetAutoCommit(ctx context.Context, enabled bool) error {
	if enabled {
		return c.Commit(ctx)
	}
	if c.inTx {
		return nil
	}

	var stmt string
	switch {
	case c.readOnly:
		stmt = "SET TRANSACTION READ ONLY"
	case c.serializable:
		stmt = "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE"
	default:
		stmt = "SET TRANSACTION READ WRITE"
	}
	if _, err := c.raw.ExecContext(ctx, stmt); err != nil {
		return types.NewDatabaseError("begin", err)
	}
	c.inTx = true
	return nil
}

func (c *conn) Commit(ctx context.Context) error {
	if !c.inTx {
		return nil
	}
	if _, err := c.raw.ExecContext(ctx, "COMMIT"); err != nil {
		return types.NewDatabaseError("commit", err)
	}
	c.inTx = false
	return nil
}

func (c *conn) Rollback(ctx context.Context) error {
	if !c.inTx {
		return nil
	}
	if _, err := c.raw.ExecContext(ctx, "ROLLBACK"); err != nil {
		return types.NewDatabaseError("rollback", err)
	}
	c.inTx = false
	return nil
}
