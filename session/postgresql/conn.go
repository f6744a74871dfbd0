package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gaborage/go-dbsession/session/types"
)

// conn adapts one checked-out *sql.Conn to types.Conn. PostgreSQL has no
// wire-level auto-commit switch, so the auto-commit model is emulated with
// explicit BEGIN/COMMIT/ROLLBACK statements; inTx tracks whether an explicit
// transaction is open so the control operations stay idempotent.
type conn struct {
	raw    *sql.Conn
	caller string
	inTx   bool
}

func isolationSQL(level types.Isolation) string {
	switch level {
	case types.ReadUncommitted:
		return "READ UNCOMMITTED"
	case types.RepeatableRead:
		return "REPEATABLE READ"
	case types.Serializable:
		return "SERIALIZABLE"
	default:
		return "READ COMMITTED"
	}
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

// SetIsolation applies level to the open transaction when one exists,
// otherwise to the session so subsequent transactions inherit it.
func (c *conn) SetIsolation(ctx context.Context, level types.Isolation) error {
	var stmt string
	if c.inTx {
		stmt = fmt.Sprintf("SET TRANSACTION ISOLATION LEVEL %s", isolationSQL(level))
	} else {
		stmt = fmt.Sprintf("SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL %s", isolationSQL(level))
	}
	if _, err := c.raw.ExecContext(ctx, stmt); err != nil {
		return types.NewDatabaseError("set isolation", err)
	}
	return nil
}

// SetReadOnly applies the access mode to the open transaction when one
// exists, otherwise to the session. PostgreSQL rejects switching an open
// transaction to read-write after its first query; that rejection surfaces
// as a DatabaseError.
func (c *conn) SetReadOnly(ctx context.Context, readOnly bool) error {
	mode := "READ WRITE"
	if readOnly {
		mode = "READ ONLY"
	}
	var stmt string
	if c.inTx {
		stmt = fmt.Sprintf("SET TRANSACTION %s", mode)
	} else {
		stmt = fmt.Sprintf("SET SESSION CHARACTERISTICS AS TRANSACTION %s", mode)
	}
	if _, err := c.raw.ExecContext(ctx, stmt); err != nil {
		return types.NewDatabaseError("set read-only", err)
	}
	return nil
}

// SetAutoCommit opens an explicit transaction when disabling, and commits a
// pending one when enabling, matching the classic driver contract.
func (c *conn) SetAutoCommit(ctx context.Context, enabled bool) error {
	if enabled {
		return c.Commit(ctx)
	}
	if c.inTx {
		return nil
	}
	if _, err := c.raw.ExecContext(ctx, "BEGIN"); err != nil {
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
