package session

import (
	"context"

	"github.com/gaborage/go-dbsession/session/types"
)

// TxContext is the per-task transaction scope a unit of work receives from
// Manager.Run. It is a deferred-acquisition view over a single connection
// handle: no physical connection exists until the first Connection call, and
// every nested unit of work on the same task sees the same handle.
//
// A TxContext is confined to one logical task. It must not be shared between
// concurrent goroutines.
type TxContext struct {
	manager *Manager
	handle  *connHandle
}

// ID identifies this transaction context in logs and traces.
func (t *TxContext) ID() string {
	return t.handle.id
}

// Connection returns a physical connection ready for statements at the
// requested isolation level and read-only mode, acquiring one from the pool
// on first use and upgrading the existing one afterwards. The upgrade rules
// are documented on the session package: isolation never decreases, and a
// read-only request against an open read-write transaction is a no-op.
func (t *TxContext) Connection(ctx context.Context, level types.Isolation, readOnly bool) (types.Conn, error) {
	conn, err := t.handle.acquire(ctx, level, readOnly)
	if err != nil {
		return nil, err
	}
	spanIsolationAttr(ctx, t.handle.level, t.handle.readOnly)
	return conn, nil
}

// DefaultConnection is Connection at the manager's configured default
// isolation level and read-only mode.
func (t *TxContext) DefaultConnection(ctx context.Context) (types.Conn, error) {
	return t.Connection(ctx, t.manager.defaultLevel, t.manager.defaultReadOnly)
}

// close releases the context's connection. Only the manager calls this, and
// only from the outermost Run.
func (t *TxContext) close(ctx context.Context) error {
	return t.handle.close(ctx)
}

// txContextKey binds the active TxContext into a context.Context. The
// ambient lookup exists only so Run can detect that the calling task is
// already inside a transaction; the unit of work itself receives the
// TxContext explicitly.
type txContextKey struct{}

func withTxContext(ctx context.Context, tc *TxContext) context.Context {
	return context.WithValue(ctx, txContextKey{}, tc)
}

func txContextFrom(ctx context.Context) *TxContext {
	tc, _ := ctx.Value(txContextKey{}).(*TxContext)
	return tc
}
