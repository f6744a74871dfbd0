package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gaborage/go-dbsession/logger"
	"github.com/gaborage/go-dbsession/session/types"
)

// Hooks are optional connection initialization/deinitialization callbacks
// invoked by the handle right after a physical connection is acquired and
// right before it is released. Vendor-specific session setup (custom type
// mappings, application_name, NLS settings) belongs here.
type Hooks struct {
	OnAcquire func(ctx context.Context, conn types.Conn) error
	OnRelease func(ctx context.Context, conn types.Conn) error
}

// connHandle owns at most one physical connection for the lifetime of one
// transaction context. It tracks the connection's effective isolation level,
// read-only mode, and whether auto-commit has been disabled, and adapts the
// connection in place as successive statements raise their requirements.
type connHandle struct {
	id         string
	source     types.Source
	logger     logger.Logger
	hooks      Hooks
	maxPerTask int

	conn       types.Conn
	level      types.Isolation
	readOnly   bool
	autoCommit bool
}

func newConnHandle(source types.Source, log logger.Logger, maxPerTask int, hooks Hooks) *connHandle {
	return &connHandle{
		id:         uuid.NewString(),
		source:     source,
		logger:     log,
		hooks:      hooks,
		maxPerTask: maxPerTask,
	}
}

// acquire returns the physical connection adjusted to the requested
// isolation level and read-only mode, obtaining one from the source on the
// first call.
//
// Once a read-write transaction is in progress, a request for read-only is
// accepted as a no-op rather than rejected: read-only is an optimization
// hint, and breaking an open transaction to honor it would be worse than
// ignoring it. Likewise a request for a lower isolation level is a no-op,
// since the stronger guarantee already holds.
func (h *connHandle) acquire(ctx context.Context, level types.Isolation, readOnly bool) (types.Conn, error) {
	if h.conn == nil {
		return h.acquireNew(ctx, level, readOnly)
	}

	if err := h.upgrade(ctx, level, readOnly); err != nil {
		return nil, err
	}
	return h.conn, nil
}

func (h *connHandle) acquireNew(ctx context.Context, level types.Isolation, readOnly bool) (types.Conn, error) {
	conn, err := h.source.Acquire(types.WithCaller(ctx, h.id), level, readOnly, h.maxPerTask)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	// Anything that fails between here and a fully configured connection
	// must hand the fresh connection straight back to the source.
	if h.hooks.OnAcquire != nil {
		if hookErr := h.hooks.OnAcquire(ctx, conn); hookErr != nil {
			_ = h.source.Release(conn)
			return nil, fmt.Errorf("connection init hook failed: %w", hookErr)
		}
	}

	h.conn = conn
	h.level = level
	h.readOnly = readOnly
	h.autoCommit = true

	if err := h.applyAutoCommit(ctx); err != nil {
		released := h.conn
		h.conn = nil
		_ = h.source.Release(released)
		return nil, err
	}

	h.logger.Debug().
		Str("handle_id", h.id).
		Str("isolation", level.String()).
		Bool("read_only", readOnly).
		Msg("Acquired physical connection")

	return h.conn, nil
}

func (h *connHandle) upgrade(ctx context.Context, level types.Isolation, readOnly bool) error {
	switch {
	case h.readOnly && !readOnly:
		// Widening to read-write is always attempted; the driver rejects it
		// when an incompatible transaction is already open, and that
		// rejection surfaces as a hard failure.
		if err := h.conn.SetReadOnly(ctx, false); err != nil {
			return err
		}
		h.readOnly = false
	case !h.readOnly && readOnly && h.autoCommit:
		// Narrowing to read-only is only possible while no transaction is
		// in progress. Otherwise the request is ignored (see acquire).
		if err := h.conn.SetReadOnly(ctx, true); err != nil {
			return err
		}
		h.readOnly = true
	}

	if level > h.level {
		if err := h.conn.SetIsolation(ctx, level); err != nil {
			return err
		}
		h.level = level
	}

	return h.applyAutoCommit(ctx)
}

// applyAutoCommit enforces the invariant that auto-commit is disabled iff
// the session is not read-only or the isolation level is at least
// repeatable-read.
func (h *connHandle) applyAutoCommit(ctx context.Context) error {
	needsTransaction := !h.readOnly || h.level >= types.RepeatableRead
	if h.autoCommit && needsTransaction {
		if err := h.conn.SetAutoCommit(ctx, false); err != nil {
			return err
		}
		h.autoCommit = false
	}
	return nil
}

// commit commits the in-progress transaction. No-op when no connection is
// held or auto-commit was never disabled.
func (h *connHandle) commit(ctx context.Context) error {
	if h.conn == nil || h.autoCommit {
		return nil
	}
	if err := h.conn.Commit(ctx); err != nil {
		return err
	}
	h.autoCommit = true
	return nil
}

// rollback rolls back the in-progress transaction and reports whether a
// rollback actually occurred. Safe on an unconnected or auto-commit handle.
// A successful rollback ends the explicit transaction, so the handle returns
// to auto-commit mode; the next acquire re-opens a transaction as needed.
func (h *connHandle) rollback(ctx context.Context) (bool, error) {
	if h.conn == nil || h.autoCommit {
		return false, nil
	}
	if err := h.conn.Rollback(ctx); err != nil {
		return false, err
	}
	h.autoCommit = true
	return true, nil
}

// rollbackAndDiscard best-effort rolls back, then forcibly terminates the
// physical connection. The two steps are attempted independently and their
// failures reported together.
func (h *connHandle) rollbackAndDiscard(ctx context.Context) error {
	if h.conn == nil {
		return nil
	}
	conn := h.conn
	h.conn = nil

	var rbErr error
	if !h.autoCommit {
		rbErr = conn.Rollback(ctx)
	}
	termErr := h.source.ForceTerminate(conn)

	h.logger.Warn().
		Str("handle_id", h.id).
		Msg("Discarded suspect connection")

	return errors.Join(rbErr, termErr)
}

// discard forcibly terminates the connection without attempting a rollback.
// Used when the unit of work died to a fatal signal and the connection state
// is unknown.
func (h *connHandle) discard() {
	if h.conn == nil {
		return
	}
	conn := h.conn
	h.conn = nil
	_ = h.source.ForceTerminate(conn)

	h.logger.Error().
		Str("handle_id", h.id).
		Msg("Abandoned connection after fatal signal")
}

// close gracefully releases the physical connection back to the source. A
// still-open transaction is rolled back first as a safety net; the normal
// path has already committed or rolled back explicitly.
func (h *connHandle) close(ctx context.Context) error {
	if h.conn == nil {
		return nil
	}
	conn := h.conn
	h.conn = nil

	var errs []error
	if !h.autoCommit {
		if err := conn.Rollback(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if h.hooks.OnRelease != nil {
		if err := h.hooks.OnRelease(ctx, conn); err != nil {
			errs = append(errs, err)
		}
	}
	if err := h.source.Release(conn); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
