package session

import (
	"context"
	"database/sql"

	"github.com/gaborage/go-dbsession/logger"
	"github.com/gaborage/go-dbsession/session/types"
)

// fakeConn records every state transition the handle drives it through.
type fakeConn struct {
	isolation  types.Isolation
	readOnly   bool
	inTx       bool
	setLevels  []types.Isolation
	setRO      []bool
	begins     int
	commits    int
	rollbacks  int
	queryErr   error
	beginErr   error
	commitErr  error
	rollbackEr error
	roErr      error
}

func (f *fakeConn) Query(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, f.queryErr
}

func (f *fakeConn) Exec(context.Context, string, ...any) (sql.Result, error) {
	return nil, nil
}

func (f *fakeConn) SetIsolation(_ context.Context, level types.Isolation) error {
	f.isolation = level
	f.setLevels = append(f.setLevels, level)
	return nil
}

func (f *fakeConn) SetReadOnly(_ context.Context, readOnly bool) error {
	if f.roErr != nil {
		return f.roErr
	}
	f.readOnly = readOnly
	f.setRO = append(f.setRO, readOnly)
	return nil
}

func (f *fakeConn) SetAutoCommit(ctx context.Context, enabled bool) error {
	if enabled {
		return f.Commit(ctx)
	}
	if f.inTx {
		return nil
	}
	if f.beginErr != nil {
		return f.beginErr
	}
	f.inTx = true
	f.begins++
	return nil
}

func (f *fakeConn) Commit(context.Context) error {
	if !f.inTx {
		return nil
	}
	if f.commitErr != nil {
		return f.commitErr
	}
	f.inTx = false
	f.commits++
	return nil
}

func (f *fakeConn) Rollback(context.Context) error {
	if !f.inTx {
		return nil
	}
	if f.rollbackEr != nil {
		return f.rollbackEr
	}
	f.inTx = false
	f.rollbacks++
	return nil
}

// fakeSource hands out fakeConns and records their fate.
type fakeSource struct {
	acquires   int
	lastMax    int
	lastCaller string
	released   []types.Conn
	terminated []types.Conn
	conns      []*fakeConn
	closes     int
	acquireErr error
	releaseErr error
	termErr    error
}

func (s *fakeSource) Acquire(ctx context.Context, level types.Isolation, readOnly bool, maxPerTask int) (types.Conn, error) {
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	s.acquires++
	s.lastMax = maxPerTask
	s.lastCaller = types.CallerFromContext(ctx)
	c := &fakeConn{isolation: level, readOnly: readOnly}
	s.conns = append(s.conns, c)
	return c, nil
}

func (s *fakeSource) Release(conn types.Conn) error {
	s.released = append(s.released, conn)
	return s.releaseErr
}

func (s *fakeSource) ForceTerminate(conn types.Conn) error {
	s.terminated = append(s.terminated, conn)
	return s.termErr
}

func (s *fakeSource) Close() error {
	s.closes++
	return nil
}

func (s *fakeSource) Vendor() string { return "fake" }

func newTestManager(src *fakeSource, opts ManagerOptions) *Manager {
	return NewManager(src, logger.New("error", false), opts)
}
