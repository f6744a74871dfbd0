package postgresql

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-dbsession/logger"
	"github.com/gaborage/go-dbsession/session/types"
)

func newMockSource(t *testing.T) (*Source, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Source{db: db, logger: logger.New("error", false)}, mock
}

func expectExec(mock sqlmock.Sqlmock, stmt string) {
	mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestQuoteDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "''"},
		{"simple", "simple"},
		{"with space", "'with space'"},
		{"it's", `'it\'s'`},
		{`back\slash`, `'back\\slash'`},
		{"host-1.example_com", "host-1.example_com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, quoteDSN(tt.in))
	}
}

func TestAcquireAppliesSessionCharacteristics(t *testing.T) {
	src, mock := newMockSource(t)
	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY")

	conn, err := src.Acquire(context.Background(), types.Serializable, true, 4)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireEnforcesPerCallerCap(t *testing.T) {
	src, mock := newMockSource(t)
	ctxA := types.WithCaller(context.Background(), "task-a")
	ctxB := types.WithCaller(context.Background(), "task-b")

	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL READ COMMITTED")
	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION READ WRITE")
	first, err := src.Acquire(ctxA, types.ReadCommitted, false, 1)
	require.NoError(t, err)

	_, err = src.Acquire(ctxA, types.ReadCommitted, false, 1)
	require.ErrorIs(t, err, types.ErrPoolExhausted)

	// The cap is per caller: another task is unaffected by task-a's hold.
	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL READ COMMITTED")
	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION READ WRITE")
	_, err = src.Acquire(ctxB, types.ReadCommitted, false, 1)
	require.NoError(t, err)

	// Releasing frees task-a's slot again.
	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL READ COMMITTED")
	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION READ WRITE")
	require.NoError(t, src.Release(first))
	_, err = src.Acquire(ctxA, types.ReadCommitted, false, 1)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnTransactionControl(t *testing.T) {
	src, mock := newMockSource(t)
	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL READ COMMITTED")
	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION READ WRITE")

	cn, err := src.Acquire(context.Background(), types.ReadCommitted, false, 0)
	require.NoError(t, err)
	ctx := context.Background()

	expectExec(mock, "BEGIN")
	require.NoError(t, cn.SetAutoCommit(ctx, false))
	// Already in a transaction: no second BEGIN.
	require.NoError(t, cn.SetAutoCommit(ctx, false))

	expectExec(mock, "COMMIT")
	require.NoError(t, cn.Commit(ctx))
	// Committed: further commit/rollback are no-ops.
	require.NoError(t, cn.Commit(ctx))
	require.NoError(t, cn.Rollback(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnRollback(t *testing.T) {
	src, mock := newMockSource(t)
	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL READ COMMITTED")
	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION READ WRITE")

	cn, err := src.Acquire(context.Background(), types.ReadCommitted, false, 0)
	require.NoError(t, err)
	ctx := context.Background()

	expectExec(mock, "BEGIN")
	require.NoError(t, cn.SetAutoCommit(ctx, false))

	expectExec(mock, "ROLLBACK")
	require.NoError(t, cn.Rollback(ctx))
	require.NoError(t, cn.Rollback(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnInTransactionUpgrades(t *testing.T) {
	src, mock := newMockSource(t)
	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL READ COMMITTED")
	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY")

	cn, err := src.Acquire(context.Background(), types.ReadCommitted, true, 0)
	require.NoError(t, err)
	ctx := context.Background()

	expectExec(mock, "BEGIN")
	require.NoError(t, cn.SetAutoCommit(ctx, false))

	// In-flight upgrades use SET TRANSACTION, not session characteristics.
	expectExec(mock, "SET TRANSACTION ISOLATION LEVEL REPEATABLE READ")
	require.NoError(t, cn.SetIsolation(ctx, types.RepeatableRead))
	expectExec(mock, "SET TRANSACTION READ WRITE")
	require.NoError(t, cn.SetReadOnly(ctx, false))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnQueryWrapsDriverErrors(t *testing.T) {
	src, mock := newMockSource(t)
	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL READ COMMITTED")
	expectExec(mock, "SET SESSION CHARACTERISTICS AS TRANSACTION READ WRITE")

	cn, err := src.Acquire(context.Background(), types.ReadCommitted, false, 0)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT 1").WillReturnError(sql.ErrConnDone)
	_, err = cn.Query(context.Background(), "SELECT 1")
	require.Error(t, err)

	var dbErr *types.DatabaseError
	assert.ErrorAs(t, err, &dbErr)
}

func TestVendor(t *testing.T) {
	src, _ := newMockSource(t)
	assert.Equal(t, types.PostgreSQL, src.Vendor())
}

func TestReleaseRejectsForeignConn(t *testing.T) {
	src, _ := newMockSource(t)
	err := src.Release(&foreignConn{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foreign connection")
}

type foreignConn struct{}

func (f *foreignConn) Query(context.Context, string, ...any) (*sql.Rows, error) { return nil, nil }
func (f *foreignConn) Exec(context.Context, string, ...any) (sql.Result, error) { return nil, nil }
func (f *foreignConn) SetIsolation(context.Context, types.Isolation) error      { return nil }
func (f *foreignConn) SetReadOnly(context.Context, bool) error                  { return nil }
func (f *foreignConn) SetAutoCommit(context.Context, bool) error                { return nil }
func (f *foreignConn) Commit(context.Context) error                             { return nil }
func (f *foreignConn) Rollback(context.Context) error                           { return nil }
