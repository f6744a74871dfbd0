package session

import (
	"context"
	"database/sql"

	"github.com/gaborage/go-dbsession/session/types"
)

// Query helpers decode small result sets and raise the result signals the
// classifier understands: ErrNoRow when a required row is missing,
// ErrExtraRow when a single-row query matched more than one, ErrNullData
// when a required scalar came back NULL. Driver failures during execution or
// scanning are wrapped as DatabaseError.

// SelectOne scans exactly one row into dest. Zero rows yield ErrNoRow, more
// than one ErrExtraRow.
func SelectOne(ctx context.Context, conn types.Conn, query string, dest []any, args ...any) error {
	found, err := selectAtMostOne(ctx, conn, query, dest, args...)
	if err != nil {
		return err
	}
	if !found {
		return types.ErrNoRow
	}
	return nil
}

// SelectMaybe scans at most one row into dest and reports whether a row was
// found. More than one row yields ErrExtraRow.
func SelectMaybe(ctx context.Context, conn types.Conn, query string, dest []any, args ...any) (bool, error) {
	return selectAtMostOne(ctx, conn, query, dest, args...)
}

// SelectString returns a single required non-null string.
func SelectString(ctx context.Context, conn types.Conn, query string, args ...any) (string, error) {
	var v sql.NullString
	if err := SelectOne(ctx, conn, query, []any{&v}, args...); err != nil {
		return "", err
	}
	if !v.Valid {
		return "", types.ErrNullData
	}
	return v.String, nil
}

// SelectInt64 returns a single required non-null int64.
func SelectInt64(ctx context.Context, conn types.Conn, query string, args ...any) (int64, error) {
	var v sql.NullInt64
	if err := SelectOne(ctx, conn, query, []any{&v}, args...); err != nil {
		return 0, err
	}
	if !v.Valid {
		return 0, types.ErrNullData
	}
	return v.Int64, nil
}

func selectAtMostOne(ctx context.Context, conn types.Conn, query string, dest []any, args ...any) (bool, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return false, types.NewDatabaseError("query", err)
		}
		return false, nil
	}
	if err := rows.Scan(dest...); err != nil {
		return false, types.NewDatabaseError("scan", err)
	}
	if rows.Next() {
		return true, types.ErrExtraRow
	}
	if err := rows.Err(); err != nil {
		return true, types.NewDatabaseError("query", err)
	}
	return true, nil
}
