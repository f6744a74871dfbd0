// Package postgresql implements the session Source interface for PostgreSQL
// on top of the pgx stdlib driver. Pooling is delegated to database/sql;
// this package only adds the acquisition parameters and the explicit
// transaction-characteristics handling the session core needs.
package postgresql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/gaborage/go-dbsession/config"
	"github.com/gaborage/go-dbsession/logger"
	"github.com/gaborage/go-dbsession/session/types"
)

// Source implements types.Source for PostgreSQL.
type Source struct {
	db     *sql.DB
	config *config.DatabaseConfig
	logger logger.Logger

	mu          sync.Mutex
	outstanding map[string]int
}

var (
	openPostgresDB = func(cfg *pgx.ConnConfig) *sql.DB {
		return stdlib.OpenDB(*cfg)
	}
	pingPostgresDB = func(ctx context.Context, db *sql.DB) error {
		return db.PingContext(ctx)
	}
)

// quoteDSN quotes a DSN value according to libpq rules:
// - Returns double single quotes for empty strings (empty value)
// - Escapes backslashes and single quotes
// - Wraps in single quotes when value contains non-alphanumeric/._- characters
func quoteDSN(value string) string {
	if value == "" {
		return "''"
	}

	needsQuoting := false
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') && r != '.' && r != '_' && r != '-' {
			needsQuoting = true
			break
		}
	}

	if !needsQuoting {
		return value
	}

	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "'", "\\'")

	return "'" + escaped + "'"
}

// NewSource creates a PostgreSQL-backed connection source.
func NewSource(cfg *config.DatabaseConfig, log logger.Logger) (types.Source, error) {
	var dsn string
	if cfg.ConnectionString != "" {
		dsn = cfg.ConnectionString
	} else {
		parts := []string{
			fmt.Sprintf("host=%s", quoteDSN(cfg.Host)),
			fmt.Sprintf("port=%d", cfg.Port),
			fmt.Sprintf("user=%s", quoteDSN(cfg.Username)),
			fmt.Sprintf("password=%s", quoteDSN(cfg.Password)),
			fmt.Sprintf("dbname=%s", quoteDSN(cfg.Database)),
		}

		if cfg.SSLMode != "" {
			parts = append(parts, fmt.Sprintf("sslmode=%s", cfg.SSLMode))
		}

		dsn = strings.Join(parts, " ")
	}

	pgxConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}

	db := openPostgresDB(pgxConfig)

	db.SetMaxOpenConns(cfg.Pool.MaxConns)
	db.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Pool.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pingPostgresDB(ctx, db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close PostgreSQL pool after ping failure")
		}
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to PostgreSQL database")

	return &Source{
		db:     db,
		config: cfg,
		logger: log,
	}, nil
}

// Acquire checks out a connection and applies the requested session
// characteristics before handing it over. maxPerTask caps outstanding
// acquisitions per caller identity (types.WithCaller); callers without an
// identity share one bucket.
func (s *Source) Acquire(ctx context.Context, level types.Isolation, readOnly bool, maxPerTask int) (types.Conn, error) {
	caller := types.CallerFromContext(ctx)
	if err := s.reserve(caller, maxPerTask); err != nil {
		return nil, err
	}

	raw, err := s.db.Conn(ctx)
	if err != nil {
		s.unreserve(caller)
		return nil, types.NewDatabaseError("acquire", err)
	}

	c := &conn{raw: raw, caller: caller}
	if err := c.SetIsolation(ctx, level); err != nil {
		s.unreserve(caller)
		_ = raw.Close()
		return nil, err
	}
	if err := c.SetReadOnly(ctx, readOnly); err != nil {
		s.unreserve(caller)
		_ = raw.Close()
		return nil, err
	}

	return c, nil
}

// Release returns a healthy connection to the pool.
func (s *Source) Release(cn types.Conn) error {
	c, ok := cn.(*conn)
	if !ok {
		return fmt.Errorf("foreign connection of type %T", cn)
	}
	s.unreserve(c.caller)
	if err := c.raw.Close(); err != nil {
		return types.NewDatabaseError("release", err)
	}
	return nil
}

// ForceTerminate marks the underlying driver connection bad so the pool
// discards it instead of reusing it, then closes the checkout.
func (s *Source) ForceTerminate(cn types.Conn) error {
	c, ok := cn.(*conn)
	if !ok {
		return fmt.Errorf("foreign connection of type %T", cn)
	}
	s.unreserve(c.caller)
	_ = c.raw.Raw(func(any) error { return driver.ErrBadConn })
	_ = c.raw.Close()
	return nil
}

// Close shuts down the underlying pool.
func (s *Source) Close() error {
	s.logger.Info().Msg("Closing PostgreSQL connection source")
	return s.db.Close()
}

// Vendor returns the vendor identifier.
func (s *Source) Vendor() string {
	return types.PostgreSQL
}

func (s *Source) reserve(caller string, maxPerTask int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxPerTask > 0 && s.outstanding[caller] >= maxPerTask {
		return fmt.Errorf("%w: caller holds %d connections", types.ErrPoolExhausted, s.outstanding[caller])
	}
	if s.outstanding == nil {
		s.outstanding = make(map[string]int)
	}
	s.outstanding[caller]++
	return nil
}

func (s *Source) unreserve(caller string) {
	s.mu.Lock()
	if s.outstanding[caller] > 0 {
		s.outstanding[caller]--
		if s.outstanding[caller] == 0 {
			delete(s.outstanding, caller)
		}
	}
	s.mu.Unlock()
}
