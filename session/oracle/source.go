// Package oracle implements the session Source interface for Oracle on top
// of the go-ora driver. Pooling is delegated to database/sql.
package oracle

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"
	"time"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/gaborage/go-dbsession/config"
	"github.com/gaborage/go-dbsession/logger"
	"github.com/gaborage/go-dbsession/session/types"
)

// Source implements types.Source for Oracle.
type Source struct {
	db     *sql.DB
	config *config.DatabaseConfig
	logger logger.Logger

	mu          sync.Mutex
	outstanding map[string]int
}

var (
	openOracleDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("oracle", dsn)
	}
	pingOracleDB = func(ctx context.Context, db *sql.DB) error {
		return db.PingContext(ctx)
	}
)

// NewSource creates an Oracle-backed connection source.
func NewSource(cfg *config.DatabaseConfig, log logger.Logger) (types.Source, error) {
	var dsn string
	if cfg.ConnectionString != "" {
		dsn = cfg.ConnectionString
	} else if cfg.ServiceName != "" {
		dsn = go_ora.BuildUrl(cfg.Host, cfg.Port, cfg.ServiceName, cfg.Username, cfg.Password, nil)
	} else if cfg.SID != "" {
		dsn = go_ora.BuildUrl(cfg.Host, cfg.Port, "", cfg.Username, cfg.Password, map[string]string{"SID": cfg.SID})
	} else {
		dsn = go_ora.BuildUrl(cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password, nil)
	}

	db, err := openOracleDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open Oracle connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.Pool.MaxConns)
	db.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Pool.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pingOracleDB(ctx, db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close Oracle pool after ping failure")
		}
		return nil, fmt.Errorf("failed to ping Oracle database: %w", err)
	}

	ev := log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port)
	if cfg.ServiceName != "" {
		ev = ev.Str("service_name", cfg.ServiceName)
	} else if cfg.SID != "" {
		ev = ev.Str("sid", cfg.SID)
	} else {
		ev = ev.Str("database", cfg.Database)
	}
	ev.Msg("Connected to Oracle database")

	return &Source{
		db:     db,
		config: cfg,
		logger: log,
	}, nil
}

// Acquire checks out a connection and applies the requested session
// characteristics. maxPerTask caps outstanding acquisitions per caller
// identity (types.WithCaller); callers without an identity share one bucket.
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
// discards it instead of reusing it.
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
	s.logger.Info().Msg("Closing Oracle connection source")
	return s.db.Close()
}

// Vendor returns the vendor identifier.
func (s *Source) Vendor() string {
	return types.Oracle
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
