//go:build integration

// Package containers provides testcontainer helpers for integration tests.
// Tests using it must carry the integration build tag and are skipped when
// Docker is unavailable.
package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/docker/client"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresConfig controls the container image and the database it creates.
type PostgresConfig struct {
	ImageTag       string
	Username       string
	Password       string
	Database       string
	StartupTimeout time.Duration
}

// DefaultPostgresConfig returns the configuration used by the module's own
// integration tests.
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		ImageTag:       "17-alpine",
		Username:       "testuser",
		Password:       "testpass",
		Database:       "testdb",
		StartupTimeout: 60 * time.Second,
	}
}

// Postgres wraps a running PostgreSQL testcontainer.
type Postgres struct {
	container *postgres.PostgresContainer
	connStr   string
}

// StartPostgres starts a PostgreSQL container and registers its teardown with
// t.Cleanup. The test is skipped when no Docker daemon is reachable.
func StartPostgres(ctx context.Context, t *testing.T, cfg *PostgresConfig) *Postgres {
	t.Helper()

	if cfg == nil {
		cfg = DefaultPostgresConfig()
	}

	if !dockerAvailable(ctx) {
		t.Skip("Docker is not available, skipping integration test")
	}

	pgContainer, err := postgres.Run(ctx,
		fmt.Sprintf("postgres:%s", cfg.ImageTag),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			// Postgres restarts once after initial setup.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(cfg.StartupTimeout),
		),
	)
	if err != nil {
		t.Fatalf("failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get PostgreSQL connection string: %v", err)
	}

	return &Postgres{container: pgContainer, connStr: connStr}
}

// ConnectionString returns the DSN for the running container.
func (p *Postgres) ConnectionString() string {
	return p.connStr
}

// Host returns the container host.
func (p *Postgres) Host(ctx context.Context) (string, error) {
	return p.container.Host(ctx)
}

// MappedPort returns the host port mapped to 5432.
func (p *Postgres) MappedPort(ctx context.Context) (int, error) {
	port, err := p.container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return 0, err
	}
	return port.Int(), nil
}

func dockerAvailable(ctx context.Context) bool {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false
	}
	defer cli.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = cli.Ping(pingCtx)
	return err == nil
}
