package session

import (
	"fmt"
	"slices"

	"github.com/gaborage/go-dbsession/config"
	"github.com/gaborage/go-dbsession/logger"
	"github.com/gaborage/go-dbsession/session/oracle"
	"github.com/gaborage/go-dbsession/session/postgresql"
	"github.com/gaborage/go-dbsession/session/types"
)

// NewSource creates a connection source according to cfg. The concrete
// driver is selected by cfg.Type (supported: "postgresql", "oracle"). If
// cfg.Type is unsupported an error is returned; if the chosen driver fails
// to initialize, that underlying error is returned.
func NewSource(cfg *config.DatabaseConfig, log logger.Logger) (types.Source, error) {
	switch cfg.Type {
	case PostgreSQL:
		return postgresql.NewSource(cfg, log)
	case Oracle:
		return oracle.NewSource(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported database type: %s (supported: postgresql, oracle)", cfg.Type)
	}
}

// NewManagerFromConfig builds a source for cfg and wraps it in a Manager
// configured from cfg.Session.
func NewManagerFromConfig(cfg *config.DatabaseConfig, log logger.Logger) (*Manager, error) {
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	source, err := NewSource(cfg, log)
	if err != nil {
		return nil, err
	}
	return NewManager(source, log, opts), nil
}

// ValidateVendor returns nil if vendor is one of the supported database
// vendors.
func ValidateVendor(vendor string) error {
	supported := []string{PostgreSQL, Oracle}
	if !slices.Contains(supported, vendor) {
		return fmt.Errorf("unsupported database type: %s (supported: %v)", vendor, supported)
	}
	return nil
}

// SupportedVendors returns the list of supported database vendors.
func SupportedVendors() []string {
	return []string{PostgreSQL, Oracle}
}
