package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks structural constraints on cfg plus the cross-field rules
// the struct tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	db := &cfg.Database
	if db.ConnectionString == "" && db.Host == "" {
		return fmt.Errorf("database host or connection string is required")
	}

	if db.Pool.MaxIdleConns > db.Pool.MaxConns && db.Pool.MaxConns > 0 {
		return fmt.Errorf("pool maxidleconns (%d) cannot exceed maxconns (%d)", db.Pool.MaxIdleConns, db.Pool.MaxConns)
	}

	return nil
}
