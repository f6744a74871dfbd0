// Package config loads and validates library configuration from YAML files,
// environment variables, and programmatic defaults.
package config

import "time"

// Config is the root configuration for the library.
type Config struct {
	Database DatabaseConfig `koanf:"database" json:"database" yaml:"database" mapstructure:"database"`
	Log      LogConfig      `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type     string `koanf:"type" json:"type" yaml:"type" mapstructure:"type" validate:"required,oneof=postgresql oracle"`
	Host     string `koanf:"host" json:"host" yaml:"host" mapstructure:"host"`
	Port     int    `koanf:"port" json:"port" yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	Database string `koanf:"database" json:"database" yaml:"database" mapstructure:"database"`
	Username string `koanf:"username" json:"username" yaml:"username" mapstructure:"username"`
	Password string `koanf:"password" json:"password" yaml:"password" mapstructure:"password"`

	// ConnectionString overrides the host/port/credential fields when set.
	ConnectionString string `koanf:"connectionstring" json:"connectionstring" yaml:"connectionstring" mapstructure:"connectionstring"`

	// SSLMode is only meaningful for PostgreSQL.
	SSLMode string `koanf:"sslmode" json:"sslmode" yaml:"sslmode" mapstructure:"sslmode"`

	// ServiceName and SID are only meaningful for Oracle.
	ServiceName string `koanf:"servicename" json:"servicename" yaml:"servicename" mapstructure:"servicename"`
	SID         string `koanf:"sid" json:"sid" yaml:"sid" mapstructure:"sid"`

	Pool    PoolConfig    `koanf:"pool" json:"pool" yaml:"pool" mapstructure:"pool"`
	Session SessionConfig `koanf:"session" json:"session" yaml:"session" mapstructure:"session"`
}

// PoolConfig holds settings for the underlying connection pool.
type PoolConfig struct {
	MaxConns        int           `koanf:"maxconns" json:"maxconns" yaml:"maxconns" mapstructure:"maxconns" validate:"gte=0"`
	MaxIdleConns    int           `koanf:"maxidleconns" json:"maxidleconns" yaml:"maxidleconns" mapstructure:"maxidleconns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"connmaxlifetime" json:"connmaxlifetime" yaml:"connmaxlifetime" mapstructure:"connmaxlifetime"`
	ConnMaxIdleTime time.Duration `koanf:"connmaxidletime" json:"connmaxidletime" yaml:"connmaxidletime" mapstructure:"connmaxidletime"`
}

// SessionConfig holds settings for transaction sessions built on the pool.
type SessionConfig struct {
	// MaxPerTask caps the number of physical connections a single logical
	// task may hold at once. The session core holds at most one, so values
	// above one only matter for callers that bypass the manager.
	MaxPerTask int `koanf:"maxpertask" json:"maxpertask" yaml:"maxpertask" mapstructure:"maxpertask" validate:"gte=0"`

	// Isolation is the default isolation level requested when a unit of
	// work does not ask for a specific one.
	Isolation string `koanf:"isolation" json:"isolation" yaml:"isolation" mapstructure:"isolation" validate:"omitempty,oneof=read-uncommitted read-committed repeatable-read serializable"`

	// ReadOnly marks the default session mode as read-only.
	ReadOnly bool `koanf:"readonly" json:"readonly" yaml:"readonly" mapstructure:"readonly"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}
