// Package config holds the Fractal server configuration model: typed
// settings records, their defaults and validation rules, the declarative
// field table backing the CLI surface, and the persisted-record store.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Backend identifies the relational datastore behind the server.
type Backend string

const (
	// BackendPostgres runs a managed PostgreSQL instance under the base folder.
	BackendPostgres Backend = "postgres"

	// BackendSQLite keeps a single-file database under the base folder.
	BackendSQLite Backend = "sqlite"
)

// ConfigFileName is the persisted record's file name under the base folder.
const ConfigFileName = "fractal_config.yaml"

// RedactedPassword replaces the database password in any displayed view
// of the configuration. The stored record keeps the real value.
const RedactedPassword = "**********"

// DatabaseConfig describes how to reach (and manage) the backing datastore.
//
// Once a persisted record exists, these fields are authoritative from the
// record and can only be changed by re-running `init`. Changing the
// datastore identity after data exists is unsafe without a migration path.
type DatabaseConfig struct {
	// Host the datastore listens on.
	Host string `mapstructure:"host" yaml:"host" validate:"required"`

	// Port the datastore listens on.
	Port int `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`

	// Username used to connect. Optional for locally managed instances.
	Username string `mapstructure:"username" yaml:"username,omitempty"`

	// Password used to connect. Redacted in any displayed view.
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	// Backend selects the datastore flavor: postgres or sqlite.
	Backend Backend `mapstructure:"backend" yaml:"backend" validate:"required,oneof=postgres sqlite"`

	// DatabaseName is the project database to create and connect to.
	DatabaseName string `mapstructure:"database_name" yaml:"database_name" validate:"required"`

	// MaxOpenConns bounds the connection pool.
	MaxOpenConns int `mapstructure:"max_open_conns" yaml:"max_open_conns,omitempty"`

	// MaxIdleConns bounds idle pooled connections.
	MaxIdleConns int `mapstructure:"max_idle_conns" yaml:"max_idle_conns,omitempty"`
}

// FractalConfig holds the server-settings group. These are the only fields
// the CLI may override once a persisted record exists.
type FractalConfig struct {
	// Name identifies this server instance to managers and peers.
	Name string `mapstructure:"name" yaml:"name"`

	// Port is the HTTP listen port.
	Port int `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`

	// Logfile receives structured log output. Empty means stdout.
	Logfile string `mapstructure:"logfile" yaml:"logfile,omitempty"`

	// HeartbeatFrequency drives the periodic maintenance callback.
	HeartbeatFrequency time.Duration `mapstructure:"heartbeat_frequency" yaml:"heartbeat_frequency" validate:"gt=0"`

	// AllowRead permits unauthenticated read queries.
	AllowRead bool `mapstructure:"allow_read" yaml:"allow_read"`

	// CompressResponse enables response compression on the listener.
	CompressResponse bool `mapstructure:"compress_response" yaml:"compress_response"`

	// Security selects the authentication mode: none or local.
	Security string `mapstructure:"security" yaml:"security" validate:"omitempty,oneof=none local"`

	// QueryLimit caps the number of records a single query may return.
	QueryLimit int `mapstructure:"query_limit" yaml:"query_limit" validate:"min=0"`

	// LocalManager sizes the in-process compute adapter.
	// 0 disables the adapter, -1 means "as many workers as cores".
	LocalManager int `mapstructure:"local_manager" yaml:"local_manager" validate:"min=-1"`
}

// Config is the aggregate settings record for one Fractal server instance.
//
// The persisted form keeps top-level keys `base_folder`, `database` and
// `fractal` and round-trips losslessly; only displayed views redact the
// database password.
type Config struct {
	// BaseFolder roots every derived path (config file, database data).
	BaseFolder string `mapstructure:"base_folder" yaml:"base_folder"`

	// Database holds datastore connection and lifecycle settings.
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Fractal holds the server-settings group.
	Fractal FractalConfig `mapstructure:"fractal" yaml:"fractal"`
}

// ConfigFilePath returns the persisted record's location under the base folder.
func (c *Config) ConfigFilePath() string {
	return filepath.Join(c.BaseFolder, ConfigFileName)
}

// DatabasePath returns the datastore data directory under the base folder.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.BaseFolder, "database")
}

// Redacted returns a copy safe for display: secrets are masked, nothing else
// changes. The receiver is not modified.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Database.Password != "" {
		out.Database.Password = RedactedPassword
	}
	return &out
}

// DefaultBaseFolder returns the well-known per-user base folder, ~/.fractal.
// Falls back to a relative .fractal when the home directory is unknown.
func DefaultBaseFolder() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fractal"
	}
	return filepath.Join(home, ".fractal")
}

// load reads a persisted record with viper so FRACTAL_* environment
// variables can override file values, then applies defaults and validates.
func load(path, baseFolder string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("FRACTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotInitialized, path)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file %s: %w", path, err)
	}

	// The base folder the operator pointed us at wins over whatever the
	// record was written with; derived paths must match the actual layout.
	cfg.BaseFolder = baseFolder

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// durationDecodeHook converts strings like "40s" or "5m" to time.Duration
// when unmarshalling the config file.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}
