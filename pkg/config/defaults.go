package config

import "time"

// ApplyDefaults fills any unset fields with their declared defaults.
// Zero values are replaced, explicit values are preserved. Called after
// both CLI construction and file loading so the merge never sees a
// half-populated record.
func ApplyDefaults(cfg *Config) {
	if cfg.BaseFolder == "" {
		cfg.BaseFolder = DefaultBaseFolder()
	}
	applyDatabaseDefaults(&cfg.Database)
	applyFractalDefaults(&cfg.Fractal)
}

func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.Backend == "" {
		cfg.Backend = BackendPostgres
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.DatabaseName == "" {
		cfg.DatabaseName = "fractal_default"
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
}

func applyFractalDefaults(cfg *FractalConfig) {
	if cfg.Name == "" {
		cfg.Name = "fractal_server"
	}
	if cfg.Port == 0 {
		cfg.Port = 7777
	}
	if cfg.HeartbeatFrequency == 0 {
		cfg.HeartbeatFrequency = 30 * time.Second
	}
	if cfg.Security == "" {
		cfg.Security = "none"
	}
	if cfg.QueryLimit == 0 {
		cfg.QueryLimit = 1000
	}
	// LocalManager keeps its zero value: no compute adapter by default.
}

// DefaultConfig returns a record with every default applied. Useful for
// tests and for building the `init` view before CLI flags land.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
