package config

import (
	"strings"

	"github.com/spf13/pflag"
)

// Group labels a field's precedence group for the merge rule.
type Group string

const (
	// GroupDatabase fields are settable at init time only.
	GroupDatabase Group = "database"

	// GroupFractal fields may be overridden by the CLI at any time.
	GroupFractal Group = "fractal"

	// GroupTop fields (base folder) are settable at init time only.
	GroupTop Group = "top"
)

// Field describes one configurable setting: its canonical underscore name,
// its precedence group, its help text, and how to bind it to a flag set and
// copy it between records. The table below is the single source of truth
// shared by the flag builder and the merge logic.
type Field struct {
	Name  string
	Group Group
	Help  string

	// bind registers a flag writing directly into cfg.
	bind func(fs *pflag.FlagSet, flag, help string, cfg *Config)

	// copyTo copies this field's value from src into dst.
	copyTo func(dst, src *Config)
}

// FlagName maps a field to its CLI flag: underscores become hyphens and
// database-group fields carry a db- prefix.
func (f Field) FlagName() string {
	name := strings.ReplaceAll(f.Name, "_", "-")
	if f.Group == GroupDatabase {
		return "db-" + name
	}
	return name
}

// Fields returns the declarative field table. Defaults come from a fully
// defaulted record so flag help and merge behavior can never drift apart.
func Fields() []Field {
	return []Field{
		{
			Name: "base_folder", Group: GroupTop,
			Help: "The base folder holding the configuration file and database data",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.StringVar(&cfg.BaseFolder, flag, cfg.BaseFolder, help)
			},
			copyTo: func(dst, src *Config) { dst.BaseFolder = src.BaseFolder },
		},

		// Database settings: authoritative from the persisted record once it exists.
		{
			Name: "host", Group: GroupDatabase,
			Help: "The database hostname",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.StringVar(&cfg.Database.Host, flag, cfg.Database.Host, help)
			},
			copyTo: func(dst, src *Config) { dst.Database.Host = src.Database.Host },
		},
		{
			Name: "port", Group: GroupDatabase,
			Help: "The database port",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.IntVar(&cfg.Database.Port, flag, cfg.Database.Port, help)
			},
			copyTo: func(dst, src *Config) { dst.Database.Port = src.Database.Port },
		},
		{
			Name: "username", Group: GroupDatabase,
			Help: "The database username",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.StringVar(&cfg.Database.Username, flag, cfg.Database.Username, help)
			},
			copyTo: func(dst, src *Config) { dst.Database.Username = src.Database.Username },
		},
		{
			Name: "password", Group: GroupDatabase,
			Help: "The database password (stored in the configuration file, never displayed)",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.StringVar(&cfg.Database.Password, flag, cfg.Database.Password, help)
			},
			copyTo: func(dst, src *Config) { dst.Database.Password = src.Database.Password },
		},
		{
			Name: "backend", Group: GroupDatabase,
			Help: "The database backend: postgres or sqlite",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.StringVar((*string)(&cfg.Database.Backend), flag, string(cfg.Database.Backend), help)
			},
			copyTo: func(dst, src *Config) { dst.Database.Backend = src.Database.Backend },
		},
		{
			Name: "database_name", Group: GroupDatabase,
			Help: "The project database name",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.StringVar(&cfg.Database.DatabaseName, flag, cfg.Database.DatabaseName, help)
			},
			copyTo: func(dst, src *Config) { dst.Database.DatabaseName = src.Database.DatabaseName },
		},

		// Server settings: the only group the CLI may override after init.
		{
			Name: "name", Group: GroupFractal,
			Help: "The name of this server instance",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.StringVar(&cfg.Fractal.Name, flag, cfg.Fractal.Name, help)
			},
			copyTo: func(dst, src *Config) { dst.Fractal.Name = src.Fractal.Name },
		},
		{
			Name: "port", Group: GroupFractal,
			Help: "The server HTTP port",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.IntVar(&cfg.Fractal.Port, flag, cfg.Fractal.Port, help)
			},
			copyTo: func(dst, src *Config) { dst.Fractal.Port = src.Fractal.Port },
		},
		{
			Name: "logfile", Group: GroupFractal,
			Help: "Path of the log file (default: log to stdout)",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.StringVar(&cfg.Fractal.Logfile, flag, cfg.Fractal.Logfile, help)
			},
			copyTo: func(dst, src *Config) { dst.Fractal.Logfile = src.Fractal.Logfile },
		},
		{
			Name: "heartbeat_frequency", Group: GroupFractal,
			Help: "Interval between periodic maintenance heartbeats (e.g. 30s, 5m)",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.DurationVar(&cfg.Fractal.HeartbeatFrequency, flag, cfg.Fractal.HeartbeatFrequency, help)
			},
			copyTo: func(dst, src *Config) { dst.Fractal.HeartbeatFrequency = src.Fractal.HeartbeatFrequency },
		},
		{
			Name: "allow_read", Group: GroupFractal,
			Help: "Allow unauthenticated read queries",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.BoolVar(&cfg.Fractal.AllowRead, flag, cfg.Fractal.AllowRead, help)
			},
			copyTo: func(dst, src *Config) { dst.Fractal.AllowRead = src.Fractal.AllowRead },
		},
		{
			Name: "compress_response", Group: GroupFractal,
			Help: "Compress HTTP responses",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.BoolVar(&cfg.Fractal.CompressResponse, flag, cfg.Fractal.CompressResponse, help)
			},
			copyTo: func(dst, src *Config) { dst.Fractal.CompressResponse = src.Fractal.CompressResponse },
		},
		{
			Name: "security", Group: GroupFractal,
			Help: "Authentication mode: none or local",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.StringVar(&cfg.Fractal.Security, flag, cfg.Fractal.Security, help)
			},
			copyTo: func(dst, src *Config) { dst.Fractal.Security = src.Fractal.Security },
		},
		{
			Name: "query_limit", Group: GroupFractal,
			Help: "Maximum number of records a single query may return",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.IntVar(&cfg.Fractal.QueryLimit, flag, cfg.Fractal.QueryLimit, help)
			},
			copyTo: func(dst, src *Config) { dst.Fractal.QueryLimit = src.Fractal.QueryLimit },
		},
		{
			Name: "local_manager", Group: GroupFractal,
			Help: "Number of local compute workers (0 disables, -1 uses all cores)",
			bind: func(fs *pflag.FlagSet, flag, help string, cfg *Config) {
				fs.IntVar(&cfg.Fractal.LocalManager, flag, cfg.Fractal.LocalManager, help)
			},
			copyTo: func(dst, src *Config) { dst.Fractal.LocalManager = src.Fractal.LocalManager },
		},
	}
}

// BindFlags registers flags for the requested groups, writing parsed values
// directly into cfg. Defaults shown in help come from cfg's current values,
// so callers pass a fully defaulted record.
func BindFlags(fs *pflag.FlagSet, cfg *Config, groups ...Group) {
	want := make(map[Group]bool, len(groups))
	for _, g := range groups {
		want[g] = true
	}
	for _, f := range Fields() {
		if len(groups) > 0 && !want[f.Group] {
			continue
		}
		f.bind(fs, f.FlagName(), f.Help, cfg)
	}
}

// BindNamed registers only the flags named (by flag name, e.g. "db-port").
// Used by commands whose surface is a subset of a group.
func BindNamed(fs *pflag.FlagSet, cfg *Config, names ...string) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	for _, f := range Fields() {
		if want[f.FlagName()] {
			f.bind(fs, f.FlagName(), f.Help, cfg)
		}
	}
}

// ChangedFields reports which fields the operator actually supplied on the
// command line, keyed by flag name.
func ChangedFields(fs *pflag.FlagSet) map[string]bool {
	changed := make(map[string]bool)
	for _, f := range Fields() {
		if fs.Lookup(f.FlagName()) != nil && fs.Changed(f.FlagName()) {
			changed[f.FlagName()] = true
		}
	}
	return changed
}
