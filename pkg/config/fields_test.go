package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestFlagNames(t *testing.T) {
	names := make(map[string]Group)
	for _, f := range Fields() {
		if _, dup := names[f.FlagName()]; dup {
			t.Errorf("duplicate flag name %q", f.FlagName())
		}
		names[f.FlagName()] = f.Group
	}

	// Database flags carry the db- prefix so they cannot collide with
	// server settings of the same name (both groups have a port).
	for flag, group := range map[string]Group{
		"base-folder":         GroupTop,
		"db-host":             GroupDatabase,
		"db-port":             GroupDatabase,
		"db-backend":          GroupDatabase,
		"db-database-name":    GroupDatabase,
		"port":                GroupFractal,
		"heartbeat-frequency": GroupFractal,
		"local-manager":       GroupFractal,
	} {
		if got, ok := names[flag]; !ok {
			t.Errorf("missing flag %q", flag)
		} else if got != group {
			t.Errorf("flag %q in group %q, want %q", flag, got, group)
		}
	}
}

func TestBindFlagsWritesIntoConfig(t *testing.T) {
	cfg := DefaultConfig()
	fs := pflag.NewFlagSet("init", pflag.ContinueOnError)
	BindFlags(fs, cfg)

	err := fs.Parse([]string{
		"--db-backend", "sqlite",
		"--db-database-name", "benzene_scan",
		"--port", "8080",
		"--heartbeat-frequency", "2m",
	})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Database.Backend != BackendSQLite {
		t.Errorf("backend = %q, want sqlite", cfg.Database.Backend)
	}
	if cfg.Database.DatabaseName != "benzene_scan" {
		t.Errorf("database_name = %q, want benzene_scan", cfg.Database.DatabaseName)
	}
	if cfg.Fractal.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Fractal.Port)
	}
	if cfg.Fractal.HeartbeatFrequency.String() != "2m0s" {
		t.Errorf("heartbeat_frequency = %v, want 2m", cfg.Fractal.HeartbeatFrequency)
	}
}

func TestBindFlagsGroupFilter(t *testing.T) {
	cfg := DefaultConfig()
	fs := pflag.NewFlagSet("start", pflag.ContinueOnError)
	BindFlags(fs, cfg, GroupFractal)

	if fs.Lookup("db-host") != nil {
		t.Error("database flags must not be registered for the fractal group")
	}
	if fs.Lookup("port") == nil {
		t.Error("port flag missing from the fractal group")
	}
}

func TestChangedFields(t *testing.T) {
	cfg := DefaultConfig()
	fs := pflag.NewFlagSet("start", pflag.ContinueOnError)
	BindFlags(fs, cfg)

	if err := fs.Parse([]string{"--port", "9000"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	changed := ChangedFields(fs)
	if !changed["port"] {
		t.Error("port not reported as changed")
	}
	if changed["db-port"] {
		t.Error("db-port reported as changed without being supplied")
	}
	if len(changed) != 1 {
		t.Errorf("changed = %v, want only port", changed)
	}
}

func TestChangedFieldsDefaultValueStillCounts(t *testing.T) {
	cfg := DefaultConfig()
	fs := pflag.NewFlagSet("start", pflag.ContinueOnError)
	BindFlags(fs, cfg)

	// Explicitly passing the default value is still an override.
	if err := fs.Parse([]string{"--port", "7777"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !ChangedFields(fs)["port"] {
		t.Error("explicitly supplied default not reported as changed")
	}
}
