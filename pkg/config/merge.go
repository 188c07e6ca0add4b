package config

// Merge combines a persisted record with CLI-supplied input.
//
// Once a record exists on disk it is authoritative for the database group
// and the base folder; only server-settings (fractal group) fields that the
// operator explicitly supplied are taken from the CLI view. The changed set
// is keyed by flag name, as produced by ChangedFields.
//
// Neither input is modified; a new record is returned.
func Merge(persisted, cli *Config, changed map[string]bool) *Config {
	merged := *persisted
	for _, f := range Fields() {
		if f.Group != GroupFractal {
			continue
		}
		if changed[f.FlagName()] {
			f.copyTo(&merged, cli)
		}
	}
	return &merged
}
