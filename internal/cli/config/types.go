// Package config provides configuration management for the runsummary CLI.
// Precedence, highest first: flags > environment > config file > defaults.
package config

// Config holds all CLI configuration options.
type Config struct {
	// Outfile is the CSV destination. Empty derives
	// run_summary_<dirname>.csv from the control directory.
	Outfile string `koanf:"outfile"`

	// Pattern is the run-boundary commit regexp. Its first capture group,
	// when present, supplies the run number.
	Pattern string `koanf:"pattern"`

	// Columns selects and orders the report columns by name. Empty means
	// the full default specification.
	Columns []string `koanf:"columns"`

	// NamelistColumns appends one column per namelist variable that changed
	// in any run.
	NamelistColumns bool `koanf:"namelist_columns"`

	// Jobname overrides the PBS job name used to locate log artifacts.
	// Empty reads it from the experiment's config.yaml.
	Jobname string `koanf:"jobname"`

	// SyncScript names the shell script holding the GDATADIR output path.
	SyncScript string `koanf:"sync_script"`

	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
}

// Default configuration values.
const (
	DefaultPattern    = `\bRun (\d+)$`
	DefaultSyncScript = "sync_output_to_gdata.sh"
	DefaultOutput     = "auto" // TTY=text, piped=markdown
)
