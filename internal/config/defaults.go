package config

import "tapr/internal/diag"

const (
	// DefaultConfigFile is looked up in the working directory when --config is not given
	DefaultConfigFile = ".tapr.yaml"
	// DefaultWorkDir is the default directory commands run in
	DefaultWorkDir = "."
	// DefaultLocationQuery finds node-tap and tape style locations
	DefaultLocationQuery = diag.DefaultQuery
	// DefaultLogLevel is the default slog level
	DefaultLogLevel = "info"
	// EnvPrefix prefixes every environment override, e.g. TAPR_CMD
	EnvPrefix = "TAPR"
)

// LogLevels are the accepted --log-level values
var LogLevels = []string{"debug", "info", "warn", "error"}
