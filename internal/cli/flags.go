package cli

import "tapr/internal/config"

// Flags holds command-line flags
type Flags struct {
	// Global
	ConfigFile string
	WorkDir    string
	EnvFile    string
	LogFile    string
	LogLevel   string

	// run and report
	Cmd           string
	Build         string
	LocationQuery string
	Preview       string

	// report
	JSONPath string

	// Args is everything after "--"
	Args []string
}

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		ConfigFile:    f.ConfigFile,
		WorkDir:       f.WorkDir,
		EnvFile:       f.EnvFile,
		LogFile:       f.LogFile,
		LogLevel:      f.LogLevel,
		Cmd:           f.Cmd,
		Build:         f.Build,
		LocationQuery: f.LocationQuery,
		Preview:       f.Preview,
		JSONPath:      f.JSONPath,
		Args:          f.Args,
	}
}
