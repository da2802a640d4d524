package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kballard/go-shellquote"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Commands
	WorkDir      string `mapstructure:"dir"`
	BuildCommand string `mapstructure:"build"`
	TestCommand  string `mapstructure:"cmd"`
	EnvFile      string `mapstructure:"env_file"`

	// Failure details
	LocationQuery  string `mapstructure:"location_query"`
	PreviewCommand string `mapstructure:"preview"`

	Log LogConfig `mapstructure:"log"`

	// Command flags
	Flags Flags `mapstructure:"-"`
}

// LogConfig controls the slog handler
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// Flags holds command-line flags. Empty values leave the file and
// environment settings alone.
type Flags struct {
	ConfigFile    string
	WorkDir       string
	EnvFile       string
	LogFile       string
	LogLevel      string
	Cmd           string
	Build         string
	LocationQuery string
	Preview       string
	JSONPath      string
	// Args is the test command given after "--"
	Args []string
}

// New creates a new Config with defaults
func New() *Config {
	return &Config{
		WorkDir:       DefaultWorkDir,
		LocationQuery: DefaultLocationQuery,
		Log:           LogConfig{Level: DefaultLogLevel},
	}
}

// Load layers defaults, the config file, TAPR_* environment variables and
// flags, in increasing priority.
func Load(flags Flags) (*Config, error) {
	defaults := New()

	v := viper.New()
	v.SetDefault("dir", defaults.WorkDir)
	v.SetDefault("build", "")
	v.SetDefault("cmd", "")
	v.SetDefault("env_file", "")
	v.SetDefault("location_query", defaults.LocationQuery)
	v.SetDefault("preview", "")
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := configFile(flags)
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.Apply(flags)
	return cfg, nil
}

// configFile returns the explicit --config path, or the default file in the
// working directory when it exists.
func configFile(flags Flags) (string, error) {
	if flags.ConfigFile != "" {
		if _, err := os.Stat(flags.ConfigFile); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return flags.ConfigFile, nil
	}

	dir := flags.WorkDir
	if dir == "" {
		dir = DefaultWorkDir
	}
	path := filepath.Join(dir, DefaultConfigFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config file: %w", err)
	}
	return path, nil
}

// Apply overrides settings with the non-empty flags
func (c *Config) Apply(flags Flags) {
	c.Flags = flags

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&c.WorkDir, flags.WorkDir)
	override(&c.EnvFile, flags.EnvFile)
	override(&c.Log.File, flags.LogFile)
	override(&c.Log.Level, flags.LogLevel)
	override(&c.BuildCommand, flags.Build)
	override(&c.TestCommand, flags.Cmd)
	override(&c.LocationQuery, flags.LocationQuery)
	override(&c.PreviewCommand, flags.Preview)

	if len(flags.Args) > 0 {
		c.TestCommand = shellquote.Join(flags.Args...)
	}
}

// Validate checks configuration for issues and returns warnings
func (c *Config) Validate() []string {
	var warnings []string

	if c.TestCommand == "" {
		warnings = append(warnings, "no test command configured, set --cmd, TAPR_CMD or pass it after --")
	}

	if !slices.Contains(LogLevels, strings.ToLower(c.Log.Level)) {
		warnings = append(warnings, fmt.Sprintf("log level %q is not one of %s, using %s",
			c.Log.Level, strings.Join(LogLevels, ", "), DefaultLogLevel))
	}

	if info, err := os.Stat(c.GetWorkDir()); err != nil || !info.IsDir() {
		warnings = append(warnings, fmt.Sprintf("working directory %s does not exist", c.GetWorkDir()))
	}

	if c.EnvFile != "" {
		if _, err := os.Stat(c.GetEnvFile()); err != nil {
			warnings = append(warnings, fmt.Sprintf("env file %s is not readable", c.GetEnvFile()))
		}
	}

	return warnings
}

// GetWorkDir returns the absolute working directory
func (c *Config) GetWorkDir() string {
	dir := c.WorkDir
	if dir == "" {
		dir = DefaultWorkDir
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// GetEnvFile resolves the env file relative to the working directory
func (c *Config) GetEnvFile() string {
	if c.EnvFile == "" || filepath.IsAbs(c.EnvFile) {
		return c.EnvFile
	}
	return filepath.Join(c.GetWorkDir(), c.EnvFile)
}

// Environ returns the env file's variables as KEY=VALUE pairs, sorted by key
func (c *Config) Environ() ([]string, error) {
	if c.EnvFile == "" {
		return nil, nil
	}
	vars, err := godotenv.Read(c.GetEnvFile())
	if err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	env := make([]string, 0, len(vars))
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env, nil
}

// SlogLevel maps the configured level, falling back to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
