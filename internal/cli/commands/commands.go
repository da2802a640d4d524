package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"tapr/internal/cli"
	"tapr/internal/config"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Commands holds all CLI commands
type Commands struct {
	Run    *RunCommand
	Report *ReportCommand
	Parse  *ParseCommand

	logFile io.Closer
}

// NewCommands creates all commands with dependencies
func NewCommands(cfg *config.Config) *Commands {
	return &Commands{
		Run:    NewRunCommand(cfg),
		Report: NewReportCommand(cfg, os.Stdout),
		Parse:  NewParseCommand(cfg, os.Stdout),
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags, cfg *config.Config) {
	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&flags.ConfigFile, "config", "", "Config file (default is "+config.DefaultConfigFile+" in the working directory)")
	persistent.StringVar(&flags.WorkDir, "dir", "", "Working directory for the build and test commands")
	persistent.StringVar(&flags.EnvFile, "env-file", "", "Dotenv file merged into the command environment")
	persistent.StringVar(&flags.LogFile, "log-file", "", "Write logs to this file")
	persistent.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn or error")

	// Run command
	runCmd := &cobra.Command{
		Use:   "run [flags] [-- test command...]",
		Short: "Run tests and browse failures interactively",
		Long:  "Run the test command, parse its TAP output and browse the failures in a terminal UI. Press r to run again.",
		RunE:  c.Run.Execute,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.merge(cmd, args, flags, cfg, true)
		},
	}
	addRunFlags(runCmd, flags)
	rootCmd.AddCommand(runCmd)

	// Report command
	reportCmd := &cobra.Command{
		Use:   "report [flags] [-- test command...]",
		Short: "Run tests once and print a summary",
		Long:  "Run the test command once without the terminal UI, print the failures and exit non-zero when there are any.",
		RunE:  c.Report.Execute,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.merge(cmd, args, flags, cfg, false)
		},
	}
	addRunFlags(reportCmd, flags)
	reportCmd.Flags().StringVar(&flags.JSONPath, "json", "", "Export the run as JSON to this path (- for stdout)")
	rootCmd.AddCommand(reportCmd)

	// Parse command
	parseCmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Parse saved TAP output",
		Long:  "Parse TAP output from a file or stdin and print the same summary as report. No command is run.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.Parse.Execute,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(flags.ToConfigFlags())
			if err != nil {
				return err
			}
			*cfg = *loaded
			return c.setupLogging(cfg, false)
		},
	}
	parseCmd.Flags().StringVarP(&flags.LocationQuery, "location-query", "q", "", "Query that extracts file:line from YAML diagnostics")
	parseCmd.Flags().StringVar(&flags.JSONPath, "json", "", "Export the run as JSON to this path (- for stdout)")
	rootCmd.AddCommand(parseCmd)
}

func addRunFlags(cmd *cobra.Command, flags *cli.Flags) {
	cmd.Flags().StringVarP(&flags.Cmd, "cmd", "c", "", "Test command producing TAP on stdout")
	cmd.Flags().StringVarP(&flags.Build, "build", "b", "", "Build command run before every test run")
	cmd.Flags().StringVarP(&flags.LocationQuery, "location-query", "q", "", "Query that extracts file:line from YAML diagnostics")
	cmd.Flags().StringVar(&flags.Preview, "preview", "", "Preview command template, e.g. 'bat --highlight-line {line} {file}'")
}

// merge layers the parsed flags over the config file and environment
func (c *Commands) merge(cmd *cobra.Command, args []string, flags *cli.Flags, cfg *config.Config, interactive bool) error {
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		flags.Args = args[dash:]
	} else {
		flags.Args = args
	}

	loaded, err := config.Load(flags.ToConfigFlags())
	if err != nil {
		return err
	}
	*cfg = *loaded

	for _, warning := range cfg.Validate() {
		color.New(color.FgYellow).Fprintf(os.Stderr, "Warning: %s\n", warning)
	}
	return c.setupLogging(cfg, interactive)
}

// setupLogging installs the default slog logger. The terminal belongs to
// the TUI in interactive mode, so logs go nowhere unless --log-file is set.
func (c *Commands) setupLogging(cfg *config.Config, interactive bool) error {
	var w io.Writer = io.Discard
	level := cfg.SlogLevel()

	switch {
	case cfg.Log.File != "":
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		c.logFile = f
		w = f
	case !interactive:
		w = os.Stderr
		if cfg.Flags.LogLevel == "" {
			level = slog.LevelWarn
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

// Close releases the log file, if one was opened
func (c *Commands) Close() error {
	if c.logFile == nil {
		return nil
	}
	return c.logFile.Close()
}
