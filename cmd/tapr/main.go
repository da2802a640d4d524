package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"tapr/internal/cli"
	"tapr/internal/cli/commands"
	"tapr/internal/config"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:     "tapr",
		Short:   "Run tests and browse TAP failures",
		Long:    `Run any command that prints TAP, parse the nested results and browse the failures in a terminal UI. Relaunch with a single key after fixing a test.`,
		Version: version,

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Create initial config with defaults
	cfg := config.New()

	// Create flags struct (will be populated by command flags)
	var flags cli.Flags

	// Create commands with dependencies
	cmds := commands.NewCommands(cfg)

	// Register all commands
	cmds.Register(rootCmd, &flags, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	cmds.Close()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
