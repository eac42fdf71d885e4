package main

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/sfc-typer/cmd/sfc-typer/generate"
	"github.com/walteh/sfc-typer/cmd/sfc-typer/inspect"
	logdebug "github.com/walteh/sfc-typer/pkg/debug"
	"gitlab.com/tozd/go/errors"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var (
		verbose bool
		noColor bool
	)

	rootCmd := &cobra.Command{
		Use:           "sfc-typer",
		Short:         "generate type-checkable artifacts from single file components",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&verbose, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger := logdebug.NewLogger(cmd.ErrOrStderr(), level, !noColor)
		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)
	rootCmd.AddCommand(generate.NewGenerateCommand())
	rootCmd.AddCommand(inspect.NewBlocksCommand())
	rootCmd.AddCommand(inspect.NewMapCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
