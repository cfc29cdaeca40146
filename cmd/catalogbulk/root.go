package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rpggio/catalogbulk/internal/app"
	"github.com/rpggio/catalogbulk/internal/config"
)

var (
	headingStyle = color.New(color.FgCyan, color.Bold)
	errorStyle   = color.New(color.FgRed, color.Bold)
)

type globalFlags struct {
	configPath string
	logLevel   string
	noColor    bool
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "catalogbulk",
		Short:         "Bulk lookup and edit of library catalog records",
		Long:          headingStyle.Sprint("catalogbulk") + " classifies identifiers, resolves them to catalog records and runs bulk edits.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				color.NoColor = true
			}
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file (overrides CATALOGBULK_CONFIG_PATH)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	cmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable coloured output")

	cmd.AddCommand(
		newServeCommand(flags),
		newClassifyCommand(flags),
		newLookupCommand(flags),
	)
	return cmd
}

// loadConfig resolves configuration with command-line overrides applied
// last and validates it.
func loadConfig(flags *globalFlags, overrides ...func(*config.Config)) (config.Config, error) {
	if flags.configPath != "" {
		if err := os.Setenv("CATALOGBULK_CONFIG_PATH", flags.configPath); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	for _, fn := range overrides {
		fn(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger builds the process logger. stdout is reserved for protocol
// or command output, so logs go to stderr unless a log file is set.
func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	var (
		w       io.Writer = os.Stderr
		cleanup           = func() {}
	)
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("log file: %w", err)
		}
		w = fileWriter
		cleanup = func() { _ = file.Close() }
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	return logger, cleanup, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
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

// openApp loads config, sets up logging and wires the service graph. The
// returned close function releases everything.
func openApp(flags *globalFlags, overrides ...func(*config.Config)) (*app.App, func(), error) {
	cfg, err := loadConfig(flags, overrides...)
	if err != nil {
		return nil, nil, err
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return a, func() {
		if err := a.Close(); err != nil {
			logger.Error("close failed", "error", err)
		}
		closeLog()
	}, nil
}
