// Command decoder runs the contract decoder service and its maintenance tools.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"contract-decoder/internal/shared/config"
	"contract-decoder/internal/shared/telemetry"
)

const (
	configFlagName   = "config"
	logLevelFlagName = "log-level"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	telemetry.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "decoder",
		Short: "Plain-language analysis of legal contracts",
		Long: `decoder explains legal contracts clause by clause with an LLM.

Run "decoder serve" for the HTTP API, or use the analyze and compare
commands directly on local files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if path, _ := cmd.Flags().GetString(configFlagName); strings.TrimSpace(path) != "" {
				if err := os.Setenv("CONFIG_FILE", path); err != nil {
					return err
				}
			}
			if level, _ := cmd.Flags().GetString(logLevelFlagName); strings.TrimSpace(level) != "" {
				if err := os.Setenv("LOG_LEVEL", level); err != nil {
					return err
				}
			}
			return nil
		},
	}
	root.PersistentFlags().String(configFlagName, "", "path to a YAML config file (env vars still win)")
	root.PersistentFlags().String(logLevelFlagName, "", "log level: debug, info, warn or error")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newAnalyzeCmd(),
		newCompareCmd(),
		newHistoryCmd(),
	)
	return root
}

// loadConfig reads configuration and installs the process logger.
func loadConfig() (config.Config, error) {
	cfg := config.Load()
	if err := telemetry.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return cfg, fmt.Errorf("init logger: %w", err)
	}
	for _, warning := range cfg.Diagnostics() {
		telemetry.Warn("config warning", map[string]any{"warning": warning})
	}
	return cfg, nil
}
