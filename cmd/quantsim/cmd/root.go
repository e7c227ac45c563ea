package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quantsim",
	Short: "A daily-bar strategy backtester for equities",
	Long: `Quantsim simulates trading strategies against historical daily bars.

It provides tools for:
  - Backtesting rule-based strategies with realistic transaction costs
  - Composable entry and exit rules with priority-ordered composites
  - Position sizing policies (fixed dollar, percent, equal weight, ...)
  - Strategy definitions persisted as YAML
  - Journaling transaction logs and equity curves to CSV or SQLite`,
}

var logLevel string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cobra.OnInitialize(setupLogging)
}

func setupLogging() {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
