package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jwlutz/thats-my-quantv1/backtest"
	"github.com/jwlutz/thats-my-quantv1/config"
	"github.com/jwlutz/thats-my-quantv1/journal"
	"github.com/jwlutz/thats-my-quantv1/market"
	"github.com/jwlutz/thats-my-quantv1/strategy"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a strategy against historical daily bars",
	Long: `Backtest simulates a strategy file over a directory of daily OHLCV CSVs.

The run configuration (account, costs, period, data, journal) comes from a
YAML or JSON config file; the strategy definition is a separate YAML file
referenced by it or passed with --strategy.

Example:
  quantsim backtest --config run.yaml
  quantsim backtest --config run.yaml --strategy strategies/earnings_beat.yaml --trades`,
	RunE: runBacktest,
}

var (
	btConfigPath   string
	btStrategyPath string
	btShowTrades   bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "path to run config (YAML or JSON) (required)")
	backtestCmd.Flags().StringVarP(&btStrategyPath, "strategy", "s", "", "path to strategy YAML (overrides config)")
	backtestCmd.Flags().BoolVar(&btShowTrades, "trades", false, "print the closed roundtrip table after the run")

	backtestCmd.MarkFlagRequired("config")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(btConfigPath)
	if err != nil {
		return err
	}

	strategyPath := cfg.Strategy
	if btStrategyPath != "" {
		strategyPath = btStrategyPath
	}
	if strategyPath == "" {
		return fmt.Errorf("no strategy file: set strategy in the config or pass --strategy")
	}

	strat, err := strategy.LoadYAML(strategyPath)
	if err != nil {
		return err
	}

	provider, err := market.NewCSVProvider(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("load market data: %w", err)
	}

	btCfg, err := cfg.BacktestConfig()
	if err != nil {
		return err
	}

	bt, err := backtest.New(strat, provider, btCfg)
	if err != nil {
		return err
	}

	jrnl, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	if jrnl != nil {
		defer jrnl.Close()
		bt.SetJournal(jrnl)
	}

	res, err := bt.Run(cmd.Context())
	if err != nil {
		return err
	}

	res.Print(os.Stdout)

	if btShowTrades {
		printTrades(res)
	}
	return nil
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.TransactionsFile, jc.EquityFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	default:
		return nil, nil
	}
}

func printTrades(res *backtest.Results) {
	if len(res.Closed) == 0 {
		fmt.Println("no closed roundtrips")
		return
	}

	slog.Debug("printing closed roundtrips", "count", len(res.Closed))

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "Ticker", "Shares", "Avg Entry", "Realized P&L", "Transactions", "Last Reason")

	for i, rt := range res.Closed {
		last := rt.Transactions[len(rt.Transactions)-1]
		table.Append(
			fmt.Sprintf("%d", i+1),
			rt.Ticker,
			fmt.Sprintf("%.2f", rt.TotalShares()),
			fmt.Sprintf("%.2f", rt.AverageEntryPrice()),
			fmt.Sprintf("%.2f", rt.RealizedPnL()),
			fmt.Sprintf("%d", len(rt.Transactions)),
			last.Reason,
		)
	}

	table.Render()
}
