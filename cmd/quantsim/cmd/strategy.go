package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwlutz/thats-my-quantv1/strategy"
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Work with strategy definition files",
}

var strategyValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check that a strategy YAML file loads and reconstructs cleanly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strat, err := strategy.LoadYAML(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ok: %s (%d entry rules, %d tickers)\n",
			strat.Name, len(strat.EntryRules), len(strat.Universe))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.AddCommand(strategyValidateCmd)
}
