package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jwlutz/thats-my-quantv1/backtest"
)

// Config is the complete run configuration for the CLI: account
// parameters, friction model, simulated period, data location and
// journaling. The strategy itself lives in its own file (see the strategy
// package) so definitions can be reused across runs.
type Config struct {
	Account  AccountConfig `json:"account" yaml:"account"`
	Costs    CostConfig    `json:"costs" yaml:"costs"`
	Period   PeriodConfig  `json:"period" yaml:"period"`
	Data     DataConfig    `json:"data" yaml:"data"`
	Journal  JournalConfig `json:"journal" yaml:"journal"`
	Strategy string        `json:"strategy" yaml:"strategy"` // path to strategy YAML
}

// AccountConfig contains account initialization parameters.
type AccountConfig struct {
	InitialCapital   float64 `json:"initial_capital" yaml:"initial_capital"`
	MaxPositions     int     `json:"max_positions" yaml:"max_positions"`
	FractionalShares bool    `json:"fractional_shares" yaml:"fractional_shares"`
}

// CostConfig contains the transaction friction model.
type CostConfig struct {
	Commission  float64 `json:"commission" yaml:"commission"`
	SlippagePct float64 `json:"slippage_pct" yaml:"slippage_pct"`
}

// PeriodConfig is the simulated date range, dates as yyyy-mm-dd.
type PeriodConfig struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// DataConfig locates the market data.
type DataConfig struct {
	Dir string `json:"dir" yaml:"dir"` // directory of per-ticker OHLCV CSVs
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type             string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TransactionsFile string `json:"transactions_file,omitempty" yaml:"transactions_file,omitempty"`
	EquityFile       string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath           string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file, trying YAML first and
// falling back to JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if yerr := yaml.Unmarshal(data, cfg); yerr != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", yerr)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills in values a minimal config can omit.
func (c *Config) ApplyDefaults() {
	if c.Account.InitialCapital == 0 {
		c.Account.InitialCapital = 100_000
	}
	if c.Account.MaxPositions == 0 {
		c.Account.MaxPositions = 10
	}
	if c.Journal.Type == "" {
		c.Journal.Type = "none"
	}
}

// Validate checks the configuration for early, obvious mistakes.
func (c *Config) Validate() error {
	if c.Account.InitialCapital <= 0 {
		return fmt.Errorf("account.initial_capital must be positive, got %v", c.Account.InitialCapital)
	}
	if c.Account.MaxPositions <= 0 {
		return fmt.Errorf("account.max_positions must be positive, got %d", c.Account.MaxPositions)
	}
	if c.Costs.Commission < 0 {
		return fmt.Errorf("costs.commission must be non-negative, got %v", c.Costs.Commission)
	}
	if c.Costs.SlippagePct < 0 {
		return fmt.Errorf("costs.slippage_pct must be non-negative, got %v", c.Costs.SlippagePct)
	}
	if _, _, err := c.Period.Parse(); err != nil {
		return err
	}
	switch c.Journal.Type {
	case "none":
	case "csv":
		if c.Journal.TransactionsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal type csv requires transactions_file and equity_file")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal type sqlite requires db_path")
		}
	default:
		return fmt.Errorf("unknown journal type %q", c.Journal.Type)
	}
	return nil
}

// Parse converts the period strings into dates and checks their order.
func (p PeriodConfig) Parse() (start, end time.Time, err error) {
	start, err = time.ParseInLocation(time.DateOnly, p.Start, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("period.start: %w", err)
	}
	end, err = time.ParseInLocation(time.DateOnly, p.End, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("period.end: %w", err)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("period.start %s must be before period.end %s", p.Start, p.End)
	}
	return start, end, nil
}

// BacktestConfig converts the loaded file into engine run parameters.
func (c *Config) BacktestConfig() (backtest.Config, error) {
	start, end, err := c.Period.Parse()
	if err != nil {
		return backtest.Config{}, err
	}
	return backtest.Config{
		InitialCapital:   c.Account.InitialCapital,
		Start:            start,
		End:              end,
		Commission:       c.Costs.Commission,
		SlippagePct:      c.Costs.SlippagePct,
		MaxPositions:     c.Account.MaxPositions,
		FractionalShares: c.Account.FractionalShares,
	}, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
