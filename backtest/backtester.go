package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwlutz/thats-my-quantv1/journal"
	"github.com/jwlutz/thats-my-quantv1/market"
	"github.com/jwlutz/thats-my-quantv1/portfolio"
	"github.com/jwlutz/thats-my-quantv1/rules"
	"github.com/jwlutz/thats-my-quantv1/sizer"
	"github.com/jwlutz/thats-my-quantv1/strategy"
)

// ReasonBacktestEnd tags the forced liquidation of positions still open on
// the final day. Distinct from every rule-triggered reason so reconciliation
// can tell them apart.
const ReasonBacktestEnd = "backtest_end"

// fullExitThreshold treats portions this close to 1.0 as a full close, so
// float drift in portion math cannot leave dust shares behind.
const fullExitThreshold = 0.9999

// Config holds the run parameters of a backtest.
type Config struct {
	InitialCapital   float64
	Start            time.Time
	End              time.Time
	Commission       float64
	SlippagePct      float64
	MaxPositions     int
	FractionalShares bool
}

// Backtester drives the day-by-day simulation of a strategy over
// historical bars. Each day runs in a strict order: exits first, then
// signal generation, then entries, then equity recording. Exits come first
// on purpose: capital and slots freed in the morning are available to new
// entries the same day.
type Backtester struct {
	strat *strategy.Strategy
	data  market.Provider
	cfg   Config
	port  *portfolio.Portfolio
	jrnl  journal.Journal

	// journaled/journaledEquity count how many log entries and equity
	// points have been flushed to jrnl.
	journaled       int
	journaledEquity int
}

func New(strat *strategy.Strategy, data market.Provider, cfg Config) (*Backtester, error) {
	if strat == nil {
		return nil, fmt.Errorf("strategy is required")
	}
	if err := strat.Validate(); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("data provider is required")
	}
	if !cfg.Start.Before(cfg.End) {
		return nil, fmt.Errorf("start %s must be before end %s",
			cfg.Start.Format(time.DateOnly), cfg.End.Format(time.DateOnly))
	}

	costs, err := portfolio.NewCostModel(cfg.Commission, cfg.SlippagePct)
	if err != nil {
		return nil, err
	}
	port, err := portfolio.New(cfg.InitialCapital, cfg.MaxPositions, costs, cfg.FractionalShares)
	if err != nil {
		return nil, err
	}

	return &Backtester{
		strat: strat,
		data:  data,
		cfg:   cfg,
		port:  port,
		jrnl:  journal.Nop{},
	}, nil
}

// SetJournal mirrors every transaction and equity point into j as the run
// progresses. Must be called before Run.
func (b *Backtester) SetJournal(j journal.Journal) {
	if j != nil {
		b.jrnl = j
	}
}

// Portfolio exposes the account for inspection after (or during) a run.
func (b *Backtester) Portfolio() *portfolio.Portfolio { return b.port }

// Run executes the simulation over every trading day in [Start, End] and
// force-closes whatever is still open at the end. The context is only
// checked between days, so cancelling never interrupts a half-processed
// day.
func (b *Backtester) Run(ctx context.Context) (*Results, error) {
	days := b.data.Calendar(b.cfg.Start, b.cfg.End)
	if len(days) == 0 {
		return nil, fmt.Errorf("no trading days between %s and %s",
			b.cfg.Start.Format(time.DateOnly), b.cfg.End.Format(time.DateOnly))
	}

	slog.Info("backtest starting",
		"strategy", b.strat.Name,
		"days", len(days),
		"universe", len(b.strat.Universe),
		"capital", b.cfg.InitialCapital)

	// Rule state lives for exactly one run. A second Run on a fresh
	// Backtester can share the same strategy values without inheriting
	// this run's trailing peaks.
	st := rules.NewRunState()
	lastPrices := make(map[string]float64)

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.processDay(day, st, lastPrices); err != nil {
			return nil, err
		}
	}

	if err := b.closeAll(market.Day(b.cfg.End), lastPrices); err != nil {
		return nil, err
	}

	res := newResults(b.strat.Name, b.port, b.cfg)
	slog.Info("backtest finished",
		"trades", res.Trades,
		"final_value", res.FinalValue,
		"return_pct", res.TotalReturnPct)
	return res, nil
}

func (b *Backtester) processDay(day time.Time, st *rules.RunState, lastPrices map[string]float64) error {
	prices := b.currentPrices(day, lastPrices)

	if err := b.processExits(day, prices, st); err != nil {
		return err
	}

	signals := b.strat.GenerateSignals(day, b.data)
	if len(signals) > 0 {
		slog.Debug("signals generated", "date", day.Format(time.DateOnly), "count", len(signals))
	}

	if err := b.processEntries(day, prices, signals); err != nil {
		return err
	}

	// Equity must be recorded after all of the day's mutations so the
	// curve reflects the day's trading.
	b.port.RecordEquity(day, b.port.TotalValue(prices))
	return b.flushJournal()
}

// currentPrices collects the day's close for every universe ticker plus any
// ticker still held but dropped from the universe. It also refreshes
// lastPrices, which the end-of-run liquidation falls back on.
func (b *Backtester) currentPrices(day time.Time, lastPrices map[string]float64) map[string]float64 {
	prices := make(map[string]float64)

	record := func(ticker string) {
		if _, done := prices[ticker]; done {
			return
		}
		bar, ok := b.data.GetBar(ticker, day)
		if !ok || bar.Close <= 0 {
			return
		}
		prices[ticker] = bar.Close
		lastPrices[ticker] = bar.Close
	}

	for _, ticker := range b.strat.Universe {
		record(ticker)
	}
	for _, rt := range b.port.OpenRoundTrips() {
		record(rt.Ticker)
	}
	return prices
}

type plannedExit struct {
	rtID    string
	portion float64
	price   float64
	reason  string
}

func (b *Backtester) processExits(day time.Time, prices map[string]float64, st *rules.RunState) error {
	// Decide everything first, then execute. A decision is an instruction
	// consumed exactly once; executing mid-scan would let one exit's cash
	// effects bleed into a sibling's evaluation.
	var planned []plannedExit

	for _, rt := range b.port.OpenRoundTrips() {
		price, ok := prices[rt.Ticker]
		if !ok {
			slog.Debug("no price for open position, skipping exit check",
				"ticker", rt.Ticker, "date", day.Format(time.DateOnly))
			continue
		}
		if rt.ExitRule == nil {
			continue
		}

		d := rt.ExitRule.Evaluate(rt, day, price, st)
		if d.Exit {
			planned = append(planned, plannedExit{rtID: rt.ID, portion: d.Portion, price: price, reason: d.Reason})
		}
	}

	for _, pe := range planned {
		rt, ok := b.port.FindOpen(pe.rtID)
		if !ok {
			return fmt.Errorf("planned exit for unknown roundtrip %q", pe.rtID)
		}

		if pe.portion >= fullExitThreshold {
			if _, err := b.port.ClosePosition(pe.rtID, day, pe.price, pe.reason); err != nil {
				return err
			}
			slog.Debug("closed position", "ticker", rt.Ticker, "reason", pe.reason)
		} else {
			shares := rt.RemainingShares() * pe.portion
			if _, err := b.port.ReducePosition(pe.rtID, day, pe.price, shares, pe.reason); err != nil {
				return err
			}
			slog.Debug("reduced position", "ticker", rt.Ticker, "portion", pe.portion, "reason", pe.reason)
		}
	}
	return nil
}

func (b *Backtester) processEntries(day time.Time, prices map[string]float64, signals []rules.Signal) error {
	for _, sig := range signals {
		if !b.port.CanOpenPosition() {
			break
		}
		price, ok := prices[sig.Ticker]
		if !ok {
			continue
		}

		shares, err := b.strat.Sizer.CalculateShares(price, sizer.Context{
			AvailableCash:  b.port.Cash(),
			PortfolioValue: b.port.TotalValue(prices),
			OpenPositions:  b.port.OpenCount(),
			MaxPositions:   b.port.MaxPositions(),
		})
		if err != nil {
			return err
		}
		if shares <= 0 {
			continue
		}

		exitRule := b.strat.ExitRule
		if sig.ExitRule != nil {
			exitRule = sig.ExitRule
		}

		rt, err := b.port.OpenPosition(sig.Ticker, day, price, shares, exitRule, sig.Metadata)
		if err != nil {
			return err
		}
		if rt == nil {
			// Could not fund this one; a cheaper signal may still fit.
			continue
		}
		slog.Debug("opened position", "ticker", sig.Ticker, "shares", shares, "price", price, "signal", sig.Type)
	}
	return nil
}

// closeAll force-closes every remaining position on the final day at the
// last available price, so the run ends with zero open exposure and the
// log reconciles exactly.
func (b *Backtester) closeAll(finalDay time.Time, lastPrices map[string]float64) error {
	for _, rt := range b.port.OpenRoundTrips() {
		price, ok := lastPrices[rt.Ticker]
		if !ok {
			// Opening required a price, so one was seen; guard anyway.
			return fmt.Errorf("no price ever observed for %q", rt.Ticker)
		}
		if _, err := b.port.ClosePosition(rt.ID, finalDay, price, ReasonBacktestEnd); err != nil {
			return err
		}
		slog.Debug("liquidated at end of run", "ticker", rt.Ticker, "price", price)
	}
	return b.flushJournal()
}

// flushJournal mirrors any not-yet-journaled transactions and equity
// points.
func (b *Backtester) flushJournal() error {
	log := b.port.TransactionLog()
	for ; b.journaled < len(log); b.journaled++ {
		if err := b.jrnl.RecordTransaction(log[b.journaled]); err != nil {
			return fmt.Errorf("journal transaction: %w", err)
		}
	}

	eq := b.port.EquityHistory()
	for ; b.journaledEquity < len(eq); b.journaledEquity++ {
		if err := b.jrnl.RecordEquity(eq[b.journaledEquity]); err != nil {
			return fmt.Errorf("journal equity: %w", err)
		}
	}
	return nil
}
