package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwlutz/thats-my-quantv1/market"
	"github.com/jwlutz/thats-my-quantv1/portfolio"
	"github.com/jwlutz/thats-my-quantv1/rules"
	"github.com/jwlutz/thats-my-quantv1/sizer"
	"github.com/jwlutz/thats-my-quantv1/strategy"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// momentumStrategy buys on a day change above 5% and exits via the given
// rule, 10 shares at a time.
func momentumStrategy(t *testing.T, exit rules.ExitRule, universe ...string) *strategy.Strategy {
	t.Helper()

	entry, err := rules.NewConditionEntry(rules.DayChange{}, rules.GreaterThan{Threshold: 0.05}, "momentum", 1.0)
	require.NoError(t, err)
	ps, err := sizer.NewFixedShares(10)
	require.NoError(t, err)

	s, err := strategy.New("momentum", []rules.EntryRule{entry}, exit, ps, universe)
	require.NoError(t, err)
	return s
}

func frictionless(start, end time.Time) Config {
	return Config{
		InitialCapital: 100000,
		Start:          start,
		End:            end,
		MaxPositions:   10,
	}
}

func TestNewValidation(t *testing.T) {
	exit, _ := rules.NewTimeExit(10)
	strat := momentumStrategy(t, exit, "AAPL")
	data := market.NewMemoryProvider()
	cfg := frictionless(day(2024, 1, 2), day(2024, 1, 10))

	_, err := New(nil, data, cfg)
	assert.Error(t, err)

	_, err = New(strat, nil, cfg)
	assert.Error(t, err)

	bad := cfg
	bad.Start, bad.End = bad.End, bad.Start
	_, err = New(strat, data, bad)
	assert.Error(t, err)

	bad = cfg
	bad.InitialCapital = 0
	_, err = New(strat, data, bad)
	assert.Error(t, err)

	bad = cfg
	bad.Commission = -1
	_, err = New(strat, data, bad)
	assert.Error(t, err)
}

func TestRunNoTradingDays(t *testing.T) {
	exit, _ := rules.NewTimeExit(10)
	strat := momentumStrategy(t, exit, "AAPL")

	b, err := New(strat, market.NewMemoryProvider(), frictionless(day(2024, 1, 2), day(2024, 1, 10)))
	require.NoError(t, err)

	_, err = b.Run(context.Background())
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	exit, _ := rules.NewTimeExit(10)
	strat := momentumStrategy(t, exit, "AAPL")

	data := market.NewMemoryProvider()
	data.SetClose("AAPL", day(2024, 1, 2), 100)

	b, err := New(strat, data, frictionless(day(2024, 1, 2), day(2024, 1, 10)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunProfitableTrade(t *testing.T) {
	exit, err := rules.NewProfitTarget(0.10, 1.0)
	require.NoError(t, err)
	strat := momentumStrategy(t, exit, "AAPL")

	data := market.NewMemoryProvider()
	data.SetBar("AAPL", day(2024, 1, 2), market.Bar{Open: 100, Close: 106}) // +6%: entry
	data.SetBar("AAPL", day(2024, 1, 3), market.Bar{Open: 106, Close: 106}) // flat: hold
	data.SetBar("AAPL", day(2024, 1, 4), market.Bar{Open: 120, Close: 120}) // +13% on entry: exit

	b, err := New(strat, data, frictionless(day(2024, 1, 2), day(2024, 1, 4)))
	require.NoError(t, err)

	res, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Trades)
	assert.Equal(t, 1, res.Wins)
	assert.Equal(t, 0, res.Losses)
	assert.Equal(t, 100.0, res.WinRate)
	assert.InDelta(t, 100140.0, res.FinalValue, 1e-9) // 10 shares, bought 106 sold 120
	assert.InDelta(t, 0.14, res.TotalReturnPct, 1e-9)
	assert.Equal(t, 0, b.Portfolio().OpenCount())

	log := b.Portfolio().TransactionLog()
	require.Len(t, log, 2)
	assert.Equal(t, portfolio.KindOpen, log[0].Kind)
	assert.Equal(t, "signal", log[0].Reason)
	assert.Equal(t, portfolio.KindClose, log[1].Kind)
	assert.Equal(t, rules.ReasonProfitTarget, log[1].Reason)

	eq := res.Equity
	require.Len(t, eq, 3)
	assert.InDelta(t, 100000.0, eq[0].Value, 1e-9)
	assert.InDelta(t, 100000.0, eq[1].Value, 1e-9)
	assert.InDelta(t, 100140.0, eq[2].Value, 1e-9)
}

func TestExitsFreeSlotsForSameDayEntries(t *testing.T) {
	exit, err := rules.NewProfitTarget(0.10, 1.0)
	require.NoError(t, err)
	strat := momentumStrategy(t, exit, "AAA", "BBB")

	data := market.NewMemoryProvider()
	// Day 1: AAA signals and fills the only slot.
	data.SetBar("AAA", day(2024, 1, 2), market.Bar{Open: 100, Close: 110})
	data.SetBar("BBB", day(2024, 1, 2), market.Bar{Open: 100, Close: 100})
	// Day 2: AAA hits its target and BBB signals; the freed slot must be
	// usable the same day.
	data.SetBar("AAA", day(2024, 1, 3), market.Bar{Open: 130, Close: 130})
	data.SetBar("BBB", day(2024, 1, 3), market.Bar{Open: 100, Close: 110})

	cfg := frictionless(day(2024, 1, 2), day(2024, 1, 3))
	cfg.MaxPositions = 1

	b, err := New(strat, data, cfg)
	require.NoError(t, err)
	_, err = b.Run(context.Background())
	require.NoError(t, err)

	log := b.Portfolio().TransactionLog()
	require.Len(t, log, 4)

	assert.Equal(t, "AAA", log[0].Ticker)
	assert.Equal(t, portfolio.KindOpen, log[0].Kind)

	// Same day: AAA's exit strictly precedes BBB's entry.
	assert.Equal(t, "AAA", log[1].Ticker)
	assert.Equal(t, portfolio.KindClose, log[1].Kind)
	assert.Equal(t, rules.ReasonProfitTarget, log[1].Reason)
	assert.Equal(t, "BBB", log[2].Ticker)
	assert.Equal(t, portfolio.KindOpen, log[2].Kind)
	assert.True(t, log[1].Date.Equal(log[2].Date))

	// BBB is liquidated at end of run.
	assert.Equal(t, "BBB", log[3].Ticker)
	assert.Equal(t, ReasonBacktestEnd, log[3].Reason)
}

func TestMaxPositionsNeverExceeded(t *testing.T) {
	exit, err := rules.NewTimeExit(100)
	require.NoError(t, err)
	tickers := []string{"T1", "T2", "T3", "T4", "T5"}
	strat := momentumStrategy(t, exit, tickers...)

	data := market.NewMemoryProvider()
	for i := 0; i < 5; i++ {
		d := day(2024, 1, 2+i)
		for _, tk := range tickers {
			data.SetBar(tk, d, market.Bar{Open: 100, Close: 110})
		}
	}

	cfg := frictionless(day(2024, 1, 2), day(2024, 1, 6))
	cfg.MaxPositions = 3

	b, err := New(strat, data, cfg)
	require.NoError(t, err)
	res, err := b.Run(context.Background())
	require.NoError(t, err)

	opens := 0
	for _, txn := range b.Portfolio().TransactionLog() {
		if txn.Kind == portfolio.KindOpen {
			opens++
		}
	}
	assert.Equal(t, 3, opens)
	assert.Equal(t, 3, res.Trades)
	for _, rt := range res.Closed {
		last := rt.Transactions[len(rt.Transactions)-1]
		assert.Equal(t, ReasonBacktestEnd, last.Reason)
	}
	assert.Equal(t, 0, b.Portfolio().OpenCount())
}

func TestPartialExitLeavesPositionOpen(t *testing.T) {
	exit, err := rules.NewProfitTarget(0.10, 0.5)
	require.NoError(t, err)
	strat := momentumStrategy(t, exit, "AAPL")

	data := market.NewMemoryProvider()
	data.SetBar("AAPL", day(2024, 1, 2), market.Bar{Open: 100, Close: 106})
	data.SetBar("AAPL", day(2024, 1, 3), market.Bar{Open: 120, Close: 120})

	cfg := frictionless(day(2024, 1, 2), day(2024, 1, 3))
	cfg.FractionalShares = true

	b, err := New(strat, data, cfg)
	require.NoError(t, err)
	_, err = b.Run(context.Background())
	require.NoError(t, err)

	log := b.Portfolio().TransactionLog()
	require.Len(t, log, 3)
	assert.Equal(t, portfolio.KindReduce, log[1].Kind)
	assert.InDelta(t, 5.0, log[1].Shares, 1e-9)
	// The remainder goes at liquidation.
	assert.Equal(t, portfolio.KindClose, log[2].Kind)
	assert.Equal(t, ReasonBacktestEnd, log[2].Reason)
	assert.InDelta(t, 5.0, log[2].Shares, 1e-9)
}

func TestDataGapDoesNotAbortRun(t *testing.T) {
	exit, err := rules.NewTimeExit(100)
	require.NoError(t, err)
	strat := momentumStrategy(t, exit, "AAPL", "BBB")

	data := market.NewMemoryProvider()
	data.SetBar("AAPL", day(2024, 1, 2), market.Bar{Open: 100, Close: 110}) // entry
	data.SetBar("BBB", day(2024, 1, 2), market.Bar{Open: 50, Close: 50})
	// Day 2: AAPL does not trade. BBB keeps the calendar alive.
	data.SetBar("BBB", day(2024, 1, 3), market.Bar{Open: 50, Close: 50})
	data.SetBar("AAPL", day(2024, 1, 4), market.Bar{Open: 120, Close: 120})
	data.SetBar("BBB", day(2024, 1, 4), market.Bar{Open: 50, Close: 50})

	b, err := New(strat, data, frictionless(day(2024, 1, 2), day(2024, 1, 4)))
	require.NoError(t, err)
	res, err := b.Run(context.Background())
	require.NoError(t, err)

	eq := res.Equity
	require.Len(t, eq, 3)
	// While unpriced, the position contributes nothing to equity.
	assert.InDelta(t, 100000.0, eq[0].Value, 1e-9)
	assert.InDelta(t, 100000.0-10*110, eq[1].Value, 1e-9)
	assert.InDelta(t, 100000.0+10*10, eq[2].Value, 1e-9)

	// Liquidation uses the last observed price.
	log := b.Portfolio().TransactionLog()
	last := log[len(log)-1]
	assert.Equal(t, ReasonBacktestEnd, last.Reason)
	assert.Equal(t, 120.0, last.Price)
}

func TestTrailingStopAcrossRun(t *testing.T) {
	exit, err := rules.NewTrailingStop(0.10)
	require.NoError(t, err)
	strat := momentumStrategy(t, exit, "AAPL")

	data := market.NewMemoryProvider()
	closes := []float64{106, 130, 150, 140, 134} // peak 150; 134 is >10% off
	for i, c := range closes {
		open := c
		if i == 0 {
			open = 100 // day change signals the entry
		}
		data.SetBar("AAPL", day(2024, 1, 2+i), market.Bar{Open: open, Close: c})
	}

	b, err := New(strat, data, frictionless(day(2024, 1, 2), day(2024, 1, 6)))
	require.NoError(t, err)
	_, err = b.Run(context.Background())
	require.NoError(t, err)

	log := b.Portfolio().TransactionLog()
	require.Len(t, log, 2)
	assert.Equal(t, rules.ReasonTrailingStop, log[1].Reason)
	assert.Equal(t, 134.0, log[1].Price)
	assert.True(t, log[1].Date.Equal(day(2024, 1, 6)))
}

// taggedEntry buys a >5% day change and attaches its own exit rule to the
// signal.
type taggedEntry struct {
	exit rules.ExitRule
}

func (e taggedEntry) ShouldEnter(ticker string, d time.Time, data market.Provider) (rules.Signal, bool) {
	bar, ok := data.GetBar(ticker, d)
	if !ok || bar.Open <= 0 || (bar.Close-bar.Open)/bar.Open <= 0.05 {
		return rules.Signal{}, false
	}
	return rules.Signal{Ticker: ticker, Date: d, Type: "tagged", Priority: 1.0, ExitRule: e.exit}, true
}

func TestSignalExitRuleOverridesStrategy(t *testing.T) {
	// The strategy's own exit never fires inside the run; only the
	// signal-attached target can close the position before liquidation.
	stratExit, err := rules.NewTimeExit(100)
	require.NoError(t, err)
	override, err := rules.NewProfitTarget(0.05, 1.0)
	require.NoError(t, err)
	ps, err := sizer.NewFixedShares(10)
	require.NoError(t, err)

	strat, err := strategy.New("tagged", []rules.EntryRule{taggedEntry{exit: override}}, stratExit, ps, []string{"AAPL"})
	require.NoError(t, err)

	data := market.NewMemoryProvider()
	data.SetBar("AAPL", day(2024, 1, 2), market.Bar{Open: 100, Close: 106}) // entry
	data.SetBar("AAPL", day(2024, 1, 3), market.Bar{Open: 115, Close: 115}) // +8.5% on entry
	data.SetBar("AAPL", day(2024, 1, 4), market.Bar{Open: 115, Close: 115})

	b, err := New(strat, data, frictionless(day(2024, 1, 2), day(2024, 1, 4)))
	require.NoError(t, err)
	_, err = b.Run(context.Background())
	require.NoError(t, err)

	log := b.Portfolio().TransactionLog()
	require.Len(t, log, 2)
	assert.Equal(t, portfolio.KindClose, log[1].Kind)
	assert.Equal(t, rules.ReasonProfitTarget, log[1].Reason)
	assert.True(t, log[1].Date.Equal(day(2024, 1, 3)))
}

// memoryJournal records everything handed to it, for asserting the mirror
// is complete and in order.
type memoryJournal struct {
	txns   []portfolio.Transaction
	equity []portfolio.EquityPoint
	closed bool
}

func (m *memoryJournal) RecordTransaction(t portfolio.Transaction) error {
	m.txns = append(m.txns, t)
	return nil
}

func (m *memoryJournal) RecordEquity(e portfolio.EquityPoint) error {
	m.equity = append(m.equity, e)
	return nil
}

func (m *memoryJournal) Close() error {
	m.closed = true
	return nil
}

func TestJournalMirrorsRun(t *testing.T) {
	exit, err := rules.NewProfitTarget(0.10, 1.0)
	require.NoError(t, err)
	strat := momentumStrategy(t, exit, "AAPL")

	data := market.NewMemoryProvider()
	data.SetBar("AAPL", day(2024, 1, 2), market.Bar{Open: 100, Close: 106})
	data.SetBar("AAPL", day(2024, 1, 3), market.Bar{Open: 120, Close: 120})

	b, err := New(strat, data, frictionless(day(2024, 1, 2), day(2024, 1, 3)))
	require.NoError(t, err)

	j := &memoryJournal{}
	b.SetJournal(j)

	_, err = b.Run(context.Background())
	require.NoError(t, err)

	// Every transaction and equity point is mirrored exactly once.
	assert.Equal(t, b.Portfolio().TransactionLog(), j.txns)
	assert.Equal(t, b.Portfolio().EquityHistory(), j.equity)
}

func TestRunIsDeterministic(t *testing.T) {
	build := func() *Backtester {
		exit, err := rules.NewProfitTarget(0.15, 1.0)
		require.NoError(t, err)
		strat := momentumStrategy(t, exit, "T1", "T2", "T3")

		data := market.NewMemoryProvider()
		closes := map[string][]float64{
			"T1": {110, 115, 130, 128, 140},
			"T2": {55, 58, 60, 70, 72},
			"T3": {210, 200, 195, 230, 240},
		}
		for tk, series := range closes {
			prev := series[0] / 1.08 // first day signals for everyone
			for i, c := range series {
				data.SetBar(tk, day(2024, 1, 2+i), market.Bar{Open: prev, Close: c})
				prev = c
			}
		}

		cfg := frictionless(day(2024, 1, 2), day(2024, 1, 6))
		cfg.MaxPositions = 2
		b, err := New(strat, data, cfg)
		require.NoError(t, err)
		return b
	}

	type trade struct {
		Ticker string
		Kind   portfolio.Kind
		Date   time.Time
		Shares float64
	}
	flatten := func(b *Backtester) []trade {
		var out []trade
		for _, txn := range b.Portfolio().TransactionLog() {
			out = append(out, trade{txn.Ticker, txn.Kind, txn.Date, txn.Shares})
		}
		return out
	}

	first := build()
	_, err := first.Run(context.Background())
	require.NoError(t, err)

	second := build()
	_, err = second.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, flatten(first), flatten(second))
	assert.Equal(t, first.Portfolio().EquityHistory(), second.Portfolio().EquityHistory())
}
