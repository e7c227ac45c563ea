package portfolio

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jwlutz/thats-my-quantv1/internal/id"
	"github.com/jwlutz/thats-my-quantv1/rules"
)

// EquityPoint is one day's total portfolio value. The series of these is
// the sole engine output consumed by downstream performance analysis.
type EquityPoint struct {
	Date  time.Time
	Value float64
}

// Portfolio owns the cash balance and every open and closed roundtrip.
// Cash and the position maps are mutated only through its own operations.
//
// Expected trading conditions (no cash, no slot, zero-share sizing) come
// back as nil/false results, not errors; errors are reserved for caller
// defects like referencing an unknown roundtrip or over-selling.
type Portfolio struct {
	startingCapital float64
	cash            float64
	maxPositions    int
	fractional      bool
	costs           CostModel

	open   map[string]*RoundTrip
	closed []*RoundTrip
	log    []Transaction
	equity []EquityPoint
}

// ReasonSignal tags entry transactions opened from a strategy signal.
const ReasonSignal = "signal"

func New(startingCapital float64, maxPositions int, costs CostModel, fractionalShares bool) (*Portfolio, error) {
	if startingCapital <= 0 {
		return nil, fmt.Errorf("starting capital must be positive, got %v", startingCapital)
	}
	if maxPositions <= 0 {
		return nil, fmt.Errorf("max positions must be positive, got %d", maxPositions)
	}
	return &Portfolio{
		startingCapital: startingCapital,
		cash:            startingCapital,
		maxPositions:    maxPositions,
		fractional:      fractionalShares,
		costs:           costs,
		open:            make(map[string]*RoundTrip),
	}, nil
}

func (p *Portfolio) Cash() float64            { return p.cash }
func (p *Portfolio) StartingCapital() float64 { return p.startingCapital }
func (p *Portfolio) MaxPositions() int        { return p.maxPositions }
func (p *Portfolio) OpenCount() int           { return len(p.open) }

// CanOpenPosition reports whether a free position slot exists.
func (p *Portfolio) CanOpenPosition() bool {
	return len(p.open) < p.maxPositions
}

// FindOpen looks up an open roundtrip by ID.
func (p *Portfolio) FindOpen(rtID string) (*RoundTrip, bool) {
	rt, ok := p.open[rtID]
	return rt, ok
}

// OpenRoundTrips returns the open positions sorted by ID. ULIDs sort by
// creation time, so iteration order is oldest-first and deterministic.
func (p *Portfolio) OpenRoundTrips() []*RoundTrip {
	out := make([]*RoundTrip, 0, len(p.open))
	for _, rt := range p.open {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ClosedRoundTrips returns completed positions in close order.
func (p *Portfolio) ClosedRoundTrips() []*RoundTrip { return p.closed }

// TransactionLog returns the append-only audit log across all roundtrips.
func (p *Portfolio) TransactionLog() []Transaction { return p.log }

// EquityHistory returns the recorded equity curve.
func (p *Portfolio) EquityHistory() []EquityPoint { return p.equity }

func (p *Portfolio) roundShares(shares float64) float64 {
	if p.fractional {
		return shares
	}
	return math.Trunc(shares)
}

// OpenPosition opens a new roundtrip. A nil roundtrip with nil error means
// the open was skipped for an ordinary reason: zero shares after rounding,
// no free slot, or entry cost above available cash. These happen constantly
// during a simulation and must not abort a run.
func (p *Portfolio) OpenPosition(ticker string, day time.Time, price, shares float64, exitRule rules.ExitRule, metadata map[string]any) (*RoundTrip, error) {
	shares = p.roundShares(shares)
	if shares <= 0 {
		return nil, nil
	}
	if !p.CanOpenPosition() {
		return nil, nil
	}

	cost, err := p.costs.EntryCost(shares, price)
	if err != nil {
		return nil, err
	}
	if cost > p.cash {
		return nil, nil
	}

	rtID := id.New()
	txn := Transaction{
		ID:          id.New(),
		RoundTripID: rtID,
		Ticker:      ticker,
		Date:        day,
		Kind:        KindOpen,
		Shares:      shares,
		Price:       price,
		NetAmount:   -cost,
		Reason:      ReasonSignal,
	}

	rt := &RoundTrip{
		ID:            rtID,
		Ticker:        ticker,
		ExitRule:      exitRule,
		EntryMetadata: metadata,
	}
	if err := rt.apply(txn); err != nil {
		return nil, err
	}

	p.cash -= cost
	p.open[rtID] = rt
	p.log = append(p.log, txn)
	return rt, nil
}

// AddToPosition buys more shares for an existing roundtrip (DCA). It
// returns false without error when cash cannot cover the add; an unknown
// roundtrip ID is an error.
func (p *Portfolio) AddToPosition(rtID string, day time.Time, price, shares float64, reason string) (bool, error) {
	rt, ok := p.open[rtID]
	if !ok {
		return false, fmt.Errorf("roundtrip %q not found", rtID)
	}

	shares = p.roundShares(shares)
	if shares <= 0 {
		return false, nil
	}

	cost, err := p.costs.EntryCost(shares, price)
	if err != nil {
		return false, err
	}
	if cost > p.cash {
		return false, nil
	}

	txn := Transaction{
		ID:          id.New(),
		RoundTripID: rtID,
		Ticker:      rt.Ticker,
		Date:        day,
		Kind:        KindAdd,
		Shares:      shares,
		Price:       price,
		NetAmount:   -cost,
		Reason:      reason,
	}
	if err := rt.apply(txn); err != nil {
		return false, err
	}

	p.cash -= cost
	p.log = append(p.log, txn)
	return true, nil
}

// ReducePosition sells part or all of a roundtrip and returns the realized
// P&L for the exited shares. Selling more than remains, or naming an
// unknown roundtrip, is an error. When the reduction empties the position
// the transaction is logged as a close and the roundtrip moves to the
// closed set; a closed roundtrip never reopens.
func (p *Portfolio) ReducePosition(rtID string, day time.Time, price, shares float64, reason string) (float64, error) {
	rt, ok := p.open[rtID]
	if !ok {
		return 0, fmt.Errorf("roundtrip %q not found", rtID)
	}

	remaining := rt.RemainingShares()
	if shares > remaining+sharesEpsilon {
		return 0, fmt.Errorf("cannot exit %v shares, only %v remain", shares, remaining)
	}

	kind := KindReduce
	if shares >= remaining-sharesEpsilon {
		// Clamp so the roundtrip lands on exactly zero shares.
		shares = remaining
		kind = KindClose
	}

	proceeds, err := p.costs.ExitProceeds(shares, price)
	if err != nil {
		return 0, err
	}
	realized := proceeds - rt.AverageEntryPrice()*shares

	txn := Transaction{
		ID:          id.New(),
		RoundTripID: rtID,
		Ticker:      rt.Ticker,
		Date:        day,
		Kind:        kind,
		Shares:      shares,
		Price:       price,
		NetAmount:   proceeds,
		Reason:      reason,
	}
	if err := rt.apply(txn); err != nil {
		return 0, err
	}

	p.cash += proceeds
	p.log = append(p.log, txn)

	if !rt.IsOpen() {
		p.closed = append(p.closed, rt)
		delete(p.open, rtID)
	}
	return realized, nil
}

// ClosePosition is ReducePosition with the full remaining share count.
func (p *Portfolio) ClosePosition(rtID string, day time.Time, price float64, reason string) (float64, error) {
	rt, ok := p.open[rtID]
	if !ok {
		return 0, fmt.Errorf("roundtrip %q not found", rtID)
	}
	return p.ReducePosition(rtID, day, price, rt.RemainingShares(), reason)
}

// TotalValue is cash plus the marked value of every open position with a
// price in the lookup. Positions lacking a price contribute zero: they are
// treated as temporarily unpriced (suspension, delisting gap), not as an
// error.
func (p *Portfolio) TotalValue(prices map[string]float64) float64 {
	total := p.cash
	for _, rt := range p.open {
		if price, ok := prices[rt.Ticker]; ok {
			total += rt.RemainingShares() * price
		}
	}
	return total
}

// RecordEquity appends one point to the equity series.
func (p *Portfolio) RecordEquity(day time.Time, value float64) {
	p.equity = append(p.equity, EquityPoint{Date: day, Value: value})
}
