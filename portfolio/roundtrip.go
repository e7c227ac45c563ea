package portfolio

import (
	"fmt"
	"time"

	"github.com/jwlutz/thats-my-quantv1/rules"
)

// RoundTrip is the full record of one position from first entry to final
// exit: an ordered sequence of transactions plus the exit policy assigned
// at entry. Share count, average cost and P&L are all derived from the
// transactions, so the log can never disagree with the position.
type RoundTrip struct {
	ID            string
	Ticker        string
	Transactions  []Transaction
	ExitRule      rules.ExitRule
	EntryMetadata map[string]any

	totalCost     float64
	totalProceeds float64
}

// apply appends a transaction and updates cumulative cost/proceeds. Exits
// for more shares than remain are a caller-logic error. Only Portfolio
// calls this; transactions never enter a roundtrip any other way.
func (r *RoundTrip) apply(txn Transaction) error {
	if txn.Kind.IsExit() && txn.Shares > r.RemainingShares()+sharesEpsilon {
		return fmt.Errorf("cannot exit %v shares, only %v remain", txn.Shares, r.RemainingShares())
	}

	r.Transactions = append(r.Transactions, txn)
	if txn.Kind.IsEntry() {
		// NetAmount is negative for buys; cost accumulates as a positive number.
		r.totalCost += -txn.NetAmount
	} else {
		r.totalProceeds += txn.NetAmount
	}
	return nil
}

// PositionID satisfies rules.Position.
func (r *RoundTrip) PositionID() string { return r.ID }

// IsOpen reports whether any shares remain.
func (r *RoundTrip) IsOpen() bool { return r.RemainingShares() > sharesEpsilon }

// TotalShares is the cumulative number of shares ever bought.
func (r *RoundTrip) TotalShares() float64 {
	var total float64
	for _, txn := range r.Transactions {
		if txn.Kind.IsEntry() {
			total += txn.Shares
		}
	}
	return total
}

// RemainingShares is entries minus exits, never negative.
func (r *RoundTrip) RemainingShares() float64 {
	var entries, exits float64
	for _, txn := range r.Transactions {
		if txn.Kind.IsEntry() {
			entries += txn.Shares
		} else {
			exits += txn.Shares
		}
	}
	return entries - exits
}

// AverageEntryPrice is total entry cost divided by total shares bought, so
// multiple entries blend by cost, not by count (DCA semantics). Zero when
// there are no entries.
func (r *RoundTrip) AverageEntryPrice() float64 {
	total := r.TotalShares()
	if total == 0 {
		return 0
	}
	return r.totalCost / total
}

// RealizedPnL is proceeds received minus cost paid, to date.
func (r *RoundTrip) RealizedPnL() float64 {
	return r.totalProceeds - r.totalCost
}

// UnrealizedPnL marks the remaining shares against the given price.
func (r *RoundTrip) UnrealizedPnL(currentPrice float64) float64 {
	remaining := r.RemainingShares()
	if remaining == 0 {
		return 0
	}
	return remaining * (currentPrice - r.AverageEntryPrice())
}

// HoldingDays is whole days between the earliest transaction and asOf.
func (r *RoundTrip) HoldingDays(asOf time.Time) int {
	if len(r.Transactions) == 0 {
		return 0
	}
	first := r.Transactions[0].Date
	for _, txn := range r.Transactions[1:] {
		if txn.Date.Before(first) {
			first = txn.Date
		}
	}
	return int(asOf.Sub(first).Hours() / 24)
}

// sharesEpsilon absorbs float drift when a computed exit quantity should
// equal the exact remainder.
const sharesEpsilon = 1e-9
