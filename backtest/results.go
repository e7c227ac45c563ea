package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/jwlutz/thats-my-quantv1/portfolio"
)

// Results is a lightweight summary of a completed run. Deeper performance
// analysis belongs downstream; everything here falls straight out of the
// engine's own outputs.
type Results struct {
	Strategy       string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalValue     float64
	TotalReturnPct float64

	Trades  int
	Wins    int
	Losses  int
	WinRate float64

	MaxDrawdownPct float64
	Transactions   int

	Closed []*portfolio.RoundTrip
	Equity []portfolio.EquityPoint
}

func newResults(name string, port *portfolio.Portfolio, cfg Config) *Results {
	closed := port.ClosedRoundTrips()

	r := &Results{
		Strategy:       name,
		Start:          cfg.Start,
		End:            cfg.End,
		InitialCapital: cfg.InitialCapital,
		FinalValue:     port.Cash(),
		Trades:         len(closed),
		Transactions:   len(port.TransactionLog()),
		Closed:         closed,
		Equity:         port.EquityHistory(),
	}

	r.TotalReturnPct = (r.FinalValue - r.InitialCapital) / r.InitialCapital * 100

	for _, rt := range closed {
		if rt.RealizedPnL() > 0 {
			r.Wins++
		} else {
			r.Losses++
		}
	}
	if r.Trades > 0 {
		r.WinRate = float64(r.Wins) / float64(r.Trades) * 100
	}

	r.MaxDrawdownPct = maxDrawdown(port.EquityHistory())
	return r
}

// maxDrawdown is the largest peak-to-trough decline of the equity curve,
// as a positive percentage.
func maxDrawdown(equity []portfolio.EquityPoint) float64 {
	var peak, worst float64
	for _, pt := range equity {
		if pt.Value > peak {
			peak = pt.Value
		}
		if peak > 0 {
			dd := (peak - pt.Value) / peak * 100
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// Print writes a human-readable summary.
func (r *Results) Print(w io.Writer) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	if r.Strategy != "" {
		fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	}
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.DateOnly))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.DateOnly))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", r.Trades)
	fmt.Fprintf(w, "Wins:          %d\n", r.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", r.WinRate)
	fmt.Fprintf(w, "Transactions:  %d\n", r.Transactions)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Capital: %.2f\n", r.InitialCapital)
	fmt.Fprintf(w, "Final Value:   %.2f\n", r.FinalValue)
	fmt.Fprintf(w, "Return:        %.2f%%\n", r.TotalReturnPct)
	if r.MaxDrawdownPct > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.MaxDrawdownPct)
	}

	fmt.Fprintln(w)
}
