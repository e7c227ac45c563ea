package rules

import (
	"time"

	"github.com/jwlutz/thats-my-quantv1/market"
)

// Calculation extracts one numeric metric for a ticker on a date. The false
// return means the underlying data was unavailable, which is common and
// simply suppresses the signal.
type Calculation interface {
	Name() string
	Calculate(ticker string, day time.Time, data market.Provider) (float64, bool)
}

// DayChange measures (close - open) / open for the day's bar.
type DayChange struct{}

func (DayChange) Name() string { return "day_change" }

func (DayChange) Calculate(ticker string, day time.Time, data market.Provider) (float64, bool) {
	bar, ok := data.GetBar(ticker, day)
	if !ok || bar.Open <= 0 {
		return 0, false
	}
	return (bar.Close - bar.Open) / bar.Open, true
}

// EarningsSurprise returns the surprise percentage of the most recent
// earnings report as of the date (0.05 = 5% beat).
type EarningsSurprise struct{}

func (EarningsSurprise) Name() string { return "earnings_surprise" }

func (EarningsSurprise) Calculate(ticker string, day time.Time, data market.Provider) (float64, bool) {
	rep, ok := data.GetEarnings(ticker, day)
	if !ok {
		return 0, false
	}
	return rep.SurprisePct, true
}

// PERatio returns the trailing P/E ratio.
type PERatio struct{}

func (PERatio) Name() string { return "pe_ratio" }

func (PERatio) Calculate(ticker string, day time.Time, data market.Provider) (float64, bool) {
	f, ok := data.GetFundamentals(ticker)
	if !ok || f.TrailingPE == 0 {
		return 0, false
	}
	return f.TrailingPE, true
}

// InstitutionalOwnership returns the institutional ownership fraction
// (0.65 = 65% held by institutions).
type InstitutionalOwnership struct{}

func (InstitutionalOwnership) Name() string { return "institutional_ownership" }

func (InstitutionalOwnership) Calculate(ticker string, day time.Time, data market.Provider) (float64, bool) {
	f, ok := data.GetFundamentals(ticker)
	if !ok {
		return 0, false
	}
	return f.InstitutionalPct, true
}
