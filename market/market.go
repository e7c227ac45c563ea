package market

import "time"

// Bar is one day of OHLCV data for a single ticker.
type Bar struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// EarningsReport is a point-in-time earnings release. SurprisePct is
// (reported - estimated) / |estimated|.
type EarningsReport struct {
	Date         time.Time
	ReportedEPS  float64
	EstimatedEPS float64
	SurprisePct  float64
}

// Fundamentals carries slow-moving company facts used by entry calculations.
type Fundamentals struct {
	TrailingPE       float64
	MarketCap        float64
	Sector           string
	InstitutionalPct float64
}

// Provider supplies historical market data to the engine. Absent data is
// reported with a false second return, never an error: a missing bar just
// means the ticker did not trade that day.
//
// Implementations must be point-in-time accurate: nothing dated after the
// requested date may leak into a response.
type Provider interface {
	// GetBar returns the OHLCV bar for one ticker on one day.
	GetBar(ticker string, day time.Time) (Bar, bool)

	// Calendar returns all trading days in [start, end], ascending.
	Calendar(start, end time.Time) []time.Time

	// GetEarnings returns the most recent earnings report on or before asOf.
	GetEarnings(ticker string, asOf time.Time) (EarningsReport, bool)

	// GetFundamentals returns company facts for a ticker.
	GetFundamentals(ticker string) (Fundamentals, bool)
}

// Day truncates t to midnight UTC. All dates handled by the engine are
// normalized through this so map lookups and comparisons line up.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// earningsMaxAge is how stale an earnings report may be before GetEarnings
// stops returning it. Signals should react to recent releases, not
// quarters-old ones.
const earningsMaxAge = 90 * 24 * time.Hour
