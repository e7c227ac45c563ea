package market

import (
	"sort"
	"time"
)

// MemoryProvider is an in-memory Provider. It backs the CSV provider and is
// the workhorse for tests and examples.
type MemoryProvider struct {
	bars         map[string]map[string]Bar // ticker -> yyyy-mm-dd -> bar
	earnings     map[string][]EarningsReport
	fundamentals map[string]Fundamentals
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		bars:         make(map[string]map[string]Bar),
		earnings:     make(map[string][]EarningsReport),
		fundamentals: make(map[string]Fundamentals),
	}
}

// SetBar stores one day of OHLCV for a ticker.
func (p *MemoryProvider) SetBar(ticker string, day time.Time, bar Bar) {
	m, ok := p.bars[ticker]
	if !ok {
		m = make(map[string]Bar)
		p.bars[ticker] = m
	}
	m[dateKey(day)] = bar
}

// SetClose stores a flat bar where open=high=low=close. Convenient for tests
// that only care about the close.
func (p *MemoryProvider) SetClose(ticker string, day time.Time, close float64) {
	p.SetBar(ticker, day, Bar{Open: close, High: close, Low: close, Close: close})
}

// AddEarnings appends an earnings report for a ticker. Reports may be added
// in any order; lookup sorts by date.
func (p *MemoryProvider) AddEarnings(ticker string, rep EarningsReport) {
	p.earnings[ticker] = append(p.earnings[ticker], rep)
	sort.Slice(p.earnings[ticker], func(i, j int) bool {
		return p.earnings[ticker][i].Date.Before(p.earnings[ticker][j].Date)
	})
}

// SetFundamentals stores company facts for a ticker.
func (p *MemoryProvider) SetFundamentals(ticker string, f Fundamentals) {
	p.fundamentals[ticker] = f
}

func (p *MemoryProvider) GetBar(ticker string, day time.Time) (Bar, bool) {
	bar, ok := p.bars[ticker][dateKey(day)]
	return bar, ok
}

func (p *MemoryProvider) Calendar(start, end time.Time) []time.Time {
	start, end = Day(start), Day(end)

	seen := make(map[string]time.Time)
	for _, days := range p.bars {
		for key := range days {
			if _, dup := seen[key]; dup {
				continue
			}
			d, err := time.ParseInLocation("2006-01-02", key, time.UTC)
			if err != nil {
				continue
			}
			if d.Before(start) || d.After(end) {
				continue
			}
			seen[key] = d
		}
	}

	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (p *MemoryProvider) GetEarnings(ticker string, asOf time.Time) (EarningsReport, bool) {
	reps := p.earnings[ticker]

	// Walk backwards for the newest report dated on or before asOf.
	for i := len(reps) - 1; i >= 0; i-- {
		rep := reps[i]
		if rep.Date.After(asOf) {
			continue
		}
		if asOf.Sub(rep.Date) > earningsMaxAge {
			return EarningsReport{}, false
		}
		return rep, true
	}
	return EarningsReport{}, false
}

func (p *MemoryProvider) GetFundamentals(ticker string) (Fundamentals, bool) {
	f, ok := p.fundamentals[ticker]
	return f, ok
}
