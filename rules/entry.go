package rules

import (
	"fmt"
	"time"

	"github.com/jwlutz/thats-my-quantv1/market"
)

// Signal is a ranked entry candidate for one ticker on one day. Signals are
// produced fresh each day and never persisted beyond it.
//
// ExitRule, when non-nil, replaces the strategy's exit rule for the position
// opened from this signal, letting an entry rule attach its own exit policy.
// Catalog entry rules leave it nil.
type Signal struct {
	Ticker   string
	Date     time.Time
	Type     string
	Metadata map[string]any
	Priority float64
	ExitRule ExitRule
}

// EntryRule produces an optional entry signal for a ticker on a date.
type EntryRule interface {
	ShouldEnter(ticker string, day time.Time, data market.Provider) (Signal, bool)
}

// ConditionEntry pairs one Calculation with one Condition. When the metric
// is available and the condition passes, it emits a signal carrying the
// measured value in its metadata.
type ConditionEntry struct {
	Calc       Calculation
	Cond       Condition
	SignalType string
	Priority   float64
}

func NewConditionEntry(calc Calculation, cond Condition, signalType string, priority float64) (*ConditionEntry, error) {
	if calc == nil {
		return nil, fmt.Errorf("calculation is required")
	}
	if cond == nil {
		return nil, fmt.Errorf("condition is required")
	}
	if signalType == "" {
		return nil, fmt.Errorf("signal type is required")
	}
	return &ConditionEntry{Calc: calc, Cond: cond, SignalType: signalType, Priority: priority}, nil
}

func (r *ConditionEntry) ShouldEnter(ticker string, day time.Time, data market.Provider) (Signal, bool) {
	value, ok := r.Calc.Calculate(ticker, day, data)
	if !ok || !r.Cond.Check(value) {
		return Signal{}, false
	}
	return Signal{
		Ticker: ticker,
		Date:   day,
		Type:   r.SignalType,
		Metadata: map[string]any{
			r.Calc.Name(): value,
		},
		Priority: r.Priority,
	}, true
}

// CalcCondition is one leg of a CompositeEntry.
type CalcCondition struct {
	Calc Calculation
	Cond Condition
}

// CompositeEntry signals only when every calculation/condition pair passes.
// Useful for multi-factor entries, e.g. earnings beat AND low P/E.
type CompositeEntry struct {
	Pairs      []CalcCondition
	SignalType string
	Priority   float64
}

func NewCompositeEntry(pairs []CalcCondition, signalType string, priority float64) (*CompositeEntry, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("at least one calculation/condition pair is required")
	}
	for i, p := range pairs {
		if p.Calc == nil || p.Cond == nil {
			return nil, fmt.Errorf("pair %d is incomplete", i)
		}
	}
	if signalType == "" {
		return nil, fmt.Errorf("signal type is required")
	}
	return &CompositeEntry{Pairs: pairs, SignalType: signalType, Priority: priority}, nil
}

func (r *CompositeEntry) ShouldEnter(ticker string, day time.Time, data market.Provider) (Signal, bool) {
	metadata := make(map[string]any, len(r.Pairs))

	for _, p := range r.Pairs {
		value, ok := p.Calc.Calculate(ticker, day, data)
		if !ok || !p.Cond.Check(value) {
			return Signal{}, false
		}
		metadata[p.Calc.Name()] = value
	}

	return Signal{
		Ticker:   ticker,
		Date:     day,
		Type:     r.SignalType,
		Metadata: metadata,
		Priority: r.Priority,
	}, true
}
