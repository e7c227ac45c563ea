package rules

import (
	"fmt"
	"time"
)

// Exit reason tags written into the transaction log.
const (
	ReasonTimeExit     = "time_exit"
	ReasonStopLoss     = "stop_loss"
	ReasonTrailingStop = "trailing_stop"
	ReasonProfitTarget = "profit_target"
)

// Position is the read-only view of an open position that exit rules
// evaluate against. *portfolio.RoundTrip satisfies it.
type Position interface {
	PositionID() string
	AverageEntryPrice() float64
	RemainingShares() float64
	HoldingDays(asOf time.Time) int
}

// Decision is the outcome of evaluating an exit rule for one position on
// one day. Portion is the fraction of remaining shares to sell, in (0, 1].
type Decision struct {
	Exit    bool
	Portion float64
	Reason  string
}

var hold = Decision{}

// RunState holds per-run mutable rule state, keyed by position ID. The
// simulation loop creates a fresh one per run and threads it through every
// evaluation, so the same rule values can be shared across independent runs
// without peak observations leaking between them.
type RunState struct {
	peaks map[string]float64
}

func NewRunState() *RunState {
	return &RunState{peaks: make(map[string]float64)}
}

// observePeak records price for a position and returns the highest price
// seen so far, bootstrapping from entry on first observation.
func (s *RunState) observePeak(posID string, entry, price float64) float64 {
	peak, ok := s.peaks[posID]
	if !ok {
		peak = entry
	}
	if price > peak {
		peak = price
	}
	s.peaks[posID] = peak
	return peak
}

// ExitRule decides whether, and by how much, to exit an open position.
// Implementations are immutable; anything mutable lives in RunState.
type ExitRule interface {
	Evaluate(pos Position, day time.Time, price float64, st *RunState) Decision
}

// TimeExit closes the full position once it has been held for at least
// HoldingDays days.
type TimeExit struct {
	HoldingDays int
}

func NewTimeExit(holdingDays int) (*TimeExit, error) {
	if holdingDays <= 0 {
		return nil, fmt.Errorf("holding days must be positive, got %d", holdingDays)
	}
	return &TimeExit{HoldingDays: holdingDays}, nil
}

func (r *TimeExit) Evaluate(pos Position, day time.Time, price float64, st *RunState) Decision {
	if pos.HoldingDays(day) >= r.HoldingDays {
		return Decision{Exit: true, Portion: 1.0, Reason: ReasonTimeExit}
	}
	return hold
}

// StopLoss closes the full position when the loss against average entry
// reaches StopPct (0.08 = exit at -8%).
type StopLoss struct {
	StopPct float64
}

func NewStopLoss(stopPct float64) (*StopLoss, error) {
	if stopPct <= 0 {
		return nil, fmt.Errorf("stop pct must be positive, got %v", stopPct)
	}
	return &StopLoss{StopPct: stopPct}, nil
}

func (r *StopLoss) Evaluate(pos Position, day time.Time, price float64, st *RunState) Decision {
	avg := pos.AverageEntryPrice()
	if avg <= 0 {
		return hold
	}
	if (price-avg)/avg <= -r.StopPct {
		return Decision{Exit: true, Portion: 1.0, Reason: ReasonStopLoss}
	}
	return hold
}

// TrailingStop closes the full position when price falls TrailingPct from
// the highest price observed since entry. The peak starts at average entry
// and only ever moves up; it lives in RunState, not the rule.
type TrailingStop struct {
	TrailingPct float64
}

func NewTrailingStop(trailingPct float64) (*TrailingStop, error) {
	if trailingPct <= 0 {
		return nil, fmt.Errorf("trailing pct must be positive, got %v", trailingPct)
	}
	return &TrailingStop{TrailingPct: trailingPct}, nil
}

func (r *TrailingStop) Evaluate(pos Position, day time.Time, price float64, st *RunState) Decision {
	peak := st.observePeak(pos.PositionID(), pos.AverageEntryPrice(), price)
	if peak <= 0 {
		return hold
	}
	if (peak-price)/peak >= r.TrailingPct {
		return Decision{Exit: true, Portion: 1.0, Reason: ReasonTrailingStop}
	}
	return hold
}

// ProfitTarget exits ExitPortion of the position when the gain against
// average entry reaches TargetPct.
type ProfitTarget struct {
	TargetPct   float64
	ExitPortion float64
}

func NewProfitTarget(targetPct, exitPortion float64) (*ProfitTarget, error) {
	if targetPct <= 0 {
		return nil, fmt.Errorf("target pct must be positive, got %v", targetPct)
	}
	if exitPortion <= 0 || exitPortion > 1 {
		return nil, fmt.Errorf("exit portion must be in (0, 1], got %v", exitPortion)
	}
	return &ProfitTarget{TargetPct: targetPct, ExitPortion: exitPortion}, nil
}

func (r *ProfitTarget) Evaluate(pos Position, day time.Time, price float64, st *RunState) Decision {
	avg := pos.AverageEntryPrice()
	if avg <= 0 {
		return hold
	}
	if (price-avg)/avg >= r.TargetPct {
		return Decision{Exit: true, Portion: r.ExitPortion, Reason: ReasonProfitTarget}
	}
	return hold
}

// PrioritizedRule is one entry in a CompositeExit: a child rule plus the
// portion the composite will exit with when that child fires.
type PrioritizedRule struct {
	Rule    ExitRule
	Portion float64
}

// CompositeExit evaluates children in order; the first that fires wins.
//
// The portion configured here overrides whatever the child computed, even
// for rules like ProfitTarget whose own portion is their defining knob.
// Centralizing portion policy in the composite is deliberate; the child
// contributes only its reason tag.
type CompositeExit struct {
	Rules []PrioritizedRule
}

func NewCompositeExit(prioritized []PrioritizedRule) (*CompositeExit, error) {
	for i, pr := range prioritized {
		if pr.Rule == nil {
			return nil, fmt.Errorf("rule %d is nil", i)
		}
		if pr.Portion <= 0 || pr.Portion > 1 {
			return nil, fmt.Errorf("rule %d: portion must be in (0, 1], got %v", i, pr.Portion)
		}
	}
	return &CompositeExit{Rules: prioritized}, nil
}

func (r *CompositeExit) Evaluate(pos Position, day time.Time, price float64, st *RunState) Decision {
	for _, pr := range r.Rules {
		d := pr.Rule.Evaluate(pos, day, price, st)
		if d.Exit {
			return Decision{Exit: true, Portion: pr.Portion, Reason: d.Reason}
		}
	}
	return hold
}
