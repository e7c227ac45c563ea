package strategy

import (
	"fmt"
	"sort"
	"time"

	"github.com/jwlutz/thats-my-quantv1/market"
	"github.com/jwlutz/thats-my-quantv1/rules"
	"github.com/jwlutz/thats-my-quantv1/sizer"
)

// Strategy bundles everything that defines a trading approach: entry rules
// (when to buy), one exit rule (when to sell; compose with
// rules.CompositeExit for several), a position sizer (how much) and a
// ticker universe (what).
type Strategy struct {
	Name        string
	Description string
	EntryRules  []rules.EntryRule
	ExitRule    rules.ExitRule
	Sizer       sizer.PositionSizer
	Universe    []string
}

func New(name string, entryRules []rules.EntryRule, exitRule rules.ExitRule, ps sizer.PositionSizer, universe []string) (*Strategy, error) {
	s := &Strategy{
		Name:       name,
		EntryRules: entryRules,
		ExitRule:   exitRule,
		Sizer:      ps,
		Universe:   universe,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate catches configuration mistakes before a run starts.
func (s *Strategy) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("strategy requires a name")
	}
	if len(s.EntryRules) == 0 {
		return fmt.Errorf("strategy requires at least one entry rule")
	}
	if s.ExitRule == nil {
		return fmt.Errorf("strategy requires an exit rule")
	}
	if s.Sizer == nil {
		return fmt.Errorf("strategy requires a position sizer")
	}
	if len(s.Universe) == 0 {
		return fmt.Errorf("strategy requires a non-empty universe")
	}
	return nil
}

// GenerateSignals evaluates every entry rule against every ticker in the
// universe for the day and returns the produced signals ordered by
// descending priority. The sort is stable, so equal priorities keep their
// evaluation order and repeated runs over identical inputs rank
// identically. Multiple rules may signal the same ticker; ranking decides
// which gets capital first.
func (s *Strategy) GenerateSignals(day time.Time, data market.Provider) []rules.Signal {
	var signals []rules.Signal

	for _, ticker := range s.Universe {
		for _, rule := range s.EntryRules {
			if sig, ok := rule.ShouldEnter(ticker, day, data); ok {
				signals = append(signals, sig)
			}
		}
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Priority > signals[j].Priority
	})
	return signals
}
