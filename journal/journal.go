package journal

import (
	"github.com/jwlutz/thats-my-quantv1/portfolio"
)

// Journal persists the engine's outputs as a run progresses: the
// append-only transaction log and the daily equity curve. The in-memory
// copies inside Portfolio stay the source of truth for the run itself; a
// Journal is for keeping the evidence afterwards.
type Journal interface {
	RecordTransaction(portfolio.Transaction) error
	RecordEquity(portfolio.EquityPoint) error
	Close() error
}

// Nop discards everything. Useful when a caller wants no persistence.
type Nop struct{}

func (Nop) RecordTransaction(portfolio.Transaction) error { return nil }
func (Nop) RecordEquity(portfolio.EquityPoint) error      { return nil }
func (Nop) Close() error                                  { return nil }
