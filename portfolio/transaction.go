package portfolio

import "time"

// Kind classifies a transaction within a roundtrip's lifecycle.
type Kind string

const (
	KindOpen   Kind = "open"   // first entry of a roundtrip
	KindAdd    Kind = "add"    // subsequent entry (DCA)
	KindReduce Kind = "reduce" // partial exit
	KindClose  Kind = "close"  // exit that empties the position
)

// IsEntry reports whether the kind adds shares.
func (k Kind) IsEntry() bool { return k == KindOpen || k == KindAdd }

// IsExit reports whether the kind removes shares.
func (k Kind) IsExit() bool { return k == KindReduce || k == KindClose }

// Transaction is the immutable fact of one executed trade action. NetAmount
// is the signed cash impact with costs already applied: negative for buys,
// positive for sells. The append-only sequence of these across all
// roundtrips is the portfolio's audit log.
type Transaction struct {
	ID          string
	RoundTripID string
	Ticker      string
	Date        time.Time
	Kind        Kind
	Shares      float64
	Price       float64
	NetAmount   float64
	Reason      string
}
