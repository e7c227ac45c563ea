package sizer

import "fmt"

// Context carries the account state a sizing decision may consult.
type Context struct {
	AvailableCash  float64
	PortfolioValue float64
	OpenPositions  int
	MaxPositions   int
}

// PositionSizer converts price and account state into a share quantity.
// Zero shares is a valid "no trade" outcome, not an error; the only error
// is a non-positive price, which is a caller defect.
type PositionSizer interface {
	CalculateShares(price float64, ctx Context) (float64, error)
}

// FixedDollar allocates a fixed dollar amount per position, capped at
// available cash.
type FixedDollar struct {
	Amount float64
}

func NewFixedDollar(amount float64) (*FixedDollar, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("dollar amount must be positive, got %v", amount)
	}
	return &FixedDollar{Amount: amount}, nil
}

func (s *FixedDollar) CalculateShares(price float64, ctx Context) (float64, error) {
	if err := validPrice(price); err != nil {
		return 0, err
	}
	target := min(s.Amount, ctx.AvailableCash)
	if target <= 0 {
		return 0, nil
	}
	return target / price, nil
}

// PercentPortfolio allocates a fraction of total portfolio value (cash plus
// positions), capped at available cash. Position sizes scale with account
// growth.
type PercentPortfolio struct {
	Percent float64
}

func NewPercentPortfolio(percent float64) (*PercentPortfolio, error) {
	if percent <= 0 || percent > 1 {
		return nil, fmt.Errorf("percent must be in (0, 1], got %v", percent)
	}
	return &PercentPortfolio{Percent: percent}, nil
}

func (s *PercentPortfolio) CalculateShares(price float64, ctx Context) (float64, error) {
	if err := validPrice(price); err != nil {
		return 0, err
	}
	target := min(ctx.PortfolioValue*s.Percent, ctx.AvailableCash)
	if target <= 0 {
		return 0, nil
	}
	return target / price, nil
}

// PercentCash allocates a fraction of available cash only, shrinking as
// positions open. Keeps the account from ever being fully invested.
type PercentCash struct {
	Percent float64
}

func NewPercentCash(percent float64) (*PercentCash, error) {
	if percent <= 0 || percent > 1 {
		return nil, fmt.Errorf("percent must be in (0, 1], got %v", percent)
	}
	return &PercentCash{Percent: percent}, nil
}

func (s *PercentCash) CalculateShares(price float64, ctx Context) (float64, error) {
	if err := validPrice(price); err != nil {
		return 0, err
	}
	target := ctx.AvailableCash * s.Percent
	if target <= 0 {
		return 0, nil
	}
	return target / price, nil
}

// EqualWeight divides available cash across the remaining open slots, so
// every position taken today gets an equal share of what is left. Falls
// back to DefaultSlots when no slot context is available.
type EqualWeight struct {
	DefaultSlots int
}

func NewEqualWeight(defaultSlots int) (*EqualWeight, error) {
	if defaultSlots <= 0 {
		return nil, fmt.Errorf("default slots must be positive, got %d", defaultSlots)
	}
	return &EqualWeight{DefaultSlots: defaultSlots}, nil
}

func (s *EqualWeight) CalculateShares(price float64, ctx Context) (float64, error) {
	if err := validPrice(price); err != nil {
		return 0, err
	}

	slots := ctx.MaxPositions - ctx.OpenPositions
	if ctx.MaxPositions <= 0 {
		slots = s.DefaultSlots
	}
	if slots <= 0 {
		return 0, nil
	}

	allocation := ctx.AvailableCash / float64(slots)
	if allocation <= 0 {
		return 0, nil
	}
	return allocation / price, nil
}

// FixedShares buys a constant share count, or nothing when cash cannot
// cover it.
type FixedShares struct {
	Shares float64
}

func NewFixedShares(shares float64) (*FixedShares, error) {
	if shares <= 0 {
		return nil, fmt.Errorf("shares must be positive, got %v", shares)
	}
	return &FixedShares{Shares: shares}, nil
}

func (s *FixedShares) CalculateShares(price float64, ctx Context) (float64, error) {
	if err := validPrice(price); err != nil {
		return 0, err
	}
	if s.Shares*price > ctx.AvailableCash {
		return 0, nil
	}
	return s.Shares, nil
}

func validPrice(price float64) error {
	if price <= 0 {
		return fmt.Errorf("price must be positive, got %v", price)
	}
	return nil
}
