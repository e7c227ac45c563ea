package portfolio

import "fmt"

// CostModel maps (shares, price) to cash impact, charging a flat commission
// plus percentage slippage on both sides. It is pure and safe to share
// across positions.
type CostModel struct {
	Commission  float64
	SlippagePct float64
}

// NewCostModel validates parameters. Zero for both models a frictionless
// market, which the tests lean on.
func NewCostModel(commission, slippagePct float64) (CostModel, error) {
	if commission < 0 {
		return CostModel{}, fmt.Errorf("commission must be non-negative, got %v", commission)
	}
	if slippagePct < 0 {
		return CostModel{}, fmt.Errorf("slippage pct must be non-negative, got %v", slippagePct)
	}
	return CostModel{Commission: commission, SlippagePct: slippagePct}, nil
}

// EntryCost returns the total cash debit for buying shares at price:
// shares*price*(1+slippage) + commission.
func (c CostModel) EntryCost(shares, price float64) (float64, error) {
	if err := validateTrade(shares, price); err != nil {
		return 0, err
	}
	base := shares * price
	return base + base*c.SlippagePct + c.Commission, nil
}

// ExitProceeds returns the net cash credit for selling shares at price:
// shares*price*(1-slippage) - commission, floored at zero. When commission
// swallows the whole gross (a tiny exit), the sale nets nothing rather
// than debiting cash; the cash balance never goes negative on a sell.
func (c CostModel) ExitProceeds(shares, price float64) (float64, error) {
	if err := validateTrade(shares, price); err != nil {
		return 0, err
	}
	gross := shares * price
	net := gross - gross*c.SlippagePct - c.Commission
	if net < 0 {
		return 0, nil
	}
	return net, nil
}

func validateTrade(shares, price float64) error {
	if shares <= 0 {
		return fmt.Errorf("shares must be positive, got %v", shares)
	}
	if price <= 0 {
		return fmt.Errorf("price must be positive, got %v", price)
	}
	return nil
}
