package sizer

import "fmt"

// Sizers round-trip through {type, params} maps alongside the rule catalog
// so a strategy file fully reconstructs its sizing policy.

func Encode(s PositionSizer) (map[string]any, error) {
	switch v := s.(type) {
	case *FixedDollar:
		return map[string]any{"type": "fixed_dollar", "params": map[string]any{"amount": v.Amount}}, nil
	case *PercentPortfolio:
		return map[string]any{"type": "percent_portfolio", "params": map[string]any{"percent": v.Percent}}, nil
	case *PercentCash:
		return map[string]any{"type": "percent_cash", "params": map[string]any{"percent": v.Percent}}, nil
	case *EqualWeight:
		return map[string]any{"type": "equal_weight", "params": map[string]any{"default_slots": v.DefaultSlots}}, nil
	case *FixedShares:
		return map[string]any{"type": "fixed_shares", "params": map[string]any{"shares": v.Shares}}, nil
	default:
		return nil, fmt.Errorf("unknown sizer type %T", s)
	}
}

func Decode(m map[string]any) (PositionSizer, error) {
	kind, ok := m["type"].(string)
	if !ok || kind == "" {
		return nil, fmt.Errorf("missing or invalid %q", "type")
	}
	params, _ := m["params"].(map[string]any)

	switch kind {
	case "fixed_dollar":
		amount, err := floatParam(params, "amount")
		if err != nil {
			return nil, err
		}
		return NewFixedDollar(amount)
	case "percent_portfolio":
		percent, err := floatParam(params, "percent")
		if err != nil {
			return nil, err
		}
		return NewPercentPortfolio(percent)
	case "percent_cash":
		percent, err := floatParam(params, "percent")
		if err != nil {
			return nil, err
		}
		return NewPercentCash(percent)
	case "equal_weight":
		slots, err := floatParam(params, "default_slots")
		if err != nil {
			return nil, err
		}
		return NewEqualWeight(int(slots))
	case "fixed_shares":
		shares, err := floatParam(params, "shares")
		if err != nil {
			return nil, err
		}
		return NewFixedShares(shares)
	default:
		return nil, fmt.Errorf("unknown sizer type %q", kind)
	}
}

func floatParam(m map[string]any, key string) (float64, error) {
	switch n := m[key].(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case nil:
		return 0, fmt.Errorf("missing %q", key)
	default:
		return 0, fmt.Errorf("%q is not a number", key)
	}
}
