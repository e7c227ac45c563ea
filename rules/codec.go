package rules

import "fmt"

// Rules round-trip through {type, params} maps so a strategy file can be
// persisted and reconstructed. The catalog is closed: decoding an unknown
// type is an error, not an extension point.

func EncodeCondition(c Condition) (map[string]any, error) {
	switch v := c.(type) {
	case GreaterThan:
		return map[string]any{"type": "greater_than", "params": map[string]any{"threshold": v.Threshold}}, nil
	case LessThan:
		return map[string]any{"type": "less_than", "params": map[string]any{"threshold": v.Threshold}}, nil
	case Between:
		return map[string]any{"type": "between", "params": map[string]any{"min": v.Min, "max": v.Max}}, nil
	default:
		return nil, fmt.Errorf("unknown condition type %T", c)
	}
}

func DecodeCondition(m map[string]any) (Condition, error) {
	kind, err := getString(m, "type")
	if err != nil {
		return nil, err
	}
	params := subMap(m, "params")

	switch kind {
	case "greater_than":
		threshold, err := getFloat(params, "threshold")
		if err != nil {
			return nil, err
		}
		return GreaterThan{Threshold: threshold}, nil
	case "less_than":
		threshold, err := getFloat(params, "threshold")
		if err != nil {
			return nil, err
		}
		return LessThan{Threshold: threshold}, nil
	case "between":
		min, err := getFloat(params, "min")
		if err != nil {
			return nil, err
		}
		max, err := getFloat(params, "max")
		if err != nil {
			return nil, err
		}
		return Between{Min: min, Max: max}, nil
	default:
		return nil, fmt.Errorf("unknown condition type %q", kind)
	}
}

func EncodeCalculation(c Calculation) (map[string]any, error) {
	switch c.(type) {
	case DayChange, EarningsSurprise, PERatio, InstitutionalOwnership:
		return map[string]any{"type": c.Name()}, nil
	default:
		return nil, fmt.Errorf("unknown calculation type %T", c)
	}
}

func DecodeCalculation(m map[string]any) (Calculation, error) {
	kind, err := getString(m, "type")
	if err != nil {
		return nil, err
	}

	switch kind {
	case "day_change":
		return DayChange{}, nil
	case "earnings_surprise":
		return EarningsSurprise{}, nil
	case "pe_ratio":
		return PERatio{}, nil
	case "institutional_ownership":
		return InstitutionalOwnership{}, nil
	default:
		return nil, fmt.Errorf("unknown calculation type %q", kind)
	}
}

func EncodeExit(r ExitRule) (map[string]any, error) {
	switch v := r.(type) {
	case *TimeExit:
		return map[string]any{"type": "time_exit", "params": map[string]any{"holding_days": v.HoldingDays}}, nil
	case *StopLoss:
		return map[string]any{"type": "stop_loss", "params": map[string]any{"stop_pct": v.StopPct}}, nil
	case *TrailingStop:
		return map[string]any{"type": "trailing_stop", "params": map[string]any{"trailing_pct": v.TrailingPct}}, nil
	case *ProfitTarget:
		return map[string]any{"type": "profit_target", "params": map[string]any{
			"target_pct":   v.TargetPct,
			"exit_portion": v.ExitPortion,
		}}, nil
	case *CompositeExit:
		encoded := make([]any, 0, len(v.Rules))
		for _, pr := range v.Rules {
			child, err := EncodeExit(pr.Rule)
			if err != nil {
				return nil, err
			}
			encoded = append(encoded, map[string]any{"rule": child, "portion": pr.Portion})
		}
		return map[string]any{"type": "composite", "rules": encoded}, nil
	default:
		return nil, fmt.Errorf("unknown exit rule type %T", r)
	}
}

func DecodeExit(m map[string]any) (ExitRule, error) {
	kind, err := getString(m, "type")
	if err != nil {
		return nil, err
	}
	params := subMap(m, "params")

	switch kind {
	case "time_exit":
		days, err := getInt(params, "holding_days")
		if err != nil {
			return nil, err
		}
		return NewTimeExit(days)
	case "stop_loss":
		pct, err := getFloat(params, "stop_pct")
		if err != nil {
			return nil, err
		}
		return NewStopLoss(pct)
	case "trailing_stop":
		pct, err := getFloat(params, "trailing_pct")
		if err != nil {
			return nil, err
		}
		return NewTrailingStop(pct)
	case "profit_target":
		target, err := getFloat(params, "target_pct")
		if err != nil {
			return nil, err
		}
		portion := optFloat(params, "exit_portion", 1.0)
		return NewProfitTarget(target, portion)
	case "composite":
		raw, ok := m["rules"].([]any)
		if !ok {
			return nil, fmt.Errorf("composite: missing rules list")
		}
		prioritized := make([]PrioritizedRule, 0, len(raw))
		for i, item := range raw {
			entry, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("composite: rule %d is not a map", i)
			}
			childMap, ok := entry["rule"].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("composite: rule %d missing child rule", i)
			}
			child, err := DecodeExit(childMap)
			if err != nil {
				return nil, fmt.Errorf("composite: rule %d: %w", i, err)
			}
			portion, err := getFloat(entry, "portion")
			if err != nil {
				return nil, fmt.Errorf("composite: rule %d: %w", i, err)
			}
			prioritized = append(prioritized, PrioritizedRule{Rule: child, Portion: portion})
		}
		return NewCompositeExit(prioritized)
	default:
		return nil, fmt.Errorf("unknown exit rule type %q", kind)
	}
}

func EncodeEntry(r EntryRule) (map[string]any, error) {
	switch v := r.(type) {
	case *ConditionEntry:
		calc, err := EncodeCalculation(v.Calc)
		if err != nil {
			return nil, err
		}
		cond, err := EncodeCondition(v.Cond)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"type":        "condition_entry",
			"calculation": calc,
			"condition":   cond,
			"signal_type": v.SignalType,
			"priority":    v.Priority,
		}, nil
	case *CompositeEntry:
		pairs := make([]any, 0, len(v.Pairs))
		for _, p := range v.Pairs {
			calc, err := EncodeCalculation(p.Calc)
			if err != nil {
				return nil, err
			}
			cond, err := EncodeCondition(p.Cond)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, map[string]any{"calculation": calc, "condition": cond})
		}
		return map[string]any{
			"type":        "composite_entry",
			"pairs":       pairs,
			"signal_type": v.SignalType,
			"priority":    v.Priority,
		}, nil
	default:
		return nil, fmt.Errorf("unknown entry rule type %T", r)
	}
}

func DecodeEntry(m map[string]any) (EntryRule, error) {
	kind, err := getString(m, "type")
	if err != nil {
		return nil, err
	}

	switch kind {
	case "condition_entry":
		calcMap, ok := m["calculation"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("condition_entry: missing calculation")
		}
		calc, err := DecodeCalculation(calcMap)
		if err != nil {
			return nil, err
		}
		condMap, ok := m["condition"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("condition_entry: missing condition")
		}
		cond, err := DecodeCondition(condMap)
		if err != nil {
			return nil, err
		}
		signalType, err := getString(m, "signal_type")
		if err != nil {
			return nil, err
		}
		return NewConditionEntry(calc, cond, signalType, optFloat(m, "priority", 1.0))
	case "composite_entry":
		raw, ok := m["pairs"].([]any)
		if !ok {
			return nil, fmt.Errorf("composite_entry: missing pairs list")
		}
		pairs := make([]CalcCondition, 0, len(raw))
		for i, item := range raw {
			pairMap, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("composite_entry: pair %d is not a map", i)
			}
			calcMap, ok := pairMap["calculation"].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("composite_entry: pair %d missing calculation", i)
			}
			calc, err := DecodeCalculation(calcMap)
			if err != nil {
				return nil, err
			}
			condMap, ok := pairMap["condition"].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("composite_entry: pair %d missing condition", i)
			}
			cond, err := DecodeCondition(condMap)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, CalcCondition{Calc: calc, Cond: cond})
		}
		signalType, err := getString(m, "signal_type")
		if err != nil {
			return nil, err
		}
		return NewCompositeEntry(pairs, signalType, optFloat(m, "priority", 1.0))
	default:
		return nil, fmt.Errorf("unknown entry rule type %q", kind)
	}
}

func subMap(m map[string]any, key string) map[string]any {
	if sub, ok := m[key].(map[string]any); ok {
		return sub
	}
	return map[string]any{}
}

func getString(m map[string]any, key string) (string, error) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("missing or invalid %q", key)
	}
	return s, nil
}

func getFloat(m map[string]any, key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("missing %q", key)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("%q is not a number", key)
	}
	return f, nil
}

func optFloat(m map[string]any, key string, def float64) float64 {
	if f, ok := toFloat(m[key]); ok {
		return f
	}
	return def
}

func getInt(m map[string]any, key string) (int, error) {
	f, err := getFloat(m, key)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// toFloat accepts every numeric shape YAML and JSON decoders hand back.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
