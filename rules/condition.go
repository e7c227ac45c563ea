package rules

// Condition evaluates a calculated value. Pure logic, no data access:
// separating "how to judge" from "what to measure" keeps both testable on
// their own.
type Condition interface {
	Check(value float64) bool
}

// GreaterThan passes when value > Threshold.
type GreaterThan struct {
	Threshold float64
}

func (c GreaterThan) Check(value float64) bool { return value > c.Threshold }

// LessThan passes when value < Threshold.
type LessThan struct {
	Threshold float64
}

func (c LessThan) Check(value float64) bool { return value < c.Threshold }

// Between passes when Min <= value <= Max.
type Between struct {
	Min float64
	Max float64
}

func (c Between) Check(value float64) bool { return value >= c.Min && value <= c.Max }
