// internal/rules/cost.go
package rules

/*
 * Cost model for predicate evaluation.
 *
 * Every predicate is a full column scan, so relative cost is decided by the
 * per-row work: a missing test touches the cell only, numeric forms parse
 * text cells, text forms render every cell to a string, and set forms add a
 * hash lookup per row.
 *
 * Cost formula: operator_cost * mode_multiplier
 *
 * The engine uses cost only to order dispatch in concurrent runs (most
 * expensive first, so the long tail starts early). Output order never
 * depends on it.
 */

const (
	// Operator base costs
	CostMissing = 1
	CostEq      = 5
	CostNeq     = 5
	CostLt      = 7
	CostLte     = 7
	CostGt      = 7
	CostGte     = 7
	CostBetween = 10
	CostIn      = 8

	// Coercion mode multipliers
	MultiplierNumeric = 4
	MultiplierText    = 48
)

// EstimateCost computes the relative per-row evaluation cost of p.
func EstimateCost(p Predicate) int {
	switch p := p.(type) {
	case IsMissing, NotMissing:
		return CostMissing
	case In:
		return CostIn * modeMultiplier(p.Values)
	case NotIn:
		return CostIn * modeMultiplier(p.Values)
	case Between:
		return CostBetween * modeMultiplier([]Literal{p.Low, p.High})
	case Compare:
		return operatorCost(p.Op) * modeMultiplier([]Literal{p.Value})
	default:
		return CostMissing
	}
}

// operatorCost returns base cost for a comparison operator.
func operatorCost(op Operator) int {
	switch op {
	case OpEq, OpNeq:
		return CostEq
	case OpLt, OpLte, OpGt, OpGte:
		return CostLt
	default:
		return CostEq
	}
}

func modeMultiplier(lits []Literal) int {
	if ModeFor(lits) == CoerceNumeric {
		return MultiplierNumeric
	}
	return MultiplierText
}
