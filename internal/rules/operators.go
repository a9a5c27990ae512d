// internal/rules/operators.go
package rules

import "strings"

/*
 * Operator comparison logic.
 *
 * Values reaching these functions are already coerced (see coercion.go)
 * and known to be valid; missing cells and coercion failures are filtered
 * by the caller.
 *
 * Comparison is three-way per representation:
 *   - numeric: float64 ordering, exact equality
 *   - text: byte-wise lexicographic ordering (strings.Compare)
 *
 * Switch-based rather than one type per operator: six operators share a
 * single ordering result and differ only in how they read it.
 */

// holds reports whether a three-way comparison result satisfies op.
func holds(op Operator, cmp int) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNeq:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	default:
		return false
	}
}

// compareNumbers performs three-way numeric comparison (-1/0/1).
func compareNumbers(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CompareNumbers applies op to a and b.
func CompareNumbers(op Operator, a, b float64) bool {
	return holds(op, compareNumbers(a, b))
}

// CompareTexts applies op to a and b lexicographically.
func CompareTexts(op Operator, a, b string) bool {
	return holds(op, strings.Compare(a, b))
}

// numberSet is a membership set for numeric literals.
type numberSet map[float64]struct{}

func newNumberSet(lits []Literal) numberSet {
	s := make(numberSet, len(lits))
	for _, l := range lits {
		s[l.Num] = struct{}{}
	}
	return s
}

func (s numberSet) contains(f float64) bool {
	_, ok := s[f]
	return ok
}

// textSet is a membership set for literals compared as text.
type textSet map[string]struct{}

func newTextSet(lits []Literal) textSet {
	s := make(textSet, len(lits))
	for _, l := range lits {
		s[l.Text] = struct{}{}
	}
	return s
}

func (s textSet) contains(v string) bool {
	_, ok := s[v]
	return ok
}
