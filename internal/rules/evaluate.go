// internal/rules/evaluate.go
package rules

import (
	"fmt"

	"github.com/solatis/sdtmcheck/internal/dataset"
)

/*
 * Mask evaluation.
 *
 * Applies a compiled Predicate to one table column and returns a Mask with
 * one boolean per row (table order, 0-based).
 *
 * Evaluation flow:
 *   1. Resolve the predicate column (ColumnNotFoundError if absent)
 *   2. Missing forms: apply the column's missing-value test directly
 *   3. Value forms: choose coercion mode from the literal set, project the
 *      column once, then test each valid row
 *
 * Semantics:
 *   - Missing cells never satisfy In, NotIn, Between or Compare (not even !=)
 *   - NotIn is the negation of In's mask over the valid rows only
 *   - Between is inclusive at both ends
 *   - Coercion failures are excluded silently
 */

// Mask is a per-row selection.
type Mask []bool

// Count returns the number of selected rows.
func (m Mask) Count() int {
	n := 0
	for _, b := range m {
		if b {
			n++
		}
	}
	return n
}

// Any reports whether at least one row is selected.
func (m Mask) Any() bool {
	for _, b := range m {
		if b {
			return true
		}
	}
	return false
}

// Rows returns the 0-based indices of selected rows in ascending order.
func (m Mask) Rows() []int {
	rows := make([]int, 0, m.Count())
	for i, b := range m {
		if b {
			rows = append(rows, i)
		}
	}
	return rows
}

// Evaluate computes the row mask of p over table t.
func Evaluate(t *dataset.Table, p Predicate) (Mask, error) {
	col, ok := t.Column(p.Column())
	if !ok {
		return nil, &ColumnNotFoundError{Column: p.Column(), Domain: t.Domain()}
	}
	return EvaluateColumn(col, p)
}

// EvaluateColumn computes the row mask of p over col, ignoring p's column name.
func EvaluateColumn(col *dataset.Column, p Predicate) (Mask, error) {
	switch p := p.(type) {
	case IsMissing:
		return missingMask(col, true), nil
	case NotMissing:
		return missingMask(col, false), nil
	case In:
		return inMask(col, p.Values), nil
	case NotIn:
		return notInMask(col, p.Values), nil
	case Between:
		return betweenMask(col, p.Low, p.High), nil
	case Compare:
		return compareMask(col, p.Op, p.Value), nil
	default:
		return nil, fmt.Errorf("unknown predicate type %T", p)
	}
}

// missingMask selects rows whose missing state equals want.
func missingMask(col *dataset.Column, want bool) Mask {
	m := make(Mask, col.Len())
	for i := range m {
		m[i] = col.IsMissing(i) == want
	}
	return m
}

// membership returns the In mask together with the coerced column so NotIn
// can negate it over valid rows.
func membership(col *dataset.Column, lits []Literal) (Mask, coercedColumn) {
	mode := ModeFor(lits)
	c := coerceColumn(col, mode)
	m := make(Mask, col.Len())

	if mode == CoerceNumeric {
		set := newNumberSet(lits)
		for i, ok := range c.valid {
			m[i] = ok && set.contains(c.nums[i])
		}
		return m, c
	}

	set := newTextSet(lits)
	for i, ok := range c.valid {
		m[i] = ok && set.contains(c.texts[i])
	}
	return m, c
}

func inMask(col *dataset.Column, lits []Literal) Mask {
	m, _ := membership(col, lits)
	return m
}

func notInMask(col *dataset.Column, lits []Literal) Mask {
	in, c := membership(col, lits)
	m := make(Mask, len(in))
	for i, ok := range c.valid {
		m[i] = ok && !in[i]
	}
	return m
}

func betweenMask(col *dataset.Column, low, high Literal) Mask {
	mode := ModeFor([]Literal{low, high})
	c := coerceColumn(col, mode)
	m := make(Mask, col.Len())
	for i, ok := range c.valid {
		if !ok {
			continue
		}
		if mode == CoerceNumeric {
			m[i] = CompareNumbers(OpGte, c.nums[i], low.Num) && CompareNumbers(OpLte, c.nums[i], high.Num)
		} else {
			m[i] = CompareTexts(OpGte, c.texts[i], low.Text) && CompareTexts(OpLte, c.texts[i], high.Text)
		}
	}
	return m
}

func compareMask(col *dataset.Column, op Operator, lit Literal) Mask {
	mode := ModeFor([]Literal{lit})
	c := coerceColumn(col, mode)
	m := make(Mask, col.Len())
	for i, ok := range c.valid {
		if !ok {
			continue
		}
		if mode == CoerceNumeric {
			m[i] = CompareNumbers(op, c.nums[i], lit.Num)
		} else {
			m[i] = CompareTexts(op, c.texts[i], lit.Text)
		}
	}
	return m
}
