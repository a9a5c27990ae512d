// internal/rules/coercion.go
package rules

import (
	"math"
	"strconv"
	"strings"

	"github.com/solatis/sdtmcheck/internal/dataset"
)

/*
 * Column coercion for predicate evaluation.
 *
 * Before comparing, the target column is projected into one representation
 * chosen from the predicate's literal set:
 *
 *   - NUMERIC: every literal is numeric. Numbers pass through, text cells
 *     are trimmed and parsed as floats; cells that fail to parse are marked
 *     invalid rather than raising.
 *   - TEXT: any literal is text. Every present cell is rendered through
 *     Value.String (numbers in shortest decimal form).
 *
 * Key distinction: missing cells (per the column's missing-value test) and
 * coercion failures are both marked invalid and never satisfy a
 * value-bearing predicate. Malformed data shows up as zero matches for a
 * rule, never as a run failure.
 */

// CoercionMode is the representation a column is compared in.
type CoercionMode int

const (
	CoerceNumeric CoercionMode = iota
	CoerceText
)

// ModeFor picks the coercion mode for a literal set. An empty set is
// vacuously all-numeric.
func ModeFor(lits []Literal) CoercionMode {
	for _, l := range lits {
		if !l.Numeric {
			return CoerceText
		}
	}
	return CoerceNumeric
}

// coercedColumn is a column projected into one comparison representation.
// Only the slice matching mode is populated; valid[i] is false for missing
// cells and coercion failures.
type coercedColumn struct {
	mode  CoercionMode
	nums  []float64
	texts []string
	valid []bool
}

// coerceColumn projects col into mode.
func coerceColumn(col *dataset.Column, mode CoercionMode) coercedColumn {
	n := col.Len()
	c := coercedColumn{mode: mode, valid: make([]bool, n)}
	if mode == CoerceNumeric {
		c.nums = make([]float64, n)
	} else {
		c.texts = make([]string, n)
	}

	for i := 0; i < n; i++ {
		if col.IsMissing(i) {
			continue
		}
		v := col.Value(i)
		if mode == CoerceNumeric {
			c.nums[i], c.valid[i] = CoerceNumber(v)
		} else {
			c.texts[i], c.valid[i] = v.String(), true
		}
	}
	return c
}

// CoerceNumber converts a cell to float64. Text is trimmed and parsed;
// empty, non-numeric and missing cells report ok=false.
func CoerceNumber(v dataset.Value) (float64, bool) {
	switch v.Kind() {
	case dataset.KindNumber:
		return v.Float()
	case dataset.KindText:
		s := strings.TrimSpace(v.String())
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
