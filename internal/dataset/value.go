// Package dataset provides the in-memory columnar tables that rules are
// evaluated against, plus thin loaders for the file formats the CLI accepts.
//
// Cells are modelled as a tagged Value (Missing, Number or Text) so that the
// evaluator's coercion rules are exhaustive instead of relying on runtime
// type assertions. Tables are fully materialized at load time and are
// read-only afterwards; concurrent readers need no locking.
package dataset

import (
	"math"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindMissing Kind = iota
	KindNumber
	KindText
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "missing"
	}
}

// Value is a single table cell. The zero Value is Missing.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Missing returns the null/NA sentinel.
func Missing() Value {
	return Value{}
}

// Number wraps a float. NaN is the numeric NA sentinel and becomes Missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Text wraps a string as-is; emptiness is judged per column, not here.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is the null sentinel.
func (v Value) IsNull() bool {
	return v.kind == KindMissing
}

// Float returns the numeric payload. ok is false for Text and Missing.
func (v Value) Float() (f float64, ok bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// String returns the text representation used for text comparison and
// violation output. Numbers use the shortest exact decimal form (150, 1.5).
// Missing renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindText:
		return v.text
	default:
		return ""
	}
}

// FormatNumber renders f without exponent or trailing zeros.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
