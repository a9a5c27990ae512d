// internal/rules/predicate.go
package rules

import (
	"fmt"
	"strings"

	"github.com/solatis/sdtmcheck/internal/dataset"
)

/*
 * Compiled predicate model.
 *
 * A Predicate is a closed sum type with one variant per grammar form:
 * IsMissing, NotMissing, In, NotIn, Between and Compare. The unexported
 * isPredicate marker keeps the set closed so the evaluator's type switch is
 * exhaustive and a new grammar form is a compile-time change.
 *
 * Every variant names exactly one target column (uppercased). Value-bearing
 * variants carry Literals; whether the set is all-numeric decides the
 * coercion mode at evaluation time (see coercion.go).
 *
 * Predicates are stateless and safe to share across goroutines.
 */

// Operator is a comparison operator of the Compare form.
type Operator int

const (
	OpUnspecified Operator = iota
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

var operatorSymbols = map[string]Operator{
	"==": OpEq,
	"!=": OpNeq,
	"<":  OpLt,
	"<=": OpLte,
	">":  OpGt,
	">=": OpGte,
}

// ParseOperator maps a symbol to its Operator; OpUnspecified if unknown.
func ParseOperator(symbol string) Operator {
	return operatorSymbols[symbol]
}

// String returns the operator symbol.
func (op Operator) String() string {
	for s, o := range operatorSymbols {
		if o == op {
			return s
		}
	}
	return "?"
}

// Literal is one parsed constant. Numeric literals keep a canonical text
// form so they can take part in text comparison when the set is mixed.
type Literal struct {
	Text    string
	Num     float64
	Numeric bool
	Integer bool
}

// TextLiteral builds a string literal.
func TextLiteral(s string) Literal {
	return Literal{Text: s}
}

// NumberLiteral builds a numeric literal.
func NumberLiteral(f float64, integer bool) Literal {
	return Literal{Text: dataset.FormatNumber(f), Num: f, Numeric: true, Integer: integer}
}

// String renders the literal as it would appear in a condition.
func (l Literal) String() string {
	if l.Numeric {
		return l.Text
	}
	return "'" + l.Text + "'"
}

// Predicate is a compiled rule condition.
type Predicate interface {
	// Column returns the uppercased target column.
	Column() string

	// String renders the predicate in canonical condition syntax.
	String() string

	isPredicate()
}

// IsMissing selects rows whose value is missing.
type IsMissing struct {
	Col string
}

// NotMissing selects rows whose value is present.
type NotMissing struct {
	Col string
}

// In selects rows whose value is a member of Values.
type In struct {
	Col    string
	Values []Literal
}

// NotIn selects present rows whose value is not a member of Values.
type NotIn struct {
	Col    string
	Values []Literal
}

// Between selects rows with Low <= value <= High.
type Between struct {
	Col  string
	Low  Literal
	High Literal
}

// Compare selects rows where value Op Value holds.
type Compare struct {
	Col   string
	Op    Operator
	Value Literal
}

func (p IsMissing) Column() string  { return p.Col }
func (p NotMissing) Column() string { return p.Col }
func (p In) Column() string         { return p.Col }
func (p NotIn) Column() string      { return p.Col }
func (p Between) Column() string    { return p.Col }
func (p Compare) Column() string    { return p.Col }

func (IsMissing) isPredicate()  {}
func (NotMissing) isPredicate() {}
func (In) isPredicate()         {}
func (NotIn) isPredicate()      {}
func (Between) isPredicate()    {}
func (Compare) isPredicate()    {}

func (p IsMissing) String() string  { return p.Col + " is missing" }
func (p NotMissing) String() string { return p.Col + " not missing" }
func (p In) String() string         { return fmt.Sprintf("%s in {%s}", p.Col, joinLiterals(p.Values)) }
func (p NotIn) String() string      { return fmt.Sprintf("%s not in {%s}", p.Col, joinLiterals(p.Values)) }
func (p Between) String() string {
	return fmt.Sprintf("%s between %s and %s", p.Col, p.Low, p.High)
}
func (p Compare) String() string { return fmt.Sprintf("%s %s %s", p.Col, p.Op, p.Value) }

func joinLiterals(lits []Literal) string {
	parts := make([]string, len(lits))
	for i, l := range lits {
		parts[i] = l.String()
	}
	return strings.Join(parts, ",")
}

// literalSet returns the literals that drive coercion for p; nil for the
// missing-value forms.
func literalSet(p Predicate) []Literal {
	switch p := p.(type) {
	case In:
		return p.Values
	case NotIn:
		return p.Values
	case Between:
		return []Literal{p.Low, p.High}
	case Compare:
		return []Literal{p.Value}
	default:
		return nil
	}
}
