// internal/rules/compile.go
package rules

import (
	"fmt"
	"strings"

	"github.com/solatis/sdtmcheck/internal/types"
)

/*
 * Rule compilation.
 *
 * Compiles types.Rule to CompiledRule: identifiers normalized, condition
 * parsed into a Predicate and an evaluation cost attached for dispatch
 * ordering.
 *
 * Compilation workflow:
 *   1. Trim and uppercase Domain and Variable
 *   2. Parse the condition (ParseError on failure)
 *   3. Estimate cost from the predicate form and literal set
 *
 * Compiling is optional for callers: the engine compiles lazily, only after
 * the rule's domain and variable are known to exist, so a bad condition on a
 * rule whose domain is absent still reports "Domain ... not found".
 */

// CompiledRule is a rule with its condition parsed and ready to evaluate.
type CompiledRule struct {
	Rule      types.Rule
	Predicate Predicate
	Cost      int
}

// NormalizeRule returns r with Domain and Variable trimmed and uppercased.
func NormalizeRule(r types.Rule) types.Rule {
	r.Domain = strings.ToUpper(strings.TrimSpace(r.Domain))
	r.Variable = strings.ToUpper(strings.TrimSpace(r.Variable))
	return r
}

// Compile normalizes and parses a rule.
func Compile(rule types.Rule) (*CompiledRule, error) {
	rule = NormalizeRule(rule)
	pred, err := Parse(rule.Condition)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	return &CompiledRule{
		Rule:      rule,
		Predicate: pred,
		Cost:      EstimateCost(pred),
	}, nil
}

// CompileAll compiles rules in order and stops at the first failure.
func CompileAll(rules []types.Rule) ([]*CompiledRule, error) {
	compiled := make([]*CompiledRule, 0, len(rules))
	for _, r := range rules {
		cr, err := Compile(r)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, cr)
	}
	return compiled, nil
}
