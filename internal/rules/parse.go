// internal/rules/parse.go
package rules

import (
	"regexp"
	"strconv"
	"strings"
)

/*
 * Condition grammar.
 *
 * A condition is exactly one of six forms, tried in fixed priority order
 * because they overlap ("not missing" would otherwise never be reached
 * behind a generic comparison):
 *
 *   1. <col> is missing
 *   2. <col> not missing
 *   3. <col> in {v1,v2,...}
 *   4. <col> not in {v1,v2,...}
 *   5. <col> between <low> and <high>
 *   6. <col> <op> <value>        op: == != >= <= > <
 *
 * Keywords are case-insensitive; columns are [A-Za-z0-9_]+ and uppercased.
 * Forms 1-5 are keyword-anchored, form 6 is operator-anchored, so a
 * condition matched by an earlier form can never reach form 6.
 *
 * Literal tokens:
 *   - '...' or "..."            text, contents verbatim, no escapes
 *   - [+-]?digits(.digits)?     number (integer unless it has a fraction)
 *   - anything else             text, whitespace-trimmed
 *
 * The parser does no type checking against tables; that is the
 * evaluator's concern.
 */

var (
	missingPattern    = regexp.MustCompile(`(?i)^([A-Za-z0-9_]+)\s+is\s+missing$`)
	notMissingPattern = regexp.MustCompile(`(?i)^([A-Za-z0-9_]+)\s+not\s+missing$`)
	inPattern         = regexp.MustCompile(`(?i)^([A-Za-z0-9_]+)\s+in\s+\{(.+)\}$`)
	notInPattern      = regexp.MustCompile(`(?i)^([A-Za-z0-9_]+)\s+not\s+in\s+\{(.+)\}$`)
	betweenPattern    = regexp.MustCompile(`(?i)^([A-Za-z0-9_]+)\s+between\s+(.+)\s+and\s+(.+)$`)
	comparePattern    = regexp.MustCompile(`^([A-Za-z0-9_]+)\s*(==|!=|>=|<=|>|<)\s*(.+)$`)

	numberPattern = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)
)

// Parse compiles a condition string into a Predicate.
// Returns *ParseError when no grammar form matches.
func Parse(condition string) (Predicate, error) {
	text := strings.TrimSpace(condition)

	if m := missingPattern.FindStringSubmatch(text); m != nil {
		return IsMissing{Col: strings.ToUpper(m[1])}, nil
	}
	if m := notMissingPattern.FindStringSubmatch(text); m != nil {
		return NotMissing{Col: strings.ToUpper(m[1])}, nil
	}
	if m := inPattern.FindStringSubmatch(text); m != nil {
		return In{Col: strings.ToUpper(m[1]), Values: parseList(m[2])}, nil
	}
	if m := notInPattern.FindStringSubmatch(text); m != nil {
		return NotIn{Col: strings.ToUpper(m[1]), Values: parseList(m[2])}, nil
	}
	if m := betweenPattern.FindStringSubmatch(text); m != nil {
		return Between{
			Col:  strings.ToUpper(m[1]),
			Low:  parseLiteral(m[2]),
			High: parseLiteral(m[3]),
		}, nil
	}
	if m := comparePattern.FindStringSubmatch(text); m != nil {
		value := strings.TrimSpace(m[3])
		// A value that opens with another operator character means the
		// operator itself was malformed (AGE >> 5, AGE <> 5, AGE === 5).
		if strings.ContainsAny(value[:1], "=!<>") {
			return nil, &ParseError{Condition: condition}
		}
		return Compare{
			Col:   strings.ToUpper(m[1]),
			Op:    ParseOperator(m[2]),
			Value: parseLiteral(value),
		}, nil
	}

	return nil, &ParseError{Condition: condition}
}

// parseLiteral applies the literal token rule to one trimmed token.
func parseLiteral(token string) Literal {
	text := strings.TrimSpace(token)
	if len(text) >= 2 && (text[0] == '\'' || text[0] == '"') && text[len(text)-1] == text[0] {
		return TextLiteral(text[1 : len(text)-1])
	}
	if m := numberPattern.FindStringSubmatch(text); m != nil {
		f, err := strconv.ParseFloat(text, 64)
		if err == nil {
			return NumberLiteral(f, m[1] == "")
		}
	}
	return TextLiteral(text)
}

// parseList splits a set body on commas, dropping empty segments.
func parseList(body string) []Literal {
	parts := strings.Split(body, ",")
	lits := make([]Literal, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lits = append(lits, parseLiteral(part))
	}
	return lits
}
