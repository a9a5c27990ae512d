// internal/types/rules.go
package types

/*
 * Domain types for rule validation.
 *
 * Provides Rule and Violation, the value types exchanged between rule
 * sources, internal/rules, and reporting. Both are immutable once built:
 * rules are loaded before a run, violations are produced during it and
 * handed wholesale to reporting and persistence.
 *
 * Key types:
 *   - Rule: one condition over a single domain/variable pair
 *   - Violation: one rule outcome, per matching row or per missing target
 *   - Severity / Source: free-form tags with conventional values
 *
 * Dependencies: None (encoding/json tags only)
 */

// Severity classifies a rule outcome. Free-form, conventionally one of the
// three constants below.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Source tags the provenance of a rule.
type Source string

const (
	SourceCore   Source = "core"
	SourceCustom Source = "custom"
)

// Rule is a named predicate over one domain/variable pair.
// Domain and Variable are uppercased at load time.
type Rule struct {
	ID        string   `json:"id"`
	Domain    string   `json:"domain"`
	Variable  string   `json:"variable"`
	Condition string   `json:"condition"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Source    Source   `json:"source,omitempty"`
}

// Violation is one (rule, row) match produced by a validation run.
// RowIndex, RecordKey and Value are nil for domain/variable-not-found outcomes.
type Violation struct {
	RuleID    string   `json:"rule_id"`
	Source    Source   `json:"source"`
	Domain    string   `json:"domain"`
	Variable  string   `json:"variable"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Condition string   `json:"condition"`
	RowIndex  *int     `json:"row_index"`  // 1-based position in the domain table
	RecordKey *string  `json:"record_key"` // USUBJID, SUBJID or STUDYID of the row
	Value     *string  `json:"value"`      // observed value, nil when missing
}
