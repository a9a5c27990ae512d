// Package types provides domain models shared across sdtmcheck components.
//
// Zero-dependency design: rules.go and errors.go use only the standard
// library so that rule sources, the engine and reporting can share them
// without pulling in storage or transport deps. ID utilities in ids.go
// import uuid but are isolated for callers that persist runs.
package types

// RequiredRuleFields lists the keys every persisted rule record must carry.
// Source is assigned by the loader, never read from the record.
var RequiredRuleFields = []string{"id", "domain", "variable", "condition", "severity", "message"}

// RecordKeyColumns are probed in order to correlate a violation with a subject.
var RecordKeyColumns = []string{"USUBJID", "SUBJID", "STUDYID"}

// Limits applied to user-maintained rule sets.
const (
	// MaxRulesPerDomain caps custom rules per domain to keep review lists readable.
	MaxRulesPerDomain = 20

	// RuleIDDigits is the zero-padded width of generated rule numbers (DM001).
	RuleIDDigits = 3
)
