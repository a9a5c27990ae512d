// Package report orders, summarizes and serializes validation results.
package report

import (
	"sort"

	"github.com/solatis/sdtmcheck/internal/types"
)

// Columns is the violations sheet header, in output order.
var Columns = []string{
	"source", "rule_id", "domain", "variable", "severity",
	"message", "condition", "row_index", "record_key", "value",
}

// SummaryColumns is the summary sheet header.
var SummaryColumns = []string{"source", "rule_id", "severity", "count"}

// sourceRank orders core rules before custom ones, anything else last.
func sourceRank(s types.Source) int {
	switch s {
	case types.SourceCore:
		return 0
	case types.SourceCustom:
		return 1
	default:
		return 2
	}
}

// Sort returns a copy of violations ordered by source, position of the rule
// in ruleOrder, domain, then row. An ID listed more than once takes its last
// position. Rules absent from ruleOrder sort after known ones; violations
// without a row sort last within their group.
func Sort(violations []types.Violation, ruleOrder []string) []types.Violation {
	position := make(map[string]int, len(ruleOrder))
	for i, id := range ruleOrder {
		position[id] = i
	}
	rank := func(id string) int {
		if p, ok := position[id]; ok {
			return p
		}
		return len(ruleOrder)
	}

	out := make([]types.Violation, len(violations))
	copy(out, violations)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := sourceRank(a.Source), sourceRank(b.Source); ra != rb {
			return ra < rb
		}
		if ra, rb := rank(a.RuleID), rank(b.RuleID); ra != rb {
			return ra < rb
		}
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		switch {
		case a.RowIndex == nil:
			return false
		case b.RowIndex == nil:
			return true
		default:
			return *a.RowIndex < *b.RowIndex
		}
	})
	return out
}

// SummaryRow counts violations of one (source, rule, severity) group.
type SummaryRow struct {
	Source   types.Source   `json:"source"`
	RuleID   string         `json:"rule_id"`
	Severity types.Severity `json:"severity"`
	Count    int            `json:"count"`
}

// Summarize groups violations by (source, rule_id, severity), sorted by key.
func Summarize(violations []types.Violation) []SummaryRow {
	type key struct {
		source   types.Source
		ruleID   string
		severity types.Severity
	}
	counts := make(map[key]int)
	for _, v := range violations {
		counts[key{v.Source, v.RuleID, v.Severity}]++
	}

	rows := make([]SummaryRow, 0, len(counts))
	for k, n := range counts {
		rows = append(rows, SummaryRow{Source: k.source, RuleID: k.ruleID, Severity: k.severity, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		return a.Severity < b.Severity
	})
	return rows
}

// CountBySeverity tallies violations per severity.
func CountBySeverity(violations []types.Violation) map[types.Severity]int {
	counts := make(map[types.Severity]int)
	for _, v := range violations {
		counts[v.Severity]++
	}
	return counts
}

// row renders a violation as violations-sheet cells. Nil optionals become
// empty cells.
func row(v types.Violation) []any {
	var rowIndex, recordKey, value any = "", "", ""
	if v.RowIndex != nil {
		rowIndex = *v.RowIndex
	}
	if v.RecordKey != nil {
		recordKey = *v.RecordKey
	}
	if v.Value != nil {
		value = *v.Value
	}
	return []any{
		string(v.Source), v.RuleID, v.Domain, v.Variable, string(v.Severity),
		v.Message, v.Condition, rowIndex, recordKey, value,
	}
}
