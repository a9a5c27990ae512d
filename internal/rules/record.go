// internal/rules/record.go
package rules

import (
	"fmt"

	"github.com/solatis/sdtmcheck/internal/dataset"
	"github.com/solatis/sdtmcheck/internal/types"
)

// violationFor copies the rule's identifying fields into a violation.
// Domain and Variable come from the normalized rule.
func violationFor(r types.Rule, message string) types.Violation {
	return types.Violation{
		RuleID:    r.ID,
		Source:    r.Source,
		Domain:    r.Domain,
		Variable:  r.Variable,
		Severity:  r.Severity,
		Message:   message,
		Condition: r.Condition,
	}
}

func domainMissing(r types.Rule) types.Violation {
	return violationFor(r, fmt.Sprintf("Domain %s not found", r.Domain))
}

func variableMissing(r types.Rule, variable string) types.Violation {
	return violationFor(r, fmt.Sprintf("Variable %s not found in %s", variable, r.Domain))
}

// invalidCondition is the per-rule outcome under OnParseErrorReport.
func invalidCondition(r types.Rule) types.Violation {
	v := violationFor(r, fmt.Sprintf("Invalid condition: %s", r.Condition))
	v.Severity = types.SeverityError
	return v
}

// rowViolations emits one violation per selected row, in table order.
func rowViolations(r types.Rule, t *dataset.Table, mask Mask) []types.Violation {
	rows := mask.Rows()
	if len(rows) == 0 {
		return nil
	}
	out := make([]types.Violation, 0, len(rows))
	for _, row := range rows {
		v := violationFor(r, r.Message)
		index := row + 1
		v.RowIndex = &index
		v.RecordKey = recordKey(t, row)
		v.Value = cellText(t, row, r.Variable)
		out = append(out, v)
	}
	return out
}

// recordKey returns the first non-missing identifier of the row, probing
// types.RecordKeyColumns in order.
func recordKey(t *dataset.Table, row int) *string {
	for _, col := range types.RecordKeyColumns {
		if key := cellText(t, row, col); key != nil {
			return key
		}
	}
	return nil
}

// cellText stringifies a cell; nil when absent or missing.
func cellText(t *dataset.Table, row int, column string) *string {
	if t.IsMissing(row, column) {
		return nil
	}
	v, ok := t.Value(row, column)
	if !ok {
		return nil
	}
	s := v.String()
	return &s
}
