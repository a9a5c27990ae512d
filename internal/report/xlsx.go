package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/solatis/sdtmcheck/internal/types"
)

const (
	ViolationsSheet = "violations"
	SummarySheet    = "summary"
)

// WriteXLSX writes the two-sheet workbook: sorted violations and the
// per-rule summary. Parent directories are created.
func WriteXLSX(path string, violations []types.Violation, ruleOrder []string) error {
	sorted := Sort(violations, ruleOrder)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ViolationsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	if err := writeRow(f, ViolationsSheet, 1, toAny(Columns)); err != nil {
		return err
	}
	for i, v := range sorted {
		if err := writeRow(f, ViolationsSheet, i+2, row(v)); err != nil {
			return err
		}
	}

	if err := writeRow(f, SummarySheet, 1, toAny(SummaryColumns)); err != nil {
		return err
	}
	for i, s := range Summarize(sorted) {
		cells := []any{string(s.Source), s.RuleID, string(s.Severity), s.Count}
		if err := writeRow(f, SummarySheet, i+2, cells); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowIdx int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowIdx)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, rowIdx, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
