package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/solatis/sdtmcheck/internal/types"
)

// WriteJSONL writes one JSON violation per line, in the order given.
// The file is truncated first.
func WriteJSONL(path string, violations []types.Violation) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	for _, v := range violations {
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encode violation %s: %w", v.RuleID, err)
		}
	}
	return f.Close()
}
