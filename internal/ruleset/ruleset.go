// Package ruleset reads, writes and checks rule files.
//
// A rule file is a JSON array of objects carrying the keys listed in
// types.RequiredRuleFields. Core rules ship with the tool; custom rules
// live in the project directory and are edited through the CLI.
package ruleset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/solatis/sdtmcheck/internal/types"
)

// MissingFieldsError reports a rule record lacking required keys.
// Fields is sorted.
type MissingFieldsError struct {
	Index  int
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("rule at index %d missing fields: [%s]", e.Index, strings.Join(e.Fields, " "))
}

// Unwrap enables errors.Is(err, types.ErrMissingRuleFields).
func (e *MissingFieldsError) Unwrap() error {
	return types.ErrMissingRuleFields
}

// record is the on-disk shape of one rule. Source is never persisted.
type record struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	Variable  string `json:"variable"`
	Condition string `json:"condition"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
}

// Load reads a rule file and tags every rule with source.
// A missing file yields no rules and no error.
func Load(path string, source types.Source) ([]types.Rule, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}

	rules, err := Decode(data, source)
	if err != nil {
		return nil, fmt.Errorf("load rules %s: %w", path, err)
	}
	return rules, nil
}

// Decode parses a JSON rule array. Values of any JSON scalar type are
// accepted and stringified.
func Decode(data []byte, source types.Source) ([]types.Rule, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var items []map[string]any
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}

	rules := make([]types.Rule, 0, len(items))
	for idx, item := range items {
		var missing []string
		for _, key := range types.RequiredRuleFields {
			if _, ok := item[key]; !ok {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return nil, &MissingFieldsError{Index: idx, Fields: missing}
		}

		rules = append(rules, Normalize(types.Rule{
			ID:        stringify(item["id"]),
			Domain:    stringify(item["domain"]),
			Variable:  stringify(item["variable"]),
			Condition: stringify(item["condition"]),
			Severity:  types.Severity(stringify(item["severity"])),
			Message:   stringify(item["message"]),
			Source:    source,
		}))
	}
	return rules, nil
}

func stringify(v any) string {
	if v == nil {
		return "None"
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Normalize trims every field and uppercases domain, variable and severity.
func Normalize(r types.Rule) types.Rule {
	r.ID = strings.TrimSpace(r.ID)
	r.Domain = strings.ToUpper(strings.TrimSpace(r.Domain))
	r.Variable = strings.ToUpper(strings.TrimSpace(r.Variable))
	r.Condition = strings.TrimSpace(r.Condition)
	r.Severity = types.Severity(strings.ToUpper(strings.TrimSpace(string(r.Severity))))
	r.Message = strings.TrimSpace(r.Message)
	return r
}

// Save writes rules as an indented JSON array, creating parent directories.
func Save(path string, rules []types.Rule) error {
	records := make([]record, len(rules))
	for i, r := range rules {
		records[i] = record{
			ID:        r.ID,
			Domain:    r.Domain,
			Variable:  r.Variable,
			Condition: r.Condition,
			Severity:  string(r.Severity),
			Message:   r.Message,
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create rules dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write rules %s: %w", path, err)
	}
	return nil
}

// LoadAll loads core then custom rules and returns them with their IDs in
// run order.
func LoadAll(corePath, customPath string) ([]types.Rule, []string, error) {
	core, err := Load(corePath, types.SourceCore)
	if err != nil {
		return nil, nil, err
	}
	custom, err := Load(customPath, types.SourceCustom)
	if err != nil {
		return nil, nil, err
	}

	all := append(core, custom...)
	order := make([]string, len(all))
	for i, r := range all {
		order[i] = r.ID
	}
	return all, order, nil
}
