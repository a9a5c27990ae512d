package ruleset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/solatis/sdtmcheck/internal/rules"
	"github.com/solatis/sdtmcheck/internal/types"
)

// Issue is one problem found by Check. Index is 1-based.
type Issue struct {
	Index   int
	RuleID  string
	Message string
}

func (i Issue) String() string {
	return i.Message
}

// Check reports rule records that would be rejected or misbehave in a run:
// blank required fields, duplicate IDs, domains over the per-domain limit
// and conditions that do not parse. maxPerDomain <= 0 disables the limit.
func Check(rs []types.Rule, maxPerDomain int) []Issue {
	var issues []Issue
	seen := make(map[string]bool, len(rs))
	perDomain := make(map[string]int)
	overLimit := make(map[string]bool)

	for i, r := range rs {
		idx := i + 1
		fields := map[string]string{
			"id":        r.ID,
			"domain":    r.Domain,
			"variable":  r.Variable,
			"condition": r.Condition,
			"severity":  string(r.Severity),
			"message":   r.Message,
		}
		var blank []string
		for _, key := range types.RequiredRuleFields {
			if strings.TrimSpace(fields[key]) == "" {
				blank = append(blank, key)
			}
		}
		if len(blank) > 0 {
			issues = append(issues, Issue{Index: idx, RuleID: r.ID,
				Message: fmt.Sprintf("Rule %d: Missing %s", idx, strings.Join(blank, ", "))})
			continue
		}

		if seen[r.ID] {
			issues = append(issues, Issue{Index: idx, RuleID: r.ID,
				Message: fmt.Sprintf("Duplicate ID: %s", r.ID)})
		}
		seen[r.ID] = true

		domain := strings.ToUpper(r.Domain)
		perDomain[domain]++
		if maxPerDomain > 0 && perDomain[domain] > maxPerDomain && !overLimit[domain] {
			overLimit[domain] = true
			issues = append(issues, Issue{Index: idx, RuleID: r.ID,
				Message: fmt.Sprintf("Domain %s exceeds %d rules limit", domain, maxPerDomain)})
		}

		if _, err := rules.Parse(r.Condition); err != nil {
			issues = append(issues, Issue{Index: idx, RuleID: r.ID,
				Message: fmt.Sprintf("Rule %s: %v", r.ID, err)})
		}
	}
	return issues
}

// NextRuleID returns the next free ID for domain: the highest existing
// <DOMAIN>nnn number plus one, zero-padded. Empty domain yields "".
func NextRuleID(domain string, existing []types.Rule) string {
	domain = strings.ToUpper(strings.TrimSpace(domain))
	if domain == "" {
		return ""
	}

	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(domain) + `(\d+)$`)
	taken := make(map[string]bool, len(existing))
	highest := 0
	for _, r := range existing {
		id := strings.ToUpper(strings.TrimSpace(r.ID))
		taken[id] = true
		if m := pattern.FindStringSubmatch(id); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
				highest = n
			}
		}
	}

	next := highest + 1
	candidate := formatRuleID(domain, next)
	for taken[candidate] {
		next++
		candidate = formatRuleID(domain, next)
	}
	return candidate
}

func formatRuleID(domain string, n int) string {
	return fmt.Sprintf("%s%0*d", domain, types.RuleIDDigits, n)
}

// UniqueID returns id, or id_1, id_2, ... when id is already taken.
func UniqueID(id string, existing []types.Rule) string {
	taken := make(map[string]bool, len(existing))
	for _, r := range existing {
		taken[r.ID] = true
	}
	if !taken[id] {
		return id
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d", id, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// Add appends r to existing as a custom rule. A blank ID is generated from
// the domain; a taken ID gets a numeric suffix. Returns the stored rule.
func Add(existing []types.Rule, r types.Rule) ([]types.Rule, types.Rule, error) {
	r = Normalize(r)
	r.Source = types.SourceCustom
	if r.ID == "" {
		r.ID = NextRuleID(r.Domain, existing)
	}
	if r.ID == "" {
		return existing, r, fmt.Errorf("%w: id or domain required", types.ErrMissingRuleFields)
	}
	r.ID = UniqueID(r.ID, existing)
	return append(existing, r), r, nil
}

// ImportCSV reads custom rules from CSV with a header row naming at least
// the required fields, in any order. Extra columns are ignored.
func ImportCSV(r io.Reader) ([]types.Rule, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty CSV", types.ErrMissingRuleFields)
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, key := range types.RequiredRuleFields {
		if _, ok := cols[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns: %s", types.ErrMissingRuleFields, strings.Join(missing, ", "))
	}

	var out []types.Rule
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV line %d: %w", line, err)
		}
		cell := func(key string) string {
			if i := cols[key]; i < len(row) {
				return row[i]
			}
			return ""
		}
		out = append(out, Normalize(types.Rule{
			ID:        cell("id"),
			Domain:    cell("domain"),
			Variable:  cell("variable"),
			Condition: cell("condition"),
			Severity:  types.Severity(cell("severity")),
			Message:   cell("message"),
			Source:    types.SourceCustom,
		}))
	}
	return out, nil
}
