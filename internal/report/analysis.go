package report

import (
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/solatis/sdtmcheck/internal/types"
)

// topN bounds the ranked lists of an Analysis.
const topN = 10

// Count is one bucket of a frequency table.
type Count struct {
	Key   string
	Count int
}

// RuleCount is a violation count for one (rule, domain, severity) group.
type RuleCount struct {
	RuleID   string
	Domain   string
	Severity types.Severity
	Count    int
}

// DomainImpact relates a domain's violations to the size of its table.
// RatePct is nil when the table size is unknown.
type DomainImpact struct {
	Domain         string
	Violations     int
	UniqueRecords  int
	DatasetRecords int
	RatePct        *float64
}

// HitStats describes how violations spread over the rules that fired.
type HitStats struct {
	Mean   float64
	Median float64
	P90    float64
	Max    float64
}

// Analysis is the executive summary of one run.
type Analysis struct {
	TotalViolations  int
	RulesUsed        int
	RulesTriggered   int
	DomainsImpacted  int
	SubjectsImpacted int
	RecordsImpacted  int

	BySeverity   []Count // ERROR, WARNING, INFO always present
	BySource     []Count
	TopDomains   []Count
	TopRules     []RuleCount
	DomainImpact []DomainImpact
	ZeroHitRules []types.Rule
	HitsPerRule  HitStats
}

// Analyze summarises violations produced by rules. tableRows maps domain to
// record count and may be nil.
func Analyze(violations []types.Violation, rules []types.Rule, tableRows map[string]int) Analysis {
	a := Analysis{TotalViolations: len(violations), RulesUsed: len(rules)}

	type rowKey struct {
		domain string
		row    int
	}
	type groupKey struct {
		rule, domain string
		severity     types.Severity
	}
	perRule := make(map[string]int)
	perGroup := make(map[groupKey]int)
	severities := make(map[string]int)
	sources := make(map[string]int)
	domains := make(map[string]int)
	subjects := make(map[string]struct{})
	records := make(map[rowKey]struct{})
	domainRows := make(map[string]map[int]struct{})

	for _, v := range violations {
		perRule[v.RuleID]++
		perGroup[groupKey{v.RuleID, v.Domain, v.Severity}]++
		severities[string(v.Severity)]++
		sources[string(v.Source)]++
		domains[v.Domain]++
		if v.RecordKey != nil {
			subjects[*v.RecordKey] = struct{}{}
		}
		if v.RowIndex != nil {
			records[rowKey{v.Domain, *v.RowIndex}] = struct{}{}
			if domainRows[v.Domain] == nil {
				domainRows[v.Domain] = make(map[int]struct{})
			}
			domainRows[v.Domain][*v.RowIndex] = struct{}{}
		}
	}

	a.RulesTriggered = len(perRule)
	a.DomainsImpacted = len(domains)
	a.SubjectsImpacted = len(subjects)
	a.RecordsImpacted = len(records)

	for _, sev := range []types.Severity{types.SeverityError, types.SeverityWarning, types.SeverityInfo} {
		a.BySeverity = append(a.BySeverity, Count{Key: string(sev), Count: severities[string(sev)]})
		delete(severities, string(sev))
	}
	a.BySeverity = append(a.BySeverity, ranked(severities, 0)...)
	a.BySource = ranked(sources, 0)
	a.TopDomains = ranked(domains, topN)

	for k, n := range perGroup {
		a.TopRules = append(a.TopRules, RuleCount{RuleID: k.rule, Domain: k.domain, Severity: k.severity, Count: n})
	}
	sort.Slice(a.TopRules, func(i, j int) bool {
		x, y := a.TopRules[i], a.TopRules[j]
		if x.Count != y.Count {
			return x.Count > y.Count
		}
		if x.RuleID != y.RuleID {
			return x.RuleID < y.RuleID
		}
		if x.Domain != y.Domain {
			return x.Domain < y.Domain
		}
		return x.Severity < y.Severity
	})
	if len(a.TopRules) > topN {
		a.TopRules = a.TopRules[:topN]
	}

	for _, c := range ranked(domains, 0) {
		d := DomainImpact{
			Domain:         c.Key,
			Violations:     c.Count,
			UniqueRecords:  len(domainRows[c.Key]),
			DatasetRecords: tableRows[c.Key],
		}
		if d.DatasetRecords > 0 {
			rate := math.Round(float64(d.UniqueRecords)/float64(d.DatasetRecords)*10000) / 100
			d.RatePct = &rate
		}
		a.DomainImpact = append(a.DomainImpact, d)
	}

	for _, r := range rules {
		if _, ok := perRule[r.ID]; !ok {
			a.ZeroHitRules = append(a.ZeroHitRules, r)
		}
	}

	a.HitsPerRule = hitStats(perRule)
	return a
}

// hitStats is zero when no rule fired.
func hitStats(perRule map[string]int) HitStats {
	if len(perRule) == 0 {
		return HitStats{}
	}
	data := make(stats.Float64Data, 0, len(perRule))
	for _, n := range perRule {
		data = append(data, float64(n))
	}
	var h HitStats
	h.Mean, _ = stats.Mean(data)
	h.Median, _ = stats.Median(data)
	h.P90, _ = stats.Percentile(data, 90)
	h.Max, _ = stats.Max(data)
	return h
}

// ranked orders counts descending, ties by key, keeping at most limit
// entries (all when limit is 0).
func ranked(counts map[string]int, limit int) []Count {
	out := make([]Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, Count{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Filter selects violations for drill-down. Empty fields match everything.
type Filter struct {
	Severities []types.Severity
	Domains    []string
	Sources    []types.Source
	// Search matches rule ID, message or variable, case-insensitively.
	Search string
}

// Apply returns the violations matching f, in input order.
func (f Filter) Apply(violations []types.Violation) []types.Violation {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []types.Violation
	for _, v := range violations {
		if len(f.Severities) > 0 && !containsFold(f.Severities, v.Severity) {
			continue
		}
		if len(f.Domains) > 0 && !containsFold(f.Domains, v.Domain) {
			continue
		}
		if len(f.Sources) > 0 && !containsFold(f.Sources, v.Source) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(v.RuleID), search) &&
			!strings.Contains(strings.ToLower(v.Message), search) &&
			!strings.Contains(strings.ToLower(v.Variable), search) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func containsFold[S ~string](set []S, s S) bool {
	for _, x := range set {
		if strings.EqualFold(string(x), string(s)) {
			return true
		}
	}
	return false
}
