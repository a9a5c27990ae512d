// internal/rules/engine.go
package rules

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/solatis/sdtmcheck/internal/dataset"
	"github.com/solatis/sdtmcheck/internal/types"
)

/*
 * Rule engine.
 *
 * Runs an ordered rule list against a set of in-memory domain tables and
 * returns violations in canonical order: rule input order first, ascending
 * row within a rule.
 *
 * Execution:
 *   1. Plan (sequential): resolve domain, then variable, then parse the
 *      condition. Absent domain/variable become a single synthetic violation
 *      and the rule is not evaluated. Parse results are cached by condition
 *      text for the duration of the run.
 *   2. Evaluate: one mask per planned rule, either in input order or across
 *      an errgroup bounded by the worker count. Each rule writes only its own
 *      slot, so no locking is needed.
 *   3. Flatten slots in input order.
 *
 * The engine holds no state between runs; tables are only read.
 * Cancellation is checked between rules and abandons the run as a whole.
 */

// OnParseError decides what an unparsable condition does to a run.
type OnParseError int

const (
	// OnParseErrorFail aborts the run with the parse error.
	OnParseErrorFail OnParseError = iota

	// OnParseErrorReport records one "Invalid condition" violation for the
	// rule and carries on with the rest.
	OnParseErrorReport
)

// ParseOnParseError maps a config value ("fail" or "report") to a policy.
func ParseOnParseError(s string) (OnParseError, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return OnParseErrorFail, nil
	case "report":
		return OnParseErrorReport, nil
	default:
		return OnParseErrorFail, fmt.Errorf("unknown parse error policy %q (want fail or report)", s)
	}
}

func (p OnParseError) String() string {
	if p == OnParseErrorReport {
		return "report"
	}
	return "fail"
}

// Rule outcomes reported to the Recorder.
const (
	OutcomeMatched         = "matched"
	OutcomeClean           = "clean"
	OutcomeDomainMissing   = "domain_missing"
	OutcomeVariableMissing = "variable_missing"
	OutcomeInvalid         = "invalid_condition"
)

// Recorder receives per-rule measurements. Implemented by internal/core/metrics.
type Recorder interface {
	ObserveRule(domain, outcome string, elapsed time.Duration)
	AddViolations(severity string, n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRule(string, string, time.Duration) {}
func (nopRecorder) AddViolations(string, int)                 {}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the measurement sink.
func WithMetrics(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.metrics = r
		}
	}
}

// WithWorkers bounds concurrent rule evaluation. Values below 2 run
// sequentially.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithParseErrorPolicy sets how unparsable conditions are handled.
func WithParseErrorPolicy(p OnParseError) Option {
	return func(e *Engine) {
		e.onParseError = p
	}
}

// Engine evaluates rule lists against domain tables.
type Engine struct {
	logger       *slog.Logger
	metrics      Recorder
	workers      int
	onParseError OnParseError
}

// NewEngine creates an engine. Defaults: sequential, fail on parse errors,
// discard logger.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: nopRecorder{},
		workers: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of one run.
type Result struct {
	RunID      types.RunID
	Violations []types.Violation
	RuleOrder  []string
	Duration   time.Duration
}

// Run evaluates rules against tables with default settings.
func Run(tables map[string]*dataset.Table, rules []types.Rule) ([]types.Violation, []string, error) {
	res, err := NewEngine().Run(context.Background(), tables, rules)
	if err != nil {
		return nil, nil, err
	}
	return res.Violations, res.RuleOrder, nil
}

// planned is one rule after the plan pass. Either done (outcome already
// known) or table+compiled set for evaluation.
type planned struct {
	rule     types.Rule
	done     []types.Violation
	outcome  string
	table    *dataset.Table
	compiled *CompiledRule
}

// Run evaluates rules in order against tables. Table keys are matched
// case-insensitively.
func (e *Engine) Run(ctx context.Context, tables map[string]*dataset.Table, rules []types.Rule) (*Result, error) {
	start := time.Now()
	runID := types.NewRunID()
	logger := e.logger.With("run_id", runID)

	plans, err := e.plan(indexTables(tables), rules)
	if err != nil {
		return nil, err
	}

	slots := make([][]types.Violation, len(plans))
	if e.workers > 1 {
		err = e.evaluateConcurrent(ctx, plans, slots)
	} else {
		err = e.evaluateSequential(ctx, plans, slots)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:     runID,
		RuleOrder: make([]string, len(rules)),
	}
	for i, r := range rules {
		res.RuleOrder[i] = r.ID
	}
	total := 0
	for _, s := range slots {
		total += len(s)
	}
	res.Violations = make([]types.Violation, 0, total)
	for _, s := range slots {
		res.Violations = append(res.Violations, s...)
	}
	res.Duration = time.Since(start)

	bySeverity := make(map[types.Severity]int)
	for _, v := range res.Violations {
		bySeverity[v.Severity]++
	}
	for sev, n := range bySeverity {
		e.metrics.AddViolations(string(sev), n)
	}

	logger.Info("validation run complete",
		"rules", len(rules),
		"tables", len(tables),
		"violations", len(res.Violations),
		"workers", e.workers,
		"duration", res.Duration)
	return res, nil
}

func indexTables(tables map[string]*dataset.Table) map[string]*dataset.Table {
	index := make(map[string]*dataset.Table, len(tables))
	for name, t := range tables {
		index[dataset.NormalizeName(name)] = t
	}
	return index
}

// plan resolves targets and parses conditions in input order.
func (e *Engine) plan(tables map[string]*dataset.Table, rules []types.Rule) ([]planned, error) {
	cache := make(map[string]Predicate)
	plans := make([]planned, len(rules))

	for i, raw := range rules {
		r := NormalizeRule(raw)
		p := planned{rule: r}

		t, ok := tables[r.Domain]
		switch {
		case !ok:
			p.done = []types.Violation{domainMissing(r)}
			p.outcome = OutcomeDomainMissing
		case !t.HasColumn(r.Variable):
			p.done = []types.Violation{variableMissing(r, r.Variable)}
			p.outcome = OutcomeVariableMissing
		default:
			pred, cached := cache[r.Condition]
			if !cached {
				var err error
				pred, err = Parse(r.Condition)
				if err != nil {
					if e.onParseError == OnParseErrorFail {
						return nil, fmt.Errorf("rule %s: %w", r.ID, err)
					}
					e.logger.Warn("invalid rule condition", "rule_id", r.ID, "condition", r.Condition)
					p.done = []types.Violation{invalidCondition(r)}
					p.outcome = OutcomeInvalid
					break
				}
				cache[r.Condition] = pred
			}
			p.table = t
			p.compiled = &CompiledRule{Rule: r, Predicate: pred, Cost: EstimateCost(pred)}
		}

		if p.compiled == nil {
			e.metrics.ObserveRule(r.Domain, p.outcome, 0)
		}
		plans[i] = p
	}
	return plans, nil
}

func (e *Engine) evaluateSequential(ctx context.Context, plans []planned, slots [][]types.Violation) error {
	for i := range plans {
		if err := ctx.Err(); err != nil {
			return err
		}
		vs, err := e.evaluate(plans[i])
		if err != nil {
			return err
		}
		slots[i] = vs
	}
	return nil
}

// evaluateConcurrent dispatches most expensive rules first; slots keep the
// canonical order regardless of completion order.
func (e *Engine) evaluateConcurrent(ctx context.Context, plans []planned, slots [][]types.Violation) error {
	order := make([]int, len(plans))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return planCost(plans[order[a]]) > planCost(plans[order[b]])
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, i := range order {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vs, err := e.evaluate(plans[i])
			if err != nil {
				return err
			}
			slots[i] = vs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// errgroup cancels gctx only on error; a parent cancelled after the
	// last rule started still invalidates the run.
	return ctx.Err()
}

func planCost(p planned) int {
	if p.compiled == nil {
		return 0
	}
	return p.compiled.Cost * p.table.NumRows()
}

// evaluate produces the violations of one planned rule.
func (e *Engine) evaluate(p planned) ([]types.Violation, error) {
	if p.compiled == nil {
		return p.done, nil
	}

	start := time.Now()
	r := p.compiled.Rule
	mask, err := Evaluate(p.table, p.compiled.Predicate)
	if err != nil {
		// The condition may target a column other than the rule variable.
		var notFound *ColumnNotFoundError
		if errors.As(err, &notFound) {
			e.metrics.ObserveRule(r.Domain, OutcomeVariableMissing, time.Since(start))
			return []types.Violation{variableMissing(r, notFound.Column)}, nil
		}
		return nil, fmt.Errorf("rule %s: %w", r.ID, err)
	}

	vs := rowViolations(r, p.table, mask)
	outcome := OutcomeClean
	if len(vs) > 0 {
		outcome = OutcomeMatched
	}
	elapsed := time.Since(start)
	e.metrics.ObserveRule(r.Domain, outcome, elapsed)
	e.logger.Debug("rule evaluated",
		"rule_id", r.ID,
		"domain", r.Domain,
		"matches", len(vs),
		"elapsed", elapsed)
	return vs, nil
}
