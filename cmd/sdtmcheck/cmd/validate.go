package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/sdtmcheck/internal/core/db"
	"github.com/solatis/sdtmcheck/internal/core/metrics"
	"github.com/solatis/sdtmcheck/internal/dataset"
	"github.com/solatis/sdtmcheck/internal/report"
	"github.com/solatis/sdtmcheck/internal/rules"
	"github.com/solatis/sdtmcheck/internal/ruleset"
	"github.com/solatis/sdtmcheck/internal/types"
)

// Report file names inside a run directory.
const (
	reportFile = "validation_report.xlsx"
	jsonlFile  = "violations.jsonl"
)

var validateCmd = &cobra.Command{
	Use:   "validate DATASET...",
	Short: "Validate dataset files or directories against core and project rules",
	Long: `Loads every dataset (CSV, XLSX or Arrow IPC; domain taken from the file
name), evaluates the core rules followed by the project's custom rules and
writes the report into a new run directory of the project.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	f := validateCmd.Flags()
	f.Int("workers", 1, "rules evaluated concurrently")
	f.String("on-parse-error", "fail", "unparsable condition handling (fail, report)")
	f.Duration("timeout", 5*time.Minute, "abandon the run after this long")
	f.String("project", "default", "project name")
	f.String("project-root", "./projects", "directory holding projects")
	f.String("core-rules", "rules/core_rules.json", "core rules file")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile")
	f.Bool("jsonl", false, "also write violations as JSON lines")
	f.Bool("fail-on-error", false, "exit non-zero when any ERROR violation is found")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	policy, err := rules.ParseOnParseError(cfg.Validation.OnParseError)
	if err != nil {
		return err
	}

	tables, err := loadDatasets(args)
	if err != nil {
		return err
	}
	for _, s := range dataset.Summarize(tables) {
		logger.Debug("dataset loaded", "domain", s.Domain, "records", s.Records, "variables", len(s.Variables))
	}

	proj := openProject(cfg)
	ruleList, ruleOrder, err := ruleset.LoadAll(cfg.Rules.CorePath, proj.CustomRulesPath())
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	logger.Info("rules loaded", "count", len(ruleList), "project", proj.Name())

	m := metrics.New()
	engine := rules.NewEngine(
		rules.WithLogger(logger),
		rules.WithMetrics(m),
		rules.WithWorkers(cfg.Validation.Workers),
		rules.WithParseErrorPolicy(policy),
	)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Validation.RunTimeout)
	defer cancel()

	started := time.Now()
	res, err := engine.Run(ctx, tables, ruleList)
	if err != nil {
		m.ObserveRun("failed", time.Since(started))
		writeMetrics(m, cfg.Report.MetricsFile)
		return fmt.Errorf("validation failed: %w", err)
	}

	violations := report.Sort(res.Violations, ruleOrder)

	runDir, err := proj.NewRunDir(started)
	if err != nil {
		return err
	}
	reportPath := filepath.Join(runDir, reportFile)
	if err := report.WriteXLSX(reportPath, violations, ruleOrder); err != nil {
		return err
	}
	if cfg.Report.JSONL {
		if err := report.WriteJSONL(filepath.Join(runDir, jsonlFile), violations); err != nil {
			return err
		}
	}

	if databaseURL() != "" {
		if err := saveRun(ctx, db.RunRecord{
			RunID:      res.RunID,
			Project:    proj.Name(),
			StartedAt:  started,
			Duration:   res.Duration,
			RuleCount:  len(ruleList),
			TableCount: len(tables),
			ReportPath: reportPath,
		}, violations); err != nil {
			return err
		}
	}

	m.ObserveRun("succeeded", time.Since(started))
	writeMetrics(m, cfg.Report.MetricsFile)

	tableRows := make(map[string]int, len(tables))
	for domain, t := range tables {
		tableRows[domain] = t.NumRows()
	}
	printRunSummary(cmd, res.RunID, reportPath, report.Analyze(violations, ruleList, tableRows))

	counts := report.CountBySeverity(violations)

	failOnError, _ := cmd.Flags().GetBool("fail-on-error")
	if failOnError && counts[types.SeverityError] > 0 {
		return fmt.Errorf("%d ERROR violations", counts[types.SeverityError])
	}
	return nil
}

// loadDatasets loads files and directories; a later path for the same
// domain replaces an earlier one.
func loadDatasets(paths []string) (map[string]*dataset.Table, error) {
	tables := make(map[string]*dataset.Table)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", p, err)
		}
		var loaded map[string]*dataset.Table
		if info.IsDir() {
			loaded, err = dataset.LoadDir(p)
		} else {
			loaded, err = dataset.LoadFiles([]string{p})
		}
		if err != nil {
			return nil, err
		}
		for domain, t := range loaded {
			tables[domain] = t
		}
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no supported dataset files in %v", paths)
	}
	return tables, nil
}

func saveRun(ctx context.Context, run db.RunRecord, violations []types.Violation) error {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.SaveRun(ctx, run, violations); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	logger.Info("run saved", "run_id", run.RunID)
	return nil
}

// writeMetrics logs rather than fails: the report is already written.
func writeMetrics(m *metrics.Metrics, path string) {
	if path == "" {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		logger.Warn("failed to write metrics", "path", path, "error", err)
	}
}

func printRunSummary(cmd *cobra.Command, runID types.RunID, reportPath string, a report.Analysis) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %d violations from %d of %d rules\n", runID, a.TotalViolations, a.RulesTriggered, a.RulesUsed)
	fmt.Fprintf(out, "  domains %d, subjects %d, records %d\n", a.DomainsImpacted, a.SubjectsImpacted, a.RecordsImpacted)
	for _, c := range a.BySeverity {
		fmt.Fprintf(out, "  %-8s %d\n", c.Key, c.Count)
	}
	if len(a.DomainImpact) > 0 {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  DOMAIN\tVIOLATIONS\tRECORDS\tRATE")
		for _, d := range a.DomainImpact {
			rate := "-"
			if d.RatePct != nil {
				rate = fmt.Sprintf("%.2f%%", *d.RatePct)
			}
			fmt.Fprintf(w, "  %s\t%d\t%d/%d\t%s\n", d.Domain, d.Violations, d.UniqueRecords, d.DatasetRecords, rate)
		}
		w.Flush()
	}
	if len(a.ZeroHitRules) > 0 {
		logger.Debug("rules without violations", "count", len(a.ZeroHitRules))
	}
	fmt.Fprintf(out, "Report: %s\n", reportPath)
}
