package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/sdtmcheck/internal/report"
	"github.com/solatis/sdtmcheck/internal/review"
	"github.com/solatis/sdtmcheck/internal/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past validation runs of a project",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show the violations of one run with their review status",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyCmd.PersistentFlags().String("project", "default", "project name")
	historyCmd.Flags().Int("limit", 20, "number of runs listed")
	f := historyShowCmd.Flags()
	f.String("status", "", "only violations with this review status")
	f.StringSlice("severity", nil, "only these severities")
	f.StringSlice("domain", nil, "only these domains")
	f.StringSlice("source", nil, "only these rule sources (core, custom)")
	f.String("search", "", "substring of rule ID, message or variable")
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(commandContext(cmd), openProject(cfg).Name(), limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTARTED\tDURATION\tRULES\tTABLES\tVIOLATIONS")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			r.RunID, r.StartedAt.Local().Format(time.DateTime), r.Duration.Round(time.Millisecond),
			r.RuleCount, r.TableCount, r.ViolationCount)
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	// The run carries its own project; loading still validates config and flags.
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	runID, err := types.ParseRunID(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := commandContext(cmd)
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	violations, err := store.RunViolations(ctx, runID)
	if err != nil {
		return err
	}

	violations = drillDown(cmd).Apply(violations)

	m := review.NewManager(store, run.Project)
	if s, _ := cmd.Flags().GetString("status"); s != "" {
		status, err := types.ParseStatus(s)
		if err != nil {
			return err
		}
		if violations, err = m.FilterByStatus(ctx, violations, status); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s), report %s\n\n", run.RunID, run.Project, run.ReportPath)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSEVERITY\tRECORD\tVALUE\tMESSAGE")
	for _, v := range violations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			review.ViolationKey(v), v.Severity, orDash(v.RecordKey), orDash(v.Value), v.Message)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	summary, err := m.StatusSummary(ctx, violations)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	for _, sc := range summary {
		fmt.Fprintf(out, "  %-15s %d\n", sc.Status, sc.Count)
	}
	return nil
}

// drillDown builds the report filter from the show flags.
func drillDown(cmd *cobra.Command) report.Filter {
	var f report.Filter
	severities, _ := cmd.Flags().GetStringSlice("severity")
	for _, s := range severities {
		f.Severities = append(f.Severities, types.Severity(s))
	}
	f.Domains, _ = cmd.Flags().GetStringSlice("domain")
	sources, _ := cmd.Flags().GetStringSlice("source")
	for _, s := range sources {
		f.Sources = append(f.Sources, types.Source(s))
	}
	f.Search, _ = cmd.Flags().GetString("search")
	return f
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
