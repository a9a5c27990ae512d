package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/sdtmcheck/internal/review"
	"github.com/solatis/sdtmcheck/internal/types"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate VIOLATION_KEY",
	Short: "Record a review status for a violation (key: RULE_DOMAIN_ROW, e.g. DM001_DM_3)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnnotate,
}

func init() {
	f := annotateCmd.Flags()
	f.String("project", "default", "project name")
	f.String("status", "", "New, Under Review, Accepted, Fixed or False Positive")
	f.String("reviewer", "", "reviewer name")
	f.String("comment", "", "review comment")
	f.String("action", "", "corrective action taken")
	_ = annotateCmd.MarkFlagRequired("status")
	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	status, _ := cmd.Flags().GetString("status")
	reviewer, _ := cmd.Flags().GetString("reviewer")
	comment, _ := cmd.Flags().GetString("comment")
	action, _ := cmd.Flags().GetString("action")

	m := review.NewManager(store, openProject(cfg).Name())
	a, err := m.Annotate(commandContext(cmd), args[0], review.Update{
		Status:      types.AnnotationStatus(status),
		Reviewer:    reviewer,
		Comment:     comment,
		ActionTaken: action,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", a.ViolationKey, a.Status)
	return nil
}
