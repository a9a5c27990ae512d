package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/sdtmcheck/internal/core/config"
	"github.com/solatis/sdtmcheck/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the run history database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		url := databaseURL()
		if url == "" {
			return fmt.Errorf("no database configured (set --db-url or %s)", config.DatabaseURLEnv)
		}
		database, err := db.Open(url)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := db.MigrateUp(database); err != nil {
			return err
		}
		logger.Info("migrations applied", "driver", database.DriverName())
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		url := databaseURL()
		if url == "" {
			return fmt.Errorf("no database configured (set --db-url or %s)", config.DatabaseURLEnv)
		}
		database, err := db.Open(url)
		if err != nil {
			return err
		}
		defer database.Close()

		statuses, err := db.MigrateStatus(database)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MIGRATION\tSTATUS\tAPPLIED AT\tDURATION")
		for _, s := range statuses {
			if !s.Applied {
				fmt.Fprintf(w, "%s\tpending\t-\t-\n", s.ID)
				continue
			}
			fmt.Fprintf(w, "%s\tapplied\t%s\t%dms\n", s.ID, s.AppliedAt.Format(time.RFC3339), s.ExecutionMs)
		}
		return w.Flush()
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
