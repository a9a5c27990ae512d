package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/solatis/sdtmcheck/internal/core/config"
	"github.com/solatis/sdtmcheck/internal/core/db"
	"github.com/solatis/sdtmcheck/internal/project"
)

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
	envFile    string

	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

var rootCmd = &cobra.Command{
	Use:   "sdtmcheck",
	Short: "Rule-based validation of clinical study datasets",
	Long: `sdtmcheck validates SDTM-style domain tables (DM, AE, VS, ...) against
declarative single-variable rules and writes per-run violation reports.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...), overrides "+config.DatabaseURLEnv)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (json, text)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration, ignored if absent")
}

func Execute() error {
	return rootCmd.Execute()
}

// setup loads the dotenv file and builds the process logger.
func setup(cmd *cobra.Command, _ []string) error {
	if envFile != "" {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	l, err := newLogger(cmd.ErrOrStderr(), logLevel, logFormat)
	if err != nil {
		return err
	}
	logger = l
	slog.SetDefault(l)
	return nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (expected json or text)", format)
	}
}

// loadConfig resolves configuration with cmd's flags bound.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openProject returns the project named in cfg.
func openProject(cfg *config.Config) *project.Project {
	return project.New(cfg.Project.Root, cfg.Project.Name)
}

// databaseURL prefers --db-url over the environment.
func databaseURL() string {
	if dbURL != "" {
		return dbURL
	}
	return config.DatabaseURL()
}

// openStore opens the database and refuses to proceed with pending
// migrations. The returned close func is never nil.
func openStore() (*db.Store, func(), error) {
	url := databaseURL()
	if url == "" {
		return nil, func() {}, fmt.Errorf("no database configured (set --db-url or %s)", config.DatabaseURLEnv)
	}
	database, err := db.Open(url)
	if err != nil {
		return nil, func() {}, err
	}
	closeFn := func() { database.Close() }

	statuses, err := db.MigrateStatus(database)
	if err != nil {
		closeFn()
		return nil, func() {}, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			closeFn()
			return nil, func() {}, fmt.Errorf("migration %s not applied - run 'sdtmcheck migrate up' first", s.ID)
		}
	}

	store, err := db.NewStore(database)
	if err != nil {
		closeFn()
		return nil, func() {}, fmt.Errorf("failed to load queries: %w", err)
	}
	return store, closeFn, nil
}

// commandContext returns cmd's context, or Background when cobra has none.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
