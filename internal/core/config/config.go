// Package config provides configuration management for sdtmcheck.
package config

import (
	"os"
	"strings"
	"time"
)

// DatabaseURLEnv names the only place a database URL may come from besides
// the --db-url flag.
const DatabaseURLEnv = "SDTM_DATABASE_URL"

// Config is the resolved configuration of one CLI invocation.
type Config struct {
	Validation ValidationConfig
	Project    ProjectConfig
	Rules      RulesConfig
	Report     ReportConfig
}

// ValidationConfig controls the rule engine.
type ValidationConfig struct {
	Workers           int
	OnParseError      string // "fail" or "report"
	RunTimeout        time.Duration
	MaxRulesPerDomain int
}

// ProjectConfig locates project state on disk.
type ProjectConfig struct {
	Root string
	Name string
}

// RulesConfig locates the shipped core rule file.
type RulesConfig struct {
	CorePath string
}

// ReportConfig controls run outputs besides the workbook.
type ReportConfig struct {
	MetricsFile string // Prometheus textfile, empty disables
	JSONL       bool
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Validation: ValidationConfig{
			Workers:           1,
			OnParseError:      "fail",
			RunTimeout:        5 * time.Minute,
			MaxRulesPerDomain: 20,
		},
		Project: ProjectConfig{
			Root: "./projects",
			Name: "default",
		},
		Rules: RulesConfig{
			CorePath: "rules/core_rules.json",
		},
	}
}

// DatabaseURL reads the database URL from the environment.
// Returns "" when unset; callers fall back to the --db-url flag.
func DatabaseURL() string {
	return strings.TrimSpace(os.Getenv(DatabaseURLEnv))
}
