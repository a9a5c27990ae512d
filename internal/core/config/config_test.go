package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	tmpfile.Close()
	return tmpfile.Name()
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("", nil)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Validation.Workers != 1 {
			t.Errorf("expected workers 1, got %d", cfg.Validation.Workers)
		}
		if cfg.Validation.OnParseError != "fail" {
			t.Errorf("expected on_parse_error fail, got %s", cfg.Validation.OnParseError)
		}
		if cfg.Validation.RunTimeout != 5*time.Minute {
			t.Errorf("expected timeout 5m, got %v", cfg.Validation.RunTimeout)
		}
		if cfg.Validation.MaxRulesPerDomain != 20 {
			t.Errorf("expected max_rules_per_domain 20, got %d", cfg.Validation.MaxRulesPerDomain)
		}
		if cfg.Project.Root != "./projects" || cfg.Project.Name != "default" {
			t.Errorf("unexpected project config %+v", cfg.Project)
		}
		if cfg.Rules.CorePath != "rules/core_rules.json" {
			t.Errorf("expected core path rules/core_rules.json, got %s", cfg.Rules.CorePath)
		}
		if cfg.Report.MetricsFile != "" || cfg.Report.JSONL {
			t.Errorf("unexpected report config %+v", cfg.Report)
		}
	})

	t.Run("config file", func(t *testing.T) {
		path := writeConfig(t, `validation:
  workers: 4
  on_parse_error: Report
  run_timeout: 30s
project:
  name: study1
`)
		cfg, err := LoadConfig(path, nil)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Validation.Workers != 4 {
			t.Errorf("expected workers 4, got %d", cfg.Validation.Workers)
		}
		if cfg.Validation.OnParseError != "report" {
			t.Errorf("expected on_parse_error report, got %s", cfg.Validation.OnParseError)
		}
		if cfg.Validation.RunTimeout != 30*time.Second {
			t.Errorf("expected timeout 30s, got %v", cfg.Validation.RunTimeout)
		}
		if cfg.Project.Name != "study1" {
			t.Errorf("expected project study1, got %s", cfg.Project.Name)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		os.Setenv("SDTM_VALIDATION_WORKERS", "8")
		os.Setenv("SDTM_PROJECT_ROOT", "/srv/projects")
		defer os.Unsetenv("SDTM_VALIDATION_WORKERS")
		defer os.Unsetenv("SDTM_PROJECT_ROOT")

		cfg, err := LoadConfig("", nil)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Validation.Workers != 8 {
			t.Errorf("expected workers 8, got %d", cfg.Validation.Workers)
		}
		if cfg.Project.Root != "/srv/projects" {
			t.Errorf("expected root /srv/projects, got %s", cfg.Project.Root)
		}
	})

	t.Run("flag override", func(t *testing.T) {
		os.Setenv("SDTM_VALIDATION_WORKERS", "8")
		defer os.Unsetenv("SDTM_VALIDATION_WORKERS")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Int("workers", 1, "")
		flags.String("project", "default", "")
		if err := flags.Parse([]string{"--workers", "3"}); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadConfig("", flags)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Validation.Workers != 3 {
			t.Errorf("expected workers 3 from flag, got %d", cfg.Validation.Workers)
		}
		// Unchanged flag does not shadow the default.
		if cfg.Project.Name != "default" {
			t.Errorf("expected project default, got %s", cfg.Project.Name)
		}
	})

	t.Run("invalid workers", func(t *testing.T) {
		os.Setenv("SDTM_VALIDATION_WORKERS", "0")
		defer os.Unsetenv("SDTM_VALIDATION_WORKERS")

		_, err := LoadConfig("", nil)
		if err == nil {
			t.Error("expected error for zero workers")
		}
	})

	t.Run("invalid parse error policy", func(t *testing.T) {
		os.Setenv("SDTM_VALIDATION_ON_PARSE_ERROR", "ignore")
		defer os.Unsetenv("SDTM_VALIDATION_ON_PARSE_ERROR")

		_, err := LoadConfig("", nil)
		if err == nil {
			t.Error("expected error for unknown policy")
		}
	})

	t.Run("invalid timeout", func(t *testing.T) {
		os.Setenv("SDTM_VALIDATION_RUN_TIMEOUT", "-1s")
		defer os.Unsetenv("SDTM_VALIDATION_RUN_TIMEOUT")

		_, err := LoadConfig("", nil)
		if err == nil {
			t.Error("expected error for negative timeout")
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := LoadConfig("/nonexistent/sdtmcheck.yaml", nil)
		if err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

func TestDatabaseURL(t *testing.T) {
	os.Unsetenv(DatabaseURLEnv)
	if got := DatabaseURL(); got != "" {
		t.Errorf("expected empty URL, got %q", got)
	}

	os.Setenv(DatabaseURLEnv, " sqlite:///tmp/sdtm.db ")
	defer os.Unsetenv(DatabaseURLEnv)
	if got := DatabaseURL(); got != "sqlite:///tmp/sdtm.db" {
		t.Errorf("expected trimmed URL, got %q", got)
	}
}
