package config

import (
	"os"
	"testing"
)

// TestAcceptanceCriteria verifies the configuration contract of the CLI.
func TestAcceptanceCriteria(t *testing.T) {
	t.Run("AC1: Environment variable SDTM_DATABASE_URL accessible via DatabaseURL", func(t *testing.T) {
		os.Setenv("SDTM_DATABASE_URL", "postgres://sdtm@localhost/sdtm?sslmode=disable")
		defer os.Unsetenv("SDTM_DATABASE_URL")

		if DatabaseURL() != "postgres://sdtm@localhost/sdtm?sslmode=disable" {
			t.Fatal("AC1 FAIL: URL not accessible")
		}

		// The environment variable must not trip the config-file check.
		if _, err := LoadConfig("", nil); err != nil {
			t.Fatalf("AC1 FAIL: LoadConfig error: %v", err)
		}
		t.Log("AC1 PASS: Environment variable accessible via DatabaseURL()")
	})

	t.Run("AC2: Config file with database url rejected with clear error", func(t *testing.T) {
		path := writeConfig(t, `database:
  url: "postgres://user:secret@db/sdtm"
validation:
  workers: 2
`)

		_, err := LoadConfig(path, nil)
		if err == nil {
			t.Fatal("AC2 FAIL: Expected error for database URL in config file")
		}
		if err.Error() != "database URL not allowed in config files (use SDTM_DATABASE_URL environment variable)" {
			t.Fatalf("AC2 FAIL: Wrong error message: %v", err)
		}
		t.Log("AC2 PASS: Config file with database url rejected with clear error")
	})

	t.Run("AC3: Environment variables override config file", func(t *testing.T) {
		os.Setenv("SDTM_VALIDATION_WORKERS", "6")
		defer os.Unsetenv("SDTM_VALIDATION_WORKERS")

		path := writeConfig(t, `validation:
  workers: 2
`)

		cfg, err := LoadConfig(path, nil)
		if err != nil {
			t.Fatalf("AC3 FAIL: LoadConfig error: %v", err)
		}
		// Environment variable (6) should override config file (2)
		if cfg.Validation.Workers != 6 {
			t.Fatalf("AC3 FAIL: Environment should override config file. Expected 6, got %d", cfg.Validation.Workers)
		}
		t.Log("AC3 PASS: Environment variables override config file (CLI flags > env > config in viper)")
	})
}
