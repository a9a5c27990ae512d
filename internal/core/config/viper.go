package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"workers":        "validation.workers",
	"on-parse-error": "validation.on_parse_error",
	"timeout":        "validation.run_timeout",
	"project":        "project.name",
	"project-root":   "project.root",
	"core-rules":     "rules.core_path",
	"metrics-file":   "report.metrics_file",
	"jsonl":          "report.jsonl",
}

// LoadConfig loads configuration using viper.
// CLI flags > environment > config file > defaults precedence.
// flags may be nil; only flags named in flagKeys and present in the set are bound.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set defaults matching Default
	d := Default()
	v.SetDefault("validation.workers", d.Validation.Workers)
	v.SetDefault("validation.on_parse_error", d.Validation.OnParseError)
	v.SetDefault("validation.run_timeout", d.Validation.RunTimeout.String())
	v.SetDefault("validation.max_rules_per_domain", d.Validation.MaxRulesPerDomain)
	v.SetDefault("project.root", d.Project.Root)
	v.SetDefault("project.name", d.Project.Name)
	v.SetDefault("rules.core_path", d.Rules.CorePath)
	v.SetDefault("report.metrics_file", d.Report.MetricsFile)
	v.SetDefault("report.jsonl", d.Report.JSONL)

	// Bind environment variables with SDTM_ prefix
	v.SetEnvPrefix("SDTM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Security check: reject credentials in config files
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Validation: ValidationConfig{
			Workers:           v.GetInt("validation.workers"),
			OnParseError:      strings.ToLower(strings.TrimSpace(v.GetString("validation.on_parse_error"))),
			RunTimeout:        v.GetDuration("validation.run_timeout"),
			MaxRulesPerDomain: v.GetInt("validation.max_rules_per_domain"),
		},
		Project: ProjectConfig{
			Root: v.GetString("project.root"),
			Name: v.GetString("project.name"),
		},
		Rules: RulesConfig{
			CorePath: v.GetString("rules.core_path"),
		},
		Report: ReportConfig{
			MetricsFile: v.GetString("report.metrics_file"),
			JSONL:       v.GetBool("report.jsonl"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks worker count, parse error policy, timeout and limits.
func validateConfig(cfg *Config) error {
	if cfg.Validation.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", cfg.Validation.Workers)
	}
	switch cfg.Validation.OnParseError {
	case "fail", "report":
	default:
		return fmt.Errorf("on_parse_error must be fail or report, got %q", cfg.Validation.OnParseError)
	}
	if cfg.Validation.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be positive, got %v", cfg.Validation.RunTimeout)
	}
	if cfg.Validation.MaxRulesPerDomain < 0 {
		return fmt.Errorf("max_rules_per_domain must not be negative, got %d", cfg.Validation.MaxRulesPerDomain)
	}
	if cfg.Project.Root == "" {
		return fmt.Errorf("project root must not be empty")
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only credentials (12-factor principle).
// InConfig looks at the file only, so SDTM_DATABASE_URL in the environment is fine.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("database.url") || v.InConfig("database_url") {
		return fmt.Errorf("database URL not allowed in config files (use %s environment variable)", DatabaseURLEnv)
	}
	return nil
}
