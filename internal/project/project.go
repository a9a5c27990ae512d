// Package project lays out per-project state on disk: custom rules and
// one timestamped directory per validation run.
//
//	<root>/<name>/custom_rules.json
//	<root>/<name>/runs/20060102_150405/
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/solatis/sdtmcheck/internal/ruleset"
	"github.com/solatis/sdtmcheck/internal/types"
)

const (
	DefaultName     = "default"
	CustomRulesFile = "custom_rules.json"
	RunsDir         = "runs"
	RunDirLayout    = "20060102_150405"
)

// SanitizeName keeps letters, digits, '-' and '_'. An empty result
// becomes DefaultName.
func SanitizeName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return -1
	}, strings.TrimSpace(name))
	if cleaned == "" {
		return DefaultName
	}
	return cleaned
}

// Project is one named project under a root directory.
type Project struct {
	root string
	name string
}

// New returns the project name (sanitized) under root. Nothing is created.
func New(root, name string) *Project {
	return &Project{root: root, name: SanitizeName(name)}
}

// Name returns the sanitized project name.
func (p *Project) Name() string { return p.name }

// Dir returns the project directory.
func (p *Project) Dir() string { return filepath.Join(p.root, p.name) }

// CustomRulesPath returns the custom rule file path.
func (p *Project) CustomRulesPath() string {
	return filepath.Join(p.Dir(), CustomRulesFile)
}

// LoadCustomRules reads the project's custom rules; none if the file is absent.
func (p *Project) LoadCustomRules() ([]types.Rule, error) {
	return ruleset.Load(p.CustomRulesPath(), types.SourceCustom)
}

// SaveCustomRules replaces the project's custom rules.
func (p *Project) SaveCustomRules(rules []types.Rule) error {
	return ruleset.Save(p.CustomRulesPath(), rules)
}

// NewRunDir creates runs/<timestamp> for a run started at now.
func (p *Project) NewRunDir(now time.Time) (string, error) {
	dir := filepath.Join(p.Dir(), RunsDir, now.Format(RunDirLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}
	return dir, nil
}

// Runs lists run directory names, oldest first.
func (p *Project) Runs() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(p.Dir(), RunsDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	var runs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(RunDirLayout, e.Name()); err == nil {
			runs = append(runs, e.Name())
		}
	}
	return runs, nil
}
