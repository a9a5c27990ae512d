package project

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/sdtmcheck/internal/types"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"study-01", "study-01"},
		{"  my study/../x ", "mystudyx"},
		{"ABC_def", "ABC_def"},
		{"../..", "default"},
		{"", "default"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), tt.in)
	}
}

func TestCustomRulesRoundTrip(t *testing.T) {
	p := New(t.TempDir(), "study 1")
	assert.Equal(t, "study1", p.Name())

	rules, err := p.LoadCustomRules()
	require.NoError(t, err)
	assert.Empty(t, rules)

	require.NoError(t, p.SaveCustomRules([]types.Rule{
		{ID: "DM100", Domain: "DM", Variable: "AGE", Condition: "AGE < 0", Severity: "ERROR", Message: "negative"},
	}))
	assert.FileExists(t, filepath.Join(p.Dir(), CustomRulesFile))

	rules, err = p.LoadCustomRules()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, types.SourceCustom, rules[0].Source)
}

func TestRunDirs(t *testing.T) {
	p := New(t.TempDir(), "s")

	runs, err := p.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)

	first := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	dir, err := p.NewRunDir(first)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.Dir(), RunsDir, "20260304_050607"), dir)
	assert.DirExists(t, dir)

	_, err = p.NewRunDir(first.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(p.Dir(), RunsDir, "scratch"), 0o755))

	runs, err = p.Runs()
	require.NoError(t, err)
	assert.Equal(t, []string{"20260304_050607", "20260304_060607"}, runs)
}
