package ruleset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/sdtmcheck/internal/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFile(t *testing.T) {
	rules, err := Load(filepath.Join(t.TempDir(), "none.json"), types.SourceCore)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestLoad_Normalizes(t *testing.T) {
	path := writeFile(t, "core.json", `[
		{"id": " DM002 ", "domain": "dm", "variable": " age", "condition": " AGE > 120 ",
		 "severity": "error", "message": " Age too high ", "extra": true},
		{"id": 7, "domain": "ae", "variable": "aeterm", "condition": "AETERM is missing",
		 "severity": "warning", "message": "m"}
	]`)

	rules, err := Load(path, types.SourceCore)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, types.Rule{
		ID:        "DM002",
		Domain:    "DM",
		Variable:  "AGE",
		Condition: "AGE > 120",
		Severity:  types.SeverityError,
		Message:   "Age too high",
		Source:    types.SourceCore,
	}, rules[0])
	assert.Equal(t, "7", rules[1].ID)
	assert.Equal(t, types.SeverityWarning, rules[1].Severity)
}

func TestLoad_MissingFields(t *testing.T) {
	path := writeFile(t, "bad.json", `[
		{"id": "A", "domain": "DM", "variable": "AGE", "condition": "AGE > 1", "severity": "ERROR", "message": "m"},
		{"id": "B", "variable": "AGE", "message": "m", "severity": "ERROR"}
	]`)

	_, err := Load(path, types.SourceCustom)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMissingRuleFields))

	var mf *MissingFieldsError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, 1, mf.Index)
	assert.Equal(t, []string{"condition", "domain"}, mf.Fields)
	assert.Contains(t, err.Error(), "rule at index 1 missing fields: [condition domain]")
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := writeFile(t, "bad.json", `{"id": "A"}`)
	_, err := Load(path, types.SourceCustom)
	assert.Error(t, err)
}

func TestSaveLoadAll(t *testing.T) {
	dir := t.TempDir()
	corePath := filepath.Join(dir, "core.json")
	customPath := filepath.Join(dir, "nested", "custom.json")

	require.NoError(t, Save(corePath, []types.Rule{
		{ID: "DM001", Domain: "DM", Variable: "USUBJID", Condition: "USUBJID is missing", Severity: "ERROR", Message: "m"},
	}))
	require.NoError(t, Save(customPath, []types.Rule{
		{ID: "AE900", Domain: "AE", Variable: "AESEV", Condition: "AESEV in {'SEVERE'}", Severity: "INFO", Message: "m", Source: types.SourceCustom},
	}))

	data, err := os.ReadFile(customPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "source")

	rules, order, err := LoadAll(corePath, customPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"DM001", "AE900"}, order)
	require.Len(t, rules, 2)
	assert.Equal(t, types.SourceCore, rules[0].Source)
	assert.Equal(t, types.SourceCustom, rules[1].Source)
}

func TestCheck(t *testing.T) {
	rs := []types.Rule{
		{ID: "DM001", Domain: "DM", Variable: "AGE", Condition: "AGE > 120", Severity: "ERROR", Message: "m"},
		{ID: "DM001", Domain: "DM", Variable: "AGE", Condition: "AGE < 0", Severity: "ERROR", Message: "m"},
		{ID: "DM003", Domain: "DM", Variable: "", Condition: "", Severity: "ERROR", Message: "m"},
		{ID: "DM004", Domain: "dm", Variable: "AGE", Condition: "AGE >> 5", Severity: "ERROR", Message: "m"},
		{ID: "DM005", Domain: "DM", Variable: "AGE", Condition: "AGE is missing", Severity: "ERROR", Message: "m"},
	}

	issues := Check(rs, 3)
	var messages []string
	for _, i := range issues {
		messages = append(messages, i.String())
	}
	assert.Equal(t, []string{
		"Duplicate ID: DM001",
		"Rule 3: Missing variable, condition",
		"Rule DM004: unsupported condition: AGE >> 5",
		"Domain DM exceeds 3 rules limit",
	}, messages)
	assert.Equal(t, 5, issues[3].Index)
}

func TestCheck_Clean(t *testing.T) {
	assert.Empty(t, Check(templateRules(), types.MaxRulesPerDomain))
}

// templateRules converts the full catalogue; templates must always pass Check.
func templateRules() []types.Rule {
	var rs []types.Rule
	for _, tpl := range Templates() {
		rs = append(rs, tpl.Rule())
	}
	return rs
}

func TestNextRuleID(t *testing.T) {
	existing := []types.Rule{{ID: "DM001"}, {ID: "dm007"}, {ID: "DM00X"}, {ID: "AE010"}}

	assert.Equal(t, "DM008", NextRuleID("dm", existing))
	assert.Equal(t, "AE011", NextRuleID(" ae ", existing))
	assert.Equal(t, "LB001", NextRuleID("LB", existing))
	assert.Equal(t, "", NextRuleID("  ", existing))
	assert.Equal(t, "DM1000", NextRuleID("DM", []types.Rule{{ID: "DM999"}}))
}

func TestUniqueID(t *testing.T) {
	existing := []types.Rule{{ID: "DM001"}, {ID: "DM001_1"}}
	assert.Equal(t, "DM002", UniqueID("DM002", existing))
	assert.Equal(t, "DM001_2", UniqueID("DM001", existing))
}

func TestAdd(t *testing.T) {
	existing := []types.Rule{{ID: "DM001", Domain: "DM"}}

	out, added, err := Add(existing, types.Rule{Domain: "dm", Variable: "sex", Condition: "SEX is missing", Severity: "error", Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, "DM002", added.ID)
	assert.Equal(t, "SEX", added.Variable)
	assert.Equal(t, types.SeverityError, added.Severity)
	assert.Equal(t, types.SourceCustom, added.Source)
	assert.Len(t, out, 2)

	_, added, err = Add(out, types.Rule{ID: "DM001", Domain: "DM"})
	require.NoError(t, err)
	assert.Equal(t, "DM001_1", added.ID)

	_, _, err = Add(out, types.Rule{})
	assert.True(t, errors.Is(err, types.ErrMissingRuleFields))
}

func TestImportCSV(t *testing.T) {
	input := "message,id,domain,variable,condition,severity,notes\n" +
		"Age too high,DM002,dm,age,AGE > 120,error,x\n" +
		"\"Sex, coded\",DM005,DM,SEX,\"SEX not in {'M','F','U'}\",ERROR\n"

	rules, err := ImportCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "DM002", rules[0].ID)
	assert.Equal(t, "DM", rules[0].Domain)
	assert.Equal(t, "AGE", rules[0].Variable)
	assert.Equal(t, types.SeverityError, rules[0].Severity)
	assert.Equal(t, "SEX not in {'M','F','U'}", rules[1].Condition)
	assert.Equal(t, "Sex, coded", rules[1].Message)
	assert.Equal(t, types.SourceCustom, rules[1].Source)
}

func TestImportCSV_MissingColumns(t *testing.T) {
	_, err := ImportCSV(strings.NewReader("id,domain\nDM001,DM\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMissingRuleFields))
	assert.Contains(t, err.Error(), "variable, condition, severity, message")

	_, err = ImportCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, types.ErrMissingRuleFields))
}

func TestTemplates(t *testing.T) {
	all := Templates()
	assert.Len(t, all, 28)

	assert.Equal(t, []string{
		"Demographics (DM)",
		"Adverse Events (AE)",
		"Laboratory (LB)",
		"Vital Signs (VS)",
		"Exposure (EX)",
		"Concomitant Medications (CM)",
		"Medical History (MH)",
		"Disposition (DS)",
	}, Categories())

	assert.Len(t, TemplatesByCategory("Demographics (DM)"), 7)
	assert.Empty(t, TemplatesByCategory("Unknown"))
	assert.Len(t, TemplatesByDomain("vs"), 4)
	assert.Len(t, TemplatesByTag("SAFETY"), 6)

	tpl, ok := TemplateByID("dm002")
	require.True(t, ok)
	assert.Equal(t, "AGE > 120", tpl.Condition)
	assert.Equal(t, types.SourceCustom, tpl.Rule().Source)

	// Callers get a copy.
	all[0].ID = "changed"
	assert.Equal(t, "DM001", Templates()[0].ID)
}

func TestShippedCoreRules(t *testing.T) {
	rs, err := Load(filepath.Join("..", "..", "rules", "core_rules.json"), types.SourceCore)
	require.NoError(t, err)
	require.NotEmpty(t, rs)
	assert.Empty(t, Check(rs, types.MaxRulesPerDomain))
	for _, r := range rs {
		assert.Equal(t, types.SourceCore, r.Source, r.ID)
	}
}
