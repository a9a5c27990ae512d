package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRule(t *testing.T) {
	m := New()

	m.ObserveRule("DM", "matched", 2*time.Millisecond)
	m.ObserveRule("DM", "matched", time.Millisecond)
	m.ObserveRule("AE", "domain_missing", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rulesTotal.WithLabelValues("DM", "matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rulesTotal.WithLabelValues("AE", "domain_missing")))

	// Only evaluated rules land in the histogram.
	assert.Equal(t, 1, testutil.CollectAndCount(m.ruleDuration))
}

func TestAddViolations(t *testing.T) {
	m := New()

	m.AddViolations("ERROR", 3)
	m.AddViolations("ERROR", 2)
	m.AddViolations("WARNING", 0)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.violationsTotal.WithLabelValues("ERROR")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.violationsTotal))
}

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun("success", 1500*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("success")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.runDuration))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveRule("DM", "clean", time.Millisecond)
	m.AddViolations("INFO", 1)

	path := filepath.Join(t.TempDir(), "sdtmcheck.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `sdtmcheck_rules_evaluated_total{domain="DM",outcome="clean"} 1`), text)
	assert.True(t, strings.Contains(text, `sdtmcheck_violations_total{severity="INFO"} 1`), text)
}
