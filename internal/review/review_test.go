package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/sdtmcheck/internal/types"
)

type memStore struct {
	data map[string]types.Annotation
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]types.Annotation)}
}

func (s *memStore) UpsertAnnotation(_ context.Context, a types.Annotation) error {
	if s.err != nil {
		return s.err
	}
	s.data[a.Project+"/"+a.ViolationKey] = a
	return nil
}

func (s *memStore) GetAnnotation(_ context.Context, project, key string) (types.Annotation, bool, error) {
	if s.err != nil {
		return types.Annotation{}, false, s.err
	}
	a, ok := s.data[project+"/"+key]
	return a, ok, nil
}

func (s *memStore) ListAnnotations(_ context.Context, project string) ([]types.Annotation, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []types.Annotation
	for _, a := range s.data {
		if a.Project == project {
			out = append(out, a)
		}
	}
	return out, nil
}

func violation(rule, domain string, row int) types.Violation {
	v := types.Violation{RuleID: rule, Domain: domain}
	if row > 0 {
		v.RowIndex = &row
	}
	return v
}

func TestViolationKey(t *testing.T) {
	assert.Equal(t, "DM001_DM_3", ViolationKey(violation("DM001", "DM", 3)))
	assert.Equal(t, "AE002_AE_None", ViolationKey(violation("AE002", "AE", 0)))
}

func TestAnnotate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := NewManager(store, "study1")
	fixed := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	a, err := m.Annotate(ctx, " DM001_DM_3 ", Update{
		Status:      "false_positive",
		Reviewer:    " jdoe ",
		Comment:     "screen failure",
		ActionTaken: "  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "DM001_DM_3", a.ViolationKey)
	assert.Equal(t, types.StatusFalsePositive, a.Status)
	assert.Equal(t, "jdoe", a.Reviewer)
	assert.Nil(t, a.ActionTaken)
	assert.Equal(t, fixed, a.UpdatedAt)

	got, err := m.Annotation(ctx, "DM001_DM_3")
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestAnnotateRejects(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newMemStore(), "study1")

	_, err := m.Annotate(ctx, "DM001_DM_3", Update{Status: "Closed"})
	assert.ErrorIs(t, err, types.ErrUnknownStatus)

	_, err = m.Annotate(ctx, "  ", Update{Status: types.StatusFixed})
	assert.Error(t, err)

	failing := newMemStore()
	failing.err = errors.New("disk full")
	_, err = NewManager(failing, "study1").Annotate(ctx, "DM001_DM_3", Update{Status: types.StatusFixed})
	assert.EqualError(t, err, "disk full")
}

func TestAnnotationDefaultsToNew(t *testing.T) {
	m := NewManager(newMemStore(), "study1")
	a, err := m.Annotation(context.Background(), "VS001_VS_1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusNew, a.Status)
	assert.Equal(t, "study1", a.Project)
}

func TestFilterAndSummary(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := NewManager(store, "study1")

	vs := []types.Violation{
		violation("DM001", "DM", 1),
		violation("DM001", "DM", 2),
		violation("DM002", "DM", 1),
		violation("AE001", "AE", 0),
	}
	_, err := m.Annotate(ctx, "DM001_DM_2", Update{Status: types.StatusFixed})
	require.NoError(t, err)
	_, err = m.Annotate(ctx, "AE001_AE_None", Update{Status: types.StatusAccepted})
	require.NoError(t, err)
	// Another project's annotation must not leak in.
	_, err = NewManager(store, "study2").Annotate(ctx, "DM002_DM_1", Update{Status: types.StatusFixed})
	require.NoError(t, err)

	newOnes, err := m.FilterByStatus(ctx, vs, types.StatusNew)
	require.NoError(t, err)
	assert.Equal(t, []types.Violation{vs[0], vs[2]}, newOnes)

	fixed, err := m.FilterByStatus(ctx, vs, types.StatusFixed)
	require.NoError(t, err)
	assert.Equal(t, []types.Violation{vs[1]}, fixed)

	summary, err := m.StatusSummary(ctx, vs)
	require.NoError(t, err)
	assert.Equal(t, []StatusCount{
		{types.StatusNew, 2},
		{types.StatusUnderReview, 0},
		{types.StatusAccepted, 1},
		{types.StatusFixed, 1},
		{types.StatusFalsePositive, 0},
	}, summary)
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want types.AnnotationStatus
	}{
		{"new", types.StatusNew},
		{"Under Review", types.StatusUnderReview},
		{"under-review", types.StatusUnderReview},
		{" ACCEPTED ", types.StatusAccepted},
		{"False_Positive", types.StatusFalsePositive},
	}
	for _, tt := range tests {
		got, err := types.ParseStatus(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := types.ParseStatus("")
	assert.ErrorIs(t, err, types.ErrUnknownStatus)
}
