package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/sdtmcheck/internal/types"
)

func openTestDB(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sdtm.db")
	db, err := Open("sqlite://" + path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, MigrateUp(db))

	store, err := NewStore(db)
	require.NoError(t, err)
	return store
}

func ptr[T any](v T) *T { return &v }

func TestOpen(t *testing.T) {
	_, err := Open("mysql://localhost/db")
	assert.ErrorContains(t, err, "unsupported database scheme")

	_, err = Open("sqlite://")
	assert.Error(t, err)
}

func TestOpenSQLiteOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdtm.db")
	for _, url := range []string{"sqlite://" + path, "sqlite://" + path + "?_busy_timeout=1234"} {
		db, err := Open(url)
		require.NoError(t, err, url)

		var fk int
		require.NoError(t, db.Get(&fk, "PRAGMA foreign_keys"), url)
		assert.Equal(t, 1, fk, url)

		var timeout int
		require.NoError(t, db.Get(&timeout, "PRAGMA busy_timeout"), url)
		if url != "sqlite://"+path {
			assert.Equal(t, 1234, timeout)
		}
		require.NoError(t, db.Close())
	}
}

func TestMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdtm.db")
	db, err := Open("sqlite://" + path)
	require.NoError(t, err)
	defer db.Close()

	before, err := MigrateStatus(db)
	require.NoError(t, err)
	require.NotEmpty(t, before)
	for _, s := range before {
		assert.False(t, s.Applied, s.ID)
	}

	require.NoError(t, MigrateUp(db))
	// Second run is a no-op.
	require.NoError(t, MigrateUp(db))

	after, err := MigrateStatus(db)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for _, s := range after {
		assert.True(t, s.Applied, s.ID)
		require.NotNil(t, s.AppliedAt)
		assert.False(t, s.AppliedAt.IsZero())
		assert.Len(t, s.Checksum, 64)
	}
}

func TestMigrateUpRejectsEditedMigration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdtm.db")
	db, err := Open("sqlite://" + path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, MigrateUp(db))
	_, err = db.Exec("UPDATE migrations SET checksum = 'edited'")
	require.NoError(t, err)

	err = MigrateUp(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestStripComments(t *testing.T) {
	got := stripComments("-- header\nCREATE TABLE a (x INT);\n  -- note\nCREATE TABLE b (y INT);")
	assert.Equal(t, "CREATE TABLE a (x INT);\nCREATE TABLE b (y INT);", got)
}

func TestSaveRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	runID := types.NewRunID()
	started := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	violations := []types.Violation{
		{
			RuleID: "DM001", Source: types.SourceCore, Domain: "DM", Variable: "AGE",
			Severity: types.SeverityError, Message: "Age must be positive", Condition: "AGE < 0",
			RowIndex: ptr(3), RecordKey: ptr("S-003"), Value: ptr("-4"),
		},
		{
			RuleID: "AE001", Source: types.SourceCustom, Domain: "AE", Variable: "AETERM",
			Severity: types.SeverityWarning, Message: "Domain AE not found", Condition: "AETERM is missing",
		},
	}

	err := store.SaveRun(ctx, RunRecord{
		RunID:      runID,
		Project:    "study1",
		StartedAt:  started,
		Duration:   1500 * time.Millisecond,
		RuleCount:  2,
		TableCount: 1,
		ReportPath: "runs/20260314_093000/report.xlsx",
	}, violations)
	require.NoError(t, err)

	run, err := store.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, "study1", run.Project)
	assert.True(t, run.StartedAt.Equal(started))
	assert.Equal(t, 1500*time.Millisecond, run.Duration)
	assert.Equal(t, 2, run.ViolationCount)
	assert.Equal(t, "runs/20260314_093000/report.xlsx", run.ReportPath)

	got, err := store.RunViolations(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, violations, got)
}

func TestSaveRunEmptyID(t *testing.T) {
	store := openTestDB(t)
	err := store.SaveRun(context.Background(), RunRecord{Project: "p"}, nil)
	assert.Error(t, err)
}

func TestGetRunNotFound(t *testing.T) {
	store := openTestDB(t)
	_, err := store.GetRun(context.Background(), types.NewRunID())
	assert.ErrorIs(t, err, types.ErrRunNotFound)
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []types.RunID
	for i := 0; i < 3; i++ {
		id := types.NewRunID()
		ids = append(ids, id)
		require.NoError(t, store.SaveRun(ctx, RunRecord{
			RunID:     id,
			Project:   "study1",
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}, nil))
	}
	require.NoError(t, store.SaveRun(ctx, RunRecord{
		RunID: types.NewRunID(), Project: "other", StartedAt: base,
	}, nil))

	runs, err := store.ListRuns(ctx, "study1", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].RunID)
	assert.Equal(t, ids[0], runs[2].RunID)

	limited, err := store.ListRuns(ctx, "study1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := store.ListRuns(ctx, "missing", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAnnotations(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	_, found, err := store.GetAnnotation(ctx, "study1", "DM001_DM_3")
	require.NoError(t, err)
	assert.False(t, found)

	first := types.Annotation{
		Project:      "study1",
		ViolationKey: "DM001_DM_3",
		Status:       types.StatusUnderReview,
		Reviewer:     "jdoe",
		Comment:      "checking source data",
		UpdatedAt:    time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.UpsertAnnotation(ctx, first))

	got, found, err := store.GetAnnotation(ctx, "study1", "DM001_DM_3")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first, got)

	second := first
	second.Status = types.StatusFixed
	second.ActionTaken = ptr("corrected in EDC")
	second.UpdatedAt = time.Time{}
	require.NoError(t, store.UpsertAnnotation(ctx, second))

	got, found, err = store.GetAnnotation(ctx, "study1", "DM001_DM_3")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, types.StatusFixed, got.Status)
	require.NotNil(t, got.ActionTaken)
	assert.Equal(t, "corrected in EDC", *got.ActionTaken)
	assert.True(t, got.UpdatedAt.After(first.UpdatedAt))

	require.NoError(t, store.UpsertAnnotation(ctx, types.Annotation{
		Project: "study1", ViolationKey: "AE001_AE_None", Status: types.StatusAccepted,
	}))
	require.NoError(t, store.UpsertAnnotation(ctx, types.Annotation{
		Project: "study2", ViolationKey: "DM001_DM_3", Status: types.StatusNew,
	}))

	list, err := store.ListAnnotations(ctx, "study1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "AE001_AE_None", list[0].ViolationKey)
	assert.Equal(t, "DM001_DM_3", list[1].ViolationKey)
}

func TestDBTimeScan(t *testing.T) {
	var ts dbTime
	require.NoError(t, ts.Scan("2026-03-14T09:30:00Z"))
	assert.Equal(t, time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC), ts.Time)

	require.NoError(t, ts.Scan([]byte("2026-03-14T09:30:00.250000Z")))
	assert.Equal(t, 250*time.Millisecond, time.Duration(ts.Nanosecond()))

	require.NoError(t, ts.Scan(nil))
	assert.True(t, ts.IsZero())

	assert.Error(t, ts.Scan(42))
	assert.Error(t, ts.Scan("yesterday"))
}
