package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/sdtmcheck/internal/types"
)

// DefaultHistoryLimit bounds ListRuns when the caller passes no limit.
const DefaultHistoryLimit = 20

// sqliteTimeLayout is fixed-width so TEXT timestamps sort chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z"

// RunRecord summarises one persisted validation run.
type RunRecord struct {
	RunID          types.RunID
	Project        string
	StartedAt      time.Time
	Duration       time.Duration
	RuleCount      int
	TableCount     int
	ViolationCount int
	ReportPath     string
}

// Store persists validation runs and violation annotations.
type Store struct {
	db *sqlx.DB
	q  *Queries
}

// NewStore loads the named queries for db.
func NewStore(db *sqlx.DB) (*Store, error) {
	q, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, q: q}, nil
}

// SaveRun records run and its violations atomically. Violations keep their
// slice order.
func (s *Store) SaveRun(ctx context.Context, run RunRecord, violations []types.Violation) error {
	if run.RunID == "" {
		return fmt.Errorf("save run: empty run id")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = s.q.ExecTx(ctx, tx, "insert-run",
		string(run.RunID), run.Project, s.timeArg(run.StartedAt), run.Duration.Milliseconds(),
		run.RuleCount, run.TableCount, len(violations), run.ReportPath)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}

	for i, v := range violations {
		_, err := s.q.ExecTx(ctx, tx, "insert-violation",
			string(run.RunID), i, v.RuleID, string(v.Source), v.Domain, v.Variable,
			string(v.Severity), v.Message, v.Condition,
			nullInt(v.RowIndex), nullString(v.RecordKey), nullString(v.Value))
		if err != nil {
			return fmt.Errorf("insert violation %d of run %s: %w", i, run.RunID, err)
		}
	}

	return tx.Commit()
}

type runRow struct {
	RunID          string `db:"run_id"`
	Project        string `db:"project"`
	StartedAt      dbTime `db:"started_at"`
	DurationMs     int64  `db:"duration_ms"`
	RuleCount      int    `db:"rule_count"`
	TableCount     int    `db:"table_count"`
	ViolationCount int    `db:"violation_count"`
	ReportPath     string `db:"report_path"`
}

func (r runRow) record() RunRecord {
	return RunRecord{
		RunID:          types.RunID(r.RunID),
		Project:        r.Project,
		StartedAt:      r.StartedAt.Time,
		Duration:       time.Duration(r.DurationMs) * time.Millisecond,
		RuleCount:      r.RuleCount,
		TableCount:     r.TableCount,
		ViolationCount: r.ViolationCount,
		ReportPath:     r.ReportPath,
	}
}

// ListRuns returns the most recent runs of project, newest first.
func (s *Store) ListRuns(ctx context.Context, project string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var rows []runRow
	if err := s.q.Select(ctx, "list-runs", &rows, project, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs := make([]RunRecord, len(rows))
	for i, r := range rows {
		runs[i] = r.record()
	}
	return runs, nil
}

// GetRun returns one run or types.ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, id types.RunID) (*RunRecord, error) {
	var row runRow
	err := s.q.Get(ctx, "get-run", &row, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	rec := row.record()
	return &rec, nil
}

type violationRow struct {
	RuleID    string         `db:"rule_id"`
	Source    string         `db:"source"`
	Domain    string         `db:"domain"`
	Variable  string         `db:"variable"`
	Severity  string         `db:"severity"`
	Message   string         `db:"message"`
	Condition string         `db:"rule_condition"`
	RowIndex  sql.NullInt64  `db:"row_index"`
	RecordKey sql.NullString `db:"record_key"`
	Value     sql.NullString `db:"observed_value"`
}

// RunViolations returns the violations of a run in saved order.
func (s *Store) RunViolations(ctx context.Context, id types.RunID) ([]types.Violation, error) {
	var rows []violationRow
	if err := s.q.Select(ctx, "list-run-violations", &rows, string(id)); err != nil {
		return nil, fmt.Errorf("list violations of run %s: %w", id, err)
	}
	out := make([]types.Violation, len(rows))
	for i, r := range rows {
		v := types.Violation{
			RuleID:    r.RuleID,
			Source:    types.Source(r.Source),
			Domain:    r.Domain,
			Variable:  r.Variable,
			Severity:  types.Severity(r.Severity),
			Message:   r.Message,
			Condition: r.Condition,
		}
		if r.RowIndex.Valid {
			n := int(r.RowIndex.Int64)
			v.RowIndex = &n
		}
		if r.RecordKey.Valid {
			v.RecordKey = &r.RecordKey.String
		}
		if r.Value.Valid {
			v.Value = &r.Value.String
		}
		out[i] = v
	}
	return out, nil
}

type annotationRow struct {
	Project      string         `db:"project"`
	ViolationKey string         `db:"violation_key"`
	Status       string         `db:"status"`
	Reviewer     string         `db:"reviewer"`
	Comment      string         `db:"comment"`
	ActionTaken  sql.NullString `db:"action_taken"`
	UpdatedAt    dbTime         `db:"updated_at"`
}

func (r annotationRow) annotation() types.Annotation {
	a := types.Annotation{
		Project:      r.Project,
		ViolationKey: r.ViolationKey,
		Status:       types.AnnotationStatus(r.Status),
		Reviewer:     r.Reviewer,
		Comment:      r.Comment,
		UpdatedAt:    r.UpdatedAt.Time,
	}
	if r.ActionTaken.Valid {
		a.ActionTaken = &r.ActionTaken.String
	}
	return a
}

// UpsertAnnotation creates or replaces the annotation for (project, key).
// A zero UpdatedAt is stamped with the current time.
func (s *Store) UpsertAnnotation(ctx context.Context, a types.Annotation) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now()
	}
	_, err := s.q.Exec(ctx, "upsert-annotation",
		a.Project, a.ViolationKey, string(a.Status), a.Reviewer, a.Comment,
		nullString(a.ActionTaken), s.timeArg(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert annotation %s: %w", a.ViolationKey, err)
	}
	return nil
}

// GetAnnotation returns the annotation for key, reporting false when none exists.
func (s *Store) GetAnnotation(ctx context.Context, project, key string) (types.Annotation, bool, error) {
	var row annotationRow
	err := s.q.Get(ctx, "get-annotation", &row, project, key)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Annotation{}, false, nil
	}
	if err != nil {
		return types.Annotation{}, false, fmt.Errorf("get annotation %s: %w", key, err)
	}
	return row.annotation(), true, nil
}

// ListAnnotations returns every annotation of project ordered by key.
func (s *Store) ListAnnotations(ctx context.Context, project string) ([]types.Annotation, error) {
	var rows []annotationRow
	if err := s.q.Select(ctx, "list-annotations", &rows, project); err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	out := make([]types.Annotation, len(rows))
	for i, r := range rows {
		out[i] = r.annotation()
	}
	return out, nil
}

// timeArg encodes t for the driver: fixed-width UTC text for sqlite,
// TIMESTAMP for postgres.
func (s *Store) timeArg(t time.Time) any {
	t = t.UTC()
	if s.db.DriverName() == "sqlite3" {
		return t.Format(sqliteTimeLayout)
	}
	return t
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// dbTime scans timestamps stored either as TIMESTAMP or as RFC3339 text.
type dbTime struct {
	time.Time
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (t *dbTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}
