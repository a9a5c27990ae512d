// Package review tracks reviewer annotations on validation findings.
//
// Violations are not persisted with stable IDs across runs, so annotations
// are keyed by ViolationKey: rule, domain and row. A finding that reappears
// in a later run with the same key carries its earlier review state.
package review

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/solatis/sdtmcheck/internal/types"
)

// AnnotationStore persists annotations per project.
type AnnotationStore interface {
	UpsertAnnotation(ctx context.Context, a types.Annotation) error
	GetAnnotation(ctx context.Context, project, key string) (types.Annotation, bool, error)
	ListAnnotations(ctx context.Context, project string) ([]types.Annotation, error)
}

// ViolationKey identifies v across runs as <rule>_<domain>_<row>, with
// "None" for violations not tied to a row.
func ViolationKey(v types.Violation) string {
	row := "None"
	if v.RowIndex != nil {
		row = strconv.Itoa(*v.RowIndex)
	}
	return v.RuleID + "_" + v.Domain + "_" + row
}

// Manager applies the review workflow for one project.
type Manager struct {
	store   AnnotationStore
	project string
	now     func() time.Time
}

// NewManager binds store to project.
func NewManager(store AnnotationStore, project string) *Manager {
	return &Manager{store: store, project: project, now: time.Now}
}

// Update describes one reviewer action.
type Update struct {
	Status      types.AnnotationStatus
	Reviewer    string
	Comment     string
	ActionTaken string
}

// Annotate records u against the violation identified by key. The status
// must be one of types.AnnotationStatuses.
func (m *Manager) Annotate(ctx context.Context, key string, u Update) (types.Annotation, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return types.Annotation{}, fmt.Errorf("annotate: empty violation key")
	}
	status, err := types.ParseStatus(string(u.Status))
	if err != nil {
		return types.Annotation{}, err
	}

	a := types.Annotation{
		Project:      m.project,
		ViolationKey: key,
		Status:       status,
		Reviewer:     strings.TrimSpace(u.Reviewer),
		Comment:      strings.TrimSpace(u.Comment),
		UpdatedAt:    m.now().UTC(),
	}
	if action := strings.TrimSpace(u.ActionTaken); action != "" {
		a.ActionTaken = &action
	}

	if err := m.store.UpsertAnnotation(ctx, a); err != nil {
		return types.Annotation{}, err
	}
	return a, nil
}

// Annotation returns the annotation for key, or a New placeholder when the
// violation has not been reviewed.
func (m *Manager) Annotation(ctx context.Context, key string) (types.Annotation, error) {
	a, found, err := m.store.GetAnnotation(ctx, m.project, key)
	if err != nil {
		return types.Annotation{}, err
	}
	if !found {
		return types.Annotation{Project: m.project, ViolationKey: key, Status: types.StatusNew}, nil
	}
	return a, nil
}

// statuses loads the review state of every annotated key.
func (m *Manager) statuses(ctx context.Context) (map[string]types.AnnotationStatus, error) {
	list, err := m.store.ListAnnotations(ctx, m.project)
	if err != nil {
		return nil, err
	}
	out := make(map[string]types.AnnotationStatus, len(list))
	for _, a := range list {
		out[a.ViolationKey] = a.Status
	}
	return out, nil
}

// FilterByStatus keeps the violations whose review state is status.
// Unannotated violations count as New. Order is preserved.
func (m *Manager) FilterByStatus(ctx context.Context, violations []types.Violation, status types.AnnotationStatus) ([]types.Violation, error) {
	st, err := m.statuses(ctx)
	if err != nil {
		return nil, err
	}
	var out []types.Violation
	for _, v := range violations {
		if statusOf(st, v) == status {
			out = append(out, v)
		}
	}
	return out, nil
}

// StatusCount is one row of a review summary.
type StatusCount struct {
	Status types.AnnotationStatus
	Count  int
}

// StatusSummary counts violations per review state, listing every state in
// workflow order, including those with zero violations.
func (m *Manager) StatusSummary(ctx context.Context, violations []types.Violation) ([]StatusCount, error) {
	st, err := m.statuses(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[types.AnnotationStatus]int)
	for _, v := range violations {
		counts[statusOf(st, v)]++
	}

	out := make([]StatusCount, 0, len(types.AnnotationStatuses))
	for _, s := range types.AnnotationStatuses {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
		delete(counts, s)
	}

	// Statuses written by other tools; kept so totals still add up.
	var extra []types.AnnotationStatus
	for s := range counts {
		extra = append(extra, s)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, s := range extra {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
	}
	return out, nil
}

func statusOf(st map[string]types.AnnotationStatus, v types.Violation) types.AnnotationStatus {
	if s, ok := st[ViolationKey(v)]; ok {
		return s
	}
	return types.StatusNew
}
