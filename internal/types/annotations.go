package types

import (
	"fmt"
	"strings"
	"time"
)

// AnnotationStatus is the review state of one violation.
type AnnotationStatus string

const (
	StatusNew           AnnotationStatus = "New"
	StatusUnderReview   AnnotationStatus = "Under Review"
	StatusAccepted      AnnotationStatus = "Accepted"
	StatusFixed         AnnotationStatus = "Fixed"
	StatusFalsePositive AnnotationStatus = "False Positive"
)

// AnnotationStatuses lists the review states in workflow order.
var AnnotationStatuses = []AnnotationStatus{
	StatusNew,
	StatusUnderReview,
	StatusAccepted,
	StatusFixed,
	StatusFalsePositive,
}

// ParseStatus matches s against the known statuses, ignoring case, surrounding
// whitespace and '_'/'-' in place of spaces.
func ParseStatus(s string) (AnnotationStatus, error) {
	norm := strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(s))
	for _, st := range AnnotationStatuses {
		if strings.EqualFold(norm, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Annotation is a reviewer's note on a violation, keyed by ViolationKey.
type Annotation struct {
	Project      string           `json:"project"`
	ViolationKey string           `json:"violation_key"`
	Status       AnnotationStatus `json:"status"`
	Reviewer     string           `json:"reviewer"`
	Comment      string           `json:"comment"`
	ActionTaken  *string          `json:"action_taken"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
