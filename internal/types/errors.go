package types

import "errors"

// Sentinel errors for sdtmcheck operations.
var (
	// ErrUnsupportedCondition indicates a condition string matches no grammar form.
	ErrUnsupportedCondition = errors.New("unsupported condition")

	// ErrColumnNotFound indicates a predicate targets a column the table lacks.
	ErrColumnNotFound = errors.New("column not found")

	// ErrMissingRuleFields indicates a rule record lacks required keys.
	ErrMissingRuleFields = errors.New("rule record missing required fields")

	// ErrDuplicateColumn indicates a table was built with two columns of the same name.
	ErrDuplicateColumn = errors.New("duplicate column")

	// ErrColumnLength indicates columns of one table disagree on row count.
	ErrColumnLength = errors.New("column length mismatch")

	// ErrUnsupportedFormat indicates a dataset file extension has no loader.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")

	// ErrRunNotFound indicates a run ID with no persisted validation run.
	ErrRunNotFound = errors.New("validation run not found")

	// ErrUnknownStatus indicates an annotation status outside the review workflow.
	ErrUnknownStatus = errors.New("unknown annotation status")
)
