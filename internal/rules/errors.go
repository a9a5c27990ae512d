package rules

import (
	"fmt"

	"github.com/solatis/sdtmcheck/internal/types"
)

// ParseError reports a condition that matches no grammar form.
// The condition is echoed verbatim so rule authors can find it.
type ParseError struct {
	Condition string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unsupported condition: %s", e.Condition)
}

// Unwrap enables errors.Is(err, types.ErrUnsupportedCondition).
func (e *ParseError) Unwrap() error {
	return types.ErrUnsupportedCondition
}

// ColumnNotFoundError reports a predicate column absent from the table.
type ColumnNotFoundError struct {
	Column string
	Domain string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %s not found in %s", e.Column, e.Domain)
}

// Unwrap enables errors.Is(err, types.ErrColumnNotFound).
func (e *ColumnNotFoundError) Unwrap() error {
	return types.ErrColumnNotFound
}
