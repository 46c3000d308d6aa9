package simplex

import (
	"errors"
	"fmt"

	"github.com/simplexviz/simplex-core/internal/tableau"
)

// ValidationKind classifies a rejected problem.
type ValidationKind string

const (
	UnknownVariable   ValidationKind = "UnknownVariable"
	EmptyProblem      ValidationKind = "EmptyProblem"
	DimensionMismatch ValidationKind = "DimensionMismatch"
	DuplicateVariable ValidationKind = "DuplicateVariable"
	InvalidNumber     ValidationKind = "InvalidNumber"
	ProblemTooLarge   ValidationKind = "ProblemTooLarge"
	NotDualFeasible   ValidationKind = "NotDualFeasible"
)

// ErrValidation matches every *ValidationError through errors.Is.
var ErrValidation = errors.New("simplex: invalid problem")

// ErrNumericInstability matches pivot faults through errors.Is.
var ErrNumericInstability = tableau.ErrNumericInstability

// ValidationError is returned before any pivot when a problem is malformed.
type ValidationError struct {
	Kind ValidationKind
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is lets errors.Is match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(kind ValidationKind, format string, args ...any) error {
	return &ValidationError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// AsValidation extracts the validation error from err, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// NewValidationError builds a validation error for adapters that reject input
// before a Problem exists.
func NewValidationError(kind ValidationKind, format string, args ...any) error {
	return invalid(kind, format, args...)
}
