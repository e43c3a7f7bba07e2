package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyID is returned when a promotion that was never stored is asked to
// update itself. It signals a programming error, not bad input.
var ErrEmptyID = errors.New("update called with empty ID")

// ErrorKind classifies a ValidationError.
type ErrorKind int

const (
	KindMissingField ErrorKind = iota + 1
	KindInvalidType
	KindInvalidFormat
	KindOrdering
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingField:
		return "missing_field"
	case KindInvalidType:
		return "invalid_type"
	case KindInvalidFormat:
		return "invalid_format"
	case KindOrdering:
		return "ordering"
	default:
		return "unknown"
	}
}

// ValidationError reports a payload that cannot become a valid promotion.
type ValidationError struct {
	Field  string
	Reason string
	Kind   ErrorKind
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func missingField(field string) *ValidationError {
	return &ValidationError{
		Field:  field,
		Reason: "Invalid promotion: missing " + field,
		Kind:   KindMissingField,
	}
}

func invalidType(field string, got any) *ValidationError {
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf("Invalid type for [%s]: %T", field, got),
		Kind:   KindInvalidType,
	}
}

func invalidFormat(field, reason string) *ValidationError {
	return &ValidationError{
		Field:  field,
		Reason: reason,
		Kind:   KindInvalidFormat,
	}
}

func orderingError(start, end string) *ValidationError {
	return &ValidationError{
		Field:  FieldEndDate,
		Reason: fmt.Sprintf("start_date %s is after end_date %s", start, end),
		Kind:   KindOrdering,
	}
}
