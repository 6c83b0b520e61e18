package services

import (
	"errors"
	"fmt"
)

// SchemaError reports input that does not have the shape the pipeline needs:
// a missing required column, an unparseable timestamp or an unreadable CSV.
type SchemaError struct {
	Column  string
	Message string
	Cause   error
}

func (e *SchemaError) Error() string {
	msg := "schema error"
	if e.Column != "" {
		msg = fmt.Sprintf("schema error: column %q", e.Column)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Cause }

// ModelUnavailableError means the model or its feature schema could not be
// loaded, so predictions are disabled. Aggregation views are unaffected.
type ModelUnavailableError struct {
	Reason string
	Cause  error
}

func (e *ModelUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("prediction unavailable: %s: %v", e.Reason, e.Cause)
	}
	return "prediction unavailable: " + e.Reason
}

func (e *ModelUnavailableError) Unwrap() error { return e.Cause }

// InsufficientHistoryError is returned when lag features are requested from
// a table that is too short to contain them.
type InsufficientHistoryError struct {
	Rows     int
	Required int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: %d rows, need at least %d for lag features", e.Rows, e.Required)
}

// ErrorReason classifies err for metrics labels.
func ErrorReason(err error) string {
	var schemaErr *SchemaError
	var modelErr *ModelUnavailableError
	var historyErr *InsufficientHistoryError
	switch {
	case errors.As(err, &schemaErr):
		return "schema"
	case errors.As(err, &modelErr):
		return "model_unavailable"
	case errors.As(err, &historyErr):
		return "insufficient_history"
	default:
		return "other"
	}
}
