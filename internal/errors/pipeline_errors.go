package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"salespulse/pkg/contracts/domain"
)

// As and Is re-export the standard helpers so callers need a single import.
var (
	As = stderrors.As
	Is = stderrors.Is
)

// SchemaError is raised per row during normalization. It never aborts a run;
// the normalizer converts it into a quarantine entry.
type SchemaError struct {
	RowIndex int
	Field    domain.Field
	Reason   domain.QuarantineReason
	Detail   string
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	return fmt.Sprintf("row %d: %s on %s: %s", e.RowIndex, e.Reason, e.Field, e.Detail)
}

// Quarantine converts the error into its quarantine report entry.
func (e *SchemaError) Quarantine() domain.QuarantinedRow {
	return domain.QuarantinedRow{
		RowIndex: e.RowIndex,
		Reason:   e.Reason,
		Field:    e.Field,
		Detail:   e.Detail,
	}
}

// NewSchemaError creates a per-row schema error
func NewSchemaError(row int, field domain.Field, reason domain.QuarantineReason, format string, args ...any) *SchemaError {
	return &SchemaError{
		RowIndex: row,
		Field:    field,
		Reason:   reason,
		Detail:   fmt.Sprintf(format, args...),
	}
}

// EmptySnapshotError is fatal: normalization produced no valid records.
// The quarantine report is attached for diagnosis.
type EmptySnapshotError struct {
	InputRows  int
	Quarantine []domain.QuarantinedRow
}

// Error implements the error interface
func (e *EmptySnapshotError) Error() string {
	return fmt.Sprintf("[%s] no valid records after normalization (%d input rows, %d quarantined)",
		ErrTypeEmptySnapshot, e.InputRows, len(e.Quarantine))
}

// ConfigurationError is fatal and raised before any data is processed.
type ConfigurationError struct {
	Problems []ConfigProblem
}

// ConfigProblem names one invalid configuration field
type ConfigProblem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Message)
	}
	return fmt.Sprintf("[%s] invalid configuration: %s", ErrTypeConfig, strings.Join(parts, "; "))
}

// Add appends a problem to the configuration error
func (e *ConfigurationError) Add(field, format string, args ...any) {
	e.Problems = append(e.Problems, ConfigProblem{Field: field, Message: fmt.Sprintf(format, args...)})
}

// ErrOrNil returns the error when at least one problem was recorded
func (e *ConfigurationError) ErrOrNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}

// NewConfigError creates a configuration error with a single problem
func NewConfigError(field, format string, args ...any) *ConfigurationError {
	e := &ConfigurationError{}
	e.Add(field, format, args...)
	return e
}
