// Package errors holds the error taxonomy shared by the capacity service.
// Callers match on the sentinels with errors.Is; the typed errors carry
// the detail (missing columns, offending field, rejected transition).
package errors

import (
	"fmt"
	"strings"
)

var (
	ErrNotFound             = fmt.Errorf("not found")
	ErrInvalidInput         = fmt.Errorf("invalid input")
	ErrTemplateValidation   = fmt.Errorf("template validation failed")
	ErrRowParse             = fmt.Errorf("row parse error")
	ErrMissingRequiredField = fmt.Errorf("missing required field")
	ErrInvalidValue         = fmt.Errorf("invalid value")
	ErrInvalidTransition    = fmt.Errorf("invalid transition")
	ErrStorageFault         = fmt.Errorf("storage fault")
	ErrDuplicate            = fmt.Errorf("duplicate")
	ErrBatchFinalized       = fmt.Errorf("batch already finalized")
)

// TemplateError reports a spreadsheet whose structure cannot be ingested.
type TemplateError struct {
	// Missing lists the required header columns absent from the sheet.
	Missing []string
	// Reason is set when the file itself could not be read.
	Reason string
}

func (t *TemplateError) Error() string {
	if len(t.Missing) > 0 {
		return fmt.Sprintf("%v: missing columns: %s", ErrTemplateValidation, strings.Join(t.Missing, ", "))
	}
	return fmt.Sprintf("%v: %s", ErrTemplateValidation, t.Reason)
}

func (t *TemplateError) Unwrap() error { return ErrTemplateValidation }

// FieldError rejects a single row or record because of one field.
// Kind is one of ErrRowParse, ErrMissingRequiredField or ErrInvalidValue.
type FieldError struct {
	Kind   error
	Field  string
	Detail string
}

func (f *FieldError) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("%v: %s", f.Kind, f.Field)
	}
	return fmt.Sprintf("%v: %s: %s", f.Kind, f.Field, f.Detail)
}

func (f *FieldError) Unwrap() error { return f.Kind }

// NewParseError builds a FieldError for a cell that could not be decoded.
func NewParseError(column, detail string) *FieldError {
	return &FieldError{Kind: ErrRowParse, Field: column, Detail: detail}
}

// NewMissingFieldError builds a FieldError for an absent required value.
func NewMissingFieldError(field string) *FieldError {
	return &FieldError{Kind: ErrMissingRequiredField, Field: field}
}

// NewInvalidValueError builds a FieldError for a value outside its domain.
func NewInvalidValueError(field, detail string) *FieldError {
	return &FieldError{Kind: ErrInvalidValue, Field: field, Detail: detail}
}

// TransitionError is returned when an approval action does not apply to
// the record's current workflow state.
type TransitionError struct {
	Action string
	Stage  string
	Status string
}

func (t *TransitionError) Error() string {
	return fmt.Sprintf("%v: %s not allowed in stage %s with status %s",
		ErrInvalidTransition, t.Action, t.Stage, t.Status)
}

func (t *TransitionError) Unwrap() error { return ErrInvalidTransition }
