package service

import (
	"errors"
	"fmt"
)

// --- Error Kinds ---
// Handlers map these with errors.Is; every specific error below wraps one of them.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("access denied")
)

// --- Error Definitions ---
var (
	ErrTemplateNotFound    = fmt.Errorf("week template %w", ErrNotFound)
	ErrNoActiveTemplate    = fmt.Errorf("no active week template: %w", ErrNotFound)
	ErrEntryNotFound       = fmt.Errorf("calendar entry %w", ErrNotFound)
	ErrSessionNotFound     = fmt.Errorf("calendar session %w", ErrNotFound)
	ErrItemNotFound        = fmt.Errorf("calendar item %w", ErrNotFound)
	ErrRecordNotFound      = fmt.Errorf("tracking record %w", ErrNotFound)
	ErrLibraryItemNotFound = fmt.Errorf("library item %w", ErrNotFound)
	ErrMediaNotFound       = fmt.Errorf("media %w", ErrNotFound)

	ErrDayOfWeekTaken  = fmt.Errorf("day of week already defined in this template: %w", ErrConflict)
	ErrEntryOverridden = fmt.Errorf("calendar entry was overridden and is no longer synced with its template: %w", ErrConflict)

	ErrLibraryAccessDenied = fmt.Errorf("library item belongs to another planner: %w", ErrForbidden)
	ErrMediaUnavailable    = errors.New("media storage is not configured")
)

// InputError reports a rejected field with enough detail to re-render the form.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap makes every InputError match ErrValidation.
func (e *InputError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
