// Package kberrors defines the typed error kinds used across the
// item store, enrichment pipeline, and related-item engine.
package kberrors

import (
	"database/sql"
	"errors"
	"fmt"
)

// Sentinel errors for the five kinds described in the service's error
// handling design. Callers compare with errors.Is, never by string.
var (
	// ErrInvalidInput indicates a schema/enum/regex violation, an
	// out-of-range number, a malformed date, or a bad version string.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates the requested item, status, or related
	// endpoint does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a unique-constraint race or an update
	// against a deleted item.
	ErrConflict = errors.New("conflict")

	// ErrTransient indicates the database was busy; retried internally
	// and only surfaced once retries are exhausted.
	ErrTransient = errors.New("transient")

	// ErrInternal indicates an unexpected bug, a provider crash outside
	// enrichment, or a migration failure at startup.
	ErrInternal = errors.New("internal error")
)

// Wrap attaches an operation label to err and, if err is sql.ErrNoRows,
// converts it to ErrNotFound. If err already wraps one of the sentinel
// kinds, that kind is preserved through the wrap.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Wrapf is Wrap with a formatted operation label.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(fmt.Sprintf(format, args...), err)
}

// Invalid builds an ErrInvalidInput with a formatted message.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// NotFound builds an ErrNotFound with a formatted message.
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Conflict builds an ErrConflict with a formatted message.
func Conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// Internal builds an ErrInternal with a formatted message.
func Internal(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInternal)
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidInput reports whether err is or wraps ErrInvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsConflict reports whether err is or wraps ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsTransient reports whether err is or wraps ErrTransient.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
