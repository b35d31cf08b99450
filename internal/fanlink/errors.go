package fanlink

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors.
var (
	ErrNotFound          = errors.New("fan link not found")
	ErrSlugConflict      = errors.New("slug already in use")
	ErrDuplicatePlatform = errors.New("platform already has a link")
	ErrInsecureURL       = errors.New("url must start with https://")
	ErrIndexOutOfRange   = errors.New("link index out of range")
	ErrInvalidPlatform   = errors.New("invalid platform")
	ErrRequired          = errors.New("is required")
	ErrNoStreamingLinks  = errors.New("at least one streaming link is required")
	ErrInvalidSlug       = errors.New("slug may only contain a-z, 0-9 and -")
)

// FieldError is a validation failure attached to a single field.
type FieldError struct {
	Field string
	Err   error
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// ValidationError collects every field error found in a draft.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the individual field errors to errors.Is.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Fields))
	for i, f := range e.Fields {
		errs[i] = f
	}
	return errs
}

// Has reports whether any error is attached to field.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// TransientError wraps a persistence failure that is safe to retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PartialWriteError reports that the fan link row was written but its
// streaming links were not. Retry with Repository.RetryLinks.
type PartialWriteError struct {
	FanLinkID uuid.UUID
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("fan link %s saved without streaming links: %v", e.FanLinkID, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}
