package ingest

import (
	"errors"
	"fmt"
)

// TransientFetchError marks a page fetch failure worth retrying in place:
// network errors, timeouts, 5xx responses.
type TransientFetchError struct {
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("transient fetch error: %v", e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// FatalFetchError marks a failure that aborts the source's run without
// retry: auth/authz rejections and malformed response payloads.
type FatalFetchError struct {
	Err error
}

func (e *FatalFetchError) Error() string {
	return fmt.Sprintf("fatal fetch error: %v", e.Err)
}

func (e *FatalFetchError) Unwrap() error { return e.Err }

// MalformedRecordError marks a single skippable item in an otherwise
// well-formed page, e.g. a row missing its identity field.
type MalformedRecordError struct {
	Source string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record from %s: %s", e.Source, e.Reason)
}

// PersistenceTimeoutError marks a write phase aborted by the database's
// statement or lock timeout. The run is reported partial; events are
// re-derived next run because the snapshot still reflects pre-write state.
type PersistenceTimeoutError struct {
	Err error
}

func (e *PersistenceTimeoutError) Error() string {
	return fmt.Sprintf("persistence timeout: %v", e.Err)
}

func (e *PersistenceTimeoutError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientFetchError{Err: err}
}

// Fatal wraps err as run-aborting.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalFetchError{Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var t *TransientFetchError
	return errors.As(err, &t)
}

// IsFatal reports whether err aborts the source run immediately.
func IsFatal(err error) bool {
	var f *FatalFetchError
	return errors.As(err, &f)
}

// IsPersistenceTimeout reports whether err came from a bounded write phase.
func IsPersistenceTimeout(err error) bool {
	var p *PersistenceTimeoutError
	return errors.As(err, &p)
}
