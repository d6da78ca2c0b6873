package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the pipeline
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrEngineNotFound   = errors.New("codec engine not found")
	ErrUnsupportedInput = errors.New("unsupported input")
	ErrEngineFailure    = errors.New("codec engine failure")
	ErrTimeout          = errors.New("codec engine timeout")
	ErrRecord           = errors.New("record failure")
)

// TranscodeError failure of a single engine invocation.
// Diagnostic carries engine stderr and must only go to server logs.
type TranscodeError struct {
	Kind       error
	Job        string
	Diagnostic string
	Err        error
}

// NewTranscodeError build a TranscodeError of kind
func NewTranscodeError(kind error, job, diagnostic string, cause error) *TranscodeError {
	return &TranscodeError{Kind: kind, Job: job, Diagnostic: diagnostic, Err: cause}
}

func (e *TranscodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job[%s]: %v: %v", e.Job, e.Kind, e.Err)
	}
	return fmt.Sprintf("job[%s]: %v", e.Job, e.Kind)
}

// Is match against the kind sentinel
func (e *TranscodeError) Is(target error) bool {
	return target == e.Kind
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}

// RecordReason why the metadata write failed
type RecordReason string

const (
	// RecordUserNotFound owner does not exist
	RecordUserNotFound RecordReason = "user_not_found"
	// RecordStorageWrite the database rejected the write
	RecordStorageWrite RecordReason = "storage_write_failure"
)

// RecordError the artifacts exist but the record does not. Retryable.
type RecordError struct {
	Reason RecordReason
	Err    error
}

// NewRecordError build a RecordError
func NewRecordError(reason RecordReason, cause error) *RecordError {
	return &RecordError{Reason: reason, Err: cause}
}

func (e *RecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("record video: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("record video: %s", e.Reason)
}

// Is every RecordError matches ErrRecord
func (e *RecordError) Is(target error) bool {
	return target == ErrRecord
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// KindOf the sentinel kind of err, nil when err is not a pipeline error
func KindOf(err error) error {
	for _, kind := range []error{
		ErrInvalidInput, ErrPayloadTooLarge, ErrEngineNotFound,
		ErrUnsupportedInput, ErrTimeout, ErrEngineFailure, ErrRecord,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// ErrNotFound requested artifact does not exist
var ErrNotFound = errors.New("not found")
