package utils

import "errors"

// ErrEchoNotFound indicates that a referenced echo record does not exist
var ErrEchoNotFound = errors.New("echo not found")

// ErrStorage wraps object storage failures
// upload surfaces it synchronously, the worker records it as a stage failure
type ErrStorage struct {
	err error
}

// NewErrStorage creates new error
func NewErrStorage(err error) error {
	return &ErrStorage{err: err}
}

func (e *ErrStorage) Error() string {
	return "storage unavailable: " + e.err.Error()
}

func (e *ErrStorage) Unwrap() error {
	return e.err
}
