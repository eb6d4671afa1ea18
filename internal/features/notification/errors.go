package notification

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate is returned with the existing row when a dedup key was already used.
	ErrDuplicate = errors.New("notification already exists for dedup key")
	ErrNotFound  = errors.New("notification not found")
)

// ValidationError means a candidate or request is missing or has an invalid field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid notification: %s %s", e.Field, e.Reason)
}

// StoreError wraps a failed read or write against the notification store.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("notification store %s on %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Collection: collection, Err: err}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsStore(err error) bool {
	var s *StoreError
	return errors.As(err, &s)
}
