package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var NotFound = errors.New("Not found")

// ErrPayloadTooLarge is returned when the request body exceeds the configured limit
var ErrPayloadTooLarge = errors.New("payload too large")

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

// Check if err is (or wraps) an instance of T for custom error types
func Is[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Validation error: %s", e.Message)
}

// StorageError is a filesystem failure while storing or removing an attachment.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PersistenceError is a failure of a statement against the message store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DecodeError means the submitted form could not be decoded.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusCode maps err to the HTTP status the handlers answer with.
func StatusCode(err error) int {
	var withCode *ErrorWithStatusCode
	switch {
	case errors.As(err, &withCode):
		return withCode.StatusCode
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, NotFound):
		return http.StatusNotFound
	case Is[*ValidationError](err), Is[*DecodeError](err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
