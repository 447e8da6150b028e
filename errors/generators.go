package errors

import "fmt"

// NewResourceNotFoundError returns a new ErrNotFound error with kind
// KindResourceNotFound and the given message.
func NewResourceNotFoundError(message string, details Details) error {
	return Error{
		Code:    ErrNotFound,
		Kind:    KindResourceNotFound,
		Message: message,
		Details: details,
	}
}

// NewNotFoundError returns a new ErrNotFound error with the given kind.
func NewNotFoundError(kind Kind, message string, details Details) error {
	return Error{
		Code:    ErrNotFound,
		Kind:    kind,
		Message: message,
		Details: details,
	}
}

// NewStateConflictError returns a new ErrStateConflict error with the given
// kind.
func NewStateConflictError(kind Kind, message string, details Details) error {
	return Error{
		Code:    ErrStateConflict,
		Kind:    kind,
		Message: message,
		Details: details,
	}
}

// NewBadRequestError returns a new ErrBadRequest error with the given kind.
func NewBadRequestError(kind Kind, message string, details Details) error {
	return Error{
		Code:    ErrBadRequest,
		Kind:    kind,
		Message: message,
		Details: details,
	}
}

// NewFatalError returns a new ErrFatal error with the given kind and original
// error.
func NewFatalError(kind Kind, err error, message string, details Details) error {
	return Error{
		Code:    ErrFatal,
		Kind:    kind,
		Err:     err,
		Message: message,
		Details: details,
	}
}

// NewInternalError returns a new ErrInternal error with kind KindUnexpected.
func NewInternalError(message string, details Details) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindUnexpected,
		Message: message,
		Details: details,
	}
}

// NewInternalErrorFromErr returns a new ErrInternal error with kind
// KindUnexpected and the given original error.
func NewInternalErrorFromErr(err error, message string, details Details) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindUnexpected,
		Err:     err,
		Message: message,
		Details: details,
	}
}

// NewContextAbortedError returns a new ErrAborted error with kind
// KindContextAborted for the given operation.
func NewContextAbortedError(operation string) error {
	return Error{
		Code:    ErrAborted,
		Kind:    KindContextAborted,
		Message: fmt.Sprintf("context aborted while %s", operation),
	}
}
