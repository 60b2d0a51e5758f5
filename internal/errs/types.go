// Package errs defines the error kinds surfaced by the ledger.
//
// Every kind carries a human readable message. Callers classify errors with
// the Is* helpers, which see through wrapping.
package errs

import (
	"errors"
	"fmt"
)

type ErrorMessage struct {
	Message string
}

func (e *ErrorMessage) Error() string { return e.Message }

// ValidationError reports bad input shape or value: empty names, zero or
// non-finite amounts, malformed import payloads.
type ValidationError struct {
	ErrorMessage
}

// NotFoundError reports an operation against an ID that does not exist where
// ignoring it would surprise the caller. Deletes never return it.
type NotFoundError struct {
	ErrorMessage
}

// InsufficientBalanceError reports a withdrawal larger than the wallet balance.
type InsufficientBalanceError struct {
	ErrorMessage
	WalletID string
}

// DatabaseError wraps a failure of the durable store.
type DatabaseError struct {
	ErrorMessage
	Operation string
	Err       error
}

func (e *DatabaseError) Unwrap() error { return e.Err }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{
		ErrorMessage: ErrorMessage{Message: fmt.Sprintf(format, args...)},
	}
}

func NewNotFoundError(format string, args ...any) *NotFoundError {
	return &NotFoundError{
		ErrorMessage: ErrorMessage{Message: fmt.Sprintf(format, args...)},
	}
}

func NewInsufficientBalanceError(walletID string, format string, args ...any) *InsufficientBalanceError {
	return &InsufficientBalanceError{
		ErrorMessage: ErrorMessage{Message: fmt.Sprintf(format, args...)},
		WalletID:     walletID,
	}
}

func NewDatabaseError(operation string, err error) *DatabaseError {
	return &DatabaseError{
		ErrorMessage: ErrorMessage{Message: fmt.Sprintf("%s: %v", operation, err)},
		Operation:    operation,
		Err:          err,
	}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsInsufficientBalance(err error) bool {
	var target *InsufficientBalanceError
	return errors.As(err, &target)
}

func IsDatabase(err error) bool {
	var target *DatabaseError
	return errors.As(err, &target)
}
