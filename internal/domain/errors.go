package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// Error types for consistent error handling across the settlement service.
// Calculation and encoding errors are never retryable: the same input
// always yields the same error.

// ErrInvalidAmount indicates a non-positive, negative or malformed amount.
type ErrInvalidAmount struct {
	Field  string
	Value  string
	Reason string
}

func (e *ErrInvalidAmount) Error() string {
	return fmt.Sprintf("invalid amount '%s' (%s): %s", e.Field, e.Value, e.Reason)
}

// ErrInvalidSchedule indicates a term schedule that does not match the
// installment count or carries a negative term.
type ErrInvalidSchedule struct {
	Expected int
	Got      int
	Reason   string
}

func (e *ErrInvalidSchedule) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid schedule: %s", e.Reason)
	}
	return fmt.Sprintf("invalid schedule: expected %d terms, got %d", e.Expected, e.Got)
}

// ErrInvalidDateRange indicates a date pair in the wrong order.
type ErrInvalidDateRange struct {
	From   civil.Date
	To     civil.Date
	Reason string
}

func (e *ErrInvalidDateRange) Error() string {
	return fmt.Sprintf("invalid date range %s..%s: %s", e.From, e.To, e.Reason)
}

// ErrUnsupportedBank indicates no slip strategy is registered for a bank code.
type ErrUnsupportedBank struct {
	Bank BankCode
}

func (e *ErrUnsupportedBank) Error() string {
	return fmt.Sprintf("unsupported bank: %q", string(e.Bank))
}

// ErrEncodingInvariant indicates a computed field whose width or content
// does not match its fixed layout. It points to an upstream data defect.
type ErrEncodingInvariant struct {
	Field    string
	Value    string
	Expected string
}

func (e *ErrEncodingInvariant) Error() string {
	return fmt.Sprintf("encoding invariant violated on '%s' (%q): expected %s", e.Field, e.Value, e.Expected)
}

// ErrInstallment tags an error with the installment it was raised for.
type ErrInstallment struct {
	Number         int
	DocumentNumber string
	Err            error
}

func (e *ErrInstallment) Error() string {
	return fmt.Sprintf("installment %d (document %s): %v", e.Number, e.DocumentNumber, e.Err)
}

func (e *ErrInstallment) Unwrap() error {
	return e.Err
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates an invalid or missing bearer token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
