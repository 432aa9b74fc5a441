package domain

import "fmt"

// Error types for consistent error handling across the BFF.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
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

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
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

// ErrInvalidQR indicates the scanned QR payload is unknown or malformed.
type ErrInvalidQR struct {
	Payload string
}

func (e *ErrInvalidQR) Error() string {
	return "invalid QR code"
}

// ErrNoPlan indicates a payment was attempted without a selected plan.
// This is a distinct UI state, not a generic failure.
type ErrNoPlan struct{}

func (e *ErrNoPlan) Error() string {
	return "no payment plan selected"
}

// ErrPaymentPending indicates a payment session is still pending and the
// requested operation needs explicit confirmation.
type ErrPaymentPending struct {
	SessionID string
}

func (e *ErrPaymentPending) Error() string {
	return fmt.Sprintf("payment session %s is still pending", e.SessionID)
}

// ErrSessionExpired indicates an edit or payment session no longer exists.
type ErrSessionExpired struct {
	SessionID string
}

func (e *ErrSessionExpired) Error() string {
	return fmt.Sprintf("session expired or unknown: %s", e.SessionID)
}

// ErrUnsavedChanges indicates navigation was blocked by dirty sections.
type ErrUnsavedChanges struct {
	Sections []string
}

func (e *ErrUnsavedChanges) Error() string {
	return fmt.Sprintf("unsaved changes in sections: %v", e.Sections)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrConflict indicates a resource already exists.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrStaleQuery indicates a search response was superseded by a newer
// query and its result was discarded.
type ErrStaleQuery struct {
	Query string
}

func (e *ErrStaleQuery) Error() string {
	return fmt.Sprintf("stale query discarded: %s", e.Query)
}
