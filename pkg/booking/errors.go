package booking

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the booking service.
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrSlotConflict        = errors.New("slot conflict")
	ErrScheduleUnavailable = errors.New("schedule unavailable")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrConfiguration       = errors.New("configuration error")

	ErrInvalidServiceConfig = errors.New("invalid service config")
)

var (
	ErrStudentNotFound  = fmt.Errorf("student %w", ErrNotFound)
	ErrCourtNotFound    = fmt.Errorf("court %w", ErrNotFound)
	ErrScheduleNotFound = fmt.Errorf("schedule %w", ErrNotFound)
	ErrBookingNotFound  = fmt.Errorf("booking %w", ErrNotFound)
	ErrNoCourtAvailable = fmt.Errorf("available court %w", ErrNotFound)

	ErrInvalidTenantID      = fmt.Errorf("%w: invalid tenant id", ErrInvalidRequest)
	ErrInvalidStudentID     = fmt.Errorf("%w: invalid student id", ErrInvalidRequest)
	ErrInvalidCourtID       = fmt.Errorf("%w: invalid court id", ErrInvalidRequest)
	ErrInvalidScheduleID    = fmt.Errorf("%w: invalid schedule id", ErrInvalidRequest)
	ErrInvalidBookingID     = fmt.Errorf("%w: invalid booking id", ErrInvalidRequest)
	ErrInvalidPaymentID     = fmt.Errorf("%w: invalid payment id", ErrInvalidRequest)
	ErrInvalidProfessorID   = fmt.Errorf("%w: invalid professor id", ErrInvalidRequest)
	ErrInvalidServiceKind   = fmt.Errorf("%w: invalid service kind", ErrInvalidRequest)
	ErrInvalidBookingStatus = fmt.Errorf("%w: invalid booking status", ErrInvalidRequest)
	ErrInvalidPaymentStatus = fmt.Errorf("%w: invalid payment status", ErrInvalidRequest)
	ErrInvalidAmount        = fmt.Errorf("%w: amount must be greater than zero", ErrInvalidRequest)
	ErrInvalidTimeRange     = fmt.Errorf("%w: start must be before end", ErrInvalidRequest)
	ErrMissingField         = fmt.Errorf("%w: missing required field", ErrInvalidRequest)
	ErrDuplicateID          = fmt.Errorf("%w: duplicate identifier", ErrInvalidRequest)
)

// ConflictError reports an occupied court together with what occupies it.
type ConflictError struct {
	Conflict Conflict
}

// Error returns a message naming the occupying booking kind.
func (conflictError *ConflictError) Error() string {
	switch conflictError.Conflict.Cause {
	case ConflictCourtRental:
		return fmt.Sprintf("%v: court is blocked by a court rental", ErrSlotConflict)
	case ConflictBlockedSchedule:
		if conflictError.Conflict.Reason != "" {
			return fmt.Sprintf("%v: court is blocked by a blocked schedule (%s)", ErrSlotConflict, conflictError.Conflict.Reason)
		}
		return fmt.Sprintf("%v: court is blocked by a blocked schedule", ErrSlotConflict)
	default:
		return fmt.Sprintf("%v: court is occupied by another lesson", ErrSlotConflict)
	}
}

// Unwrap returns ErrSlotConflict so callers can match with errors.Is.
func (conflictError *ConflictError) Unwrap() error {
	return ErrSlotConflict
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
