package custom_error

import (
	"errors"
	"fmt"
)

// ErrInsufficientStock is a normal business outcome: a reserve or debit would
// push stock below zero or past its reservation. Callers surface it, never
// retry it inside the core.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrAlreadyTerminal reports a cancel against a record that already reached a
// terminal state. It is a no-op signal, not a failure.
var ErrAlreadyTerminal = errors.New("already in a terminal state")

// ValidationError reports a request that is structurally well-formed but
// semantically wrong (zero quantity, identical endpoints, deactivated
// location).
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func Validation(format string, args ...any) *ValidationError {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing product, location, transfer or count.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

func NotFound(resource string, key any) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: fmt.Sprint(key)}
}

// InvalidTransitionError reports a workflow operation attempted from a state
// that does not permit it.
type InvalidTransitionError struct {
	Entity string
	From   string
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s in status %q", e.Action, e.Entity, e.From)
}

// StaleStateError reports a lost race on a status transition: the record moved
// on between read and update. Callers re-fetch and decide; the core never
// retries on its own.
type StaleStateError struct {
	Entity   string
	ID       int
	Expected string
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("%s %d is no longer in status %q", e.Entity, e.ID, e.Expected)
}

// InvariantViolationError is the fatal bucket: a ledger invariant failed where
// it provably should not have (release beyond reservation, debit failure after
// a successful reservation). The triggering operation aborts and the condition
// is logged for operator investigation.
type InvariantViolationError struct {
	Op     string
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation in %s: %s", e.Op, e.Detail)
}

func InvariantViolation(op, format string, args ...any) *InvariantViolationError {
	return &InvariantViolationError{Op: op, Detail: fmt.Sprintf(format, args...)}
}
