package domain

import "fmt"

// NotFoundError signals that a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// UniquenessConflictError signals a duplicate code within its scope.
type UniquenessConflictError struct {
	Entity string
	Code   string
	Scope  string
}

func (e *UniquenessConflictError) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("%s code %q already exists in %s", e.Entity, e.Code, e.Scope)
	}
	return fmt.Sprintf("%s code %q already exists", e.Entity, e.Code)
}

// DependencyConflictError signals a delete blocked by dependent rows or by
// the entity's current phase.
type DependencyConflictError struct {
	Entity string
	ID     string
	Reason string
}

func (e *DependencyConflictError) Error() string {
	return fmt.Sprintf("%s %s cannot be deleted: %s", e.Entity, e.ID, e.Reason)
}

// TerminalStateError signals a mutation attempted against an entity whose
// current status has no outbound transitions.
type TerminalStateError struct {
	Entity string
	ID     string
	Status string
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("%s %s is in terminal state %s", e.Entity, e.ID, e.Status)
}

// InvalidTransitionError signals a requested status change with no edge in
// the transition table.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %s cannot transition from %s to %s", e.Entity, e.ID, e.From, e.To)
}

// InvalidStateForRefundError signals a refund attempted against a payment
// that is not currently PAID.
type InvalidStateForRefundError struct {
	PaymentID string
	Status    PaymentStatus
}

func (e *InvalidStateForRefundError) Error() string {
	return fmt.Sprintf("payment %s cannot be refunded from status %s", e.PaymentID, e.Status)
}
