// Package apperr defines the error taxonomy shared by the inventory and
// promotion engine. Every error a caller can react to is one of the types
// below; anything else is treated as a persistence failure.
package apperr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Code is the stable machine-readable identifier sent to clients.
type Code string

const (
	CodeValidation        Code = "validation_error"
	CodeNotFound          Code = "not_found"
	CodeInsufficientFunds Code = "insufficient_funds"
	CodeStaleState        Code = "stale_state"
	CodeForbidden         Code = "forbidden"
	CodePersistence       Code = "persistence_error"
)

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a request value has the wrong type or
// range, or names a field that does not apply to the product.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidation builds a ValidationError for a single field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// NotFoundError reports a missing product, feature, wallet or pricing row.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// NewNotFound builds a NotFoundError.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// InsufficientFundsError is returned by a debit that would take a balance
// below zero. The balance is left untouched.
type InsufficientFundsError struct {
	SellerID string
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for seller %s: balance %s, required %s",
		e.SellerID, e.Balance.StringFixed(2), e.Required.StringFixed(2))
}

// StaleStateError is returned when a transition is attempted from a state
// other than the one it requires, usually because someone already acted.
type StaleStateError struct {
	Resource string
	ID       string
	Current  string
	Expected []string
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("%s %s is %s, expected %s", e.Resource, e.ID, e.Current, strings.Join(e.Expected, " or "))
}

// ForbiddenError is returned when the actor may not perform the operation.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return "forbidden: " + e.Reason }

// PersistenceError wraps a storage failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError unless it already belongs to
// the taxonomy, in which case it is returned unchanged. A nil err stays nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, known := CodeOf(err); known {
		return err
	}
	return &PersistenceError{Op: op, Err: errors.WithStack(err)}
}

// CodeOf classifies err. The boolean is false for errors outside the taxonomy.
func CodeOf(err error) (Code, bool) {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		funds      *InsufficientFundsError
		stale      *StaleStateError
		forbidden  *ForbiddenError
		persist    *PersistenceError
	)
	switch {
	case errors.As(err, &validation):
		return CodeValidation, true
	case errors.As(err, &notFound):
		return CodeNotFound, true
	case errors.As(err, &funds):
		return CodeInsufficientFunds, true
	case errors.As(err, &stale):
		return CodeStaleState, true
	case errors.As(err, &forbidden):
		return CodeForbidden, true
	case errors.As(err, &persist):
		return CodePersistence, true
	}
	return "", false
}
