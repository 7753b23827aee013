package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports input that breaks a domain rule (extras selection,
// cancellation reason, line item fields). Field names the offending input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidTransitionError is returned when an order cannot take an event from
// its current status. Usually another operator moved the order first.
type InvalidTransitionError struct {
	OrderID string
	From    string
	Event   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot %s from status %s", e.OrderID, e.Event, e.From)
}

// PersistenceError wraps a failed store read or write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// AuthorizationError is returned when the destructive-action confirmation
// secret does not match.
type AuthorizationError struct {
	Action string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: confirmation secret mismatch", e.Action)
}

// NotFoundError is returned when an order, product or cart line no longer exists.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func Validationf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// Persistence wraps err unless it already carries a domain kind.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsDomain reports whether err is one of the kinds declared in this package.
func IsDomain(err error) bool {
	var (
		v  *ValidationError
		t  *InvalidTransitionError
		p  *PersistenceError
		a  *AuthorizationError
		nf *NotFoundError
	)
	return errors.As(err, &v) || errors.As(err, &t) || errors.As(err, &p) ||
		errors.As(err, &a) || errors.As(err, &nf)
}
