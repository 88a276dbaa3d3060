// Package apperr defines the failure taxonomy shared by the stores, the
// hospital operations and the adapters.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindValidation marks an operation that would violate an invariant.
	// Nothing is mutated when it is returned.
	KindValidation Kind = "VALIDATION"

	// KindCollaborator marks a failure of an external collaborator such as
	// the AI drafting service.
	KindCollaborator Kind = "COLLABORATOR"

	// KindNotFound is used by lookups and adapters. Store updates never
	// return it; they report store.NotFound instead.
	KindNotFound Kind = "NOT_FOUND"
)

// Error is the concrete error carried across package boundaries.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds a KindValidation error.
func Validation(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error for the given entity kind and id.
func NotFound(op, entity, id string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf("%s %q not found", entity, id)}
}

// Collaborator wraps err as a KindCollaborator error.
func Collaborator(op string, err error) *Error {
	return &Error{Kind: KindCollaborator, Op: op, Message: "collaborator failed", Err: err}
}

type validator interface {
	IsValidation() bool
}

// KindOf reports the kind of err, or "" when err does not carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var v validator
	if errors.As(err, &v) && v.IsValidation() {
		return KindValidation
	}
	return ""
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsCollaborator reports whether err is a collaborator failure.
func IsCollaborator(err error) bool { return KindOf(err) == KindCollaborator }

// IsNotFound reports whether err is a not-found lookup failure.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
