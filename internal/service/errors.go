package service

import (
	"errors"
	"fmt"

	"github.com/GooseOb/pai2024/internal/models"
	"github.com/GooseOb/pai2024/internal/store"
)

// Kind classifies an Error for the transport layer.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindPersistence:
		return "persistence"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the only error type services return.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrPersistence  = &Error{Kind: KindPersistence}
)

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func invalid(err error) *Error {
	var fe *models.FieldError
	if errors.As(err, &fe) {
		return &Error{Kind: KindValidation, Message: fe.Error(), Details: fe.Field, Err: err}
	}
	return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
}

func notFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %q not found", entity, id)}
}

// persistence converts a store error. store.ErrNotFound becomes NotFound so
// callers may pass any repository error through it.
func persistence(op string, err error, entity, id string) *Error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(entity, id)
	}
	return &Error{Kind: KindPersistence, Message: op, Err: err}
}
