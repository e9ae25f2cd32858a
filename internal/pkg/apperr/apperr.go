package apperr

import (
	"errors"
	"fmt"
)

// Kind discriminates the stable error taxonomy. Handlers map kinds onto
// status codes; Message/Detail are the user-facing free text.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindConflict         Kind = "conflict"
	KindNotFound         Kind = "not_found"
	KindPartialFailure   Kind = "partial_failure"
	KindIntegrityRefusal Kind = "integrity_refusal"
)

type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message, detail string) *Error {
	return &Error{Kind: kind, Message: message, Detail: detail}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message, detail string) *Error {
	return New(KindValidation, message, detail)
}

func Conflict(message, detail string) *Error {
	return New(KindConflict, message, detail)
}

func NotFound(message, detail string) *Error {
	return New(KindNotFound, message, detail)
}

func PartialFailure(message, detail string) *Error {
	return New(KindPartialFailure, message, detail)
}

func IntegrityRefusal(message, detail string) *Error {
	return New(KindIntegrityRefusal, message, detail)
}

// KindOf unwraps through fmt.Errorf chains so callers can classify errors
// that services annotated with context.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool       { return KindOf(err) == KindValidation }
func IsConflict(err error) bool         { return KindOf(err) == KindConflict }
func IsNotFound(err error) bool         { return KindOf(err) == KindNotFound }
func IsPartialFailure(err error) bool   { return KindOf(err) == KindPartialFailure }
func IsIntegrityRefusal(err error) bool { return KindOf(err) == KindIntegrityRefusal }
