package apperr

import (
	"errors"
	"fmt"
)

// Kind classe une erreur métier pour la couche HTTP.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindUnprocessable Kind = "unprocessable"
	KindForbidden     Kind = "forbidden"
	KindInternal      Kind = "internal"
)

// Error est une erreur métier typée avec un code machine stable.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func Unprocessable(code, message string) *Error {
	return New(KindUnprocessable, code, message)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

func Internal(message string, err error) *Error {
	return Wrap(KindInternal, "internal", message, err)
}

// KindOf retourne le Kind d'une erreur, KindInternal par défaut.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// CodeOf retourne le code machine d'une erreur, "internal" par défaut.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return "internal"
}

func IsNotFound(err error) bool      { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool      { return KindOf(err) == KindConflict }
func IsUnprocessable(err error) bool { return KindOf(err) == KindUnprocessable }
func IsForbidden(err error) bool     { return KindOf(err) == KindForbidden }
