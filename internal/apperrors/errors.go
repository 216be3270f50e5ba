package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures so transports can pick a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindNotFound
	KindValidation
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	}
	return "internal"
}

// Status maps a kind to its HTTP status code. Upstream failures collapse to 500
// like internal ones; the kind only changes what gets logged.
func (k Kind) Status() int {
	switch k {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error is a classified error. Message is safe to show to clients; Cause is not.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, msg string) error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func Authentication(msg string) error { return New(KindAuthentication, msg) }
func NotFound(msg string) error       { return New(KindNotFound, msg) }
func Validation(msg string) error     { return New(KindValidation, msg) }

func Upstream(msg string, cause error) error { return Wrap(KindUpstream, msg, cause) }
func Internal(msg string, cause error) error { return Wrap(KindInternal, msg, cause) }

// KindOf returns the kind of the first *Error in the chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// PublicMessage returns the client-facing message for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Server error"
}
