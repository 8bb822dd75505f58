package auth

import (
	"errors"
	"fmt"
)

// Kind classifies a flow failure. Kinds are errors themselves so callers can
// write errors.Is(err, auth.ErrNotFound).
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ErrValidation              Kind = "validation"
	ErrConflict                Kind = "conflict"
	ErrNotFound                Kind = "not_found"
	ErrInvalidCredential       Kind = "invalid_credential"
	ErrDeviceChallengeRequired Kind = "device_challenge_required"
	ErrCodeMismatch            Kind = "code_mismatch"
	ErrInvalidOrExpired        Kind = "invalid_or_expired"
	ErrTokenMissing            Kind = "token_missing"
	ErrAlreadyVerified         Kind = "already_verified"
	ErrSuspended               Kind = "suspended"
	ErrUnauthenticated         Kind = "unauthenticated"
	ErrForbidden               Kind = "forbidden"
	ErrNotifyFailed            Kind = "notify_failed"
	ErrInternal                Kind = "internal"
)

// Error is a classified failure with a message safe to show to the client.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

const msgSomethingWrong = "Something went wrong, please try again!"

func internal(op string, err error) *Error {
	return wrapError(ErrInternal, msgSomethingWrong, fmt.Errorf("%s: %w", op, err))
}

// KindOf returns the classification of err, ErrInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ErrInternal
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return msgSomethingWrong
}
