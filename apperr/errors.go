// Package apperr defines the error codes shared by the store, validation
// and handler layers.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

const (
	EInternal        = "internal error"
	ENotFound        = "not found"
	EInvalid         = "invalid"      // validation failed
	EUnauthorized    = "unauthorized" // bad credentials or no session
	EForbidden       = "forbidden"    // authenticated but not the owner
	ETooManyRequests = "too many requests"
)

// Error is an application error carrying a code that handlers turn into a
// user-facing outcome, and a message that is safe to show to the user.
type Error struct {
	Code string
	Msg  string
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg != "" && e.Err != nil {
		var b strings.Builder
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
		return b.String()
	} else if e.Msg != "" {
		return e.Msg
	} else if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("<%s>", e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Coder is implemented by errors that know their own code.
type Coder interface {
	ErrorCode() string
}

// NotFound returns an ENotFound error with a user-facing message.
func NotFound(op, msg string) *Error {
	return &Error{Code: ENotFound, Op: op, Msg: msg}
}

// Forbidden returns an EForbidden error with a user-facing message.
func Forbidden(op, msg string) *Error {
	return &Error{Code: EForbidden, Op: op, Msg: msg}
}

// Unauthorized returns an EUnauthorized error with a user-facing message.
func Unauthorized(op, msg string) *Error {
	return &Error{Code: EUnauthorized, Op: op, Msg: msg}
}

// Internal wraps err as an EInternal error.
func Internal(op string, err error) *Error {
	return &Error{Code: EInternal, Op: op, Err: err}
}

// ErrorCode returns the code of the outermost coded error in err's chain.
// Uncoded errors report EInternal.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := e.(type) {
		case *Error:
			if v.Code != "" {
				return v.Code
			}
		case Coder:
			return v.ErrorCode()
		}
	}
	return EInternal
}

// ErrorMessage returns the user-facing message of err, or a generic message
// when err carries none.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Msg != "" {
			return e.Msg
		}
		if e.Err != nil {
			return ErrorMessage(e.Err)
		}
	}
	return "An internal error has occurred."
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return ErrorCode(err) == code
}
