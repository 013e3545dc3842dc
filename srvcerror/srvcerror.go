package srvcerror

import (
	"errors"
	"net/http"
)

type Error struct {
	errorCode  string
	msgToUser  string // public
	dbgInfoErr error  // private, for debugging

	httpStatus int // optional, for HTTP responses
}

func (e *Error) Error() string {
	return e.msgToUser
}

func (e *Error) ErrorCode() string {
	return e.errorCode
}

func (e *Error) DebugInfo() error {
	return e.dbgInfoErr
}

func (e *Error) SetDebug(err error) *Error {
	e.dbgInfoErr = err
	return e
}

// Unwrap exposes the debug error to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.dbgInfoErr
}

func (e *Error) HttpStatusCode() int {
	if e.httpStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.httpStatus
}

func (e *Error) SetHttpStatusCode(code int) *Error {
	e.httpStatus = code
	return e
}

func New(errorCode string, msgToUser string) *Error {
	return &Error{
		errorCode: errorCode,
		msgToUser: msgToUser,
	}
}

// HasCode reports whether err, or any error it wraps, is a service error
// with the given code.
func HasCode(err error, code string) bool {
	var srvcErr *Error
	if !errors.As(err, &srvcErr) {
		return false
	}
	return srvcErr.errorCode == code
}

// Code returns the service error code of err, "" for other errors.
func Code(err error) string {
	var srvcErr *Error
	if errors.As(err, &srvcErr) {
		return srvcErr.errorCode
	}
	return ""
}

const ErrCodeInternalServerError = "internal_server_error"

func ErrInternalSE() *Error {
	return New(
		ErrCodeInternalServerError,
		"internal server error",
	).SetHttpStatusCode(http.StatusInternalServerError)
}

const ErrCodeUnauthorized = "unauthorized"

func ErrUnauthorized(msg string) *Error {
	return New(ErrCodeUnauthorized, msg).SetHttpStatusCode(http.StatusUnauthorized)
}

const ErrCodeForbidden = "forbidden"

func ErrForbidden(msg string) *Error {
	return New(ErrCodeForbidden, msg).SetHttpStatusCode(http.StatusForbidden)
}
