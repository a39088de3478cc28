package common

import (
	"errors"
	"net/http"
)

// AppError carries the HTTP status and machine-readable code for an error.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// BadRequest wraps err as a 400 INVALID_INPUT error using the error text as message.
func BadRequest(err error) *AppError {
	msg := "invalid input"
	if err != nil {
		msg = err.Error()
	}
	return NewAppError("INVALID_INPUT", msg, http.StatusBadRequest, err)
}

// ErrorRule maps a sentinel to a response. An empty Message echoes the error text.
type ErrorRule struct {
	Target  error
	Status  int
	Code    string
	Message string
}

// WriteErrorWith renders err using the first rule whose Target matches via
// errors.Is, falling back to WriteError.
func WriteErrorWith(w http.ResponseWriter, err error, rules ...ErrorRule) {
	for _, rule := range rules {
		if !errors.Is(err, rule.Target) {
			continue
		}
		msg := rule.Message
		if msg == "" {
			msg = err.Error()
		}
		JSONError(w, rule.Status, rule.Code, msg, nil)
		return
	}
	WriteError(w, err)
}

// WriteError renders an AppError as-is. Anything else becomes a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	status, code := appErr.HTTPStatus, appErr.Code
	if status == 0 {
		status = http.StatusBadRequest
	}
	if code == "" {
		code = "BAD_REQUEST"
	}
	JSONError(w, status, code, appErr.Message, appErr.Details)
}
