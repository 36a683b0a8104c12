package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with a status code. Match methods
// report the code inside the response array, REST handlers use it as the
// HTTP status.
type AppError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches copies made by WithDetails against the original error
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code && t.Message == e.Message
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails returns a copy of the error carrying details
func (e *AppError) WithDetails(details interface{}) *AppError {
	c := *e
	c.Details = details
	return &c
}

// Common errors
var (
	// 400 Bad Request
	ErrBadRequest       = New(http.StatusBadRequest, "malformed request")
	ErrValidation       = New(http.StatusBadRequest, "validation failed")
	ErrMalformedSlots   = New(http.StatusBadRequest, "slots must hold at most one [type, id] pair")
	ErrNoRoom           = New(http.StatusBadRequest, "player is not in a room")
	ErrMalformedMessage = New(http.StatusBadRequest, "match envelope could not be parsed")

	// 401 Unauthorized
	ErrUnauthorized   = New(http.StatusUnauthorized, "unauthorized")
	ErrInvalidToken   = New(http.StatusUnauthorized, "invalid token")
	ErrTokenExpired   = New(http.StatusUnauthorized, "token expired")
	ErrNotRoomHost    = New(http.StatusUnauthorized, "only the room host may update the room")
	ErrDiveInDisabled = New(http.StatusUnauthorized, "dive in is disabled on this server")

	// 404 Not Found
	ErrNotFound      = New(http.StatusNotFound, "resource not found")
	ErrUserNotFound  = New(http.StatusNotFound, "user not found")
	ErrRoomNotFound  = New(http.StatusNotFound, "room not found")
	ErrNoRoomFound   = New(http.StatusNotFound, "no suitable room found")
	ErrUnknownMethod = New(http.StatusNotFound, "unknown match method")

	// 429 Too Many Requests
	ErrTooManyRequests = New(http.StatusTooManyRequests, "too many requests, try again later")

	// 500 Internal Server Error
	ErrInternal = New(http.StatusInternalServerError, "internal server error")
)

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetHTTPStatus returns the HTTP status code for an error
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// GetMessage returns the error message
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
