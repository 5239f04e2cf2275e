package errs

import (
    "errors"
    "fmt"
    "net/http"
)

// Error is the failure shape every layer surfaces: an HTTP-equivalent status
// code plus a message. Handlers render it as {error:{statusCode,message}}.
type Error struct {
    StatusCode int    `json:"statusCode"`
    Message    string `json:"message"`
}

func (e *Error) Error() string { return fmt.Sprintf("%d: %s", e.StatusCode, e.Message) }

func Validation(msg string) *Error { return &Error{StatusCode: http.StatusBadRequest, Message: msg} }
func NotFound(msg string) *Error   { return &Error{StatusCode: http.StatusNotFound, Message: msg} }
func Conflict(msg string) *Error   { return &Error{StatusCode: http.StatusConflict, Message: msg} }
func Internal(msg string) *Error   { return &Error{StatusCode: http.StatusInternalServerError, Message: msg} }

// Upstream wraps a non-success answer from an external system, preserving its status
func Upstream(status int, msg string) *Error {
    if status == 0 { status = http.StatusBadGateway }
    return &Error{StatusCode: status, Message: msg}
}

// Body converts any error into the wire status and body
func Body(err error) (int, map[string]any) {
    var e *Error
    if !errors.As(err, &e) {
        e = Internal("Internal Server Error")
    }
    return e.StatusCode, map[string]any{"error": e}
}
