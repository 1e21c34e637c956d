package errcode

import "fmt"

// Error represents a business error
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("errcode: %d, msg: %s", e.Code, e.Msg)
}

// New creates a new error with code and message
func New(code int, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap wraps an error with additional context
func (e *Error) Wrap(err error) *Error {
	if err == nil {
		return e
	}
	return &Error{
		Code: e.Code,
		Msg:  fmt.Sprintf("%s: %v", e.Msg, err),
	}
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Common error codes
var (
	// Success
	ErrSuccess = New(0, "success")

	// Common errors (1xxx)
	ErrInvalidParam   = New(1001, "invalid parameter")
	ErrInternal       = New(1002, "internal error")
	ErrNotFound       = New(1005, "not found")
	ErrClosed         = New(1008, "client closed")

	// Session/token errors (2xxx)
	ErrTokenInvalid = New(2001, "token invalid")
	ErrTokenExpired = New(2002, "token expired")
	ErrTokenMissing = New(2003, "token missing")

	// Subscription errors (6xxx)
	ErrSubscribeFailed = New(6001, "subscribe failed")
	ErrStreamClosed    = New(6002, "subscription stream closed")
	ErrConnClosed      = New(6003, "connection closed")
	ErrInvalidSnapshot = New(6004, "invalid snapshot document")

	// Send errors (7xxx)
	ErrSendFailed        = New(7001, "message send failed")
	ErrLastMessageFailed = New(7002, "conversation last-message update failed")
	ErrMessageNotFound   = New(7003, "message not found")
	ErrNotRetryable      = New(7004, "message is not in a failed state")

	// Toggle errors (8xxx)
	ErrToggleFailed = New(8001, "conversation flag update failed")
	ErrConvNotFound = New(8002, "conversation not found")
)
