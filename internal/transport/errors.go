package transport

import (
	"fmt"
)

// Transport errors.
var (
	ErrConnectionClosed = NewTpError(1001, "Connection is closed", "")
	ErrBufferFull       = NewTpError(1002, "Send buffer full", "")
	ErrFrameTooLarge    = NewTpError(1003, "Frame too large", "")
	ErrBadMagic         = NewTpError(1004, "Bad frame magic", "")
	ErrUnknownProtocol  = NewTpError(1005, "Unknown transport protocol", "")
)

type tpError struct {
	code    int
	msg     string
	context string
}

func (e *tpError) Error() string {
	if e.context != "" {
		return fmt.Sprintf("Error %d: %s (context: %s)", e.code, e.msg, e.context)
	}
	return fmt.Sprintf("Error %d: %s", e.code, e.msg)
}

// Is matches errors with the same code.
func (e *tpError) Is(target error) bool {
	t, ok := target.(*tpError)
	return ok && t.code == e.code
}

func (e *tpError) withContext(format string, args ...any) *tpError {
	return &tpError{code: e.code, msg: e.msg, context: fmt.Sprintf(format, args...)}
}

func NewTpError(code int, message string, context string) *tpError {
	return &tpError{
		code:    code,
		msg:     message,
		context: context,
	}
}
