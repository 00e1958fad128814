package protocol

import (
	"errors"
	"fmt"
)

// Inbound decode errors. None of them is fatal to the connection; each is
// contained to the buffer being processed.
var (
	ErrNotStructured    = NewProtoError(2001, "batch is not a structured message", "")
	ErrMalformedBatch   = NewProtoError(2002, "malformed batch payload", "")
	ErrDecompression    = NewProtoError(2003, "batch decompression failed", "")
	ErrFrameTruncated   = NewProtoError(2004, "batch frame truncated", "")
	ErrUnparseableFrame = NewProtoError(2005, "batch frame unparseable", "")
	ErrNestingLimit     = NewProtoError(2006, "batch nesting limit exceeded", "")
	ErrMalformedPacket  = NewProtoError(2007, "malformed packet", "")
)

var errorKinds = map[int]string{
	2001: "not_structured",
	2002: "malformed_batch",
	2003: "decompression",
	2004: "frame_truncated",
	2005: "unparseable_frame",
	2006: "nesting_limit",
	2007: "malformed_packet",
}

type protoError struct {
	code    int
	msg     string
	context string
	err     error
}

func (e *protoError) Error() string {
	s := fmt.Sprintf("Error %d: %s", e.code, e.msg)
	if e.context != "" {
		s += fmt.Sprintf(" (context: %s)", e.context)
	}
	if e.err != nil {
		s += ": " + e.err.Error()
	}
	return s
}

// Is matches any error with the same code, so errors.Is(err, ErrFrameTruncated)
// holds for every truncation regardless of its context.
func (e *protoError) Is(target error) bool {
	t, ok := target.(*protoError)
	return ok && t.code == e.code
}

func (e *protoError) Unwrap() error { return e.err }

func (e *protoError) Code() int { return e.code }

// with returns a copy carrying context and an optional cause.
func (e *protoError) with(context string, cause error) *protoError {
	return &protoError{code: e.code, msg: e.msg, context: context, err: cause}
}

func (e *protoError) withf(cause error, format string, args ...any) *protoError {
	return e.with(fmt.Sprintf(format, args...), cause)
}

func NewProtoError(code int, message string, context string) *protoError {
	return &protoError{
		code:    code,
		msg:     message,
		context: context,
	}
}

// ErrorKind names the kind of a decode error for logs and metrics. Errors
// that did not originate here are reported as "handler".
func ErrorKind(err error) string {
	var pe *protoError
	if errors.As(err, &pe) {
		if kind, ok := errorKinds[pe.code]; ok {
			return kind
		}
	}
	return "handler"
}
