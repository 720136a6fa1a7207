// Package errors provides domain-specific error types for socklab.
//
// These types carry structured context (operation, address, offending
// option) so callers can report a human-readable reason at the point of
// failure and decide whether the failure is fatal to the current role.
package errors

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrSessionClosed = errors.New("session is closed")
	ErrWouldBlock    = errors.New("operation would block")
	ErrPayloadTooBig = errors.New("payload exceeds limit")
)

// ── Operations ───────────────────────────────────────────────────────

// Op names the socket operation that failed.
const (
	OpBind    = "bind"
	OpAccept  = "accept"
	OpConnect = "connect"
	OpSend    = "send"
	OpReceive = "receive"
	OpQuery   = "query"
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a socket operation.  The Op
// field distinguishes bind, connect, send and receive failures.
type NetworkError struct {
	Op   string // one of the Op* constants
	Addr string // network address involved
	Err  error  // underlying error
}

func (e *NetworkError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ApplyWarning reports socket options that could not be applied.  It
// is never fatal: the socket keeps the OS default for each option
// listed in Options.
type ApplyWarning struct {
	Options []string
	Err     error
}

func (e *ApplyWarning) Error() string {
	return fmt.Sprintf("could not apply %s (OS defaults kept): %v",
		strings.Join(e.Options, ", "), e.Err)
}

func (e *ApplyWarning) Unwrap() error { return e.Err }

// ValidationError represents user input rejected before any resource
// is acquired.
type ValidationError struct {
	Field   string      // input name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
	Err     error       // underlying cause for errors.Is (optional)
}

func (e *ValidationError) Error() string {
	msg := "invalid " + e.Field
	if e.Value != nil {
		msg += fmt.Sprintf(" %v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError for op on addr.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err}
}

// Invalid creates a ValidationError.
func Invalid(field string, value interface{}, message, hint string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message, Hint: hint}
}

// ── Classification helpers ───────────────────────────────────────────

func isOp(err error, op string) bool {
	var ne *NetworkError
	return errors.As(err, &ne) && ne.Op == op
}

// IsBind reports whether err is a bind/listen failure.
func IsBind(err error) bool { return isOp(err, OpBind) || isOp(err, OpAccept) }

// IsConnect reports whether err is a connection failure.
func IsConnect(err error) bool { return isOp(err, OpConnect) }

// IsSend reports whether err is a send failure.
func IsSend(err error) bool { return isOp(err, OpSend) }

// IsReceive reports whether err is a receive failure.
func IsReceive(err error) bool { return isOp(err, OpReceive) }

// IsValidation reports whether err was caused by rejected input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsWarning reports whether err is only an ApplyWarning.
func IsWarning(err error) bool {
	var aw *ApplyWarning
	return errors.As(err, &aw)
}

// IsTimeout reports whether err is a deadline expiry, including the
// would-block condition of non-blocking sockets.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrWouldBlock) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsClosed reports whether err is expected during shutdown: end of
// stream or use of an already closed connection.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrSessionClosed) || errors.Is(err, net.ErrClosed)
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
