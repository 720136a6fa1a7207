// Package sockconf holds the socket settings shared by every module and
// applies them to sockets before use.
//
// A Config is a plain value.  Sessions receive a copy when they are
// created, so edits made later by the settings editor never race with
// a live connection.
package sockconf

import (
	"fmt"
	"math"
	"syscall"
	"time"

	errs "socklab/internal/errors"
)

// ── Limits and defaults ──────────────────────────────────────────────

const (
	// MinBuffer and MaxBuffer bound SO_SNDBUF / SO_RCVBUF requests.
	MinBuffer = 1024
	MaxBuffer = 65536

	// DefaultBuffer is the initial send and receive buffer size.
	DefaultBuffer = 4096

	// NonBlockingWindow is how long a non-blocking socket operation may
	// wait for readiness before it reports would-block.  The Go runtime
	// keeps descriptors non-blocking internally, so non-blocking mode is
	// modelled as a near-immediate deadline.
	NonBlockingWindow = time.Millisecond
)

// Config is the socket configuration applied to every socket a module
// opens.  A zero Timeout means "none".
type Config struct {
	Timeout    time.Duration
	SendBuffer int
	RecvBuffer int
	Blocking   bool
}

// Default returns the startup configuration: no timeout, 4 KiB buffers,
// blocking mode.
func Default() Config {
	return Config{
		SendBuffer: DefaultBuffer,
		RecvBuffer: DefaultBuffer,
		Blocking:   true,
	}
}

// ── Validation and edits ─────────────────────────────────────────────

// maxTimeoutSeconds is the largest timeout a time.Duration can hold.
const maxTimeoutSeconds = float64(math.MaxInt64) / float64(time.Second)

// Seconds converts a timeout in seconds to a duration.  Zero means no
// timeout; any other value must be at least one nanosecond and fit in
// a time.Duration.
func Seconds(secs float64) (time.Duration, error) {
	switch {
	case math.IsNaN(secs) || math.IsInf(secs, 0):
		return 0, errs.Invalid("timeout", secs, "not a number", "enter seconds, e.g. 2.5, or 0 for blocking")
	case secs < 0:
		return 0, errs.Invalid("timeout", secs, "must not be negative", "use 0 for blocking mode")
	case secs >= maxTimeoutSeconds:
		return 0, errs.Invalid("timeout", secs, "too large",
			fmt.Sprintf("use less than %.0f seconds", maxTimeoutSeconds))
	}
	d := time.Duration(secs * float64(time.Second))
	if d == 0 && secs != 0 {
		return 0, errs.Invalid("timeout", secs, "too small", "use 0 for blocking mode")
	}
	return d, nil
}

// ValidateBuffer checks that n is an acceptable buffer size.
func ValidateBuffer(field string, n int) error {
	if n < MinBuffer || n > MaxBuffer {
		return errs.Invalid(field, n,
			fmt.Sprintf("out of range %d-%d", MinBuffer, MaxBuffer),
			"buffer sizes are given in bytes")
	}
	return nil
}

// Validate checks the invariants of c.
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return errs.Invalid("timeout", c.Timeout, "must not be negative", "use 0 for blocking mode")
	}
	if err := ValidateBuffer("send buffer", c.SendBuffer); err != nil {
		return err
	}
	return ValidateBuffer("receive buffer", c.RecvBuffer)
}

// WithTimeout returns a copy of c with the given timeout.  A zero
// timeout clears it and selects blocking mode.
func (c Config) WithTimeout(d time.Duration) (Config, error) {
	if d < 0 {
		return c, errs.Invalid("timeout", d, "must not be negative", "use 0 for blocking mode")
	}
	c.Timeout = d
	if d == 0 {
		c.Blocking = true
	}
	return c, nil
}

// WithBuffers returns a copy of c with new buffer sizes.  Both sizes
// are validated before either is changed.
func (c Config) WithBuffers(send, recv int) (Config, error) {
	if err := ValidateBuffer("send buffer", send); err != nil {
		return c, err
	}
	if err := ValidateBuffer("receive buffer", recv); err != nil {
		return c, err
	}
	c.SendBuffer = send
	c.RecvBuffer = recv
	return c, nil
}

// WithBlocking returns a copy of c with the blocking flag set.
func (c Config) WithBlocking(on bool) Config {
	c.Blocking = on
	return c
}

// ── Timeouts ─────────────────────────────────────────────────────────

// Deadline returns the deadline for a single send or receive started
// at now.  The blocking flag is applied after the timeout and wins:
// non-blocking sockets always get a near-immediate deadline.  The zero
// time means no deadline.
func (c Config) Deadline(now time.Time) time.Time {
	switch {
	case !c.Blocking:
		return now.Add(NonBlockingWindow)
	case c.Timeout > 0:
		return now.Add(c.Timeout)
	default:
		return time.Time{}
	}
}

// ConnectTimeout bounds connect and accept.  Zero means unbounded.
func (c Config) ConnectTimeout() time.Duration { return c.Timeout }

// ── Display ──────────────────────────────────────────────────────────

// TimeoutString renders the timeout the way the settings screen shows it.
func (c Config) TimeoutString() string {
	if c.Timeout == 0 {
		return "None (Blocking)"
	}
	return fmt.Sprintf("%gs", c.Timeout.Seconds())
}

// ModeString is "Blocking" or "Non-blocking".
func (c Config) ModeString() string {
	if c.Blocking {
		return "Blocking"
	}
	return "Non-blocking"
}

func (c Config) String() string {
	return fmt.Sprintf("timeout=%s send=%d recv=%d mode=%s",
		c.TimeoutString(), c.SendBuffer, c.RecvBuffer, c.ModeString())
}

// ── Applying to sockets ──────────────────────────────────────────────

// Socket is a connection whose descriptor and deadlines can be set.
// *net.TCPConn and *net.UDPConn satisfy it.
type Socket interface {
	syscall.Conn
	SetDeadline(t time.Time) error
}

// Apply sets the timeout, send buffer, receive buffer and blocking
// mode on a freshly accepted or dialed socket, in that order.  The
// returned error, if any, is an *errors.ApplyWarning: options that
// failed keep their OS defaults and the socket stays usable.
func (c Config) Apply(s Socket) error {
	var failed []string
	var causes []error

	if err := s.SetDeadline(c.Deadline(time.Now())); err != nil {
		failed = append(failed, "timeout")
		causes = append(causes, err)
	}

	rc, err := s.SyscallConn()
	if err != nil {
		failed = append(failed, "SO_SNDBUF", "SO_RCVBUF")
		causes = append(causes, err)
	} else if err := c.ApplyRaw(rc); err != nil {
		var w *errs.ApplyWarning
		if errs.As(err, &w) {
			failed = append(failed, w.Options...)
			causes = append(causes, w.Err)
		}
	}

	if len(failed) == 0 {
		return nil
	}
	return &errs.ApplyWarning{Options: failed, Err: errs.Join(causes...)}
}

// ApplyRaw sets the buffer sizes on a raw connection, typically one
// that is not connected yet.
func (c Config) ApplyRaw(rc syscall.RawConn) error {
	var warn error
	if err := rc.Control(func(fd uintptr) { warn = c.ApplyFD(fd) }); err != nil {
		return &errs.ApplyWarning{Options: []string{"SO_SNDBUF", "SO_RCVBUF"}, Err: err}
	}
	return warn
}

// ApplyFD sets the buffer sizes directly on a descriptor.
func (c Config) ApplyFD(fd uintptr) error {
	var failed []string
	var causes []error
	if err := setSendBuffer(fd, c.SendBuffer); err != nil {
		failed = append(failed, "SO_SNDBUF")
		causes = append(causes, err)
	}
	if err := setRecvBuffer(fd, c.RecvBuffer); err != nil {
		failed = append(failed, "SO_RCVBUF")
		causes = append(causes, err)
	}
	if len(failed) == 0 {
		return nil
	}
	return &errs.ApplyWarning{Options: failed, Err: errs.Join(causes...)}
}

// Control returns a function suitable for net.Dialer.Control and
// net.ListenConfig.Control.  Option failures are passed to warn rather
// than aborting the dial.  With reuseAddr set, SO_REUSEADDR is enabled
// as well.
func (c Config) Control(reuseAddr bool, warn func(error)) func(network, address string, rc syscall.RawConn) error {
	return func(_, _ string, rc syscall.RawConn) error {
		return rc.Control(func(fd uintptr) {
			if reuseAddr {
				if err := SetReuseAddr(fd); err != nil && warn != nil {
					warn(&errs.ApplyWarning{Options: []string{"SO_REUSEADDR"}, Err: err})
				}
			}
			if err := c.ApplyFD(fd); err != nil && warn != nil {
				warn(err)
			}
		})
	}
}

// Effective reads back the buffer sizes the OS actually granted.  Some
// kernels report a multiple of the requested size.
func Effective(s syscall.Conn) (send, recv int, err error) {
	rc, err := s.SyscallConn()
	if err != nil {
		return 0, 0, err
	}
	var opErr error
	if err := rc.Control(func(fd uintptr) {
		send, opErr = sendBufferSize(fd)
		if opErr == nil {
			recv, opErr = recvBufferSize(fd)
		}
	}); err != nil {
		return 0, 0, err
	}
	return send, recv, opErr
}
