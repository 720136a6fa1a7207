// Package session wraps one connected stream socket.
//
// A Session owns its connection exclusively.  Send and Receive apply
// the socket configuration's timeout/blocking policy to every call, and
// once Close has run every further Send or Receive fails with
// errors.ErrSessionClosed instead of touching the descriptor.
package session

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	errs "socklab/internal/errors"
	"socklab/internal/metrics"
	"socklab/internal/sockconf"
	"socklab/internal/transport"
	"socklab/util"
)

// Options carries the optional collaborators of a session.  The zero
// value logs nothing and records no metrics.
type Options struct {
	Logger  *util.Logger
	Metrics *metrics.Collector
}

func (o Options) logger() *util.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return util.NewLogger(0)
}

// Session is one established bidirectional byte stream.
type Session struct {
	conn    net.Conn
	socket  sockconf.Config
	peer    string
	logger  *util.Logger
	metrics *metrics.Collector

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New wraps an accepted or dialed connection and applies cfg to it.
// Option failures are logged as warnings; the session is still usable.
func New(conn net.Conn, cfg sockconf.Config, opts Options) *Session {
	s := &Session{
		conn:    conn,
		socket:  cfg,
		peer:    conn.RemoteAddr().String(),
		logger:  opts.logger(),
		metrics: opts.Metrics,
	}
	if sc, ok := conn.(sockconf.Socket); ok {
		if err := cfg.Apply(sc); err != nil {
			s.logger.Warn("%v", err)
			s.metrics.ApplyWarning()
		}
	}
	s.metrics.ConnectionOpened()
	return s
}

// ── Establishment ────────────────────────────────────────────────────

// Connect opens a stream socket to host:port with cfg applied.
func Connect(ctx context.Context, host string, port int, cfg sockconf.Config, opts Options) (*Session, error) {
	if host == "" {
		return nil, errs.Invalid("host", nil, "required", "")
	}
	if err := util.ValidatePort(port); err != nil {
		return nil, err
	}
	logger := opts.logger()
	d := &transport.TCPDialer{
		Socket: cfg,
		Warn:   func(err error) { logger.Debug("pre-connect: %v", err) },
	}
	return Dial(ctx, d, util.FormatAddr(host, port), cfg, opts)
}

// Dial connects through d.  Exposed so callers can substitute the
// dialer.
func Dial(ctx context.Context, d transport.Dialer, address string, cfg sockconf.Config, opts Options) (*Session, error) {
	logger := opts.logger()
	logger.Verbose("connecting to %s (%s)", address, cfg)

	conn, err := d.Dial(ctx, "tcp", address)
	if err != nil {
		opts.Metrics.RecordError(err.Error())
		return nil, errs.Wrap(errs.OpConnect, address, err)
	}
	logger.Verbose("connected to %s", conn.RemoteAddr())
	return New(conn, cfg, opts), nil
}

// Listen creates the one-shot listening socket used by
// ListenAndAcceptOne.  Option warnings go to the session logger.
func Listen(host string, port, backlog int, cfg sockconf.Config, opts Options) (*transport.Listener, error) {
	logger := opts.logger()
	ln, err := transport.Listen(host, port, backlog, cfg, func(err error) {
		logger.Warn("%v", err)
		opts.Metrics.ApplyWarning()
	})
	if err != nil {
		opts.Metrics.RecordError(err.Error())
		return nil, err
	}
	logger.Verbose("listening on %s (backlog %d)", ln.Addr(), backlog)
	return ln, nil
}

// Accept waits for the single client of ln and wraps it.  ln is closed
// afterwards.
func Accept(ctx context.Context, ln *transport.Listener, cfg sockconf.Config, opts Options) (*Session, error) {
	conn, err := ln.AcceptOne(ctx)
	if err != nil {
		opts.Metrics.RecordError(err.Error())
		return nil, err
	}
	opts.logger().Verbose("connection from %s", conn.RemoteAddr())
	return New(conn, cfg, opts), nil
}

// ListenAndAcceptOne binds host:port with address reuse, waits for one
// client, closes the listening socket and returns the session.
func ListenAndAcceptOne(ctx context.Context, host string, port, backlog int, cfg sockconf.Config, opts Options) (*Session, error) {
	ln, err := Listen(host, port, backlog, cfg, opts)
	if err != nil {
		return nil, err
	}
	return Accept(ctx, ln, cfg, opts)
}

// ── I/O ──────────────────────────────────────────────────────────────

// Send writes all of b, continuing after partial writes until every
// byte is out or the socket fails.
func (s *Session) Send(b []byte) error {
	if s.closed.Load() {
		return errs.Wrap(errs.OpSend, s.peer, errs.ErrSessionClosed)
	}
	for len(b) > 0 {
		s.conn.SetWriteDeadline(s.socket.Deadline(time.Now())) //nolint:errcheck
		n, err := s.conn.Write(b)
		s.metrics.BytesSent(int64(n))
		b = b[n:]
		if err != nil {
			return s.fail(errs.OpSend, err)
		}
	}
	return nil
}

// Receive returns up to maxLen bytes.  An empty slice with a nil error
// means the peer shut down its side in an orderly way.
func (s *Session) Receive(maxLen int) ([]byte, error) {
	if s.closed.Load() {
		return nil, errs.Wrap(errs.OpReceive, s.peer, errs.ErrSessionClosed)
	}
	if maxLen <= 0 {
		return nil, errs.Invalid("receive length", maxLen, "must be positive", "")
	}
	buf := make([]byte, maxLen)
	for {
		s.conn.SetReadDeadline(s.socket.Deadline(time.Now())) //nolint:errcheck
		n, err := s.conn.Read(buf)
		if n > 0 {
			s.metrics.BytesReceived(int64(n))
			return buf[:n], nil
		}
		switch {
		case err == io.EOF:
			return buf[:0], nil
		case err != nil:
			return nil, s.fail(errs.OpReceive, err)
		}
	}
}

// CloseWrite half-closes the stream so the peer observes end of
// stream while this side can still receive.
func (s *Session) CloseWrite() error {
	if s.closed.Load() {
		return errs.Wrap(errs.OpSend, s.peer, errs.ErrSessionClosed)
	}
	if cw, ok := s.conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}

// Close releases the connection.  Calling it again is a no-op that
// returns nil.
func (s *Session) Close() error {
	err := error(nil)
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.conn.Close()
		s.metrics.ConnectionClosed()
		err = s.closeErr
	})
	return err
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool { return s.closed.Load() }

// ── Accessors ────────────────────────────────────────────────────────

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// LocalAddr returns the local address.
func (s *Session) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// Config returns the configuration snapshot applied at creation.
func (s *Session) Config() sockconf.Config { return s.socket }

func (s *Session) String() string {
	return fmt.Sprintf("session(%s -> %s)", s.conn.LocalAddr(), s.peer)
}

// fail wraps err for op, tagging deadline expiry on non-blocking
// sockets as would-block.
func (s *Session) fail(op string, err error) error {
	if !s.socket.Blocking && errs.IsTimeout(err) {
		err = fmt.Errorf("%w: %w", errs.ErrWouldBlock, err)
	}
	if !errs.IsClosed(err) {
		s.metrics.RecordError(err.Error())
	}
	return errs.Wrap(op, s.peer, err)
}
