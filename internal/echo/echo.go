// Package echo runs the loopback echo test: a one-shot server that
// returns the first chunk it receives, and a client that checks the
// reply byte for byte.
package echo

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sync/errgroup"

	errs "socklab/internal/errors"
	"socklab/internal/session"
	"socklab/internal/sockconf"
	"socklab/internal/transport"
	"socklab/util"
)

const (
	// MaxPayload is the largest message the server reads and echoes.
	MaxPayload = 2048

	// DefaultMessage is what the client sends unless told otherwise.
	DefaultMessage = "Hello from client!"

	// DefaultHost is the address both roles use.
	DefaultHost = "localhost"
)

// Options configures one echo test.
type Options struct {
	Host    string
	Port    int
	Message []byte
	Socket  sockconf.Config
	Session session.Options

	// Progress receives one human-readable line per step.  May be nil.
	Progress func(format string, args ...any)
}

func (o *Options) progress(format string, args ...any) {
	if o.Progress != nil {
		o.Progress(format, args...)
	}
}

func (o *Options) defaults() {
	if o.Host == "" {
		o.Host = DefaultHost
	}
	if o.Message == nil {
		o.Message = []byte(DefaultMessage)
	}
}

// Validate rejects the options before any socket is opened.
func (o Options) Validate() error {
	if err := util.ValidatePort(o.Port); err != nil {
		return err
	}
	if len(o.Message) == 0 {
		return errs.Invalid("message", nil, "must not be empty", "")
	}
	if len(o.Message) > MaxPayload {
		err := errs.Invalid("message", len(o.Message),
			fmt.Sprintf("%v (%d bytes max)", errs.ErrPayloadTooBig, MaxPayload), "")
		err.Err = errs.ErrPayloadTooBig
		return err
	}
	return nil
}

// Result is the outcome of one test.  Role errors are independent: a
// server failure does not hide what the client observed, and the
// reverse.
type Result struct {
	Sent      []byte
	Echoed    []byte // what the server read and sent back
	Received  []byte // what the client read
	Match     bool
	ServerErr error
	ClientErr error
}

// Err joins both role errors.
func (r Result) Err() error { return errs.Join(r.ServerErr, r.ClientErr) }

// Run performs the test.  The returned error is non-nil only when the
// options are rejected; socket failures are reported in the Result.
func Run(ctx context.Context, o Options) (Result, error) {
	o.defaults()
	if err := o.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{Sent: o.Message}

	serverCtx, cancelServer := context.WithCancel(ctx)
	defer cancelServer()

	ready := make(chan net.Addr, 1)
	var g errgroup.Group
	g.Go(func() error {
		defer close(ready)
		res.Echoed, res.ServerErr = Serve(serverCtx, o, ready)
		return nil
	})

	addr, ok := <-ready
	if !ok {
		res.ClientErr = errs.Wrap(errs.OpConnect, util.FormatAddr(o.Host, o.Port),
			errs.New("server did not start"))
	} else {
		res.Received, res.ClientErr = Client(ctx, addr, o)
		if errs.IsConnect(res.ClientErr) {
			// The server would otherwise wait for a client that never comes.
			cancelServer()
		}
	}
	g.Wait() //nolint:errcheck

	res.Match = res.ClientErr == nil && bytes.Equal(res.Sent, res.Received)
	return res, nil
}

// Serve listens on o.Host:o.Port, publishes the bound address on ready,
// accepts one client, echoes its first chunk and closes.  It returns
// the bytes it echoed.
func Serve(ctx context.Context, o Options, ready chan<- net.Addr) ([]byte, error) {
	ln, err := session.Listen(o.Host, o.Port, transport.DefaultBacklog, o.Socket, o.Session)
	if err != nil {
		return nil, err
	}
	o.progress("Server listening on %s", ln.Addr())
	ready <- ln.Addr()

	s, err := session.Accept(ctx, ln, o.Socket, o.Session)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	o.progress("Server: connection from %s", s.RemoteAddr())

	data, err := s.Receive(MaxPayload)
	if err != nil {
		return nil, err
	}
	o.progress("Server received: %s", data)
	if err := s.Send(data); err != nil {
		return data, err
	}
	o.progress("Server echoed %d bytes", len(data))
	return data, nil
}

// Client connects to addr, sends o.Message and returns the reply.
func Client(ctx context.Context, addr net.Addr, o Options) ([]byte, error) {
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return nil, errs.Wrap(errs.OpConnect, addr.String(), err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, errs.Wrap(errs.OpConnect, addr.String(), err)
	}

	s, err := session.Connect(ctx, host, port, o.Socket, o.Session)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	o.progress("Client connected to %s", s.RemoteAddr())

	if err := s.Send(o.Message); err != nil {
		return nil, err
	}
	o.progress("Client sent: %s", o.Message)

	reply, err := s.Receive(MaxPayload)
	if err != nil {
		return nil, err
	}
	o.progress("Client received: %s", reply)
	return reply, nil
}
