package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	errs "socklab/internal/errors"
	"socklab/internal/sockconf"
	"socklab/util"
)

// DefaultBacklog is the pending-connection queue depth used when the
// caller passes zero.
const DefaultBacklog = 5

// Listener is a one-shot TCP listener: it accepts exactly one
// connection and then closes itself.
type Listener struct {
	ln     net.Listener
	socket sockconf.Config
	once   sync.Once
	err    error
}

// Listen creates a listening socket on host:port with address reuse
// enabled and the socket configuration applied before bind.  The
// listener is ready to accept when Listen returns, so callers can
// signal readiness to a client before blocking in AcceptOne.
func Listen(host string, port, backlog int, cfg sockconf.Config, warn WarnFunc) (*Listener, error) {
	if err := util.ValidatePort(port); err != nil {
		return nil, err
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	address := util.FormatAddr(host, port)

	ln, err := listenTCP(address, backlog, cfg, warn)
	if err != nil {
		return nil, errs.Wrap(errs.OpBind, address, err)
	}
	return &Listener{ln: ln, socket: cfg}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// AcceptOne blocks until one client connects, the configured timeout
// expires, or ctx is cancelled.  The listener is closed before
// AcceptOne returns in every case.
func (l *Listener) AcceptOne(ctx context.Context) (net.Conn, error) {
	defer l.Close()

	if d := l.socket.ConnectTimeout(); d > 0 {
		if dl, ok := l.ln.(interface{ SetDeadline(time.Time) error }); ok {
			dl.SetDeadline(time.Now().Add(d)) //nolint:errcheck
		}
	}

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	conn, err := l.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, errs.Wrap(errs.OpAccept, l.ln.Addr().String(), err)
	}
	return conn, nil
}

// Close releases the listening socket.  Safe to call more than once.
func (l *Listener) Close() error {
	l.once.Do(func() { l.err = l.ln.Close() })
	return l.err
}

func (l *Listener) String() string {
	return fmt.Sprintf("listener(%s)", l.ln.Addr())
}
