// Package chat is the two-party line chat.  Each side runs a send loop
// fed by the console and a receive loop fed by the socket; the session
// ends when the user quits, the peer hangs up, or either loop fails.
//
// Messages travel as UTF-8 lines terminated by '\n'.  A chunk that
// ends mid-line is held until the rest arrives, or shown as-is when
// the peer closes.
package chat

import (
	"bytes"
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	errs "socklab/internal/errors"
	"socklab/internal/metrics"
	"socklab/internal/session"
	"socklab/util"
)

const (
	// ReceiveSize is the most bytes one receive call asks for.
	ReceiveSize = 1024

	// QuitCommand ends the local side of the chat.
	QuitCommand = "/quit"

	// QuitLinger is how long a side that quit keeps reading for the
	// peer's end of stream before closing the socket itself.
	QuitLinger = 2 * time.Second
)

// Role is which end of the conversation this process is.
type Role int

const (
	Server Role = iota
	Client
)

func (r Role) String() string {
	if r == Client {
		return "Client"
	}
	return "Server"
}

// Peer returns the opposite role.
func (r Role) Peer() Role {
	if r == Client {
		return Server
	}
	return Client
}

// DisplayFunc shows one message received from the peer.
type DisplayFunc func(from Role, msg string)

// Chat is one connected conversation.
type Chat struct {
	// Linger bounds the wait for the peer after a local quit.
	Linger time.Duration

	session *session.Session
	role    Role
	input   <-chan string
	display DisplayFunc
	log     *Transcript
	metrics *metrics.Collector
	logger  *util.Logger
	linger  *time.Timer
}

// New prepares a chat over s.  input delivers the user's lines and is
// closed at end of input; log may be nil.
func New(s *session.Session, role Role, input <-chan string, display DisplayFunc, log *Transcript, opts session.Options) *Chat {
	if display == nil {
		display = func(Role, string) {}
	}
	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Chat{
		Linger:  QuitLinger,
		session: s,
		role:    role,
		input:   input,
		display: display,
		log:     log,
		metrics: opts.Metrics,
		logger:  logger.With("role", role.String()),
	}
}

// Start runs both loops and blocks until both have ended.  The socket
// and the transcript are closed before it returns.  A peer hanging up
// is a normal end and returns nil, as is a local quit: after one the
// peer gets Linger to finish before the socket is closed.
func (c *Chat) Start(ctx context.Context) error {
	defer c.log.Close()     //nolint:errcheck
	defer c.session.Close() //nolint:errcheck

	unwatch := context.AfterFunc(ctx, func() { c.session.Close() })
	defer unwatch()

	stop := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(stop)
		return c.receiveLoop()
	})
	g.Go(func() error { return c.sendLoop(ctx, stop) })

	err := g.Wait()
	if c.linger != nil {
		c.linger.Stop()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// sendLoop forwards console lines until the user quits, the receive
// side ends, or a send fails.
func (c *Chat) sendLoop(ctx context.Context, stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return nil
		case line, ok := <-c.input:
			if !ok || strings.TrimSpace(line) == QuitCommand {
				c.logger.Verbose("local user left, closing write side")
				if err := c.session.CloseWrite(); err != nil && !errs.IsClosed(err) {
					return err
				}
				// A peer that never hangs up must not keep us here.
				c.linger = time.AfterFunc(c.Linger, func() { c.session.Close() }) //nolint:errcheck
				return nil
			}
			if line == "" {
				continue
			}
			if err := c.session.Send([]byte(line + "\n")); err != nil {
				c.logger.Debug("send loop: %v", err)
				return err
			}
			c.metrics.MessageSent()
			if c.role == Client {
				c.record(Client, line)
			}
		}
	}
}

// receiveLoop reads until end of stream or error.
func (c *Chat) receiveLoop() error {
	var pending []byte
	for {
		chunk, err := c.session.Receive(ReceiveSize)
		if err != nil || len(chunk) == 0 {
			c.deliver(pending)
			if errs.IsClosed(err) {
				return nil
			}
			if err == nil {
				c.logger.Verbose("peer closed the connection")
			}
			return err
		}
		pending = append(pending, chunk...)
		for {
			i := bytes.IndexByte(pending, '\n')
			if i < 0 {
				break
			}
			c.deliver(pending[:i])
			pending = pending[i+1:]
		}
	}
}

func (c *Chat) deliver(b []byte) {
	msg := strings.TrimRight(string(b), "\r")
	if msg == "" {
		return
	}
	c.metrics.MessageReceived()
	from := c.role.Peer()
	c.display(from, msg)
	if c.role == Client {
		c.record(from, msg)
	}
}

func (c *Chat) record(from Role, msg string) {
	if err := c.log.Append(from, msg); err != nil {
		c.logger.Warn("chat log: %v", err)
	}
}
