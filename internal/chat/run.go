package chat

import (
	"context"
	"net"
	"time"

	"socklab/internal/session"
	"socklab/internal/sockconf"
)

// Options configures either end of a chat.
type Options struct {
	Socket  sockconf.Config
	Session session.Options

	// Input delivers the user's lines; closing it ends the local side.
	Input   <-chan string
	Display DisplayFunc

	// Listening is called once the server socket is bound.  May be nil.
	Listening func(addr net.Addr)
	// Connected is called once the peer is connected.  May be nil.
	Connected func(peer net.Addr)

	// LogDir is where the client writes its transcript.
	LogDir string
	// Now stamps the transcript name.  Defaults to time.Now.
	Now func() time.Time
}

// serverBacklog is one: the server talks to exactly one peer.
const serverBacklog = 1

// RunServer waits on host:port for a single client and chats with it
// until either side leaves.
func RunServer(ctx context.Context, host string, port int, o Options) error {
	ln, err := session.Listen(host, port, serverBacklog, o.Socket, o.Session)
	if err != nil {
		return err
	}
	if o.Listening != nil {
		o.Listening(ln.Addr())
	}

	s, err := session.Accept(ctx, ln, o.Socket, o.Session)
	if err != nil {
		return err
	}
	if o.Connected != nil {
		o.Connected(s.RemoteAddr())
	}
	return New(s, Server, o.Input, o.Display, nil, o.Session).Start(ctx)
}

// RunClient connects to host:port and chats until either side leaves.
// The transcript is opened before connecting and is closed on every
// path; its location is returned even when the chat fails.
func RunClient(ctx context.Context, host string, port int, o Options) (string, error) {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	log, err := OpenTranscript(o.LogDir, now())
	if err != nil {
		return "", err
	}
	defer log.Close() //nolint:errcheck

	s, err := session.Connect(ctx, host, port, o.Socket, o.Session)
	if err != nil {
		return log.Path(), err
	}
	if o.Connected != nil {
		o.Connected(s.RemoteAddr())
	}
	return log.Path(), New(s, Client, o.Input, o.Display, log, o.Session).Start(ctx)
}
