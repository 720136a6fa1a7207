// Package sntp asks a time server for the current time with a single
// SNTP request and reports how far the local clock is off.
package sntp

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	errs "socklab/internal/errors"
	"socklab/internal/sockconf"
	"socklab/internal/transport"
	"socklab/util"
)

const (
	// DefaultServer is queried when none is configured.
	DefaultServer = "0.uk.pool.ntp.org"
	// Port is the NTP service port.
	Port = 123

	// PacketSize is the length of a request and the minimum length of a
	// reply.
	PacketSize = 48

	// QueryTimeout bounds the wait for a reply when the socket
	// configuration sets no timeout.  UDP has no connection to lose, so
	// an unanswered request would otherwise wait forever.
	QueryTimeout = 5 * time.Second

	// requestHeader is LI=0, VN=3, Mode=3 (client).
	requestHeader = 0x1B
	// ntpEpochOffset is the number of seconds from 1900-01-01 to
	// 1970-01-01.
	ntpEpochOffset = 2208988800
	transmitOffset = 40
	replyBuffer    = 1024
)

// Result is one measurement.
type Result struct {
	Server     string
	ServerTime time.Time
	LocalTime  time.Time
	// Offset is local minus server: positive means the local clock is
	// ahead.
	Offset time.Duration
}

func (r *Result) String() string {
	return fmt.Sprintf("server=%s offset=%.2fs", r.Server, r.Offset.Seconds())
}

// Client queries one server.  The zero value queries DefaultServer
// with the default socket configuration.
type Client struct {
	Server string
	Socket sockconf.Config
	Logger *util.Logger
	Dialer transport.Dialer // nil means a UDPDialer built from Socket
	Now    func() time.Time
}

// Request returns the 48-byte client request.
func Request() []byte {
	b := make([]byte, PacketSize)
	b[0] = requestHeader
	return b
}

// ParseTransmitTime extracts the server's transmit timestamp from a
// reply.
func ParseTransmitTime(reply []byte) (time.Time, error) {
	if len(reply) < PacketSize {
		return time.Time{}, fmt.Errorf("short reply: %d bytes, want at least %d", len(reply), PacketSize)
	}
	secs := int64(binary.BigEndian.Uint32(reply[transmitOffset:]))
	frac := int64(binary.BigEndian.Uint32(reply[transmitOffset+4:]))
	nanos := (frac * int64(time.Second)) >> 32
	return time.Unix(secs-ntpEpochOffset, nanos), nil
}

// Query sends one request and waits for the reply.
func (c *Client) Query(ctx context.Context) (*Result, error) {
	server := c.Server
	if server == "" {
		server = DefaultServer
	}
	address := server
	if _, _, err := net.SplitHostPort(server); err != nil {
		address = util.FormatAddr(server, Port)
	}
	logger := c.Logger
	if logger == nil {
		logger = util.NewLogger(0)
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	socket := c.Socket
	if socket.SendBuffer == 0 && socket.RecvBuffer == 0 {
		socket = sockconf.Default()
	}

	d := c.Dialer
	if d == nil {
		d = &transport.UDPDialer{Socket: socket, Warn: func(err error) { logger.Debug("pre-connect: %v", err) }}
	}
	conn, err := d.Dial(ctx, "udp", address)
	if err != nil {
		return nil, errs.Wrap(errs.OpConnect, address, err)
	}
	defer conn.Close()

	if sc, ok := conn.(sockconf.Socket); ok {
		if err := socket.Apply(sc); err != nil {
			logger.Warn("%v", err)
		}
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	logger.Verbose("requesting time from %s", address)
	conn.SetWriteDeadline(socket.Deadline(time.Now())) //nolint:errcheck
	if _, err := conn.Write(Request()); err != nil {
		return nil, fail(ctx, errs.OpSend, address, socket, err)
	}

	deadline := socket.Deadline(time.Now())
	if deadline.IsZero() {
		deadline = time.Now().Add(QueryTimeout)
	}
	conn.SetReadDeadline(deadline) //nolint:errcheck
	buf := make([]byte, replyBuffer)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fail(ctx, errs.OpReceive, address, socket, err)
	}
	local := now()

	serverTime, err := ParseTransmitTime(buf[:n])
	if err != nil {
		return nil, errs.Wrap(errs.OpQuery, address, err)
	}
	return &Result{
		Server:     server,
		ServerTime: serverTime,
		LocalTime:  local,
		Offset:     local.Sub(serverTime),
	}, nil
}

func fail(ctx context.Context, op, address string, socket sockconf.Config, err error) error {
	switch {
	case ctx.Err() != nil:
		err = ctx.Err()
	case !socket.Blocking && errs.IsTimeout(err):
		err = fmt.Errorf("%w: %w", errs.ErrWouldBlock, err)
	}
	return errs.Wrap(op, address, err)
}
