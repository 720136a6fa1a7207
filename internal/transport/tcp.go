package transport

import (
	"context"
	"net"

	"socklab/internal/sockconf"
)

// TCPDialer establishes TCP connections with SO_SNDBUF / SO_RCVBUF set
// before the connect, bounded by the configured timeout.
type TCPDialer struct {
	Socket sockconf.Config
	Warn   WarnFunc
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{
		Timeout: d.Socket.ConnectTimeout(),
		Control: d.Socket.Control(false, d.Warn.report),
	}
	return dialer.DialContext(ctx, network, address)
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }

// UDPDialer creates connected UDP sockets with the socket configuration
// applied.
type UDPDialer struct {
	Socket sockconf.Config
	Warn   WarnFunc
}

// Dial "connects" a UDP socket to address so Read/Write can be used.
func (d *UDPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{
		Timeout: d.Socket.ConnectTimeout(),
		Control: d.Socket.Control(false, d.Warn.report),
	}
	return dialer.DialContext(ctx, network, address)
}

// Close is a no-op for UDP dialers.
func (d *UDPDialer) Close() error { return nil }
