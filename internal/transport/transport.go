// Package transport creates the sockets every module uses.  Transports
// handle the "how" of connection establishment (dialing, listening
// with a backlog, applying socket options before connect or bind)
// independent of what happens over the connection afterwards, which is
// the session layer's job.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections with the socket
// configuration already applied.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer.
	// Stateless dialers return nil.
	Close() error
}

// WarnFunc receives non-fatal socket option failures.
type WarnFunc func(error)

func (w WarnFunc) report(err error) {
	if w != nil && err != nil {
		w(err)
	}
}
