//go:build !unix

package transport

import (
	"context"
	"net"

	"socklab/internal/sockconf"
)

// listenTCP falls back to the runtime listener; the backlog is left to
// the OS default on these platforms.
func listenTCP(address string, _ int, cfg sockconf.Config, warn WarnFunc) (net.Listener, error) {
	lc := net.ListenConfig{Control: cfg.Control(true, warn.report)}
	return lc.Listen(context.Background(), "tcp", address)
}
