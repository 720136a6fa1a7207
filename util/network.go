package util

import (
	"fmt"
	"net"
	"strconv"

	errs "socklab/internal/errors"
)

// MinPort and MaxPort bound every user-supplied port.
const (
	MinPort = 1
	MaxPort = 65535
)

// ValidatePort rejects ports outside 1-65535 before any socket is
// opened.
func ValidatePort(port int) error {
	if port < MinPort || port > MaxPort {
		return errs.Invalid("port", port,
			fmt.Sprintf("out of range %d-%d", MinPort, MaxPort), "")
	}
	return nil
}

// ParsePort converts user input to a validated port.  An empty string
// yields def.
func ParsePort(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.Invalid("port", s, "not a number", "")
	}
	if err := ValidatePort(port); err != nil {
		return 0, err
	}
	return port, nil
}

// LookupHost resolves a hostname to every address it maps to.
func LookupHost(host string) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{host}, nil
	}
	addrs, err := net.LookupHost(host)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup for %q: %w", host, err)
	}
	return addrs, nil
}

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// FindFreePort returns an available TCP port on 127.0.0.1.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
