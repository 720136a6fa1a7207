//go:build unix

package transport

import (
	"net"
	"os"

	"golang.org/x/sys/unix"

	errs "socklab/internal/errors"
	"socklab/internal/sockconf"
)

// listenTCP builds the listening socket by hand so the backlog passed
// to listen(2) is the caller's, not the runtime's default.
func listenTCP(address string, backlog int, cfg sockconf.Config, warn WarnFunc) (net.Listener, error) {
	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, err
	}
	family, sa, err := sockaddr(addr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	unix.CloseOnExec(fd)

	if err := sockconf.SetReuseAddr(uintptr(fd)); err != nil {
		warn.report(&errs.ApplyWarning{Options: []string{"SO_REUSEADDR"}, Err: err})
	}
	warn.report(cfg.ApplyFD(uintptr(fd)))

	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd) //nolint:errcheck
		return nil, os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd) //nolint:errcheck
		return nil, os.NewSyscallError("listen", err)
	}

	// FileListener dups the descriptor; the original is closed with f.
	f := os.NewFile(uintptr(fd), "tcp:"+address)
	defer f.Close()
	return net.FileListener(f)
}

func sockaddr(addr *net.TCPAddr) (int, unix.Sockaddr, error) {
	if addr.IP == nil || addr.IP.To4() != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		if ip4 := addr.IP.To4(); ip4 != nil {
			copy(sa.Addr[:], ip4)
		}
		return unix.AF_INET, sa, nil
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	if addr.Zone != "" {
		ifi, err := net.InterfaceByName(addr.Zone)
		if err != nil {
			return 0, nil, err
		}
		sa.ZoneId = uint32(ifi.Index)
	}
	return unix.AF_INET6, sa, nil
}
