//go:build windows

package sockconf

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func setSendBuffer(fd uintptr, n int) error {
	return windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_SNDBUF, n)
}

func setRecvBuffer(fd uintptr, n int) error {
	return windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_RCVBUF, n)
}

func sendBufferSize(fd uintptr) (int, error) { return getInt(fd, windows.SO_SNDBUF) }

func recvBufferSize(fd uintptr) (int, error) { return getInt(fd, windows.SO_RCVBUF) }

func getInt(fd uintptr, opt int) (int, error) {
	var v int32
	l := int32(unsafe.Sizeof(v))
	err := windows.Getsockopt(windows.Handle(fd), windows.SOL_SOCKET, int32(opt),
		(*byte)(unsafe.Pointer(&v)), &l)
	return int(v), err
}

// SetReuseAddr enables SO_REUSEADDR on fd.
func SetReuseAddr(fd uintptr) error {
	return windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
}
