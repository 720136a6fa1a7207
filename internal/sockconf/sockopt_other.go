//go:build !unix && !windows

package sockconf

import "errors"

func setSendBuffer(uintptr, int) error { return errors.ErrUnsupported }

func setRecvBuffer(uintptr, int) error { return errors.ErrUnsupported }

func sendBufferSize(uintptr) (int, error) { return 0, errors.ErrUnsupported }

func recvBufferSize(uintptr) (int, error) { return 0, errors.ErrUnsupported }

// SetReuseAddr is unsupported on this platform.
func SetReuseAddr(uintptr) error { return errors.ErrUnsupported }
