package server

import (
	"fmt"
	"net"
	"syscall"
)

// connFD extracts the raw file descriptor backing conn and applies
// nonblocking mode plus TCP_NODELAY, the minimum a reactor-driven socket
// needs: no keepalive or buffer-size tuning, since those belong to a
// transport-tuning concern this core doesn't own.
func connFD(conn net.Conn) (int, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, fmt.Errorf("connection does not expose a raw fd")
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}

	var fd int
	var ctrlErr error
	err = raw.Control(func(fdPtr uintptr) {
		fd = int(fdPtr)
		ctrlErr = setNonblockingNoDelay(fd)
	})
	if err != nil {
		return 0, err
	}
	if ctrlErr != nil {
		return 0, ctrlErr
	}
	return fd, nil
}

// listenerFD extracts the raw fd behind a net.Listener so it can be
// registered with the reactor directly, the same trick connFD uses for
// accepted connections.
func listenerFD(ln net.Listener) (int, error) {
	sc, ok := ln.(syscall.Conn)
	if !ok {
		return 0, fmt.Errorf("listener does not expose a raw fd")
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	err = raw.Control(func(fdPtr uintptr) { fd = int(fdPtr) })
	if err != nil {
		return 0, err
	}
	return fd, nil
}

func setNonblockingNoDelay(fd int) error {
	if err := syscall.SetNonblock(fd, true); err != nil {
		return err
	}
	return syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1)
}
