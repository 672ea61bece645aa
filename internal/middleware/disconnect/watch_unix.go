//go:build unix

package disconnect

import (
	"errors"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

var aLongTimeAgo = time.Unix(1, 0)

// watch calls onClose when the peer of conn hangs up. It peeks at the socket
// so bytes of a pipelined request stay queued for the server. Connections
// without a file descriptor (TLS, in-memory) are not watched.
//
// The returned stop must be called before the server touches conn again.
func watch(conn net.Conn, onClose func()) (stop func()) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return func() {}
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return func() {}
	}

	// the body has been read; a read timeout must not end the watch early
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 1)
		_ = raw.Read(func(fd uintptr) bool {
			n, _, err := unix.Recvfrom(int(fd), buf, unix.MSG_PEEK|unix.MSG_DONTWAIT)
			switch {
			case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
				return false
			case err != nil, n == 0:
				onClose()
			}
			return true
		})
	}()

	return func() {
		_ = conn.SetReadDeadline(aLongTimeAgo)
		<-done
		_ = conn.SetReadDeadline(time.Time{})
	}
}
