package transport

import (
	"errors"
	"io"
	"net"
	"syscall"
)

var (
	// ErrWouldBlock means no data was available (or the send buffer was
	// full) this cycle. Non-fatal: retry next tick.
	ErrWouldBlock = errors.New("transport: operation would block")
	// ErrNotConnected means no live link exists.
	ErrNotConnected = errors.New("transport: not connected")
)

// IsWouldBlock reports whether err is the transient "no data / buffer full"
// condition that simply means "try again next cycle".
func IsWouldBlock(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrWouldBlock) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

// IsConnectionLost reports whether err indicates the peer reset, aborted or
// closed the link, forcing a fresh connect cycle.
func IsConnectionLost(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ENOTCONN)
}
