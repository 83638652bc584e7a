package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"marathon-agent/internal/interfaces"
)

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
	// receivePoll emulates a non-blocking read: a read that hits this
	// deadline reports ErrWouldBlock rather than stalling the tick.
	receivePoll = 10 * time.Millisecond
)

// TCP is the default byte-stream link to the collector.
type TCP struct {
	addr string
	conn net.Conn
}

var _ interfaces.Transport = (*TCP)(nil)

func NewTCP(host string, port int) *TCP {
	return &TCP{addr: fmt.Sprintf("%s:%d", host, port)}
}

func (t *TCP) Connect(ctx context.Context) error {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.addr, err)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
		// Keepalive probing so a silently dead collector is detected:
		// first probe after 60s idle, then every 10s, give up after 3.
		_ = tc.SetKeepAliveConfig(net.KeepAliveConfig{
			Enable:   true,
			Idle:     60 * time.Second,
			Interval: 10 * time.Second,
			Count:    3,
		})
	}

	t.conn = conn
	return nil
}

func (t *TCP) Send(p []byte) (int, error) {
	if t.conn == nil {
		return 0, ErrNotConnected
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return t.conn.Write(p)
}

func (t *TCP) Receive(p []byte) (int, error) {
	if t.conn == nil {
		return 0, ErrNotConnected
	}
	_ = t.conn.SetReadDeadline(time.Now().Add(receivePoll))
	n, err := t.conn.Read(p)
	if err != nil && IsWouldBlock(err) {
		return n, ErrWouldBlock
	}
	return n, err
}

// Close shuts the link down gracefully (half-close first, then release) and
// is safe to call repeatedly.
func (t *TCP) Close() error {
	if t.conn == nil {
		return nil
	}
	if tc, ok := t.conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
