package conn

import (
	"context"
	"errors"
	"time"

	"marathon-agent/internal/interfaces"
	"marathon-agent/internal/logger"
	"marathon-agent/internal/transport"
)

// State of the collector link. At most one live transport handle exists
// whenever the state is not Disconnected or Error.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Error
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

var errZeroByteSend = errors.New("conn: zero-byte send")

// Manager owns the transport lifecycle: connect, reconnect-with-delay, send
// classification and clean shutdown. All state transitions happen here.
type Manager struct {
	tr          interfaces.Transport
	state       State
	retryDelay  time.Duration
	lastAttempt time.Time
	// set on every successful Connect; the agent consumes it to force a
	// resynchronization snapshot
	justReconnected bool

	now func() time.Time
}

func NewManager(tr interfaces.Transport, retryDelay time.Duration) *Manager {
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}
	return &Manager{tr: tr, retryDelay: retryDelay, now: time.Now}
}

func (m *Manager) State() State { return m.state }

func (m *Manager) Connected() bool { return m.state == Connected }

// Connect attempts to establish the link. Attempts are gated to at most one
// per retry window; a gated call returns false without touching the
// transport.
func (m *Manager) Connect(ctx context.Context) bool {
	if m.state == Connected {
		return true
	}
	if !m.lastAttempt.IsZero() {
		if m.now().Sub(m.lastAttempt) < m.retryDelay {
			return false
		}
		m.state = Reconnecting
	}
	m.lastAttempt = m.now()
	m.state = Connecting

	if err := m.tr.Connect(ctx); err != nil {
		m.state = Error
		logger.Warn(ctx, "Collector connection failed", "error", err, "retry_in", m.retryDelay.String())
		return false
	}

	m.state = Connected
	m.justReconnected = true
	logger.Info(ctx, "Collector connected")
	return true
}

// ConsumeReconnect reports whether the link was (re)established since the
// last call, clearing the flag.
func (m *Manager) ConsumeReconnect() bool {
	r := m.justReconnected
	m.justReconnected = false
	return r
}

// Send transmits one framed message. A would-block condition is returned
// as-is and means "retry next cycle"; a connection-lost or any other error
// drops the link and restarts the attempt timer.
func (m *Manager) Send(ctx context.Context, p []byte) error {
	if m.state != Connected {
		return transport.ErrNotConnected
	}
	n, err := m.tr.Send(p)
	if err != nil {
		if transport.IsWouldBlock(err) {
			return err
		}
		m.drop(ctx, err)
		return err
	}
	if n == 0 {
		// A zero-byte write means the peer side is gone.
		m.drop(ctx, errZeroByteSend)
		return errZeroByteSend
	}
	return nil
}

// Receive reads available bytes into p. No data this cycle yields (0, nil);
// a lost connection drops the link and reports the error.
func (m *Manager) Receive(ctx context.Context, p []byte) (int, error) {
	if m.state != Connected {
		return 0, transport.ErrNotConnected
	}
	n, err := m.tr.Receive(p)
	if err != nil {
		if transport.IsWouldBlock(err) {
			return n, nil
		}
		m.drop(ctx, err)
		return n, err
	}
	return n, nil
}

func (m *Manager) drop(ctx context.Context, cause error) {
	logger.Warn(ctx, "Collector connection lost", "error", cause, "state", m.state.String())
	_ = m.tr.Close()
	m.state = Disconnected
	// restart the backoff window from the moment of failure
	m.lastAttempt = m.now()
}

// Close performs a graceful shutdown and is idempotent.
func (m *Manager) Close() error {
	if m.state == Disconnected {
		return nil
	}
	m.state = Disconnected
	return m.tr.Close()
}
