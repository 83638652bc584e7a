package conn

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marathon-agent/internal/logger"
	"marathon-agent/internal/transport"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

type fakeTransport struct {
	connectErr error
	sendHook   func(p []byte) (int, error)
	recvN      int
	recvErr    error

	connects int
	closes   int
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.connects++
	return f.connectErr
}

func (f *fakeTransport) Send(p []byte) (int, error) {
	if f.sendHook != nil {
		return f.sendHook(p)
	}
	return len(p), nil
}

func (f *fakeTransport) Receive(p []byte) (int, error) { return f.recvN, f.recvErr }

func (f *fakeTransport) Close() error {
	f.closes++
	return nil
}

func newTestManager(tr *fakeTransport) (*Manager, *time.Time) {
	m := NewManager(tr, 5*time.Second)
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestConnectSuccess(t *testing.T) {
	tr := &fakeTransport{}
	m, _ := newTestManager(tr)

	require.True(t, m.Connect(context.Background()))
	assert.Equal(t, Connected, m.State())
	assert.True(t, m.ConsumeReconnect())
	assert.False(t, m.ConsumeReconnect())
}

func TestRetryWindowGatesAttempts(t *testing.T) {
	tr := &fakeTransport{connectErr: errors.New("refused")}
	m, now := newTestManager(tr)
	ctx := context.Background()

	require.False(t, m.Connect(ctx))
	assert.Equal(t, Error, m.State())
	assert.Equal(t, 1, tr.connects)

	// inside the window: no second dial
	*now = now.Add(2 * time.Second)
	require.False(t, m.Connect(ctx))
	assert.Equal(t, 1, tr.connects)

	// window elapsed: retry, and this time it succeeds
	tr.connectErr = nil
	*now = now.Add(4 * time.Second)
	require.True(t, m.Connect(ctx))
	assert.Equal(t, 2, tr.connects)
	assert.Equal(t, Connected, m.State())
}

func TestSendWouldBlockIsNonFatal(t *testing.T) {
	tr := &fakeTransport{}
	m, _ := newTestManager(tr)
	ctx := context.Background()
	require.True(t, m.Connect(ctx))

	tr.sendHook = func(p []byte) (int, error) { return 0, transport.ErrWouldBlock }
	err := m.Send(ctx, []byte("x\n"))
	require.ErrorIs(t, err, transport.ErrWouldBlock)
	assert.Equal(t, Connected, m.State())
	assert.Equal(t, 0, tr.closes)
}

func TestSendConnectionLostDropsLink(t *testing.T) {
	tr := &fakeTransport{}
	m, _ := newTestManager(tr)
	ctx := context.Background()
	require.True(t, m.Connect(ctx))

	tr.sendHook = func(p []byte) (int, error) { return 0, errors.New("broken pipe for real") }
	require.Error(t, m.Send(ctx, []byte("x\n")))
	assert.Equal(t, Disconnected, m.State())
	assert.Equal(t, 1, tr.closes)

	// the drop restarted the attempt timer: an immediate reconnect is gated
	require.False(t, m.Connect(ctx))
	assert.Equal(t, 1, tr.connects)
}

func TestZeroByteSendDropsLink(t *testing.T) {
	tr := &fakeTransport{}
	m, _ := newTestManager(tr)
	ctx := context.Background()
	require.True(t, m.Connect(ctx))

	tr.sendHook = func(p []byte) (int, error) { return 0, nil }
	err := m.Send(ctx, []byte("x\n"))
	require.Error(t, err)
	assert.Equal(t, Disconnected, m.State())
	assert.Equal(t, 1, tr.closes)
}

func TestReceiveWouldBlockYieldsNoData(t *testing.T) {
	tr := &fakeTransport{recvErr: transport.ErrWouldBlock}
	m, _ := newTestManager(tr)
	ctx := context.Background()
	require.True(t, m.Connect(ctx))

	n, err := m.Receive(ctx, make([]byte, 64))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, Connected, m.State())
}

func TestReceiveLostDropsLink(t *testing.T) {
	tr := &fakeTransport{recvErr: errors.New("connection reset")}
	m, _ := newTestManager(tr)
	ctx := context.Background()
	require.True(t, m.Connect(ctx))

	_, err := m.Receive(ctx, make([]byte, 64))
	require.Error(t, err)
	assert.Equal(t, Disconnected, m.State())
}

func TestCloseIdempotent(t *testing.T) {
	tr := &fakeTransport{}
	m, _ := newTestManager(tr)
	require.True(t, m.Connect(context.Background()))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 1, tr.closes)
	assert.Equal(t, Disconnected, m.State())
}

func TestSendWhileDisconnected(t *testing.T) {
	tr := &fakeTransport{}
	m, _ := newTestManager(tr)

	err := m.Send(context.Background(), []byte("x\n"))
	require.ErrorIs(t, err, transport.ErrNotConnected)
}
