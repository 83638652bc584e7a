package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marathon-agent/internal/types"
)

var testConfig = Config{
	Heartbeat: 8 * time.Second,
	Snapshot:  30 * time.Second,
	Update:    5 * time.Second,
}

func testAccount() types.AccountInfo {
	return types.AccountInfo{Login: "100", Balance: 10000, Equity: 10000, Margin: 500}
}

// base returns a scheduler that just committed a snapshot at t0, so no timer
// is due on the next tick.
func base(t0 time.Time, positions []types.Position, orders []types.Order) *Scheduler {
	s := New(testConfig)
	s.Commit(SendSnapshot, t0, testAccount(), positions, orders)
	return s
}

func TestHeartbeatPrecedesSnapshot(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := base(t0, nil, nil)

	// both the heartbeat and the snapshot interval have elapsed
	d := s.Decide(t0.Add(40*time.Second), testAccount(), nil, nil)
	assert.Equal(t, SendHeartbeat, d)
}

func TestSnapshotAfterHeartbeatServed(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := base(t0, nil, nil)

	now := t0.Add(40 * time.Second)
	require.Equal(t, SendHeartbeat, s.Decide(now, testAccount(), nil, nil))
	s.Commit(SendHeartbeat, now, testAccount(), nil, nil)

	d := s.Decide(now.Add(time.Second), testAccount(), nil, nil)
	assert.Equal(t, SendSnapshot, d)
}

func TestPositionsDeltaOnChange(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	positions := []types.Position{{Ticket: 1, Volume: 0.1, StopLoss: 1.05}}
	s := base(t0, positions, nil)

	now := t0.Add(2 * time.Second)
	assert.Equal(t, SendNothing, s.Decide(now, testAccount(), positions, nil))

	changed := []types.Position{{Ticket: 1, Volume: 0.1, StopLoss: 1.06}}
	assert.Equal(t, SendPositions, s.Decide(now, testAccount(), changed, nil))
}

func TestPositionsDeltaPrecedesOrdersDelta(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := base(t0, nil, nil)

	positions := []types.Position{{Ticket: 1, Volume: 0.1}}
	orders := []types.Order{{Ticket: 2, Symbol: "EURUSD"}}
	now := t0.Add(2 * time.Second)

	d := s.Decide(now, testAccount(), positions, orders)
	require.Equal(t, SendPositions, d)
	s.Commit(d, now, testAccount(), positions, orders)

	// one message per tick: orders go out on the following tick
	d = s.Decide(now.Add(time.Second), testAccount(), positions, orders)
	assert.Equal(t, SendOrders, d)
}

func TestFingerprintEquivalence(t *testing.T) {
	a := []types.Position{{Ticket: 1, Volume: 0.1, StopLoss: 1.05, TakeProfit: 1.10}}
	b := []types.Position{{Ticket: 1, Volume: 0.1, StopLoss: 1.05, TakeProfit: 1.10, Profit: 42}}

	// profit moves constantly and must not count as a change
	assert.Equal(t, PositionsFingerprint(a), PositionsFingerprint(b))

	c := []types.Position{{Ticket: 1, Volume: 0.2, StopLoss: 1.05, TakeProfit: 1.10}}
	assert.NotEqual(t, PositionsFingerprint(a), PositionsFingerprint(c))
}

func TestQuickUpdateOnChangeOnly(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := base(t0, nil, nil)

	// equity unchanged, on_change policy: nothing to say
	now := t0.Add(6 * time.Second)
	assert.Equal(t, SendNothing, s.Decide(now, testAccount(), nil, nil))

	acct := testAccount()
	acct.Equity = 10100
	assert.Equal(t, SendUpdate, s.Decide(now, acct, nil, nil))
}

func TestQuickUpdateAlwaysPolicy(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig
	cfg.AlwaysQuickUpdate = true
	s := New(cfg)
	s.Commit(SendSnapshot, t0, testAccount(), nil, nil)

	d := s.Decide(t0.Add(6*time.Second), testAccount(), nil, nil)
	assert.Equal(t, SendUpdate, d)
}

func TestSnapshotResetsUpdateTimer(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := New(testConfig)
	s.Commit(SendUpdate, t0.Add(-10*time.Second), testAccount(), nil, nil)

	s.ForceSnapshot()
	now := t0.Add(time.Second)
	require.Equal(t, SendSnapshot, s.Decide(now, testAccount(), nil, nil))
	s.Commit(SendSnapshot, now, testAccount(), nil, nil)

	acct := testAccount()
	acct.Equity = 10100
	// update interval counts from the snapshot, not from the older update
	assert.Equal(t, SendNothing, s.Decide(now.Add(3*time.Second), acct, nil, nil))
	assert.Equal(t, SendUpdate, s.Decide(now.Add(6*time.Second), acct, nil, nil))
}

func TestUpdateFieldsMaterialThreshold(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := base(t0, nil, nil)

	acct := testAccount()
	acct.Balance += 0.005
	acct.Margin += 0.005
	balance, margin := s.UpdateFields(acct)
	assert.Nil(t, balance)
	assert.Nil(t, margin)

	acct.Balance = 10000.02
	acct.Margin = 510
	balance, margin = s.UpdateFields(acct)
	require.NotNil(t, balance)
	require.NotNil(t, margin)
	assert.Equal(t, 10000.02, *balance)
	assert.Equal(t, 510.0, *margin)
}

func TestForceSnapshotOverridesEverything(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := base(t0, nil, nil)
	s.ForceSnapshot()

	// heartbeat would be due too, but a forced snapshot wins
	d := s.Decide(t0.Add(40*time.Second), testAccount(), nil, nil)
	assert.Equal(t, SendSnapshot, d)
}
