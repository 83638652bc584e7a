package scheduler

import (
	"math"
	"time"

	"marathon-agent/internal/types"
)

// Decision is what the scheduler wants sent this tick. At most one.
type Decision int

const (
	SendNothing Decision = iota
	SendHeartbeat
	SendSnapshot
	SendPositions
	SendOrders
	SendUpdate
)

func (d Decision) String() string {
	switch d {
	case SendNothing:
		return "nothing"
	case SendHeartbeat:
		return "heartbeat"
	case SendSnapshot:
		return "snapshot"
	case SendPositions:
		return "positions"
	case SendOrders:
		return "orders"
	case SendUpdate:
		return "update"
	}
	return "unknown"
}

// materialThreshold is the absolute change below which balance and margin are
// omitted from a quick update.
const materialThreshold = 0.01

// Config holds the emission intervals and the quick-update policy.
type Config struct {
	Heartbeat time.Duration
	Snapshot  time.Duration
	Update    time.Duration

	// AlwaysQuickUpdate sends a quick update every interval even when the
	// equity did not move; otherwise updates go out on change only.
	AlwaysQuickUpdate bool
}

// Scheduler decides, once per tick, which single telemetry message to emit.
// Priority: heartbeat (idle bound) > snapshot (staleness bound) > positions
// delta > orders delta > quick update. Clocks and fingerprints advance only
// through Commit, after the send actually succeeded.
type Scheduler struct {
	cfg Config

	lastDataSent     time.Time
	lastSnapshotSent time.Time
	lastUpdateSent   time.Time

	positionsFP    string
	positionsCount int
	ordersFP       string
	ordersCount    int

	lastEquity  float64
	lastBalance float64
	lastMargin  float64

	forceSnapshot bool
}

func New(cfg Config) *Scheduler {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 8 * time.Second
	}
	if cfg.Snapshot <= 0 {
		cfg.Snapshot = 30 * time.Second
	}
	if cfg.Update <= 0 {
		cfg.Update = 5 * time.Second
	}
	return &Scheduler{cfg: cfg}
}

// ForceSnapshot makes the next Decide return SendSnapshot regardless of
// timers. Used right after a reconnect to resynchronize the collector.
func (s *Scheduler) ForceSnapshot() {
	s.forceSnapshot = true
}

// MarkDataSent records out-of-band traffic (query responses, violation
// alerts) so the idle clock does not trigger a redundant heartbeat.
func (s *Scheduler) MarkDataSent(now time.Time) {
	s.lastDataSent = now
}

// PositionsChanged reports whether the open positions differ from the last
// committed observation.
func (s *Scheduler) PositionsChanged(positions []types.Position) bool {
	return len(positions) != s.positionsCount || PositionsFingerprint(positions) != s.positionsFP
}

// OrdersChanged reports whether the pending orders differ from the last
// committed observation.
func (s *Scheduler) OrdersChanged(orders []types.Order) bool {
	return len(orders) != s.ordersCount || OrdersFingerprint(orders) != s.ordersFP
}

// Decide picks the one message for this tick.
func (s *Scheduler) Decide(now time.Time, acct types.AccountInfo, positions []types.Position, orders []types.Order) Decision {
	if s.forceSnapshot {
		return SendSnapshot
	}
	if now.Sub(s.lastDataSent) >= s.cfg.Heartbeat {
		return SendHeartbeat
	}
	if now.Sub(s.lastSnapshotSent) >= s.cfg.Snapshot {
		return SendSnapshot
	}
	if s.PositionsChanged(positions) {
		return SendPositions
	}
	if s.OrdersChanged(orders) {
		return SendOrders
	}
	if now.Sub(s.lastUpdateSent) >= s.cfg.Update {
		if s.cfg.AlwaysQuickUpdate || acct.Equity != s.lastEquity {
			return SendUpdate
		}
	}
	return SendNothing
}

// UpdateFields returns the optional quick-update fields: balance and margin
// travel only when they moved at least the material threshold since last sent.
func (s *Scheduler) UpdateFields(acct types.AccountInfo) (balance, margin *float64) {
	if math.Abs(acct.Balance-s.lastBalance) >= materialThreshold {
		b := acct.Balance
		balance = &b
	}
	if math.Abs(acct.Margin-s.lastMargin) >= materialThreshold {
		m := acct.Margin
		margin = &m
	}
	return balance, margin
}

// Commit advances the clocks and fingerprints for a successfully sent
// decision. A snapshot also resets the quick-update timer and rebaselines
// every tracked value.
func (s *Scheduler) Commit(d Decision, now time.Time, acct types.AccountInfo, positions []types.Position, orders []types.Order) {
	if d == SendNothing {
		return
	}
	s.lastDataSent = now

	switch d {
	case SendSnapshot:
		s.forceSnapshot = false
		s.lastSnapshotSent = now
		s.lastUpdateSent = now
		s.positionsFP = PositionsFingerprint(positions)
		s.positionsCount = len(positions)
		s.ordersFP = OrdersFingerprint(orders)
		s.ordersCount = len(orders)
		s.lastEquity = acct.Equity
		s.lastBalance = acct.Balance
		s.lastMargin = acct.Margin
	case SendPositions:
		s.positionsFP = PositionsFingerprint(positions)
		s.positionsCount = len(positions)
	case SendOrders:
		s.ordersFP = OrdersFingerprint(orders)
		s.ordersCount = len(orders)
	case SendUpdate:
		s.lastUpdateSent = now
		s.lastEquity = acct.Equity
		balance, margin := s.UpdateFields(acct)
		if balance != nil {
			s.lastBalance = *balance
		}
		if margin != nil {
			s.lastMargin = *margin
		}
	}
}
