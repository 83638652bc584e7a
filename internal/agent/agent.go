package agent

import (
	"context"
	"errors"
	"time"

	"marathon-agent/internal/compliance"
	"marathon-agent/internal/conn"
	"marathon-agent/internal/eventlog"
	"marathon-agent/internal/framing"
	"marathon-agent/internal/interfaces"
	"marathon-agent/internal/logger"
	"marathon-agent/internal/protocol"
	"marathon-agent/internal/scheduler"
	"marathon-agent/internal/types"
)

const receiveChunk = 4096

// Agent is the per-session root object: it owns the collector link, the
// frame codec, the dispatcher, the scheduler and the compliance engine, and
// runs them all synchronously once per tick.
type Agent struct {
	login      string
	provider   interfaces.Provider
	conn       *conn.Manager
	codec      *framing.Codec
	dispatcher *protocol.Dispatcher
	scheduler  *scheduler.Scheduler
	compliance *compliance.Engine

	recvBuf []byte
	now     func() time.Time
}

func New(login string, provider interfaces.Provider, mgr *conn.Manager, disp *protocol.Dispatcher, comp *compliance.Engine, sched *scheduler.Scheduler) *Agent {
	return &Agent{
		login:      login,
		provider:   provider,
		conn:       mgr,
		codec:      framing.NewCodec(),
		dispatcher: disp,
		scheduler:  sched,
		compliance: comp,
		recvBuf:    make([]byte, receiveChunk),
		now:        time.Now,
	}
}

// Tick runs one full cycle: connect if needed, drain inbound frames, serve
// queries, evaluate compliance, then let the scheduler emit at most one
// telemetry message. It never blocks and never returns a fatal error; link
// problems surface as state transitions handled on later ticks.
func (a *Agent) Tick(ctx context.Context) {
	if !a.conn.Connect(ctx) {
		return
	}
	if a.conn.ConsumeReconnect() {
		a.codec.Reset()
		a.scheduler.ForceSnapshot()
	}

	if !a.receive(ctx) {
		return
	}
	a.serveQueries(ctx)

	acct, err := a.provider.Account(ctx)
	if err != nil {
		logger.Warn(ctx, "Account read failed, skipping tick", "error", err)
		return
	}
	positions, err := a.provider.Positions(ctx)
	if err != nil {
		logger.Warn(ctx, "Positions read failed, skipping tick", "error", err)
		return
	}
	orders, err := a.provider.Orders(ctx)
	if err != nil {
		logger.Warn(ctx, "Orders read failed, skipping tick", "error", err)
		return
	}

	if _, err := a.compliance.EnsureDailyBaseline(ctx, acct.Balance); err != nil {
		logger.ErrorWithErr(ctx, "Daily baseline unavailable", err)
	}
	status, alert, err := a.compliance.Check(ctx, acct)
	if err != nil {
		logger.ErrorWithErr(ctx, "Compliance check failed", err)
	} else if alert {
		a.sendViolation(ctx, status)
	}

	a.emit(ctx, acct, positions, orders)
}

// receive drains everything the transport has buffered into the codec. A
// backlog overflow forces a connection reset. Returns false when the link
// dropped mid-read.
func (a *Agent) receive(ctx context.Context) bool {
	for {
		n, err := a.conn.Receive(ctx, a.recvBuf)
		if err != nil {
			return false
		}
		if n == 0 {
			return true
		}
		if ferr := a.codec.Feed(a.recvBuf[:n]); errors.Is(ferr, framing.ErrOverflow) {
			logger.Warn(ctx, "Inbound buffer overflow, resetting connection", "pending", a.codec.Pending())
			a.codec.Reset()
			_ = a.conn.Close()
			return false
		}
	}
}

// serveQueries handles a bounded number of complete frames this tick.
func (a *Agent) serveQueries(ctx context.Context) {
	for i := 0; i < protocol.MaxFramesPerTick; i++ {
		line, ok := a.codec.TryLine()
		if !ok {
			return
		}
		if line == "" {
			continue
		}
		resp, respond := a.dispatcher.HandleFrame(ctx, line)
		if !respond {
			continue
		}
		if err := a.send(ctx, resp); err != nil {
			logger.Warn(ctx, "Response send failed", "request_id", resp.RequestID, "error", err)
			continue
		}
		a.scheduler.MarkDataSent(a.now())
		_ = eventlog.Append(eventlog.Entry{
			Kind:      protocol.KindResponse,
			Login:     a.login,
			RequestID: resp.RequestID,
		})
	}
}

func (a *Agent) sendViolation(ctx context.Context, status types.RuleStatus) {
	alert := protocol.NewViolationAlert(a.login, a.now(), status)
	if err := a.send(ctx, alert); err != nil {
		logger.Warn(ctx, "Violation alert send failed", "error", err)
		return
	}
	a.scheduler.MarkDataSent(a.now())
	names := make([]string, len(status.Violations))
	for i, v := range status.Violations {
		names[i] = v.Name
	}
	_ = eventlog.Append(eventlog.Entry{
		Kind:  protocol.KindRuleViolation,
		Login: a.login,
		Rules: names,
	})
}

// emit asks the scheduler for this tick's message and sends it. Clocks and
// fingerprints advance only after the send succeeded.
func (a *Agent) emit(ctx context.Context, acct types.AccountInfo, positions []types.Position, orders []types.Order) {
	now := a.now()
	decision := a.scheduler.Decide(now, acct, positions, orders)

	var payload any
	switch decision {
	case scheduler.SendNothing:
		return
	case scheduler.SendHeartbeat:
		payload = protocol.NewHeartbeat(a.login, now)
	case scheduler.SendSnapshot:
		payload = protocol.NewSnapshot(a.login, now, acct, positions, orders)
	case scheduler.SendPositions:
		payload = protocol.NewPositionsDelta(a.login, now, positions)
	case scheduler.SendOrders:
		payload = protocol.NewOrdersDelta(a.login, now, orders)
	case scheduler.SendUpdate:
		balance, margin := a.scheduler.UpdateFields(acct)
		payload = protocol.NewUpdate(a.login, now, acct.Equity, acct.Profit, balance, margin)
	}

	if err := a.send(ctx, payload); err != nil {
		logger.Warn(ctx, "Telemetry send failed", "kind", decision.String(), "error", err)
		return
	}
	a.scheduler.Commit(decision, now, acct, positions, orders)
	logger.Telemetry(ctx, decision.String(), a.login)
	_ = eventlog.Append(eventlog.Entry{Kind: decision.String(), Login: a.login})
}

func (a *Agent) send(ctx context.Context, v any) error {
	b, err := framing.EncodeLine(v)
	if err != nil {
		return err
	}
	return a.conn.Send(ctx, b)
}

// Close shuts the collector link down gracefully.
func (a *Agent) Close() error {
	return a.conn.Close()
}
