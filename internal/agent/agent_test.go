package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marathon-agent/internal/analytics"
	"marathon-agent/internal/compliance"
	"marathon-agent/internal/conn"
	"marathon-agent/internal/kvstore"
	"marathon-agent/internal/logger"
	"marathon-agent/internal/protocol"
	"marathon-agent/internal/provider/sim"
	"marathon-agent/internal/scheduler"
	"marathon-agent/internal/transport"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

// pipeTransport is an in-memory collector: the test writes inbound frames
// and inspects what the agent sent.
type pipeTransport struct {
	inbound  bytes.Buffer
	outbound bytes.Buffer
}

func (p *pipeTransport) Connect(ctx context.Context) error { return nil }

func (p *pipeTransport) Send(b []byte) (int, error) { return p.outbound.Write(b) }

func (p *pipeTransport) Receive(b []byte) (int, error) {
	if p.inbound.Len() == 0 {
		return 0, transport.ErrWouldBlock
	}
	return p.inbound.Read(b)
}

func (p *pipeTransport) Close() error { return nil }

// sentFrames decodes every newline frame the agent wrote so far and clears
// the buffer.
func (p *pipeTransport) sentFrames(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(p.outbound.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	p.outbound.Reset()
	return out
}

func testAgent() (*Agent, *pipeTransport) {
	tr := &pipeTransport{}
	provider := sim.New("100234")
	comp := compliance.New(kvstore.NewMemory(), "100234")
	disp := protocol.NewDispatcher("100234", provider, analytics.New(provider), comp, 30)
	sched := scheduler.New(scheduler.Config{
		Heartbeat: 8 * time.Second,
		Snapshot:  30 * time.Second,
		Update:    5 * time.Second,
	})
	mgr := conn.NewManager(tr, 5*time.Second)
	return New("100234", provider, mgr, disp, comp, sched), tr
}

func TestFirstTickSendsSnapshot(t *testing.T) {
	a, tr := testAgent()
	a.Tick(context.Background())

	frames := tr.sentFrames(t)
	require.Len(t, frames, 1)
	assert.Equal(t, "account", frames[0]["type"])
	assert.Equal(t, "100234", frames[0]["login"])
	assert.Contains(t, frames[0], "account")
	assert.Contains(t, frames[0], "positions")
	assert.Contains(t, frames[0], "orders")
	assert.Contains(t, frames[0], "timestamp")
}

func TestQueryGetsExactlyOneResponse(t *testing.T) {
	a, tr := testAgent()
	a.Tick(context.Background()) // connect and snapshot
	tr.outbound.Reset()

	tr.inbound.WriteString(`{"type":"query","requestId":"q1","action":"ping"}` + "\n")
	a.Tick(context.Background())

	frames := tr.sentFrames(t)
	require.Len(t, frames, 1)
	assert.Equal(t, "response", frames[0]["type"])
	assert.Equal(t, "q1", frames[0]["requestId"])
	assert.Equal(t, true, frames[0]["ok"])
}

func TestFrameBudgetPerTick(t *testing.T) {
	a, tr := testAgent()
	a.Tick(context.Background())
	tr.outbound.Reset()

	for i := 0; i < 8; i++ {
		tr.inbound.WriteString(`{"type":"query","requestId":"q","action":"ping"}` + "\n")
	}
	a.Tick(context.Background())

	responses := 0
	for _, f := range tr.sentFrames(t) {
		if f["type"] == "response" {
			responses++
		}
	}
	assert.Equal(t, protocol.MaxFramesPerTick, responses)

	// the remaining frames are served on the next tick
	a.Tick(context.Background())
	responses = 0
	for _, f := range tr.sentFrames(t) {
		if f["type"] == "response" {
			responses++
		}
	}
	assert.Equal(t, 3, responses)
}

func TestMalformedInboundIsIgnored(t *testing.T) {
	a, tr := testAgent()
	a.Tick(context.Background())
	tr.outbound.Reset()

	tr.inbound.WriteString("\x00\x00garbage{{{\n")
	a.Tick(context.Background())

	for _, f := range tr.sentFrames(t) {
		assert.NotEqual(t, "response", f["type"])
	}
}

func TestViolationAlertEmittedOnce(t *testing.T) {
	a, tr := testAgent()
	a.Tick(context.Background())
	tr.outbound.Reset()

	// rules set over the wire, then the balance collapses
	tr.inbound.WriteString(`{"type":"query","requestId":"r","action":"set_rules","params":{"max_total_drawdown_percent":10}}` + "\n")
	a.Tick(context.Background())
	tr.outbound.Reset()

	acct, err := a.provider.Account(context.Background())
	require.NoError(t, err)
	start := a.compliance.MarathonStartBalance()
	require.Greater(t, start, 0.0)

	acct.Balance = start * 0.85
	acct.Equity = acct.Balance
	a.provider.(*sim.Provider).SetAccount(acct)

	a.Tick(context.Background())
	violations := 0
	for _, f := range tr.sentFrames(t) {
		if f["type"] == "rule_violation" {
			violations++
		}
	}
	assert.Equal(t, 1, violations)

	// still failing on the next tick, but the alert is edge-triggered
	a.Tick(context.Background())
	for _, f := range tr.sentFrames(t) {
		assert.NotEqual(t, "rule_violation", f["type"])
	}
}
