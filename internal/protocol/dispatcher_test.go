package protocol

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marathon-agent/internal/analytics"
	"marathon-agent/internal/compliance"
	"marathon-agent/internal/kvstore"
	"marathon-agent/internal/logger"
	"marathon-agent/internal/provider/sim"
	"marathon-agent/internal/types"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

func testDispatcher() (*Dispatcher, *compliance.Engine) {
	provider := sim.New("100234")
	comp := compliance.New(kvstore.NewMemory(), "100234")
	d := NewDispatcher("100234", provider, analytics.New(provider), comp, 30)
	return d, comp
}

func TestUnknownAction(t *testing.T) {
	d, _ := testDispatcher()

	resp, respond := d.HandleFrame(context.Background(),
		`{"type":"query","requestId":"r1","action":"reboot_terminal"}`)
	require.True(t, respond)
	require.NotNil(t, resp)
	assert.False(t, resp.OK)
	assert.Equal(t, "Unknown action", resp.Error)
	assert.Equal(t, "r1", resp.RequestID)
}

func TestMalformedFrameDroppedSilently(t *testing.T) {
	d, _ := testDispatcher()

	resp, respond := d.HandleFrame(context.Background(), `{"type":"query","requestId`)
	assert.False(t, respond)
	assert.Nil(t, resp)
}

func TestNonQueryEnvelopeIgnored(t *testing.T) {
	d, _ := testDispatcher()

	resp, respond := d.HandleFrame(context.Background(),
		`{"type":"heartbeat","login":"999"}`)
	assert.False(t, respond)
	assert.Nil(t, resp)
}

func TestMissingRequestIDEchoedEmpty(t *testing.T) {
	d, _ := testDispatcher()

	resp, respond := d.HandleFrame(context.Background(),
		`{"type":"query","action":"ping"}`)
	require.True(t, respond)
	assert.True(t, resp.OK)
	assert.Equal(t, "", resp.RequestID)
}

func TestPing(t *testing.T) {
	d, _ := testDispatcher()

	resp, respond := d.HandleFrame(context.Background(),
		`{"type":"query","requestId":"r2","action":"ping"}`)
	require.True(t, respond)
	assert.True(t, resp.OK)
	assert.Equal(t, KindResponse, resp.Type)
	assert.Equal(t, "100234", resp.Login)
}

func TestGetAccount(t *testing.T) {
	d, _ := testDispatcher()

	resp, respond := d.HandleFrame(context.Background(),
		`{"type":"query","requestId":"r3","action":"get_account"}`)
	require.True(t, respond)
	require.True(t, resp.OK)

	acct, ok := resp.Data.(types.AccountInfo)
	require.True(t, ok)
	assert.Equal(t, "100234", acct.Login)
	assert.Greater(t, acct.Balance, 0.0)
}

func TestGetSymbolInfoRequiresSymbol(t *testing.T) {
	d, _ := testDispatcher()

	resp, respond := d.HandleFrame(context.Background(),
		`{"type":"query","requestId":"r4","action":"get_symbol_info"}`)
	require.True(t, respond)
	assert.False(t, resp.OK)
	assert.Equal(t, "symbol parameter required", resp.Error)

	resp, _ = d.HandleFrame(context.Background(),
		`{"type":"query","requestId":"r5","action":"get_symbol_info","params":{"symbol":"EURUSD"}}`)
	require.True(t, resp.OK)
	si, ok := resp.Data.(types.SymbolInfo)
	require.True(t, ok)
	assert.Equal(t, "EURUSD", si.Name)
}

func TestLedgerFailureYieldsOkFalse(t *testing.T) {
	d, _ := testDispatcher()

	// an unknown symbol makes the provider fail the selection
	resp, respond := d.HandleFrame(context.Background(),
		`{"type":"query","requestId":"r6","action":"get_history_rates","params":{"symbol":"NOPE","count":10}}`)
	require.True(t, respond)
	assert.False(t, resp.OK)
	assert.NotEmpty(t, resp.Error)
}

func TestSetRulesAndStatus(t *testing.T) {
	d, comp := testDispatcher()

	resp, respond := d.HandleFrame(context.Background(),
		`{"type":"query","requestId":"r7","action":"set_rules","params":{"max_daily_drawdown_percent":5,"max_total_drawdown_percent":10,"floating_risk_percent":50}}`)
	require.True(t, respond)
	require.True(t, resp.OK)

	rules := comp.Rules()
	assert.Equal(t, 5.0, rules.MaxDailyDrawdownPercent)
	assert.Equal(t, 10.0, rules.MaxTotalDrawdownPercent)
	assert.Equal(t, 50.0, rules.FloatingRiskPercent)
	assert.Greater(t, comp.MarathonStartBalance(), 0.0)

	resp, _ = d.HandleFrame(context.Background(),
		`{"type":"query","requestId":"r8","action":"get_rules_status"}`)
	require.True(t, resp.OK)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, data, "rules")
	assert.Contains(t, data, "status")
}

func TestSetMarathonStartBalance(t *testing.T) {
	d, comp := testDispatcher()

	resp, respond := d.HandleFrame(context.Background(),
		`{"type":"query","requestId":"r9","action":"set_marathon_start_balance","params":{"balance":12500}}`)
	require.True(t, respond)
	require.True(t, resp.OK)
	assert.Equal(t, 12500.0, comp.MarathonStartBalance())

	resp, _ = d.HandleFrame(context.Background(),
		`{"type":"query","requestId":"r10","action":"set_marathon_start_balance","params":{"balance":-1}}`)
	assert.False(t, resp.OK)
}

func TestTradeHistoryOnSeededLedger(t *testing.T) {
	d, _ := testDispatcher()

	resp, respond := d.HandleFrame(context.Background(),
		`{"type":"query","requestId":"r11","action":"get_trade_history"}`)
	require.True(t, respond)
	require.True(t, resp.OK)

	trades, ok := resp.Data.([]types.TradeRecord)
	require.True(t, ok)
	assert.NotEmpty(t, trades)
}

func TestExactlyOneResponsePerQuery(t *testing.T) {
	d, _ := testDispatcher()

	for _, frame := range []string{
		`{"type":"query","requestId":"a","action":"ping"}`,
		`{"type":"query","requestId":"b","action":"get_positions"}`,
		`{"type":"query","requestId":"c","action":"nope"}`,
	} {
		resp, respond := d.HandleFrame(context.Background(), frame)
		require.True(t, respond)
		require.NotNil(t, resp)
	}
}

func TestTimestampFormat(t *testing.T) {
	at := time.Date(2026, 8, 30, 15, 4, 5, 999000000, time.FixedZone("IST", 19800))
	assert.Equal(t, "2026-08-30T09:34:05Z", Timestamp(at))
}
