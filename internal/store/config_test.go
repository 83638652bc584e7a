package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
login: "100234"
collector:
  host: 127.0.0.1
`))
	require.NoError(t, err)

	assert.Equal(t, "SIM", cfg.Mode)
	assert.Equal(t, "tcp", cfg.Collector.Transport)
	assert.Equal(t, 5555, cfg.Collector.Port)
	assert.Equal(t, 8, cfg.Intervals.HeartbeatSeconds)
	assert.Equal(t, 30, cfg.Intervals.SnapshotSeconds)
	assert.Equal(t, 5, cfg.Intervals.UpdateSeconds)
	assert.Equal(t, 5, cfg.Intervals.ReconnectSeconds)
	assert.Equal(t, 1000, cfg.Intervals.TickMillis)
	assert.Equal(t, "on_change", cfg.QuickUpdatePolicy)
	assert.Equal(t, 30, cfg.History.DefaultDays)
	assert.Equal(t, "data/agent-state", cfg.Store.Path)
}

func TestLoadConfigRejectsBadMode(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
mode: PAPER
collector:
  host: 127.0.0.1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mode")
}

func TestLoadConfigRejectsMissingHost(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
mode: SIM
collector:
  port: 5555
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collector.host")
}

func TestLoadConfigWebsocketNeedsURL(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
collector:
  transport: websocket
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ws_url")
}

func TestLoadConfigRejectsBadPolicy(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
collector:
  host: 127.0.0.1
quick_update_policy: sometimes
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quick_update_policy")
}

func TestLoadConfigFull(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
mode: LIVE
login: "42"
collector:
  transport: websocket
  ws_url: ws://collector:9000/feed
intervals:
  heartbeat_seconds: 4
  tick_millis: 250
quick_update_policy: always
rules:
  max_daily_drawdown_pct: 5
  max_total_drawdown_pct: 10
  floating_risk_pct: 60
`))
	require.NoError(t, err)
	assert.Equal(t, "LIVE", cfg.Mode)
	assert.Equal(t, "ws://collector:9000/feed", cfg.Collector.WSURL)
	assert.Equal(t, 4, cfg.Intervals.HeartbeatSeconds)
	assert.Equal(t, 250, cfg.Intervals.TickMillis)
	assert.Equal(t, "always", cfg.QuickUpdatePolicy)
	assert.Equal(t, 5.0, cfg.Rules.MaxDailyDrawdownPct)
	assert.Equal(t, 60.0, cfg.Rules.FloatingRiskPct)
}
