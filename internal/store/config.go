package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode      string `yaml:"mode"` // SIM or LIVE
	Login     string `yaml:"login"`
	Collector struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		Transport string `yaml:"transport"` // tcp or websocket
		WSURL     string `yaml:"ws_url"`
	} `yaml:"collector"`
	Intervals struct {
		HeartbeatSeconds int `yaml:"heartbeat_seconds"`
		SnapshotSeconds  int `yaml:"snapshot_seconds"`
		UpdateSeconds    int `yaml:"update_seconds"`
		ReconnectSeconds int `yaml:"reconnect_seconds"`
		TickMillis       int `yaml:"tick_millis"`
	} `yaml:"intervals"`
	// QuickUpdatePolicy selects between sending the equity update every
	// interval ("always") and only when equity moved ("on_change").
	QuickUpdatePolicy string `yaml:"quick_update_policy"`
	Rules             struct {
		MaxDailyDrawdownPct float64 `yaml:"max_daily_drawdown_pct"`
		MaxTotalDrawdownPct float64 `yaml:"max_total_drawdown_pct"`
		FloatingRiskPct     float64 `yaml:"floating_risk_pct"`
	} `yaml:"rules"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	History struct {
		DefaultDays int `yaml:"default_days"`
	} `yaml:"history"`
}

func (c *Config) Validate() error {
	if c.Mode != "SIM" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'SIM' or 'LIVE'", c.Mode)
	}
	if c.Collector.Transport != "tcp" && c.Collector.Transport != "websocket" {
		return fmt.Errorf("invalid collector.transport '%s': must be 'tcp' or 'websocket'", c.Collector.Transport)
	}
	if c.Collector.Transport == "tcp" && c.Collector.Host == "" {
		return fmt.Errorf("collector.host cannot be empty for tcp transport")
	}
	if c.Collector.Transport == "websocket" && c.Collector.WSURL == "" {
		return fmt.Errorf("collector.ws_url cannot be empty for websocket transport")
	}
	if c.QuickUpdatePolicy != "always" && c.QuickUpdatePolicy != "on_change" {
		return fmt.Errorf("quick_update_policy must be 'always' or 'on_change', got '%s'", c.QuickUpdatePolicy)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Mode == "" {
		c.Mode = "SIM"
	}
	if c.Collector.Transport == "" {
		c.Collector.Transport = "tcp"
	}
	if c.Collector.Port == 0 {
		c.Collector.Port = 5555
	}
	if c.Intervals.HeartbeatSeconds == 0 {
		c.Intervals.HeartbeatSeconds = 8
	}
	if c.Intervals.SnapshotSeconds == 0 {
		c.Intervals.SnapshotSeconds = 30
	}
	if c.Intervals.UpdateSeconds == 0 {
		c.Intervals.UpdateSeconds = 5
	}
	if c.Intervals.ReconnectSeconds == 0 {
		c.Intervals.ReconnectSeconds = 5
	}
	if c.Intervals.TickMillis == 0 {
		c.Intervals.TickMillis = 1000
	}
	if c.QuickUpdatePolicy == "" {
		c.QuickUpdatePolicy = "on_change"
	}
	if c.Store.Path == "" {
		c.Store.Path = "data/agent-state"
	}
	if c.History.DefaultDays == 0 {
		c.History.DefaultDays = 30
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
