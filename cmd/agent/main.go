package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marathon-agent/internal/agent"
	"marathon-agent/internal/analytics"
	"marathon-agent/internal/compliance"
	"marathon-agent/internal/conn"
	"marathon-agent/internal/eventlog"
	"marathon-agent/internal/interfaces"
	"marathon-agent/internal/kvstore"
	"marathon-agent/internal/logger"
	"marathon-agent/internal/protocol"
	"marathon-agent/internal/provider/kite"
	"marathon-agent/internal/provider/sim"
	"marathon-agent/internal/scheduler"
	"marathon-agent/internal/store"
	"marathon-agent/internal/transport"
	"marathon-agent/internal/types"

	"github.com/joho/godotenv"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	_ = godotenv.Load()
	cfg, err := store.LoadConfig("config.yaml")
	must(err)
	must(logger.Init())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if v := os.Getenv("AGENT_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		_ = eventlog.CompressOlder(n)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	provider := buildProvider(cfg)
	login := cfg.Login
	if login == "" {
		acct, err := provider.Account(ctx)
		must(err)
		login = acct.Login
	}

	kv, err := kvstore.OpenBadger(cfg.Store.Path)
	must(err)
	defer kv.Close()

	var tr interfaces.Transport
	if cfg.Collector.Transport == "websocket" {
		tr = transport.NewWS(cfg.Collector.WSURL)
	} else {
		tr = transport.NewTCP(cfg.Collector.Host, cfg.Collector.Port)
	}
	mgr := conn.NewManager(tr, time.Duration(cfg.Intervals.ReconnectSeconds)*time.Second)

	comp := compliance.New(kv, login)
	if rules := configRules(cfg); rules.Enabled() {
		acct, err := provider.Account(ctx)
		must(err)
		comp.SetRules(rules, acct.Balance)
	}

	an := analytics.New(provider)
	disp := protocol.NewDispatcher(login, provider, an, comp, cfg.History.DefaultDays)
	sched := scheduler.New(scheduler.Config{
		Heartbeat:         time.Duration(cfg.Intervals.HeartbeatSeconds) * time.Second,
		Snapshot:          time.Duration(cfg.Intervals.SnapshotSeconds) * time.Second,
		Update:            time.Duration(cfg.Intervals.UpdateSeconds) * time.Second,
		AlwaysQuickUpdate: cfg.QuickUpdatePolicy == "always",
	})

	a := agent.New(login, provider, mgr, disp, comp, sched)
	defer a.Close()

	tick := time.NewTicker(time.Duration(cfg.Intervals.TickMillis) * time.Millisecond)
	defer tick.Stop()

	logger.Info(ctx, "Agent started", "login", login, "mode", cfg.Mode,
		"transport", cfg.Collector.Transport)
	for {
		select {
		case <-tick.C:
			a.Tick(ctx)
		case <-sigc:
			logger.Info(ctx, "Shutting down")
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			_ = logger.Shutdown(shutdownCtx)
			stop()
			return
		case <-ctx.Done():
			return
		}
	}
}

func buildProvider(cfg *store.Config) interfaces.Provider {
	if cfg.Mode == "LIVE" {
		p, err := kite.New(kite.Params{
			APIKey:      os.Getenv("KITE_API_KEY"),
			AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
			Login:       cfg.Login,
		})
		must(err)
		return p
	}
	log.Println(">> SIM mode")
	return sim.New(cfg.Login)
}

func configRules(cfg *store.Config) types.RuleSet {
	return types.RuleSet{
		MaxDailyDrawdownPercent: cfg.Rules.MaxDailyDrawdownPct,
		MaxTotalDrawdownPercent: cfg.Rules.MaxTotalDrawdownPct,
		FloatingRiskPercent:     cfg.Rules.FloatingRiskPct,
	}
}
