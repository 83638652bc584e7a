package protocol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marathon-agent/internal/types"
)

const (
	defaultTimeframe = "H1"
	defaultBarCount  = 100
	defaultTickCount = 1000
)

var errSymbolRequired = errors.New("symbol parameter required")

// timeRange resolves the from/to parameters of a history query. Missing
// bounds default to the configured trailing window ending now.
func (d *Dispatcher) timeRange(p Params) (time.Time, time.Time) {
	now := d.now().UTC()
	from, fromSet := p.Time("from")
	to, toSet := p.Time("to")
	if !toSet {
		to = now
	}
	if !fromSet {
		from = to.AddDate(0, 0, -d.historyDays)
	}
	return from, to
}

func (d *Dispatcher) handlePing(ctx context.Context, p Params) (any, error) {
	return map[string]any{"pong": true}, nil
}

func (d *Dispatcher) handleGetAccount(ctx context.Context, p Params) (any, error) {
	return d.provider.Account(ctx)
}

func (d *Dispatcher) handleGetPositions(ctx context.Context, p Params) (any, error) {
	positions, err := d.provider.Positions(ctx)
	if err != nil {
		return nil, err
	}
	if positions == nil {
		positions = make([]types.Position, 0)
	}
	return positions, nil
}

func (d *Dispatcher) handleGetOrders(ctx context.Context, p Params) (any, error) {
	orders, err := d.provider.Orders(ctx)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = make([]types.Order, 0)
	}
	return orders, nil
}

func (d *Dispatcher) handleGetSymbols(ctx context.Context, p Params) (any, error) {
	symbols, err := d.provider.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	if symbols == nil {
		symbols = []string{}
	}
	return symbols, nil
}

func (d *Dispatcher) handleGetSymbolInfo(ctx context.Context, p Params) (any, error) {
	symbol, ok := p.String("symbol")
	if !ok {
		return nil, errSymbolRequired
	}
	return d.provider.SymbolInfo(ctx, symbol)
}

func (d *Dispatcher) handleGetSymbolTick(ctx context.Context, p Params) (any, error) {
	symbol, ok := p.String("symbol")
	if !ok {
		return nil, errSymbolRequired
	}
	return d.provider.SymbolTick(ctx, symbol)
}

// handleGetHistoryRates supports three addressing modes: an explicit from/to
// range, from plus a bar count, or the latest N bars.
func (d *Dispatcher) handleGetHistoryRates(ctx context.Context, p Params) (any, error) {
	symbol, ok := p.String("symbol")
	if !ok {
		return nil, errSymbolRequired
	}
	timeframe, ok := p.String("timeframe")
	if !ok {
		timeframe = defaultTimeframe
	}

	from, fromSet := p.Time("from")
	to, toSet := p.Time("to")
	count, countSet := p.Int("count")

	switch {
	case fromSet && toSet:
		return d.provider.Rates(ctx, symbol, timeframe, from, to, 0)
	case fromSet && countSet:
		return d.provider.Rates(ctx, symbol, timeframe, from, time.Time{}, count)
	default:
		if !countSet || count <= 0 {
			count = defaultBarCount
		}
		return d.provider.Rates(ctx, symbol, timeframe, time.Time{}, d.now().UTC(), count)
	}
}

// handleGetHistoryTicks: from/to range, from plus count, or by default the
// last hour capped at the default tick count.
func (d *Dispatcher) handleGetHistoryTicks(ctx context.Context, p Params) (any, error) {
	symbol, ok := p.String("symbol")
	if !ok {
		return nil, errSymbolRequired
	}

	from, fromSet := p.Time("from")
	to, toSet := p.Time("to")
	count, countSet := p.Int("count")

	switch {
	case fromSet && toSet:
		return d.provider.Ticks(ctx, symbol, from, to, 0)
	case fromSet:
		if !countSet || count <= 0 {
			count = defaultTickCount
		}
		return d.provider.Ticks(ctx, symbol, from, time.Time{}, count)
	default:
		now := d.now().UTC()
		return d.provider.Ticks(ctx, symbol, now.Add(-time.Hour), now, defaultTickCount)
	}
}

func (d *Dispatcher) handleGetDailyStartBalance(ctx context.Context, p Params) (any, error) {
	date, balance, ok, err := d.compliance.DailyBaseline()
	if err != nil {
		return nil, err
	}
	if !ok {
		acct, aerr := d.provider.Account(ctx)
		if aerr != nil {
			return nil, aerr
		}
		balance, err = d.compliance.EnsureDailyBaseline(ctx, acct.Balance)
		if err != nil {
			return nil, err
		}
	}
	return map[string]any{"date": date, "balance": balance}, nil
}

func (d *Dispatcher) handleGetBalanceHistory(ctx context.Context, p Params) (any, error) {
	from, to := d.timeRange(p)
	return d.analytics.BalanceHistory(ctx, from, to)
}

func (d *Dispatcher) handleGetEquityHistory(ctx context.Context, p Params) (any, error) {
	from, to := d.timeRange(p)
	return d.analytics.EquityHistory(ctx, from, to)
}

func (d *Dispatcher) handleGetPerformanceReport(ctx context.Context, p Params) (any, error) {
	from, to := d.timeRange(p)
	return d.analytics.Report(ctx, from, to)
}

func (d *Dispatcher) handleGetStatement(ctx context.Context, p Params) (any, error) {
	from, to := d.timeRange(p)
	return d.analytics.Statement(ctx, from, to)
}

func (d *Dispatcher) handleGetTradeHistory(ctx context.Context, p Params) (any, error) {
	from, to := d.timeRange(p)
	return d.analytics.Trades(ctx, from, to)
}

func (d *Dispatcher) handleGetSymbolStatistics(ctx context.Context, p Params) (any, error) {
	from, to := d.timeRange(p)
	return d.analytics.SymbolStats(ctx, from, to)
}

func (d *Dispatcher) handleGetTradesMinimal(ctx context.Context, p Params) (any, error) {
	from, to := d.timeRange(p)
	return d.analytics.TradesMinimal(ctx, from, to)
}

// handleSetRules replaces the whole rule set; absent keys disable the rule.
func (d *Dispatcher) handleSetRules(ctx context.Context, p Params) (any, error) {
	var rs types.RuleSet
	rs.MaxDailyDrawdownPercent, _ = p.Float("max_daily_drawdown_percent")
	rs.MaxTotalDrawdownPercent, _ = p.Float("max_total_drawdown_percent")
	rs.FloatingRiskPercent, _ = p.Float("floating_risk_percent")
	if rs.MaxDailyDrawdownPercent < 0 || rs.MaxTotalDrawdownPercent < 0 || rs.FloatingRiskPercent < 0 {
		return nil, fmt.Errorf("rule limits must not be negative")
	}

	acct, err := d.provider.Account(ctx)
	if err != nil {
		return nil, err
	}
	d.compliance.SetRules(rs, acct.Balance)
	return map[string]any{
		"rules":                  d.compliance.Rules(),
		"marathon_start_balance": d.compliance.MarathonStartBalance(),
	}, nil
}

func (d *Dispatcher) handleGetRulesStatus(ctx context.Context, p Params) (any, error) {
	return map[string]any{
		"rules":                  d.compliance.Rules(),
		"status":                 d.compliance.Status(),
		"marathon_start_balance": d.compliance.MarathonStartBalance(),
	}, nil
}

// handleSetMarathonStartBalance sets the total-drawdown reference point. With
// no balance parameter it resets to the current account balance.
func (d *Dispatcher) handleSetMarathonStartBalance(ctx context.Context, p Params) (any, error) {
	balance, ok := p.Float("balance")
	if !ok {
		acct, err := d.provider.Account(ctx)
		if err != nil {
			return nil, err
		}
		balance = acct.Balance
	}
	if balance <= 0 {
		return nil, fmt.Errorf("balance must be positive")
	}
	d.compliance.SetMarathonStartBalance(balance)
	return map[string]any{"marathon_start_balance": balance}, nil
}
