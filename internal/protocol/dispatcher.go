package protocol

import (
	"context"
	"encoding/json"
	"time"

	"marathon-agent/internal/analytics"
	"marathon-agent/internal/compliance"
	"marathon-agent/internal/interfaces"
	"marathon-agent/internal/logger"
)

// MaxFramesPerTick bounds how many inbound frames one tick will process.
const MaxFramesPerTick = 5

type handlerFunc func(ctx context.Context, p Params) (any, error)

// Dispatcher routes inbound query frames to action handlers. Its contract:
// a parseable query always yields exactly one response, synchronously.
type Dispatcher struct {
	login       string
	provider    interfaces.Provider
	analytics   *analytics.Engine
	compliance  *compliance.Engine
	historyDays int

	handlers map[string]handlerFunc
	now      func() time.Time
}

func NewDispatcher(login string, provider interfaces.Provider, an *analytics.Engine, comp *compliance.Engine, historyDays int) *Dispatcher {
	if historyDays <= 0 {
		historyDays = 30
	}
	d := &Dispatcher{
		login:       login,
		provider:    provider,
		analytics:   an,
		compliance:  comp,
		historyDays: historyDays,
		now:         time.Now,
	}
	d.handlers = map[string]handlerFunc{
		"ping":                       d.handlePing,
		"get_account":                d.handleGetAccount,
		"get_positions":              d.handleGetPositions,
		"get_orders":                 d.handleGetOrders,
		"get_symbols":                d.handleGetSymbols,
		"get_symbol_info":            d.handleGetSymbolInfo,
		"get_symbol_tick":            d.handleGetSymbolTick,
		"get_history_rates":          d.handleGetHistoryRates,
		"get_history_ticks":          d.handleGetHistoryTicks,
		"get_daily_start_balance":    d.handleGetDailyStartBalance,
		"get_balance_history":        d.handleGetBalanceHistory,
		"get_equity_history":         d.handleGetEquityHistory,
		"get_performance_report":     d.handleGetPerformanceReport,
		"get_statement":              d.handleGetStatement,
		"get_trade_history":          d.handleGetTradeHistory,
		"get_symbol_statistics":      d.handleGetSymbolStatistics,
		"get_trades_minimal":         d.handleGetTradesMinimal,
		"set_rules":                  d.handleSetRules,
		"get_rules_status":           d.handleGetRulesStatus,
		"set_marathon_start_balance": d.handleSetMarathonStartBalance,
	}
	return d
}

// HandleFrame parses one frame and serves it. The second return is false when
// no response must be sent: unparseable frames are dropped silently (there is
// no requestId to echo) and non-query envelopes are ignored.
func (d *Dispatcher) HandleFrame(ctx context.Context, frame string) (*Response, bool) {
	var q Query
	if err := json.Unmarshal([]byte(frame), &q); err != nil {
		logger.Debug(ctx, "Dropping unparseable frame", "size", len(frame))
		return nil, false
	}
	if q.Type != KindQuery {
		return nil, false
	}
	if q.RequestID == "" {
		logger.Warn(ctx, "Query without requestId", "action", q.Action)
	}
	return d.serve(ctx, q), true
}

func (d *Dispatcher) serve(ctx context.Context, q Query) *Response {
	h, known := d.handlers[q.Action]
	if !known {
		logger.QueryServed(ctx, q.Action, q.RequestID, false, "error", "unknown action")
		return d.fail(q.RequestID, "Unknown action")
	}

	data, err := h(ctx, q.Params)
	if err != nil {
		logger.QueryServed(ctx, q.Action, q.RequestID, false, "error", err.Error())
		return d.fail(q.RequestID, err.Error())
	}
	logger.QueryServed(ctx, q.Action, q.RequestID, true)
	return d.ok(q.RequestID, data)
}

func (d *Dispatcher) ok(requestID string, data any) *Response {
	return &Response{
		Header:    header(KindResponse, d.login, d.now()),
		RequestID: requestID,
		OK:        true,
		Data:      data,
	}
}

func (d *Dispatcher) fail(requestID, errMsg string) *Response {
	return &Response{
		Header:    header(KindResponse, d.login, d.now()),
		RequestID: requestID,
		OK:        false,
		Error:     errMsg,
	}
}
