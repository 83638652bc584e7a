package interfaces

import (
	"context"
	"time"

	"marathon-agent/internal/types"
)

// Provider is the read-only boundary to the host trading platform. All data
// the agent streams or reports is pulled through it; the agent never writes
// back to the platform.
type Provider interface {
	Account(ctx context.Context) (types.AccountInfo, error)
	Positions(ctx context.Context) ([]types.Position, error)
	Orders(ctx context.Context) ([]types.Order, error)

	Symbols(ctx context.Context) ([]string, error)
	SymbolInfo(ctx context.Context, symbol string) (types.SymbolInfo, error)
	SymbolTick(ctx context.Context, symbol string) (types.SymbolTick, error)

	// Rates returns OHLC bars for [from, to]. When count > 0 and to is zero,
	// it returns count bars starting at from.
	Rates(ctx context.Context, symbol, timeframe string, from, to time.Time, count int) ([]types.Rate, error)
	// Ticks returns raw ticks for [from, to], or count ticks from `from`
	// when count > 0.
	Ticks(ctx context.Context, symbol string, from, to time.Time, count int) ([]types.SymbolTick, error)

	// Deals selects the deal ledger for [from, to], ordered by time.
	Deals(ctx context.Context, from, to time.Time) ([]types.Deal, error)
	// HistoryOrders selects finished orders for [from, to].
	HistoryOrders(ctx context.Context, from, to time.Time) ([]types.HistoryOrder, error)
}
