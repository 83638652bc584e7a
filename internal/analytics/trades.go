package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"marathon-agent/internal/logger"
	"marathon-agent/internal/types"
)

// positionGroup accumulates every deal tagged to one position id.
type positionGroup struct {
	open       *types.Deal
	close      *types.Deal
	profit     float64
	commission float64
	swap       float64
}

// groupByPosition pairs the first opening deal with the first closing deal
// per position and accumulates commission/swap charges tagged to it. Deals
// must be sorted by time.
func groupByPosition(deals []types.Deal) map[int64]*positionGroup {
	groups := make(map[int64]*positionGroup)
	for i := range deals {
		d := deals[i]
		if d.PositionID == 0 {
			continue
		}
		g := groups[d.PositionID]
		if g == nil {
			g = &positionGroup{}
			groups[d.PositionID] = g
		}

		g.commission += d.Commission
		g.swap += d.Swap

		switch d.Type {
		case types.DealBuy, types.DealSell:
			g.profit += d.Profit
			if d.Entry == types.EntryIn && g.open == nil {
				g.open = &deals[i]
			}
			if (d.Entry == types.EntryOut || d.Entry == types.EntryOutBy) && g.close == nil {
				g.close = &deals[i]
			}
		case types.DealCommission:
			g.commission += d.Profit
		case types.DealInterest:
			g.swap += d.Profit
		}
	}
	return groups
}

// Trades reconstructs the closed trades of [from, to]. A record is produced
// only when both the opening and the closing deal of a position fall inside
// the selected range.
func (e *Engine) Trades(ctx context.Context, from, to time.Time) ([]types.TradeRecord, error) {
	deals, err := e.provider.Deals(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("select deals: %w", err)
	}
	acct, err := e.provider.Account(ctx)
	if err != nil {
		return nil, fmt.Errorf("read account: %w", err)
	}

	orders, err := e.provider.HistoryOrders(ctx, from, to)
	if err != nil {
		// Risk falls back to margin/notional estimates without the
		// originating orders; the trades themselves are unaffected.
		logger.Debug(ctx, "History orders unavailable, stop-loss risk disabled", "error", err)
		orders = nil
	}
	slByPosition := make(map[int64]float64)
	for _, o := range orders {
		if o.StopLoss > 0 {
			if _, seen := slByPosition[o.PositionID]; !seen {
				slByPosition[o.PositionID] = o.StopLoss
			}
		}
	}

	timeline := newBalanceTimeline(deals, acct.Balance)
	groups := groupByPosition(timeline.deals)

	symbolCache := make(map[string]*types.SymbolInfo)
	symbolInfo := func(name string) *types.SymbolInfo {
		if si, ok := symbolCache[name]; ok {
			return si
		}
		si, err := e.provider.SymbolInfo(ctx, name)
		if err != nil {
			symbolCache[name] = nil
			return nil
		}
		symbolCache[name] = &si
		return &si
	}

	records := make([]types.TradeRecord, 0, len(groups))
	for positionID, g := range groups {
		if g.open == nil || g.close == nil {
			continue
		}
		rec := types.TradeRecord{
			PositionID: positionID,
			Symbol:     g.open.Symbol,
			Direction:  g.open.Type,
			Volume:     g.open.Volume,
			OpenTime:   g.open.Time,
			CloseTime:  g.close.Time,
			OpenPrice:  g.open.Price,
			ClosePrice: g.close.Price,
			Profit:     g.profit,
			Commission: g.commission,
			Swap:       g.swap,
		}

		rec.Risk = estimateRisk(rec, slByPosition[positionID], symbolInfo(rec.Symbol))
		// Balance just before the position was opened: the open deal's
		// own commission must not be counted against it.
		balanceAtOpen := timeline.BalanceAt(rec.OpenTime.Add(-time.Nanosecond))
		if balanceAtOpen > 0 {
			rec.RiskPercent = 100 * rec.Risk / balanceAtOpen
		}

		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].CloseTime.Before(records[j].CloseTime) })
	return records, nil
}

// estimateRisk values the amount at stake in one trade. Preference order:
// stop-loss distance through tick-size/tick-value, then through contract
// size, then the symbol's margin requirement, then 2% of notional.
func estimateRisk(rec types.TradeRecord, stopLoss float64, si *types.SymbolInfo) float64 {
	if stopLoss > 0 {
		dist := math.Abs(rec.OpenPrice - stopLoss)
		if si != nil && si.TickSize > 0 && si.TickValue > 0 {
			return dist / si.TickSize * si.TickValue * rec.Volume
		}
		if si != nil && si.ContractSize > 0 {
			return dist * si.ContractSize * rec.Volume
		}
	}
	if si != nil && si.MarginInitial > 0 {
		return si.MarginInitial * rec.Volume
	}
	contract := 1.0
	if si != nil && si.ContractSize > 0 {
		contract = si.ContractSize
	}
	return 0.02 * rec.OpenPrice * contract * rec.Volume
}

// MinimalTrade is the compact shape returned by get_trades_minimal.
type MinimalTrade struct {
	Symbol    string    `json:"symbol"`
	Direction string    `json:"direction"`
	Volume    float64   `json:"volume"`
	Profit    float64   `json:"profit"`
	OpenTime  time.Time `json:"open_time"`
	CloseTime time.Time `json:"close_time"`
}

// TradesMinimal returns the closed trades stripped down to the fields the
// collector's lightweight views need.
func (e *Engine) TradesMinimal(ctx context.Context, from, to time.Time) ([]MinimalTrade, error) {
	trades, err := e.Trades(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]MinimalTrade, len(trades))
	for i, t := range trades {
		out[i] = MinimalTrade{
			Symbol:    t.Symbol,
			Direction: t.Direction,
			Volume:    t.Volume,
			Profit:    t.NetProfit(),
			OpenTime:  t.OpenTime,
			CloseTime: t.CloseTime,
		}
	}
	return out, nil
}
