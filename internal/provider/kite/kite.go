package kite

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"marathon-agent/internal/types"
)

// Provider adapts a Zerodha Kite session to the platform boundary. The
// exchange API has no position ledger, so deal entries cannot be linked into
// closed trades; history-based analytics degrade gracefully to what the
// trade book exposes.
type Provider struct {
	kc    *kiteconnect.Client
	login string
}

type Params struct {
	APIKey      string
	AccessToken string
	Login       string
}

func New(p Params) (*Provider, error) {
	if p.APIKey == "" || p.AccessToken == "" {
		return nil, errors.New("missing API key/access token")
	}
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	return &Provider{kc: kc, login: p.Login}, nil
}

func (p *Provider) Account(ctx context.Context) (types.AccountInfo, error) {
	margins, err := p.kc.GetUserMargins()
	if err != nil {
		return types.AccountInfo{}, fmt.Errorf("fetch margins: %w", err)
	}

	var floating float64
	if positions, perr := p.kc.GetPositions(); perr == nil {
		for _, pos := range positions.Net {
			floating += float64(pos.PnL)
		}
	}

	eq := margins.Equity
	balance := float64(eq.Available.LiveBalance)
	used := float64(eq.Used.Debits)
	acct := types.AccountInfo{
		Login:      p.login,
		Server:     "zerodha",
		Currency:   "INR",
		Leverage:   1,
		Balance:    balance,
		Equity:     balance + floating,
		Profit:     floating,
		Margin:     used,
		MarginFree: balance + floating - used,
	}

	if profile, perr := p.kc.GetUserProfile(); perr == nil {
		acct.Name = profile.UserName
		if acct.Login == "" {
			acct.Login = profile.UserID
		}
	}
	return acct, nil
}

func (p *Provider) Positions(ctx context.Context) ([]types.Position, error) {
	positions, err := p.kc.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}
	out := make([]types.Position, 0, len(positions.Net))
	for _, pos := range positions.Net {
		qty := float64(pos.Quantity)
		if qty == 0 {
			continue
		}
		direction := "buy"
		if qty < 0 {
			direction = "sell"
		}
		out = append(out, types.Position{
			Ticket:       int64(pos.InstrumentToken),
			Symbol:       pos.Tradingsymbol,
			Type:         direction,
			Volume:       math.Abs(qty),
			PriceOpen:    float64(pos.AveragePrice),
			PriceCurrent: float64(pos.LastPrice),
			Profit:       float64(pos.PnL),
		})
	}
	return out, nil
}

var openOrderStatuses = map[string]bool{
	"OPEN":             true,
	"TRIGGER PENDING":  true,
	"AMO REQ RECEIVED": true,
}

func (p *Provider) Orders(ctx context.Context) ([]types.Order, error) {
	orders, err := p.kc.GetOrders()
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	out := make([]types.Order, 0)
	for _, o := range orders {
		if !openOrderStatuses[o.Status] {
			continue
		}
		out = append(out, types.Order{
			Ticket:        parseID(o.OrderID),
			Symbol:        o.TradingSymbol,
			Type:          orderKind(o.TransactionType, o.OrderType),
			VolumeInitial: float64(o.Quantity),
			VolumeCurrent: float64(o.PendingQuantity),
			PriceOpen:     float64(o.Price),
			StopLoss:      float64(o.TriggerPrice),
			SetupTime:     o.OrderTimestamp.Time,
		})
	}
	return out, nil
}

func (p *Provider) Symbols(ctx context.Context) ([]string, error) {
	positions, err := p.Positions(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	names := make([]string, 0, len(positions))
	for _, pos := range positions {
		if !seen[pos.Symbol] {
			seen[pos.Symbol] = true
			names = append(names, pos.Symbol)
		}
	}
	return names, nil
}

func (p *Provider) SymbolInfo(ctx context.Context, symbol string) (types.SymbolInfo, error) {
	return types.SymbolInfo{}, errors.New("symbol metadata is not available through the exchange API")
}

func (p *Provider) SymbolTick(ctx context.Context, symbol string) (types.SymbolTick, error) {
	return types.SymbolTick{}, errors.New("quote streaming is not available through the REST session")
}

func (p *Provider) Rates(ctx context.Context, symbol, timeframe string, from, to time.Time, count int) ([]types.Rate, error) {
	return nil, errors.New("bar history is not available through the REST session")
}

func (p *Provider) Ticks(ctx context.Context, symbol string, from, to time.Time, count int) ([]types.SymbolTick, error) {
	return nil, errors.New("tick history is not available through the REST session")
}

// Deals maps the day's trade book onto ledger entries. The API exposes no
// position ids, so entries are tagged in-out and cannot be paired.
func (p *Provider) Deals(ctx context.Context, from, to time.Time) ([]types.Deal, error) {
	trades, err := p.kc.GetTrades()
	if err != nil {
		return nil, fmt.Errorf("fetch trades: %w", err)
	}
	out := make([]types.Deal, 0, len(trades))
	for _, t := range trades {
		at := t.FillTimestamp.Time
		if at.Before(from) || at.After(to) {
			continue
		}
		direction := types.DealBuy
		if strings.EqualFold(t.TransactionType, "SELL") {
			direction = types.DealSell
		}
		out = append(out, types.Deal{
			Ticket:     parseID(t.TradeID),
			OrderID:    parseID(t.OrderID),
			PositionID: parseID(t.OrderID),
			Symbol:     t.TradingSymbol,
			Type:       direction,
			Entry:      types.EntryInOut,
			Time:       at,
			Price:      float64(t.AveragePrice),
			Volume:     float64(t.Quantity),
		})
	}
	return out, nil
}

func (p *Provider) HistoryOrders(ctx context.Context, from, to time.Time) ([]types.HistoryOrder, error) {
	orders, err := p.kc.GetOrders()
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	out := make([]types.HistoryOrder, 0)
	for _, o := range orders {
		at := o.OrderTimestamp.Time
		if at.Before(from) || at.After(to) || openOrderStatuses[o.Status] {
			continue
		}
		out = append(out, types.HistoryOrder{
			Ticket:        parseID(o.OrderID),
			Symbol:        o.TradingSymbol,
			Type:          orderKind(o.TransactionType, o.OrderType),
			State:         strings.ToLower(o.Status),
			VolumeInitial: float64(o.Quantity),
			PriceOpen:     float64(o.Price),
			StopLoss:      float64(o.TriggerPrice),
			SetupTime:     at,
		})
	}
	return out, nil
}

func parseID(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func orderKind(transactionType, orderType string) string {
	return strings.ToLower(transactionType) + "_" + strings.ToLower(orderType)
}
