package sim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"marathon-agent/internal/types"
)

// Provider is a deterministic in-memory trading platform. It backs SIM mode
// and the test suite: prices are synthesized from the clock, so two calls
// with the same arguments always agree.
type Provider struct {
	mu sync.Mutex

	account       types.AccountInfo
	positions     []types.Position
	orders        []types.Order
	deals         []types.Deal
	historyOrders []types.HistoryOrder
	symbols       map[string]types.SymbolInfo

	now func() time.Time
}

func New(login string) *Provider {
	p := &Provider{
		account: types.AccountInfo{
			Login:    login,
			Name:     "Simulated Account",
			Server:   "SIM",
			Currency: "USD",
			Leverage: 100,
			Balance:  10000,
			Equity:   10000,
		},
		symbols: map[string]types.SymbolInfo{
			"EURUSD": {Name: "EURUSD", Description: "Euro vs US Dollar", Digits: 5, Point: 0.00001,
				TickSize: 0.00001, TickValue: 1, ContractSize: 100000, MarginInitial: 1000, Spread: 7, TradeMode: "full"},
			"USDJPY": {Name: "USDJPY", Description: "US Dollar vs Japanese Yen", Digits: 3, Point: 0.001,
				TickSize: 0.001, TickValue: 0.65, ContractSize: 100000, MarginInitial: 1000, Spread: 9, TradeMode: "full"},
			"XAUUSD": {Name: "XAUUSD", Description: "Gold vs US Dollar", Digits: 2, Point: 0.01,
				TickSize: 0.01, TickValue: 1, ContractSize: 100, MarginInitial: 2500, Spread: 25, TradeMode: "full"},
		},
		now: time.Now,
	}
	p.seedHistory()
	return p
}

// basePrice anchors each symbol's synthetic walk.
func basePrice(symbol string) float64 {
	switch symbol {
	case "EURUSD":
		return 1.085
	case "USDJPY":
		return 148.5
	case "XAUUSD":
		return 2350
	default:
		return 100
	}
}

// priceAt synthesizes a deterministic mid price from the clock.
func priceAt(symbol string, t time.Time) float64 {
	base := basePrice(symbol)
	s := float64(t.Unix())
	wave := math.Sin(s/3600)*0.002 + math.Sin(s/420)*0.0007 + math.Sin(s/37)*0.0002
	return base * (1 + wave)
}

// seedHistory populates a month of closed trades so the analytics queries
// have something to chew on out of the box.
func (p *Provider) seedHistory() {
	start := p.now().UTC().AddDate(0, 0, -30).Truncate(24 * time.Hour)
	p.deals = append(p.deals, types.Deal{
		Ticket: 1, Type: types.DealBalance, Time: start,
		Profit: p.account.Balance, Comment: "initial deposit",
	})

	symbols := []string{"EURUSD", "XAUUSD", "USDJPY"}
	ticket := int64(2)
	var running float64
	for i := 0; i < 20; i++ {
		sym := symbols[i%len(symbols)]
		openAt := start.Add(time.Duration(i*31+7) * time.Hour)
		closeAt := openAt.Add(time.Duration(2+i%5) * time.Hour)
		positionID := int64(1000 + i)
		direction := types.DealBuy
		closeDir := types.DealSell
		if i%2 == 1 {
			direction, closeDir = types.DealSell, types.DealBuy
		}
		openPrice := priceAt(sym, openAt)
		closePrice := priceAt(sym, closeAt)
		profit := math.Round((closePrice-openPrice)*10000) / 100
		if direction == types.DealSell {
			profit = -profit
		}

		p.deals = append(p.deals,
			types.Deal{Ticket: ticket, OrderID: ticket, PositionID: positionID, Symbol: sym,
				Type: direction, Entry: types.EntryIn, Time: openAt, Price: openPrice,
				Volume: 0.1, Commission: -0.7},
			types.Deal{Ticket: ticket + 1, OrderID: ticket + 1, PositionID: positionID, Symbol: sym,
				Type: closeDir, Entry: types.EntryOut, Time: closeAt, Price: closePrice,
				Volume: 0.1, Profit: profit, Commission: -0.7, Swap: -0.1},
		)
		p.historyOrders = append(p.historyOrders, types.HistoryOrder{
			Ticket: ticket, PositionID: positionID, Symbol: sym, Type: direction,
			State: "filled", VolumeInitial: 0.1, PriceOpen: openPrice,
			StopLoss: openPrice * 0.99, SetupTime: openAt, DoneTime: openAt,
		})
		running += profit - 1.4 - 0.1
		ticket += 2
	}
	p.account.Balance += running
	p.account.Equity = p.account.Balance
}

func (p *Provider) Account(ctx context.Context) (types.AccountInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct := p.account
	var floating float64
	for _, pos := range p.positions {
		floating += pos.Profit
	}
	acct.Profit = floating
	acct.Equity = acct.Balance + floating
	acct.MarginFree = acct.Equity - acct.Margin
	return acct, nil
}

func (p *Provider) Positions(ctx context.Context) ([]types.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.Position, len(p.positions))
	copy(out, p.positions)
	return out, nil
}

func (p *Provider) Orders(ctx context.Context) ([]types.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.Order, len(p.orders))
	copy(out, p.orders)
	return out, nil
}

func (p *Provider) Symbols(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.symbols))
	for name := range p.symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (p *Provider) SymbolInfo(ctx context.Context, symbol string) (types.SymbolInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	si, ok := p.symbols[symbol]
	if !ok {
		return types.SymbolInfo{}, fmt.Errorf("unknown symbol %q", symbol)
	}
	return si, nil
}

func (p *Provider) SymbolTick(ctx context.Context, symbol string) (types.SymbolTick, error) {
	p.mu.Lock()
	si, ok := p.symbols[symbol]
	p.mu.Unlock()
	if !ok {
		return types.SymbolTick{}, fmt.Errorf("unknown symbol %q", symbol)
	}
	now := p.now().UTC()
	mid := priceAt(symbol, now)
	half := float64(si.Spread) * si.Point / 2
	return types.SymbolTick{
		Symbol: symbol,
		Time:   now,
		Bid:    mid - half,
		Ask:    mid + half,
		Last:   mid,
		Volume: 1,
	}, nil
}

func timeframeDuration(timeframe string) time.Duration {
	switch timeframe {
	case "M1":
		return time.Minute
	case "M5":
		return 5 * time.Minute
	case "M15":
		return 15 * time.Minute
	case "M30":
		return 30 * time.Minute
	case "H1":
		return time.Hour
	case "H4":
		return 4 * time.Hour
	case "D1":
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

func (p *Provider) Rates(ctx context.Context, symbol, timeframe string, from, to time.Time, count int) ([]types.Rate, error) {
	if _, err := p.SymbolInfo(ctx, symbol); err != nil {
		return nil, err
	}
	step := timeframeDuration(timeframe)

	switch {
	case !from.IsZero() && !to.IsZero() && count <= 0:
		// range mode, bounds aligned to the bar grid
	case !from.IsZero() && count > 0:
		to = from.Add(time.Duration(count) * step)
	case count > 0:
		to = p.now().UTC()
		from = to.Add(-time.Duration(count) * step)
	default:
		return nil, fmt.Errorf("rates query needs a range or a count")
	}

	from = from.Truncate(step)
	bars := make([]types.Rate, 0, 64)
	for t := from; t.Before(to); t = t.Add(step) {
		openPrice := priceAt(symbol, t)
		closePrice := priceAt(symbol, t.Add(step-time.Second))
		mid := priceAt(symbol, t.Add(step/2))
		high := math.Max(math.Max(openPrice, closePrice), mid)
		low := math.Min(math.Min(openPrice, closePrice), mid)
		bars = append(bars, types.Rate{
			Time: t, Open: openPrice, High: high, Low: low, Close: closePrice,
			TickVolume: 100 + int64(t.Unix()%97), Spread: 7,
		})
	}
	return bars, nil
}

func (p *Provider) Ticks(ctx context.Context, symbol string, from, to time.Time, count int) ([]types.SymbolTick, error) {
	si, err := p.SymbolInfo(ctx, symbol)
	if err != nil {
		return nil, err
	}

	step := time.Second
	switch {
	case !from.IsZero() && !to.IsZero():
		if d := int(to.Sub(from) / step); count <= 0 || d < count {
			count = d
		}
	case !from.IsZero() && count > 0:
		to = from.Add(time.Duration(count) * step)
	default:
		return nil, fmt.Errorf("ticks query needs a range or a count")
	}
	if count < 0 {
		count = 0
	}

	half := float64(si.Spread) * si.Point / 2
	ticks := make([]types.SymbolTick, 0, count)
	for i := 0; i < count; i++ {
		t := from.Add(time.Duration(i) * step)
		mid := priceAt(symbol, t)
		ticks = append(ticks, types.SymbolTick{
			Symbol: symbol, Time: t, Bid: mid - half, Ask: mid + half, Last: mid, Volume: 1,
		})
	}
	return ticks, nil
}

func (p *Provider) Deals(ctx context.Context, from, to time.Time) ([]types.Deal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.Deal, 0, len(p.deals))
	for _, d := range p.deals {
		if d.Time.Before(from) || d.Time.After(to) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (p *Provider) HistoryOrders(ctx context.Context, from, to time.Time) ([]types.HistoryOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.HistoryOrder, 0, len(p.historyOrders))
	for _, o := range p.historyOrders {
		if o.SetupTime.Before(from) || o.SetupTime.After(to) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// Test hooks. Production code never calls these.

func (p *Provider) SetAccount(acct types.AccountInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.account = acct
}

func (p *Provider) SetPositions(positions []types.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions = positions
}

func (p *Provider) SetOrders(orders []types.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = orders
}

func (p *Provider) SetDeals(deals []types.Deal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deals = deals
}

func (p *Provider) SetHistoryOrders(orders []types.HistoryOrder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.historyOrders = orders
}
