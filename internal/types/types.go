package types

import "time"

// AccountInfo is a point-in-time view of the trading account.
type AccountInfo struct {
	Login      string  `json:"login"`
	Name       string  `json:"name,omitempty"`
	Server     string  `json:"server,omitempty"`
	Currency   string  `json:"currency"`
	Leverage   int64   `json:"leverage"`
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Profit     float64 `json:"profit"`
	Margin     float64 `json:"margin"`
	MarginFree float64 `json:"margin_free"`
}

// Position is an open net holding in a symbol.
type Position struct {
	Ticket       int64     `json:"ticket"`
	Symbol       string    `json:"symbol"`
	Type         string    `json:"type"` // "buy" or "sell"
	Volume       float64   `json:"volume"`
	PriceOpen    float64   `json:"price_open"`
	PriceCurrent float64   `json:"price_current"`
	StopLoss     float64   `json:"sl"`
	TakeProfit   float64   `json:"tp"`
	Profit       float64   `json:"profit"`
	Swap         float64   `json:"swap"`
	OpenTime     time.Time `json:"time"`
	Comment      string    `json:"comment,omitempty"`
}

// Order is a pending (not yet filled) order.
type Order struct {
	Ticket        int64     `json:"ticket"`
	Symbol        string    `json:"symbol"`
	Type          string    `json:"type"` // e.g. "buy_limit", "sell_stop"
	VolumeInitial float64   `json:"volume_initial"`
	VolumeCurrent float64   `json:"volume_current"`
	PriceOpen     float64   `json:"price_open"`
	StopLoss      float64   `json:"sl"`
	TakeProfit    float64   `json:"tp"`
	SetupTime     time.Time `json:"time_setup"`
	Comment       string    `json:"comment,omitempty"`
}

// Deal type constants mirror the platform's ledger entry types.
const (
	DealBuy        = "buy"
	DealSell       = "sell"
	DealBalance    = "balance"
	DealCredit     = "credit"
	DealCharge     = "charge"
	DealCorrection = "correction"
	DealBonus      = "bonus"
	DealCommission = "commission"
	DealInterest   = "interest"
)

// Deal entry kinds.
const (
	EntryIn    = "in"
	EntryOut   = "out"
	EntryInOut = "inout"
	EntryOutBy = "out_by"
)

// Deal is one immutable entry of the append-only history ledger.
type Deal struct {
	Ticket     int64     `json:"ticket"`
	OrderID    int64     `json:"order"`
	PositionID int64     `json:"position_id"`
	Symbol     string    `json:"symbol"`
	Type       string    `json:"type"`
	Entry      string    `json:"entry"`
	Time       time.Time `json:"time"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	Profit     float64   `json:"profit"`
	Swap       float64   `json:"swap"`
	Commission float64   `json:"commission"`
	Comment    string    `json:"comment,omitempty"`
}

// HistoryOrder is a finished order from the history ledger. The stop-loss it
// carried at setup time feeds per-trade risk estimation.
type HistoryOrder struct {
	Ticket        int64     `json:"ticket"`
	PositionID    int64     `json:"position_id"`
	Symbol        string    `json:"symbol"`
	Type          string    `json:"type"`
	State         string    `json:"state"`
	VolumeInitial float64   `json:"volume_initial"`
	PriceOpen     float64   `json:"price_open"`
	StopLoss      float64   `json:"sl"`
	TakeProfit    float64   `json:"tp"`
	SetupTime     time.Time `json:"time_setup"`
	DoneTime      time.Time `json:"time_done"`
}

// SymbolInfo carries the static metadata of one tradable symbol.
type SymbolInfo struct {
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Digits        int     `json:"digits"`
	Point         float64 `json:"point"`
	TickSize      float64 `json:"tick_size"`
	TickValue     float64 `json:"tick_value"`
	ContractSize  float64 `json:"contract_size"`
	MarginInitial float64 `json:"margin_initial"`
	Spread        int     `json:"spread"`
	TradeMode     string  `json:"trade_mode"`
}

// SymbolTick is the latest quote of one symbol.
type SymbolTick struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Last   float64   `json:"last"`
	Volume float64   `json:"volume"`
}

// Rate is one OHLC bar.
type Rate struct {
	Time       time.Time `json:"time"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	TickVolume int64     `json:"tick_volume"`
	Spread     int       `json:"spread"`
}

// RuleSet holds the marathon compliance limits. A zero value disables the rule.
// A set_rules query replaces the whole set; rules are never updated piecemeal.
type RuleSet struct {
	MaxDailyDrawdownPercent float64 `json:"max_daily_drawdown_percent"`
	MaxTotalDrawdownPercent float64 `json:"max_total_drawdown_percent"`
	FloatingRiskPercent     float64 `json:"floating_risk_percent"`
}

// Enabled reports whether at least one rule is active.
func (r RuleSet) Enabled() bool {
	return r.MaxDailyDrawdownPercent > 0 || r.MaxTotalDrawdownPercent > 0 || r.FloatingRiskPercent > 0
}

// RuleViolation names one failed rule and why it failed.
type RuleViolation struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// RuleStatus is the outcome of the latest compliance evaluation.
type RuleStatus struct {
	Passing              bool            `json:"passing"`
	Violations           []RuleViolation `json:"violations"`
	DailyDrawdownPercent float64         `json:"daily_drawdown_percent"`
	TotalDrawdownPercent float64         `json:"total_drawdown_percent"`
	FloatingRiskPercent  float64         `json:"floating_risk_percent"`
	LastCheck            time.Time       `json:"last_check"`
}

// TradeRecord is one closed position reconstructed from its paired deals.
type TradeRecord struct {
	PositionID  int64     `json:"position_id"`
	Symbol      string    `json:"symbol"`
	Direction   string    `json:"direction"` // "buy" or "sell"
	Volume      float64   `json:"volume"`
	OpenTime    time.Time `json:"open_time"`
	CloseTime   time.Time `json:"close_time"`
	OpenPrice   float64   `json:"open_price"`
	ClosePrice  float64   `json:"close_price"`
	Profit      float64   `json:"profit"`
	Commission  float64   `json:"commission"`
	Swap        float64   `json:"swap"`
	Risk        float64   `json:"risk"`
	RiskPercent float64   `json:"risk_percent"`
}

// NetProfit is the trade's profit after commission and swap.
func (t TradeRecord) NetProfit() float64 {
	return t.Profit + t.Commission + t.Swap
}

// BalancePoint is one sample of a reconstructed balance/equity curve.
type BalancePoint struct {
	Time    time.Time `json:"time"`
	Balance float64   `json:"balance"`
}

// PerformanceReport aggregates statistics over a set of closed trades.
type PerformanceReport struct {
	From                    time.Time `json:"from"`
	To                      time.Time `json:"to"`
	TotalTrades             int       `json:"total_trades"`
	WinningTrades           int       `json:"winning_trades"`
	LosingTrades            int       `json:"losing_trades"`
	GrossProfit             float64   `json:"gross_profit"`
	GrossLoss               float64   `json:"gross_loss"`
	NetProfit               float64   `json:"net_profit"`
	LargestWin              float64   `json:"largest_win"`
	LargestLoss             float64   `json:"largest_loss"`
	ExpectedPayoff          float64   `json:"expected_payoff"`
	ProfitFactor            float64   `json:"profit_factor"`
	RecoveryFactor          float64   `json:"recovery_factor"`
	SharpeRatio             float64   `json:"sharpe_ratio"`
	MaxConsecutiveWins      int       `json:"max_consecutive_wins"`
	MaxConsecutiveWinsSum   float64   `json:"max_consecutive_wins_profit"`
	MaxConsecutiveLosses    int       `json:"max_consecutive_losses"`
	MaxConsecutiveLossesSum float64   `json:"max_consecutive_losses_loss"`
	MaxDrawdown             float64   `json:"max_drawdown"`
	DailyMaxDrawdownPercent float64   `json:"daily_max_drawdown_percent"`
	TotalMaxDrawdownPercent float64   `json:"total_max_drawdown_percent"`
}

// SymbolStatistics aggregates closed trades of one symbol.
type SymbolStatistics struct {
	Symbol        string  `json:"symbol"`
	Trades        int     `json:"trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	Volume        float64 `json:"volume"`
	Profit        float64 `json:"profit"`
	Commission    float64 `json:"commission"`
	Swap          float64 `json:"swap"`
	WinRate       float64 `json:"win_rate"`
}
