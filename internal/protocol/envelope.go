package protocol

import (
	"time"

	"marathon-agent/internal/types"
)

// Outbound envelope kinds. Inbound traffic only ever carries KindQuery.
const (
	KindAccount       = "account"
	KindUpdate        = "update"
	KindPositions     = "positions"
	KindOrders        = "orders"
	KindHeartbeat     = "heartbeat"
	KindResponse      = "response"
	KindRuleViolation = "rule_violation"
	KindQuery         = "query"
)

// Timestamp renders a wire timestamp: UTC, second precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// Header carries the fields common to every outbound envelope.
type Header struct {
	Type      string `json:"type"`
	Login     string `json:"login"`
	Timestamp string `json:"timestamp"`
}

func header(kind, login string, at time.Time) Header {
	return Header{Type: kind, Login: login, Timestamp: Timestamp(at)}
}

// Snapshot is the full account state push.
type Snapshot struct {
	Header
	Account   types.AccountInfo `json:"account"`
	Positions []types.Position  `json:"positions"`
	Orders    []types.Order     `json:"orders"`
}

func NewSnapshot(login string, at time.Time, acct types.AccountInfo, positions []types.Position, orders []types.Order) Snapshot {
	if positions == nil {
		positions = []types.Position{}
	}
	if orders == nil {
		orders = []types.Order{}
	}
	return Snapshot{Header: header(KindAccount, login, at), Account: acct, Positions: positions, Orders: orders}
}

// Update is the quick equity/profit delta. Balance and margin travel only
// when they moved materially since the last update.
type Update struct {
	Header
	Equity  float64  `json:"equity"`
	Profit  float64  `json:"profit"`
	Balance *float64 `json:"balance,omitempty"`
	Margin  *float64 `json:"margin,omitempty"`
}

func NewUpdate(login string, at time.Time, equity, profit float64, balance, margin *float64) Update {
	return Update{Header: header(KindUpdate, login, at), Equity: equity, Profit: profit, Balance: balance, Margin: margin}
}

// PositionsDelta pushes the full open-positions list after a detected change.
type PositionsDelta struct {
	Header
	Positions []types.Position `json:"positions"`
}

func NewPositionsDelta(login string, at time.Time, positions []types.Position) PositionsDelta {
	if positions == nil {
		positions = []types.Position{}
	}
	return PositionsDelta{Header: header(KindPositions, login, at), Positions: positions}
}

// OrdersDelta pushes the full pending-orders list after a detected change.
type OrdersDelta struct {
	Header
	Orders []types.Order `json:"orders"`
}

func NewOrdersDelta(login string, at time.Time, orders []types.Order) OrdersDelta {
	if orders == nil {
		orders = []types.Order{}
	}
	return OrdersDelta{Header: header(KindOrders, login, at), Orders: orders}
}

// Heartbeat keeps the connection warm during idle stretches.
type Heartbeat struct {
	Header
}

func NewHeartbeat(login string, at time.Time) Heartbeat {
	return Heartbeat{Header: header(KindHeartbeat, login, at)}
}

// Response answers exactly one query. RequestID echoes the query's verbatim.
type Response struct {
	Header
	RequestID string `json:"requestId"`
	OK        bool   `json:"ok"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ViolationAlert is pushed once on the transition into a failing rule state.
type ViolationAlert struct {
	Header
	Status types.RuleStatus `json:"status"`
}

func NewViolationAlert(login string, at time.Time, status types.RuleStatus) ViolationAlert {
	return ViolationAlert{Header: header(KindRuleViolation, login, at), Status: status}
}

// Query is the single inbound envelope shape.
type Query struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	Action    string `json:"action"`
	Params    Params `json:"params"`
}
