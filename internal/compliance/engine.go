package compliance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"marathon-agent/internal/interfaces"
	"marathon-agent/internal/logger"
	"marathon-agent/internal/types"
)

// Rule names, in evaluation order. Order is stable so failure lists are
// deterministic.
const (
	RuleDailyDrawdown = "daily_drawdown"
	RuleTotalDrawdown = "total_drawdown"
	RuleFloatingRisk  = "floating_risk"
)

// Engine evaluates the marathon compliance rules against account state each
// tick. Alerts are edge-triggered: exactly one on the transition from "all
// passing" to "at least one failing"; recovery clears silently.
type Engine struct {
	kv    interfaces.KV
	login string

	rules       types.RuleSet
	rulesActive bool

	marathonStart float64
	wasPassing    bool
	status        types.RuleStatus

	now func() time.Time
}

func New(kv interfaces.KV, login string) *Engine {
	return &Engine{
		kv:         kv,
		login:      login,
		wasPassing: true,
		status:     types.RuleStatus{Passing: true},
		now:        time.Now,
	}
}

// SetRules replaces the whole rule set. Rules are never updated piecemeal.
// The marathon start balance defaults to the current balance the first time
// rules become active, unless a query set it explicitly before.
func (e *Engine) SetRules(rs types.RuleSet, currentBalance float64) {
	e.rules = rs
	e.rulesActive = rs.Enabled()
	if e.rulesActive && e.marathonStart == 0 {
		e.marathonStart = currentBalance
	}
}

func (e *Engine) Rules() types.RuleSet { return e.rules }

func (e *Engine) SetMarathonStartBalance(balance float64) {
	e.marathonStart = balance
}

func (e *Engine) MarathonStartBalance() float64 { return e.marathonStart }

// Status returns the outcome of the latest evaluation.
func (e *Engine) Status() types.RuleStatus {
	st := e.status
	if st.Violations == nil {
		st.Violations = []types.RuleViolation{}
	}
	return st
}

func (e *Engine) baselineKey(day time.Time) string {
	return fmt.Sprintf("daily_balance:%s:%s", e.login, day.UTC().Format("2006-01-02"))
}

// EnsureDailyBaseline records the balance at the first observation of the
// current calendar day and returns the recorded value. An existing record is
// never overwritten.
func (e *Engine) EnsureDailyBaseline(ctx context.Context, balance float64) (float64, error) {
	key := e.baselineKey(e.now())
	if v, ok, err := e.kv.Get(key); err != nil {
		return 0, fmt.Errorf("read daily baseline: %w", err)
	} else if ok {
		b, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return 0, fmt.Errorf("corrupt daily baseline %q: %w", v, perr)
		}
		return b, nil
	}
	if err := e.kv.Set(key, strconv.FormatFloat(balance, 'f', -1, 64)); err != nil {
		return 0, fmt.Errorf("write daily baseline: %w", err)
	}
	logger.Info(ctx, "Daily balance baseline recorded", "login", e.login, "balance", balance)
	return balance, nil
}

// DailyBaseline reads today's recorded baseline without creating one.
func (e *Engine) DailyBaseline() (date string, balance float64, ok bool, err error) {
	day := e.now().UTC().Format("2006-01-02")
	v, ok, err := e.kv.Get(e.baselineKey(e.now()))
	if err != nil || !ok {
		return day, 0, false, err
	}
	b, perr := strconv.ParseFloat(v, 64)
	if perr != nil {
		return day, 0, false, fmt.Errorf("corrupt daily baseline %q: %w", v, perr)
	}
	return day, b, true, nil
}

// DailyDrawdownPercent is the decline from the daily baseline to the current
// balance, as a percentage of the baseline. Zero when no baseline exists.
func DailyDrawdownPercent(baseline, balance float64) float64 {
	if baseline <= 0 {
		return 0
	}
	return 100 * (baseline - balance) / baseline
}

// TotalDrawdownPercent is the decline from the marathon start balance. Zero
// when the start balance is unset.
func TotalDrawdownPercent(start, balance float64) float64 {
	if start <= 0 {
		return 0
	}
	return 100 * (start - balance) / start
}

// FloatingRiskPercent is used margin as a percentage of equity. Zero when
// equity is not positive.
func FloatingRiskPercent(margin, equity float64) float64 {
	if equity <= 0 {
		return 0
	}
	return 100 * margin / equity
}

// Check recomputes all metrics against the enabled rules. It returns the new
// status and whether a violation alert must be emitted this tick. With no
// rule enabled it does nothing.
func (e *Engine) Check(ctx context.Context, acct types.AccountInfo) (types.RuleStatus, bool, error) {
	if !e.rulesActive {
		return e.Status(), false, nil
	}

	baseline, err := e.EnsureDailyBaseline(ctx, acct.Balance)
	if err != nil {
		return e.Status(), false, err
	}

	st := types.RuleStatus{
		Passing:              true,
		Violations:           []types.RuleViolation{},
		DailyDrawdownPercent: DailyDrawdownPercent(baseline, acct.Balance),
		TotalDrawdownPercent: TotalDrawdownPercent(e.marathonStart, acct.Balance),
		FloatingRiskPercent:  FloatingRiskPercent(acct.Margin, acct.Equity),
		LastCheck:            e.now().UTC(),
	}

	if e.rules.MaxDailyDrawdownPercent > 0 && st.DailyDrawdownPercent >= e.rules.MaxDailyDrawdownPercent {
		st.Violations = append(st.Violations, types.RuleViolation{
			Name: RuleDailyDrawdown,
			Reason: fmt.Sprintf("daily drawdown %.2f%% >= limit %.2f%%",
				st.DailyDrawdownPercent, e.rules.MaxDailyDrawdownPercent),
		})
	}
	if e.rules.MaxTotalDrawdownPercent > 0 && st.TotalDrawdownPercent >= e.rules.MaxTotalDrawdownPercent {
		st.Violations = append(st.Violations, types.RuleViolation{
			Name: RuleTotalDrawdown,
			Reason: fmt.Sprintf("total drawdown %.2f%% >= limit %.2f%%",
				st.TotalDrawdownPercent, e.rules.MaxTotalDrawdownPercent),
		})
	}
	if e.rules.FloatingRiskPercent > 0 && st.FloatingRiskPercent >= e.rules.FloatingRiskPercent {
		st.Violations = append(st.Violations, types.RuleViolation{
			Name: RuleFloatingRisk,
			Reason: fmt.Sprintf("floating risk %.2f%% >= limit %.2f%%",
				st.FloatingRiskPercent, e.rules.FloatingRiskPercent),
		})
	}

	st.Passing = len(st.Violations) == 0
	alert := e.wasPassing && !st.Passing
	e.wasPassing = st.Passing
	e.status = st

	if alert {
		names := make([]string, len(st.Violations))
		for i, v := range st.Violations {
			names[i] = v.Name
		}
		logger.Violation(ctx, e.login, names,
			"daily_drawdown_pct", st.DailyDrawdownPercent,
			"total_drawdown_pct", st.TotalDrawdownPercent,
			"floating_risk_pct", st.FloatingRiskPercent,
		)
	}

	return st, alert, nil
}
