package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"marathon-agent/internal/types"
)

// Report computes the aggregate performance statistics of [from, to] from the
// closed trades and the reconstructed balance curve.
func (e *Engine) Report(ctx context.Context, from, to time.Time) (types.PerformanceReport, error) {
	trades, err := e.Trades(ctx, from, to)
	if err != nil {
		return types.PerformanceReport{}, err
	}

	deals, err := e.provider.Deals(ctx, from, to)
	if err != nil {
		return types.PerformanceReport{}, fmt.Errorf("select deals: %w", err)
	}
	acct, err := e.provider.Account(ctx)
	if err != nil {
		return types.PerformanceReport{}, fmt.Errorf("read account: %w", err)
	}
	tl := newBalanceTimeline(deals, acct.Balance)

	rep := types.PerformanceReport{
		From:        from,
		To:          to,
		TotalTrades: len(trades),
	}

	var (
		curWins, curLosses    int
		curWinSum, curLossSum float64
		profits               = make([]float64, 0, len(trades))
	)
	for _, t := range trades {
		p := t.NetProfit()
		profits = append(profits, p)
		rep.NetProfit += p

		switch {
		case p > 0:
			rep.WinningTrades++
			rep.GrossProfit += p
			if p > rep.LargestWin {
				rep.LargestWin = p
			}
			curWins++
			curWinSum += p
			curLosses, curLossSum = 0, 0
		case p < 0:
			rep.LosingTrades++
			rep.GrossLoss += -p
			if p < rep.LargestLoss {
				rep.LargestLoss = p
			}
			curLosses++
			curLossSum += p
			curWins, curWinSum = 0, 0
		default:
			curWins, curWinSum = 0, 0
			curLosses, curLossSum = 0, 0
		}
		if curWins > rep.MaxConsecutiveWins {
			rep.MaxConsecutiveWins = curWins
			rep.MaxConsecutiveWinsSum = curWinSum
		}
		if curLosses > rep.MaxConsecutiveLosses {
			rep.MaxConsecutiveLosses = curLosses
			rep.MaxConsecutiveLossesSum = curLossSum
		}
	}

	if len(trades) > 0 {
		rep.ExpectedPayoff = rep.NetProfit / float64(len(trades))
	}
	if rep.GrossLoss > 0 {
		rep.ProfitFactor = rep.GrossProfit / rep.GrossLoss
	}
	rep.SharpeRatio = sharpeRatio(profits)

	rep.MaxDrawdown, rep.DailyMaxDrawdownPercent, rep.TotalMaxDrawdownPercent = drawdowns(tl)
	if rep.MaxDrawdown > 0 {
		rep.RecoveryFactor = rep.NetProfit / rep.MaxDrawdown
	}

	return rep, nil
}

// sharpeRatio is mean over sample standard deviation of the per-trade net
// results. Undefined below two trades, reported as zero.
func sharpeRatio(profits []float64) float64 {
	n := len(profits)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, p := range profits {
		sum += p
	}
	mean := sum / float64(n)
	var variance float64
	for _, p := range profits {
		variance += (p - mean) * (p - mean)
	}
	variance /= float64(n - 1)
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance)
}

// drawdowns walks the balance curve once and reports the deepest peak-to-trough
// decline in money, the worst within-one-day decline relative to that day's
// opening balance, and the worst decline relative to the range's start balance.
func drawdowns(tl *balanceTimeline) (maxDD, dailyMaxPct, totalMaxPct float64) {
	start := tl.StartBalance()
	running := start
	peak := start

	var day string
	dayBase := start

	for _, d := range tl.deals {
		delta := balanceDelta(d)
		if delta == 0 {
			continue
		}

		if dd := d.Time.UTC().Format("2006-01-02"); dd != day {
			day = dd
			dayBase = running
		}

		running += delta

		if running > peak {
			peak = running
		}
		if dd := peak - running; dd > maxDD {
			maxDD = dd
		}
		if dayBase > 0 {
			if pct := 100 * (dayBase - running) / dayBase; pct > dailyMaxPct {
				dailyMaxPct = pct
			}
		}
		if start > 0 {
			if pct := 100 * (start - running) / start; pct > totalMaxPct {
				totalMaxPct = pct
			}
		}
	}
	return maxDD, dailyMaxPct, totalMaxPct
}

// Statement is the account statement payload: header, closed trades and the
// period's aggregate totals.
type Statement struct {
	Account     types.AccountInfo   `json:"account"`
	From        time.Time           `json:"from"`
	To          time.Time           `json:"to"`
	Trades      []types.TradeRecord `json:"trades"`
	Deposits    float64             `json:"deposits"`
	Withdrawals float64             `json:"withdrawals"`
	Commission  float64             `json:"commission"`
	Swap        float64             `json:"swap"`
	Profit      float64             `json:"profit"`
	NetProfit   float64             `json:"net_profit"`
}

func (e *Engine) Statement(ctx context.Context, from, to time.Time) (Statement, error) {
	acct, err := e.provider.Account(ctx)
	if err != nil {
		return Statement{}, fmt.Errorf("read account: %w", err)
	}
	trades, err := e.Trades(ctx, from, to)
	if err != nil {
		return Statement{}, err
	}
	deals, err := e.provider.Deals(ctx, from, to)
	if err != nil {
		return Statement{}, fmt.Errorf("select deals: %w", err)
	}

	st := Statement{Account: acct, From: from, To: to, Trades: trades}
	for _, t := range trades {
		st.Commission += t.Commission
		st.Swap += t.Swap
		st.Profit += t.Profit
		st.NetProfit += t.NetProfit()
	}
	for _, d := range deals {
		if d.Type != types.DealBalance {
			continue
		}
		if d.Profit >= 0 {
			st.Deposits += d.Profit
		} else {
			st.Withdrawals += -d.Profit
		}
	}
	return st, nil
}

// SymbolStats aggregates the closed trades of the range per symbol, sorted by
// symbol name.
func (e *Engine) SymbolStats(ctx context.Context, from, to time.Time) ([]types.SymbolStatistics, error) {
	trades, err := e.Trades(ctx, from, to)
	if err != nil {
		return nil, err
	}

	bySymbol := make(map[string]*types.SymbolStatistics)
	for _, t := range trades {
		s := bySymbol[t.Symbol]
		if s == nil {
			s = &types.SymbolStatistics{Symbol: t.Symbol}
			bySymbol[t.Symbol] = s
		}
		s.Trades++
		s.Volume += t.Volume
		s.Profit += t.NetProfit()
		s.Commission += t.Commission
		s.Swap += t.Swap
		if p := t.NetProfit(); p > 0 {
			s.WinningTrades++
		} else if p < 0 {
			s.LosingTrades++
		}
	}

	out := make([]types.SymbolStatistics, 0, len(bySymbol))
	for _, s := range bySymbol {
		if s.Trades > 0 {
			s.WinRate = 100 * float64(s.WinningTrades) / float64(s.Trades)
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}
