package analytics

import (
	"sort"
	"time"

	"marathon-agent/internal/types"
)

// balanceDelta is the amount a deal moved the account balance by. Entry
// deals only charge their commission; the trade result lands on the exit.
// Balance operations (deposits, credits, charges, bonuses, interest,
// corrections) carry their amount in the profit field.
func balanceDelta(d types.Deal) float64 {
	switch d.Type {
	case types.DealBuy, types.DealSell:
		if d.Entry == types.EntryOut || d.Entry == types.EntryOutBy || d.Entry == types.EntryInOut {
			return d.Profit + d.Commission + d.Swap
		}
		return d.Commission
	default:
		return d.Profit + d.Commission + d.Swap
	}
}

// balanceTimeline answers "what was the balance at time t" for any t inside
// the selected ledger range, from one pass over the deals. It replaces the
// per-trade forward replay: the balance at t is the current balance minus
// every delta that happened after t.
type balanceTimeline struct {
	deals   []types.Deal // sorted by time ascending
	suffix  []float64    // suffix[i] = sum of deltas of deals[i:]
	current float64
}

// newBalanceTimeline sorts deals by time (a copy; the caller's slice is left
// alone) and precomputes the suffix sums.
func newBalanceTimeline(deals []types.Deal, currentBalance float64) *balanceTimeline {
	sorted := make([]types.Deal, len(deals))
	copy(sorted, deals)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	suffix := make([]float64, len(sorted)+1)
	for i := len(sorted) - 1; i >= 0; i-- {
		suffix[i] = suffix[i+1] + balanceDelta(sorted[i])
	}

	return &balanceTimeline{deals: sorted, suffix: suffix, current: currentBalance}
}

// BalanceAt reconstructs the balance as of t: deals at exactly t are treated
// as already applied.
func (tl *balanceTimeline) BalanceAt(t time.Time) float64 {
	i := sort.Search(len(tl.deals), func(i int) bool { return tl.deals[i].Time.After(t) })
	return tl.current - tl.suffix[i]
}

// StartBalance is the balance just before the first deal of the range.
func (tl *balanceTimeline) StartBalance() float64 {
	return tl.current - tl.suffix[0]
}
