package analytics

import (
	"context"
	"fmt"
	"time"

	"marathon-agent/internal/types"
)

// BalanceHistory reconstructs the running balance over [from, to]. The
// balance at `from` is derived by removing every later delta from the
// current balance; the curve is then replayed forward in time order.
func (e *Engine) BalanceHistory(ctx context.Context, from, to time.Time) ([]types.BalancePoint, error) {
	deals, err := e.provider.Deals(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("select deals: %w", err)
	}
	acct, err := e.provider.Account(ctx)
	if err != nil {
		return nil, fmt.Errorf("read account: %w", err)
	}

	tl := newBalanceTimeline(deals, acct.Balance)

	points := make([]types.BalancePoint, 0, len(tl.deals)+1)
	running := tl.StartBalance()
	points = append(points, types.BalancePoint{Time: from, Balance: running})
	for _, d := range tl.deals {
		delta := balanceDelta(d)
		if delta == 0 {
			continue
		}
		running += delta
		points = append(points, types.BalancePoint{Time: d.Time, Balance: running})
	}
	return points, nil
}

// EquityHistory uses the identical delta set: open floating P&L cannot be
// replayed from the ledger, so balance stands in for equity.
func (e *Engine) EquityHistory(ctx context.Context, from, to time.Time) ([]types.BalancePoint, error) {
	return e.BalanceHistory(ctx, from, to)
}
