package scheduler

import (
	"fmt"
	"strings"

	"marathon-agent/internal/types"
)

// PositionsFingerprint digests the mutable fields of the open positions.
// Two position lists are unchanged iff their fingerprints and counts match.
func PositionsFingerprint(positions []types.Position) string {
	var b strings.Builder
	for _, p := range positions {
		fmt.Fprintf(&b, "%d|%g|%g|%g|", p.Ticket, p.Volume, p.StopLoss, p.TakeProfit)
	}
	return b.String()
}

// OrdersFingerprint digests the mutable fields of the pending orders.
func OrdersFingerprint(orders []types.Order) string {
	var b strings.Builder
	for _, o := range orders {
		fmt.Fprintf(&b, "%d|%s|%s|%g|%g|%g|%g|%g|",
			o.Ticket, o.Symbol, o.Type, o.VolumeInitial, o.VolumeCurrent, o.PriceOpen, o.StopLoss, o.TakeProfit)
	}
	return b.String()
}
