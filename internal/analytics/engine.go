package analytics

import (
	"time"

	"marathon-agent/internal/interfaces"
)

// Engine derives trade records and aggregate statistics from the platform's
// append-only deal ledger. It runs only on demand, inside query handlers, and
// bounds its work by the caller-supplied time range.
type Engine struct {
	provider interfaces.Provider
	now      func() time.Time
}

func New(provider interfaces.Provider) *Engine {
	return &Engine{provider: provider, now: time.Now}
}
