// Package journal records executed trades for audit. The ledger service
// writes one record per committed buy or sell; nothing in the system reads
// the journal back, and correctness never depends on it.
package journal

import "time"

// Side labels an execution.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Execution is one committed trade as seen by the ledger service.
//
// Sell executions carry the holding's average cost at the time of sale: the
// ledger protocol does not deliver the sale price to the ledger service.
type Execution struct {
	ID     string // ULID, time-sortable
	Token  string // correlation token of the workflow that committed it
	User   string
	Symbol string
	Side   string
	Shares int
	Price  float64
	Time   time.Time
}

type Journal interface {
	RecordExecution(Execution) error
	Close() error
}
