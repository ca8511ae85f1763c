package optimizer

import (
	"time"

	"github.com/kosarica/coupon-planner/internal/money"
)

// StopReason tells why a run finished.
type StopReason string

const (
	// StopIterations means the iteration budget was spent.
	StopIterations StopReason = "iterations"
	// StopTimeBudget means the wall-clock budget elapsed.
	StopTimeBudget StopReason = "time_budget"
	// StopCanceled means the caller canceled the run; the result holds the best plans so far.
	StopCanceled StopReason = "canceled"
	// StopTerminalRoot means the root was already a complete plan (empty cart).
	StopTerminalRoot StopReason = "terminal_root"
	// StopWorkersExited means every worker crashed before the budget was spent.
	StopWorkersExited StopReason = "workers_exited"
)

// Result is the outcome of a planning run.
type Result struct {
	RunID       string        `json:"runId"`
	Fingerprint string        `json:"catalogFingerprint"`
	Plans       []RankedPlan  `json:"plans"`
	Baseline    money.Money   `json:"baseline"`
	Iterations  int64         `json:"iterations"`
	Nodes       int           `json:"nodes"`
	Duration    time.Duration `json:"durationNs"`
	StopReason  StopReason    `json:"stopReason"`
	Seed        int64         `json:"seed"`
	Strategy    Strategy      `json:"strategy"`
}

// Best returns the lowest-cost plan, or nil when the result holds none.
func (r *Result) Best() *RankedPlan {
	if r == nil || len(r.Plans) == 0 {
		return nil
	}
	return &r.Plans[0]
}
