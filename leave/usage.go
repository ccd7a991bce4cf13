package leave

import (
	"context"
	"fmt"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// USAGE AGGREGATOR
// =============================================================================

// Usage is the consumption inside one window, split by status.
type Usage struct {
	Approved generic.Amount
	Pending  generic.Amount
}

// Total is approved plus pending.
func (u Usage) Total() generic.Amount { return u.Approved.Add(u.Pending) }

// Tally sums the whole calendar days each request shares with window, so a
// half day counts 1 against a limit. Rejected requests and requests outside
// the window contribute nothing.
func Tally(window generic.Period, reqs []Request) Usage {
	u := Usage{Approved: generic.ZeroDays(), Pending: generic.ZeroDays()}
	for i := range reqs {
		r := &reqs[i]
		overlap := window.OverlapDays(r.Start, r.End)
		if overlap == 0 {
			continue
		}
		days := generic.NewAmountFromInt(overlap, generic.UnitDays)
		switch {
		case r.Status.Is(StatusApproved):
			u.Approved = u.Approved.Add(days)
		case r.Status.Is(StatusPending):
			u.Pending = u.Pending.Add(days)
		}
	}
	return u
}

// UsageQuery selects the requests an Aggregator tallies.
type UsageQuery struct {
	StaffID   string
	Category  string
	Window    generic.Period
	Statuses  []Status
	ExcludeID string
}

// Aggregator loads requests from a LeaveStore and tallies them.
type Aggregator struct {
	Leaves LeaveStore
}

// Usage tallies the staff member's requests of the category that overlap the
// window and carry one of the statuses.
func (a *Aggregator) Usage(ctx context.Context, q UsageQuery) (Usage, error) {
	window := q.Window
	reqs, err := a.Leaves.FindLeaves(ctx, LeaveFilter{
		StaffID:   q.StaffID,
		Category:  q.Category,
		Statuses:  q.Statuses,
		ExcludeID: q.ExcludeID,
		Overlap:   &window,
	})
	if err != nil {
		return Usage{}, fmt.Errorf("load %s leaves for %s: %w", q.Category, q.StaffID, err)
	}
	return Tally(window, reqs), nil
}
