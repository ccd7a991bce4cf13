package leave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

func june() generic.Period {
	return generic.Period{Start: date(2025, time.June, 1), End: date(2025, time.June, 30)}
}

func TestTally_CountsOnlyOverlapDays(t *testing.T) {
	// GIVEN: An approved request June 28 - July 3 (6 days)
	reqs := []leave.Request{
		{Start: date(2025, time.June, 28), End: date(2025, time.July, 3), Days: days(6), Status: leave.StatusApproved},
	}

	// WHEN: Tallying against June
	u := leave.Tally(june(), reqs)

	// THEN: 3 days, not 6
	assert.True(t, u.Approved.Equal(days(3)), "got %s", u.Approved)
	assert.True(t, u.Pending.IsZero())
}

func TestTally_SplitsByStatus(t *testing.T) {
	reqs := []leave.Request{
		{Start: date(2025, time.June, 2), End: date(2025, time.June, 3), Days: days(2), Status: leave.StatusApproved},
		{Start: date(2025, time.June, 9), End: date(2025, time.June, 9), Days: days(1), Status: "pending"},
		{Start: date(2025, time.June, 10), End: date(2025, time.June, 12), Days: days(3), Status: leave.StatusRejected},
		{Start: date(2025, time.May, 1), End: date(2025, time.May, 2), Days: days(2), Status: leave.StatusApproved},
	}

	u := leave.Tally(june(), reqs)

	assert.True(t, u.Approved.Equal(days(2)))
	assert.True(t, u.Pending.Equal(days(1)), "status match ignores case")
	assert.True(t, u.Total().Equal(days(3)))
}

func TestTally_HalfDayCountsWholeDay(t *testing.T) {
	reqs := []leave.Request{
		{Category: "Half Day", Start: date(2025, time.June, 5), End: date(2025, time.June, 5), Days: days(0.5), Status: leave.StatusApproved},
	}

	u := leave.Tally(june(), reqs)
	assert.True(t, u.Approved.Equal(days(1)))
}

func TestAggregator_MatchesCategoryCanonically(t *testing.T) {
	f := newFixture(t, casualTemplate(2, false))
	f.seed(t, "Casual Leave", date(2025, time.March, 3), date(2025, time.March, 4), leave.StatusApproved)
	f.seed(t, "casual", date(2025, time.March, 20), date(2025, time.March, 20), leave.StatusPending)
	f.seed(t, "Sick Leave", date(2025, time.March, 5), date(2025, time.March, 5), leave.StatusApproved)

	agg := leave.Aggregator{Leaves: f.store}
	u, err := agg.Usage(f.ctx, leave.UsageQuery{
		StaffID:  f.staff.ID,
		Category: " CASUAL ",
		Window:   generic.Period{Start: date(2025, time.March, 1), End: date(2025, time.March, 31)},
		Statuses: []leave.Status{leave.StatusApproved, leave.StatusPending},
	})
	require.NoError(t, err)

	assert.True(t, u.Approved.Equal(days(2)))
	assert.True(t, u.Pending.Equal(days(1)))
}
