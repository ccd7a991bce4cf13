package leave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// ENTITLEMENT CALCULATION TESTS
// =============================================================================

func TestCalculate_CarryForwardFromEmptyPriorMonth(t *testing.T) {
	// GIVEN: Casual limit 2/month with carry-forward, nothing taken in February
	f := newFixture(t, casualTemplate(2, true))

	// WHEN: Calculating for March
	ent, err := f.svc.Calculator().Calculate(f.ctx, f.staff, "Casual", date(2025, time.March, 10))
	require.NoError(t, err)

	// THEN: 2 carried, 4 available
	assert.True(t, ent.CarriedForward.Equal(days(2)))
	require.NotNil(t, ent.TotalAvailable)
	assert.True(t, ent.TotalAvailable.Equal(days(4)))
	assert.True(t, ent.Balance.Equal(days(4)))
	assert.True(t, ent.IsMonthly)
	assert.True(t, ent.CarryForwardEnabled)
	assert.Equal(t, "month", ent.RangeKind())
}

func TestCalculate_CarryForwardIgnoresPriorPending(t *testing.T) {
	// GIVEN: February has 1 approved and 1 pending Casual day
	f := newFixture(t, casualTemplate(2, true))
	f.seed(t, "Casual", date(2025, time.February, 3), date(2025, time.February, 3), leave.StatusApproved)
	f.seed(t, "Casual", date(2025, time.February, 4), date(2025, time.February, 4), leave.StatusPending)

	ent, err := f.svc.Calculator().Calculate(f.ctx, f.staff, "Casual", date(2025, time.March, 10))
	require.NoError(t, err)

	// THEN: Only the approved day reduces what carries over
	assert.True(t, ent.CarriedForward.Equal(days(1)), "got %s", ent.CarriedForward)
	assert.True(t, ent.TotalAvailable.Equal(days(3)))
}

func TestCalculate_CarryForwardAcrossYearBoundary(t *testing.T) {
	f := newFixture(t, casualTemplate(2, true))
	f.seed(t, "Casual", date(2024, time.December, 30), date(2024, time.December, 31), leave.StatusApproved)

	ent, err := f.svc.Calculator().Calculate(f.ctx, f.staff, "Casual", date(2025, time.January, 15))
	require.NoError(t, err)

	assert.True(t, ent.CarriedForward.IsZero())
	assert.True(t, ent.TotalAvailable.Equal(days(2)))
}

func TestCalculate_BalanceNeverNegative(t *testing.T) {
	// GIVEN: Sick limit 4/year, 3 approved + 2 pending
	f := newFixture(t, casualTemplate(2, false))
	f.seed(t, "Sick Leave", date(2025, time.January, 6), date(2025, time.January, 8), leave.StatusApproved)
	f.seed(t, "Sick", date(2025, time.April, 1), date(2025, time.April, 2), leave.StatusPending)

	ent, err := f.svc.Calculator().Calculate(f.ctx, f.staff, "Sick Leave", date(2025, time.March, 10))
	require.NoError(t, err)

	// THEN: Balance floors at 0
	assert.True(t, ent.Used.Equal(days(3)))
	assert.True(t, ent.Pending.Equal(days(2)))
	assert.True(t, ent.TotalAvailable.Equal(days(4)))
	assert.True(t, ent.Balance.IsZero(), "got %s", ent.Balance)
	assert.False(t, ent.IsMonthly)
	assert.Equal(t, "year", ent.RangeKind())
}

func TestCalculate_HalfDayCountsWholeDayAgainstLimit(t *testing.T) {
	// GIVEN: Half Day limit 1/year and one approved half day
	f := newFixture(t, &leave.Template{LeaveTypes: []leave.TemplateLeaveType{
		{Type: "Half Day", Limit: ptr(1)},
	}})
	f.seed(t, "Half Day", date(2025, time.March, 5), date(2025, time.March, 5), leave.StatusApproved)

	ent, err := f.svc.Calculator().Calculate(f.ctx, f.staff, "Half Day", date(2025, time.March, 10))
	require.NoError(t, err)

	// THEN: The half day uses the whole limit
	assert.True(t, ent.Used.Equal(days(1)), "got %s", ent.Used)
	assert.True(t, ent.Balance.IsZero(), "got %s", ent.Balance)

	// AND: A second half day is refused
	_, err = f.svc.Create(f.ctx, leave.CreateInput{
		StaffID: f.staff.ID, Category: "Half Day", StartDate: "2025-03-12", EndDate: "2025-03-12", Session: leave.SessionFirst,
	})
	assert.True(t, leave.IsPolicyViolation(err, "balance_exhausted"))
}

func TestCalculate_ExcludingDropsOneRequest(t *testing.T) {
	f := newFixture(t, casualTemplate(2, false))
	req := f.seed(t, "Casual", date(2025, time.March, 3), date(2025, time.March, 3), leave.StatusPending)

	ent, err := f.svc.Calculator().CalculateExcluding(f.ctx, f.staff, "Casual", date(2025, time.March, 10), req.ID)
	require.NoError(t, err)

	assert.True(t, ent.Pending.IsZero())
	assert.True(t, ent.Balance.Equal(days(2)))
}

func TestCalculate_Unrestricted(t *testing.T) {
	f := newFixture(t, casualTemplate(2, false))
	f.seed(t, "Unpaid", date(2025, time.March, 3), date(2025, time.March, 7), leave.StatusApproved)

	tests := []struct {
		name     string
		staff    *leave.Staff
		category string
	}{
		{"always allowed", f.staff, "Unpaid Leave"},
		{"not in template", f.staff, "Earned Leave"},
		{"no template", &leave.Staff{ID: f.staff.ID}, "Casual"},
		{"no staff", nil, "Casual"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ent, err := f.svc.Calculator().Calculate(f.ctx, tt.staff, tt.category, date(2025, time.March, 10))
			require.NoError(t, err)

			assert.True(t, ent.Unrestricted)
			assert.False(t, ent.Bounded())
			assert.Nil(t, ent.BaseLimit)
			assert.Nil(t, ent.TotalAvailable)
			assert.True(t, ent.Used.IsZero())
			assert.True(t, ent.Balance.Equal(leave.UnboundedBalance))
		})
	}
}

func TestResolvePeriods(t *testing.T) {
	p := leave.ResolvePeriods("Casual Leave", date(2025, time.January, 20))
	assert.True(t, p.Monthly)
	assert.Equal(t, date(2025, time.January, 1), p.Current.Start)
	assert.Equal(t, date(2024, time.December, 1), p.Previous.Start)

	p = leave.ResolvePeriods("Earned Leave", date(2025, time.January, 20))
	assert.False(t, p.Monthly)
	assert.Equal(t, date(2024, time.January, 1), p.Previous.Start)
	assert.Equal(t, date(2024, time.December, 31), p.Previous.End)
}
