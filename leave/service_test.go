package leave_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestCreate_AcceptedReducesBalance(t *testing.T) {
	// GIVEN: Casual limit 2, no carry-forward, nothing taken this month
	f := newFixture(t, casualTemplate(2, false))

	// WHEN: Requesting 1 Casual day
	req, err := f.svc.Create(f.ctx, leave.CreateInput{
		StaffID: f.staff.ID, Category: "Casual", StartDate: "2025-03-12", EndDate: "2025-03-12", Reason: "errand",
	})

	// THEN: Stored as Pending, balance goes to 1
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, leave.StatusPending, req.Status)
	assert.Equal(t, "co-1", req.CompanyID)
	assert.True(t, req.Days.Equal(days(1)))

	ent, err := f.svc.Entitlement(f.ctx, f.staff.ID, "Casual Leave", "2025-03-12")
	require.NoError(t, err)
	assert.True(t, ent.Balance.Equal(days(1)), "got %s", ent.Balance)
}

func TestCreate_RejectedWhenBalanceExhausted(t *testing.T) {
	// GIVEN: An approved 2-day Casual leave already this month
	f := newFixture(t, casualTemplate(2, false))
	f.seed(t, "Casual", date(2025, time.March, 3), date(2025, time.March, 4), leave.StatusApproved)

	// WHEN: Requesting another day
	_, err := f.svc.Create(f.ctx, leave.CreateInput{
		StaffID: f.staff.ID, Category: "Casual", StartDate: "2025-03-12", EndDate: "2025-03-12",
	})

	// THEN: Rejected citing balance 0
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrPolicyViolation))
	assert.True(t, leave.IsPolicyViolation(err, "balance_exhausted"))
	assert.Contains(t, err.Error(), "Balance: 0")

	var pv *generic.PolicyViolationError
	require.True(t, errors.As(err, &pv))
	assert.Equal(t, 0.0, pv.Details["balance"])
	assert.Equal(t, 2.0, pv.Details["used"])
	assert.Equal(t, "month", pv.Details["range"])
}

func TestCreate_RejectedWhenExceedingBalance(t *testing.T) {
	f := newFixture(t, casualTemplate(2, true))
	f.seed(t, "Casual", date(2025, time.February, 3), date(2025, time.February, 4), leave.StatusApproved)
	f.seed(t, "Casual", date(2025, time.March, 3), date(2025, time.March, 3), leave.StatusApproved)

	_, err := f.svc.Create(f.ctx, leave.CreateInput{
		StaffID: f.staff.ID, Category: "Casual Leave", StartDate: "2025-03-12", EndDate: "2025-03-13",
	})

	require.Error(t, err)
	assert.True(t, leave.IsPolicyViolation(err, "exceeds_balance"))
	assert.Contains(t, err.Error(), "Requested: 2")
}

func TestCreate_CategoryNotInTemplate(t *testing.T) {
	f := newFixture(t, casualTemplate(2, false))

	_, err := f.svc.Create(f.ctx, leave.CreateInput{
		StaffID: f.staff.ID, Category: "Sabbatical", StartDate: "2025-03-12", EndDate: "2025-03-12",
	})

	var pv *generic.PolicyViolationError
	require.True(t, errors.As(err, &pv))
	assert.Equal(t, "category_not_in_template", pv.Code)
	assert.Equal(t, []string{"Casual", "Sick Leave", "Half Day"}, pv.AvailableCategories)
	assert.Contains(t, pv.Message, "Sabbatical leave is not available")
}

func TestCreate_AlwaysAllowedBypassesTemplate(t *testing.T) {
	f := newFixture(t, casualTemplate(2, false))

	req, err := f.svc.Create(f.ctx, leave.CreateInput{
		StaffID: f.staff.ID, Category: "Unpaid Leave", StartDate: "2025-03-12", EndDate: "2025-03-21",
	})

	require.NoError(t, err)
	assert.True(t, req.Days.Equal(days(10)))
}

func TestCreate_LimitNotConfigured(t *testing.T) {
	f := newFixture(t, &leave.Template{LeaveTypes: []leave.TemplateLeaveType{{Type: "Comp Off"}}})

	_, err := f.svc.Create(f.ctx, leave.CreateInput{
		StaffID: f.staff.ID, Category: "comp off", StartDate: "2025-03-12", EndDate: "2025-03-12",
	})

	assert.True(t, leave.IsPolicyViolation(err, "limit_not_configured"))
}

func TestCreate_NoTemplateIsUnrestricted(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Create(f.ctx, leave.CreateInput{
		StaffID: f.staff.ID, Category: "Casual", StartDate: "2025-03-12", EndDate: "2025-03-20",
	})
	assert.NoError(t, err)
}

func TestCreate_HalfDay(t *testing.T) {
	f := newFixture(t, casualTemplate(2, false))

	t.Run("requires session", func(t *testing.T) {
		_, err := f.svc.Create(f.ctx, leave.CreateInput{
			StaffID: f.staff.ID, Category: "Half Day", StartDate: "2025-03-12", EndDate: "2025-03-12",
		})
		var ve *generic.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "half_day_session_required", ve.Code)
	})

	t.Run("requires single date", func(t *testing.T) {
		_, err := f.svc.Create(f.ctx, leave.CreateInput{
			StaffID: f.staff.ID, Category: "Half Day", StartDate: "2025-03-12", EndDate: "2025-03-13", Session: leave.SessionSecond,
		})
		var ve *generic.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "half_day_single_date", ve.Code)
	})

	t.Run("counts half a day", func(t *testing.T) {
		req, err := f.svc.Create(f.ctx, leave.CreateInput{
			StaffID: f.staff.ID, Category: "Half Day", StartDate: "2025-03-12", EndDate: "2025-03-12", Session: leave.SessionSecond,
		})
		require.NoError(t, err)
		assert.True(t, req.Days.Equal(days(0.5)))
		assert.Equal(t, leave.SessionSecond, req.Session)
	})
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, casualTemplate(2, false))

	tests := []struct {
		name string
		in   leave.CreateInput
		code string
	}{
		{"missing category", leave.CreateInput{StartDate: "2025-03-12", EndDate: "2025-03-12"}, "category_required"},
		{"bad start", leave.CreateInput{Category: "Casual", StartDate: "12/03/2025", EndDate: "2025-03-12"}, "invalid_date"},
		{"end before start", leave.CreateInput{Category: "Casual", StartDate: "2025-03-12", EndDate: "2025-03-11"}, "invalid_date_range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.StaffID = f.staff.ID
			_, err := f.svc.Create(f.ctx, tt.in)

			var ve *generic.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.code, ve.Code)
			assert.True(t, generic.IsClientError(err))
		})
	}
}

func TestCreate_UnknownStaff(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Create(f.ctx, leave.CreateInput{
		StaffID: "ghost", Category: "Casual", StartDate: "2025-03-12", EndDate: "2025-03-12",
	})
	assert.True(t, generic.IsNotFound(err))
}

// =============================================================================
// STATUS TRANSITION TESTS
// =============================================================================

func TestUpdateStatus_Approve(t *testing.T) {
	f := newFixture(t, casualTemplate(2, false))
	req := f.seed(t, "Casual", date(2025, time.March, 12), date(2025, time.March, 12), leave.StatusPending)

	got, err := f.svc.UpdateStatus(f.ctx, req.ID, leave.StatusInput{Status: "approved", ApproverID: "mgr-1"})

	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, "mgr-1", *got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)

	stored, err := f.store.GetLeave(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, stored.Status)
}

func TestUpdateStatus_Reject(t *testing.T) {
	f := newFixture(t, casualTemplate(2, false))
	req := f.seed(t, "Casual", date(2025, time.March, 12), date(2025, time.March, 12), leave.StatusPending)

	got, err := f.svc.UpdateStatus(f.ctx, req.ID, leave.StatusInput{
		Status: "Rejected", ApproverID: "mgr-1", RejectionReason: "release week",
	})

	require.NoError(t, err)
	assert.Equal(t, leave.StatusRejected, got.Status)
	require.NotNil(t, got.RejectionReason)
	assert.Equal(t, "release week", *got.RejectionReason)
}

func TestUpdateStatus_ApprovesWhenUsedMeetsLimit(t *testing.T) {
	// GIVEN: 2 approved Casual days, limit 2, and a pending third
	f := newFixture(t, casualTemplate(2, false))
	f.seed(t, "Casual", date(2025, time.March, 3), date(2025, time.March, 4), leave.StatusApproved)
	req := f.seed(t, "Casual", date(2025, time.March, 12), date(2025, time.March, 12), leave.StatusPending)

	// WHEN: Approving the pending one
	got, err := f.svc.UpdateStatus(f.ctx, req.ID, leave.StatusInput{Status: "Approved"})

	// THEN: Used (2) does not exceed the total (2), so the approval stands
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
}

func TestUpdateStatus_ApprovalRecheckRejectsOverLimit(t *testing.T) {
	// GIVEN: 2 approved Casual days, then the limit is lowered to 1
	f := newFixture(t, casualTemplate(2, false))
	f.seed(t, "Casual", date(2025, time.March, 3), date(2025, time.March, 4), leave.StatusApproved)
	req := f.seed(t, "Casual", date(2025, time.March, 12), date(2025, time.March, 12), leave.StatusPending)
	f.staff.Template = casualTemplate(1, false)
	require.NoError(t, f.store.SaveStaff(f.ctx, f.staff))

	// WHEN: Approving the pending one
	_, err := f.svc.UpdateStatus(f.ctx, req.ID, leave.StatusInput{Status: "Approved"})

	// THEN: Rejected and left Pending
	assert.True(t, leave.IsPolicyViolation(err, "approval_limit_exceeded"))
	stored, _ := f.store.GetLeave(f.ctx, req.ID)
	assert.Equal(t, leave.StatusPending, stored.Status)
}

func TestUpdateStatus_InvalidTarget(t *testing.T) {
	f := newFixture(t, casualTemplate(2, false))
	req := f.seed(t, "Casual", date(2025, time.March, 12), date(2025, time.March, 12), leave.StatusPending)

	for _, status := range []string{"Pending", "Cancelled", ""} {
		_, err := f.svc.UpdateStatus(f.ctx, req.ID, leave.StatusInput{Status: status})
		var ve *generic.ValidationError
		require.True(t, errors.As(err, &ve), status)
		assert.Equal(t, "invalid_status", ve.Code)
	}
}

func TestUpdateStatus_OnlyFromPending(t *testing.T) {
	f := newFixture(t, casualTemplate(2, false))
	req := f.seed(t, "Casual", date(2025, time.March, 12), date(2025, time.March, 12), leave.StatusRejected)

	_, err := f.svc.UpdateStatus(f.ctx, req.ID, leave.StatusInput{Status: "Approved"})

	var ve *generic.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "invalid_transition", ve.Code)
}

func TestUpdateStatus_Missing(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.UpdateStatus(f.ctx, "nope", leave.StatusInput{Status: "Approved"})
	assert.True(t, generic.IsNotFound(err))
}

func TestDelete(t *testing.T) {
	f := newFixture(t, casualTemplate(2, false))
	req := f.seed(t, "Casual", date(2025, time.March, 12), date(2025, time.March, 12), leave.StatusPending)

	require.NoError(t, f.svc.Delete(f.ctx, req.ID))

	stored, err := f.store.GetLeave(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.True(t, generic.IsNotFound(f.svc.Delete(f.ctx, req.ID)))
}

func TestResync_RequiresApproved(t *testing.T) {
	f := newFixture(t, casualTemplate(2, false))
	req := f.seed(t, "Casual", date(2025, time.March, 12), date(2025, time.March, 12), leave.StatusPending)

	_, err := f.svc.Resync(f.ctx, req.ID)
	assert.True(t, errors.Is(err, generic.ErrValidation))
}

// =============================================================================
// LISTING TESTS
// =============================================================================

func TestList_InvertedDateRange(t *testing.T) {
	f := newFixture(t, casualTemplate(2, false))

	_, err := f.svc.List(f.ctx, leave.ListQuery{StaffID: f.staff.ID, StartDate: "2025-03-31", EndDate: "2025-03-01"})

	var ve *generic.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "invalid_date_range", ve.Code)
}

func TestList_PaginatesNewestFirst(t *testing.T) {
	f := newFixture(t, nil)
	for i := range 12 {
		req := &leave.Request{
			StaffID:   f.staff.ID,
			Category:  "Casual",
			Start:     date(2025, time.March, 1+i),
			End:       date(2025, time.March, 1+i),
			Days:      days(1),
			Status:    leave.StatusPending,
			Reason:    fmt.Sprintf("day %d", i),
			CreatedAt: march10.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.store.CreateLeave(f.ctx, req))
	}

	res, err := f.svc.List(f.ctx, leave.ListQuery{StaffID: f.staff.ID, Page: 2, Limit: 5})

	require.NoError(t, err)
	assert.Equal(t, 12, res.Total)
	assert.Equal(t, 3, res.Pages)
	require.Len(t, res.Items, 5)
	assert.Equal(t, "day 6", res.Items[0].Reason)
	assert.Equal(t, "day 2", res.Items[4].Reason)
}

func TestList_DefaultsAndCap(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.List(f.ctx, leave.ListQuery{StaffID: f.staff.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 10, res.Limit)
	assert.Empty(t, res.Items)
	assert.Equal(t, 0, res.Pages)

	res, err = f.svc.List(f.ctx, leave.ListQuery{StaffID: f.staff.ID, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Limit)
}

func TestList_Filters(t *testing.T) {
	f := newFixture(t, casualTemplate(2, false))
	flu := f.seed(t, "Sick Leave", date(2025, time.February, 27), date(2025, time.March, 2), leave.StatusApproved)
	flu.Reason = "Flu"
	require.NoError(t, f.store.SaveLeave(f.ctx, flu))
	f.seed(t, "Casual", date(2025, time.March, 12), date(2025, time.March, 12), leave.StatusPending)
	f.seed(t, "Casual", date(2025, time.April, 2), date(2025, time.April, 2), leave.StatusRejected)

	tests := []struct {
		name  string
		query leave.ListQuery
		want  int
	}{
		{"all status ignored", leave.ListQuery{Status: "All Status"}, 3},
		{"status", leave.ListQuery{Status: "pending"}, 1},
		{"category canonical", leave.ListQuery{Category: "sick"}, 1},
		{"search reason", leave.ListQuery{Search: "flu"}, 1},
		{"search category", leave.ListQuery{Search: "casu"}, 2},
		{"date overlap", leave.ListQuery{StartDate: "2025-03-01", EndDate: "2025-03-31"}, 2},
		{"open ended", leave.ListQuery{StartDate: "2025-03-13"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.query.StaffID = f.staff.ID
			res, err := f.svc.List(f.ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Total)
			assert.Len(t, res.Items, tt.want)
		})
	}
}

// =============================================================================
// SUMMARY TESTS
// =============================================================================

func TestSummary_CountsApprovedDaysInRange(t *testing.T) {
	// GIVEN: Approved leave inside and across the edge of March, plus a pending one
	tmpl := casualTemplate(2, false)
	tmpl.LeaveTypes = append(tmpl.LeaveTypes, leave.TemplateLeaveType{Type: "Comp Off", Limit: ptr(3)})
	f := newFixture(t, tmpl)
	f.seed(t, "Casual Leave", date(2025, time.March, 3), date(2025, time.March, 4), leave.StatusApproved)
	f.seed(t, "Half Day", date(2025, time.March, 5), date(2025, time.March, 5), leave.StatusApproved)
	f.seed(t, "Sick", date(2025, time.February, 27), date(2025, time.March, 2), leave.StatusApproved)
	f.seed(t, "Casual", date(2025, time.March, 20), date(2025, time.March, 20), leave.StatusPending)
	f.seed(t, "Bereavement", date(2025, time.March, 24), date(2025, time.March, 24), leave.StatusApproved)

	// WHEN: Summarizing the current month
	sum, err := f.svc.Summary(f.ctx, leave.SummaryQuery{StaffID: f.staff.ID})
	require.NoError(t, err)

	// THEN: Defaults first, template and seen categories appended
	assert.Equal(t, date(2025, time.March, 1), sum.Range.Start)
	taken := map[string]float64{}
	var order []string
	for _, item := range sum.Items {
		taken[item.Category] = item.Taken.Float64()
		order = append(order, item.Category)
	}
	assert.Equal(t, []string{
		"Casual Leave", "Sick Leave", "Half Day", "Earned Leave", "Unpaid Leave", "Comp Off", "Bereavement",
	}, order)
	assert.Equal(t, 2.0, taken["Casual Leave"])
	assert.Equal(t, 2.0, taken["Sick Leave"])
	assert.Equal(t, 0.5, taken["Half Day"])
	assert.Equal(t, 0.0, taken["Comp Off"])
	assert.Equal(t, 1.0, taken["Bereavement"])
}

func TestSummary_ExplicitRangeAndBadMonth(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "Sick", date(2025, time.February, 27), date(2025, time.March, 2), leave.StatusApproved)

	sum, err := f.svc.Summary(f.ctx, leave.SummaryQuery{StaffID: f.staff.ID, StartDate: "2025-02-01", EndDate: "2025-02-28"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, sum.Items[1].Taken.Float64())

	_, err = f.svc.Summary(f.ctx, leave.SummaryQuery{StaffID: f.staff.ID, Month: 13, Year: 2025})
	assert.True(t, errors.Is(err, generic.ErrValidation))
}
