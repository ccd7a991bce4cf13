package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/attendance"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// approvedWithoutSync stores an approved request whose attendance was never
// written, as after a failed sync.
func (f *fixture) approvedWithoutSync(t *testing.T, category string, start, end generic.TimePoint) *leave.Request {
	t.Helper()
	approver := "mgr-1"
	req := &leave.Request{
		StaffID: f.staff.ID, CompanyID: "co-1", Category: category,
		Start: start, End: end,
		Days:       generic.NewAmountFromInt(generic.InclusiveDays(start, end), generic.UnitDays),
		Status:     leave.StatusApproved,
		ApprovedBy: &approver,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.store.CreateLeave(f.ctx, req))
	return req
}

func TestReconciler_FillsMissingAttendance(t *testing.T) {
	// GIVEN: An approved leave with no attendance, and one far in the past
	f := newFixture(t)
	f.approvedWithoutSync(t, "Earned Leave", date(2025, time.March, 12), date(2025, time.March, 13))
	f.approvedWithoutSync(t, "Earned Leave", date(2024, time.June, 3), date(2024, time.June, 3))

	rec := attendance.NewReconciler(f.store, f.sync, nil)
	rec.Now = func() time.Time { return now }

	// WHEN: A pass runs
	pass, err := rec.RunNow(f.ctx)

	// THEN: Only the in-window leave is written
	require.NoError(t, err)
	assert.Equal(t, 1, pass.Requests)
	assert.Equal(t, 2, pass.Result.Created)
	assert.Zero(t, pass.Failed)

	records := f.store.Attendance(f.staff.ID)
	require.Len(t, records, 2)
	assert.Equal(t, leave.AttendanceOnLeave, records[0].Status)

	// A second pass rewrites in place
	pass, err = rec.RunNow(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, pass.Result.Created)
	assert.Equal(t, 2, pass.Result.Updated)
	assert.Len(t, f.store.Attendance(f.staff.ID), 2)
}

func TestReconciler_StartStop(t *testing.T) {
	f := newFixture(t)
	f.approvedWithoutSync(t, "Earned Leave", date(2025, time.March, 12), date(2025, time.March, 12))

	rec := attendance.NewReconciler(f.store, f.sync, nil)
	rec.Now = func() time.Time { return now }
	rec.Interval = time.Hour

	rec.Start(context.Background())
	require.Eventually(t, func() bool {
		return len(f.store.Attendance(f.staff.ID)) == 1
	}, time.Second, 10*time.Millisecond)
	rec.Stop()

	assert.True(t, rec.NextRun().IsZero())
}

func TestReconciler_DisabledWithoutInterval(t *testing.T) {
	f := newFixture(t)
	rec := attendance.NewReconciler(f.store, f.sync, nil)
	rec.Interval = 0

	rec.Start(context.Background())
	rec.Stop()

	assert.Empty(t, f.store.Attendance(f.staff.ID))
}
