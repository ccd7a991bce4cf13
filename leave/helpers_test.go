package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func days(n float64) generic.Amount { return generic.Days(n) }

// march10 is the fixed "now" of service tests.
var march10 = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx   context.Context
	store *memory.Memory
	svc   *leave.Service
	staff *leave.Staff
}

// newFixture seeds one staff member with the given template.
func newFixture(t *testing.T, tmpl *leave.Template) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	company := &leave.Company{ID: "co-1", Name: "Acme"}
	require.NoError(t, store.SaveCompany(ctx, company))

	staff := &leave.Staff{ID: "emp-1", CompanyID: company.ID, Name: "Asha", Template: tmpl}
	require.NoError(t, store.SaveStaff(ctx, staff))

	calc := leave.NewCalculator(store, nil)
	svc := leave.NewService(store, store, calc, nil, nil)
	svc.Now = func() time.Time { return march10 }

	loaded, err := store.FindStaff(ctx, staff.ID)
	require.NoError(t, err)

	return &fixture{ctx: ctx, store: store, svc: svc, staff: loaded}
}

// seed stores a request directly, bypassing the lifecycle checks.
func (f *fixture) seed(t *testing.T, category string, start, end generic.TimePoint, status leave.Status) *leave.Request {
	t.Helper()
	n := generic.InclusiveDays(start, end)
	req := &leave.Request{
		StaffID:   f.staff.ID,
		CompanyID: f.staff.CompanyID,
		Category:  category,
		Start:     start,
		End:       end,
		Days:      days(float64(n)),
		Status:    status,
		CreatedAt: march10,
		UpdatedAt: march10,
	}
	if leave.IsHalfDay(category) {
		req.Days = days(0.5)
		req.Session = leave.SessionFirst
	}
	require.NoError(t, f.store.CreateLeave(f.ctx, req))
	return req
}

func casualTemplate(limit float64, carryForward bool) *leave.Template {
	return &leave.Template{
		Name: "Standard",
		LeaveTypes: []leave.TemplateLeaveType{
			{Type: "Casual", Limit: ptr(limit), CarryForward: carryForward},
			{Type: "Sick Leave", Days: ptr(4)},
			{Type: "Half Day", Limit: ptr(6)},
		},
	}
}
