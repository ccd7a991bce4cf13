/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Populates the store with a company, a staff member, a leave template and
  a handful of leave requests that show one feature each. Requests go
  through leave.Service, so approvals write attendance like real ones.

AVAILABLE SCENARIOS:
  monthly-casual:   Casual leave limited per month, Sick per year
  carry-forward:    Unused Casual days from last month added to this month
  half-day-shifts:  Half-day sessions on a late shift with punched attendance
  legacy-template:  Template written with the "limits" map and "<x>Limit" fields

HOW SCENARIOS WORK:
 1. Reset the store
 2. Save company (with shifts) and staff with template JSON
 3. Apply for leave and approve some of it via the service

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "carry-forward"}

NOTE:
  Scenarios reset the store. Only use in development/demo environments.
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/i18n"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

const (
	demoCompanyID = "company-demo"
	demoStaffID   = "staff-demo"
	demoApprover  = "manager-demo"
)

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, h *Handler) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "monthly-casual",
			Name:        "Monthly Casual",
			Description: "Casual leave capped at 2 days per month, Sick at 10 per year, Unpaid unrestricted",
		},
		load: loadMonthlyCasual,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "carry-forward",
			Name:        "Carry Forward",
			Description: "Unused Casual days from last month raise this month's allowance",
		},
		load: loadCarryForward,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "half-day-shifts",
			Name:        "Half Days on a Late Shift",
			Description: "Session timings derived from the staff member's shift, punches kept",
		},
		load: loadHalfDayShifts,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "legacy-template",
			Name:        "Legacy Template",
			Description: "Limits declared through the limits map and <name>Limit fields",
		},
		load: loadLegacyTemplate,
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if s, ok := findScenario(current); ok {
		writeJSON(w, http.StatusOK, s.ScenarioDTO)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var body LoadScenarioRequest
	if !h.decode(w, r, &body) {
		return
	}

	s, ok := findScenario(body.ScenarioID)
	if !ok {
		writeFailure(w, http.StatusBadRequest, ErrorDTO{
			Code:    "unknown_scenario",
			Message: i18n.T(r.Context(), "unknown_scenario", map[string]any{"ID": body.ScenarioID}),
		})
		return
	}

	if err := h.LoadScenarioByID(r.Context(), s.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ScenarioDTO)
}

// LoadScenarioByID resets the store and loads a scenario. Used by the
// handler and by the server's -scenario flag.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	s, ok := findScenario(id)
	if !ok {
		return generic.NewValidationError("unknown_scenario", "unknown scenario: "+id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	if err := s.load(ctx, h); err != nil {
		return fmt.Errorf("load scenario %s: %w", id, err)
	}
	h.currentScenario = id
	h.Logger.InfoContext(ctx, "scenario loaded", "scenario", id)
	return nil
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// seed saves the demo company and staff member with the given template JSON.
func seed(ctx context.Context, h *Handler, shiftName, templateJSON string) error {
	company := &leave.Company{
		ID:   demoCompanyID,
		Name: "Demo Co",
		Shifts: []leave.Shift{
			{Name: "General", StartTime: "09:30", EndTime: "18:30"},
			{Name: "Late", StartTime: "13:00", EndTime: "22:00"},
		},
	}
	if err := h.Store.SaveCompany(ctx, company); err != nil {
		return err
	}

	tmpl, err := factory.ParseTemplate([]byte(templateJSON))
	if err != nil {
		return err
	}
	return h.Store.SaveStaff(ctx, &leave.Staff{
		ID:        demoStaffID,
		CompanyID: company.ID,
		Name:      "Demo Staff",
		ShiftName: shiftName,
		Template:  tmpl,
	})
}

// apply creates a request from day offsets relative to first, approving it
// when approve is set.
func apply(ctx context.Context, h *Handler, category string, first generic.TimePoint, from, to int, session string, approve bool) error {
	req, err := h.Service.Create(ctx, leave.CreateInput{
		StaffID:   demoStaffID,
		Category:  category,
		StartDate: first.AddDays(from).String(),
		EndDate:   first.AddDays(to).String(),
		Reason:    "demo",
		Session:   session,
	})
	if err != nil {
		return err
	}
	if !approve {
		return nil
	}
	_, err = h.Service.UpdateStatus(ctx, req.ID, leave.StatusInput{
		Status:     string(leave.StatusApproved),
		ApproverID: demoApprover,
	})
	return err
}

func thisMonth(h *Handler) generic.TimePoint {
	today := generic.DateOf(h.Service.Now())
	return generic.StartOfMonth(today.Year(), today.Month())
}

func loadMonthlyCasual(ctx context.Context, h *Handler) error {
	err := seed(ctx, h, "General", `{
		"name": "Standard",
		"leaveTypes": [
			{"type": "Casual", "limit": 2},
			{"type": "Sick Leave", "days": 10},
			{"type": "Half Day", "limit": 6}
		]
	}`)
	if err != nil {
		return err
	}

	first := thisMonth(h)
	if err := apply(ctx, h, "Casual", first, 2, 2, "", true); err != nil {
		return err
	}
	if err := apply(ctx, h, "Sick Leave", first, 7, 8, "", true); err != nil {
		return err
	}
	if err := apply(ctx, h, "Unpaid", first, 14, 18, "", false); err != nil {
		return err
	}
	return apply(ctx, h, "Casual Leave", first, 20, 20, "", false)
}

func loadCarryForward(ctx context.Context, h *Handler) error {
	err := seed(ctx, h, "General", `{
		"name": "Carry Forward",
		"leaveTypes": [
			{"type": "Casual", "limit": 2, "carryForward": true},
			{"type": "Earned Leave", "days": 15}
		]
	}`)
	if err != nil {
		return err
	}

	// Nothing taken last month, so this month allows 2 + 2.
	first := thisMonth(h)
	if err := apply(ctx, h, "Casual", first, 3, 5, "", true); err != nil {
		return err
	}
	return apply(ctx, h, "Earned Leave", first, 10, 11, "", false)
}

func loadHalfDayShifts(ctx context.Context, h *Handler) error {
	err := seed(ctx, h, "Late", `{
		"name": "Half Days",
		"leaveTypes": [
			{"type": "Half Day", "limit": 6},
			{"type": "Casual", "limit": 2}
		]
	}`)
	if err != nil {
		return err
	}

	first := thisMonth(h)
	worked := first.AddDays(4)
	in := worked.At(13, 5)
	out := worked.At(17, 30)
	if err := h.Store.CreateAttendance(ctx, &leave.AttendanceRecord{
		StaffID:   demoStaffID,
		CompanyID: demoCompanyID,
		Date:      worked,
		Status:    leave.AttendancePresent,
		PunchIn:   &in,
		PunchOut:  &out,
		WorkHours: 4.4,
	}); err != nil {
		return err
	}

	if err := apply(ctx, h, "Half Day", first, 4, 4, leave.SessionSecond, true); err != nil {
		return err
	}
	return apply(ctx, h, "Half Day", first, 9, 9, leave.SessionFirst, true)
}

func loadLegacyTemplate(ctx context.Context, h *Handler) error {
	err := seed(ctx, h, "", `{
		"name": "Legacy",
		"limits": {"Casual": 1, "Sick": 5},
		"maternityLimit": 90
	}`)
	if err != nil {
		return err
	}

	first := thisMonth(h)
	if err := apply(ctx, h, "Casual Leave", first, 1, 1, "", true); err != nil {
		return err
	}
	return apply(ctx, h, "Sick Leave", first, 6, 7, "", false)
}
