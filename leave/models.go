// Package leave implements leave-entitlement accounting on top of the generic
// calendar primitives: category matching, period resolution, usage
// aggregation, entitlement calculation and the leave request lifecycle.
package leave

import (
	"time"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// STAFF & COMPANY (owned externally, read-only here)
// =============================================================================

type Staff struct {
	ID         string
	CompanyID  string
	Name       string
	TemplateID string
	ShiftName  string

	// Template is resolved by the store when the staff member is loaded.
	Template *Template
}

type Company struct {
	ID     string
	Name   string
	Shifts []Shift
}

// Shift is a named working window, times in HH:mm.
type Shift struct {
	Name      string
	StartTime string
	EndTime   string
}

// =============================================================================
// LEAVE TEMPLATE
// =============================================================================

// Template holds leave limits in any of the three shapes HR tooling writes.
// Use Rules() rather than reading the fields directly.
type Template struct {
	ID   string
	Name string

	// LeaveTypes is the ordered rule list.
	LeaveTypes []TemplateLeaveType

	// Limits maps a category name to its limit.
	Limits map[string]float64

	// Fields holds ad-hoc "<name>Limit" entries, e.g. "casualLimit": 2.
	Fields map[string]float64
}

type TemplateLeaveType struct {
	Type         string
	Days         *float64
	Limit        *float64
	CarryForward bool
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// ParseStatus matches s case-insensitively against the known statuses.
func ParseStatus(s string) (Status, bool) {
	for _, st := range []Status{StatusPending, StatusApproved, StatusRejected} {
		if equalFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

// Is reports whether s names the same status, ignoring case.
func (s Status) Is(other Status) bool { return equalFold(string(s), string(other)) }

// Half-day sessions.
const (
	SessionFirst  = "Session 1"
	SessionSecond = "Session 2"
)

type Request struct {
	ID        string
	StaffID   string
	CompanyID string
	Category  string

	// Inclusive calendar dates.
	Start generic.TimePoint
	End   generic.TimePoint

	// Days is 0.5 for a half day, otherwise the inclusive day count.
	Days generic.Amount

	Status  Status
	Reason  string
	Session string

	ApprovedBy      *string
	ApprovedAt      *time.Time
	RejectionReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Span returns the request's dates as a period.
func (r *Request) Span() generic.Period {
	return generic.Period{Start: r.Start, End: r.End}
}

// IsHalfDay reports whether this is a half-day request.
func (r *Request) IsHalfDay() bool {
	return IsHalfDay(r.Category)
}

// =============================================================================
// ATTENDANCE RECORD (written by the attendance synchronizer)
// =============================================================================

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "Present"
	AttendanceAbsent  AttendanceStatus = "Absent"
	AttendancePending AttendanceStatus = "Pending"
	AttendanceOnLeave AttendanceStatus = "On Leave"
	AttendanceHalfDay AttendanceStatus = "Half Day"
)

// AttendanceRecord is the per-day attendance entry. There is at most one
// record per staff member per date.
type AttendanceRecord struct {
	ID        string
	StaffID   string
	CompanyID string
	Date      generic.TimePoint
	Status    AttendanceStatus

	PunchIn   *time.Time
	PunchOut  *time.Time
	WorkHours float64

	ApprovedBy *string
	ApprovedAt *time.Time
	Remarks    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPunches reports whether the staff member actually clocked in or out.
func (a *AttendanceRecord) HasPunches() bool {
	return a.PunchIn != nil || a.PunchOut != nil
}
