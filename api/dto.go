/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication and keeps the domain
  types (leave.Request, leave.Entitlement, ...) out of the wire contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

ENVELOPE:
  Every response is wrapped:
    {"success": true,  "data": {...}}
    {"success": false, "error": {"code": "...", "message": "...", "details": {...}}}

DATES:
  Calendar dates are YYYY-MM-DD strings, timestamps are RFC3339, and day
  counts are JSON numbers (0.5 for a half day).

SEE ALSO:
  - handlers.go: Uses these types
  - factory/template.go: Template JSON schema
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// ENVELOPE
// =============================================================================

type Envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *ErrorDTO `json:"error,omitempty"`
}

type ErrorDTO struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// CreateLeaveRequest is the body of POST /api/staff/{id}/leaves.
type CreateLeaveRequest struct {
	LeaveType string `json:"leaveType"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason"`
	Session   string `json:"session"`
}

// UpdateStatusRequest is the body of PATCH /api/leaves/{id}/status. The
// approve/reject shortcuts accept the same body with Status ignored.
type UpdateStatusRequest struct {
	Status          string `json:"status"`
	ApproverID      string `json:"approverId"`
	RejectionReason string `json:"rejectionReason"`
}

type LeaveDTO struct {
	ID              string     `json:"id"`
	StaffID         string     `json:"staffId"`
	CompanyID       string     `json:"companyId,omitempty"`
	LeaveType       string     `json:"leaveType"`
	StartDate       string     `json:"startDate"`
	EndDate         string     `json:"endDate"`
	Days            float64    `json:"days"`
	Status          string     `json:"status"`
	Reason          string     `json:"reason,omitempty"`
	Session         string     `json:"session,omitempty"`
	ApprovedBy      *string    `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func toLeaveDTO(r *leave.Request) LeaveDTO {
	return LeaveDTO{
		ID:              r.ID,
		StaffID:         r.StaffID,
		CompanyID:       r.CompanyID,
		LeaveType:       r.Category,
		StartDate:       r.Start.String(),
		EndDate:         r.End.String(),
		Days:            r.Days.Float64(),
		Status:          string(r.Status),
		Reason:          r.Reason,
		Session:         r.Session,
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      r.ApprovedAt,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type PaginationDTO struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

type LeaveListDTO struct {
	Leaves     []LeaveDTO    `json:"leaves"`
	Pagination PaginationDTO `json:"pagination"`
}

func toLeaveListDTO(res leave.ListResult) LeaveListDTO {
	dto := LeaveListDTO{
		Leaves:     make([]LeaveDTO, len(res.Items)),
		Pagination: PaginationDTO{Total: res.Total, Page: res.Page, Limit: res.Limit, Pages: res.Pages},
	}
	for i := range res.Items {
		dto.Leaves[i] = toLeaveDTO(&res.Items[i])
	}
	return dto
}

type SummaryItemDTO struct {
	LeaveType string  `json:"leaveType"`
	Taken     float64 `json:"taken"`
}

type SummaryDTO struct {
	StartDate string           `json:"startDate"`
	EndDate   string           `json:"endDate"`
	Items     []SummaryItemDTO `json:"items"`
}

func toSummaryDTO(s leave.Summary) SummaryDTO {
	dto := SummaryDTO{
		StartDate: s.Range.Start.String(),
		EndDate:   s.Range.End.String(),
		Items:     make([]SummaryItemDTO, len(s.Items)),
	}
	for i, item := range s.Items {
		dto.Items[i] = SummaryItemDTO{LeaveType: item.Category, Taken: item.Taken.Float64()}
	}
	return dto
}

// EntitlementDTO is the calculator output. BaseLimit and TotalAvailable are
// null for unrestricted categories.
type EntitlementDTO struct {
	LeaveType           string   `json:"leaveType"`
	BaseLimit           *float64 `json:"baseLimit"`
	CarriedForward      float64  `json:"carriedForward"`
	TotalAvailable      *float64 `json:"totalAvailable"`
	Used                float64  `json:"used"`
	Pending             float64  `json:"pending"`
	Balance             float64  `json:"balance"`
	IsMonthly           bool     `json:"isMonthly"`
	CarryForwardEnabled bool     `json:"carryForwardEnabled"`
	Unrestricted        bool     `json:"unrestricted"`
	Range               string   `json:"range"`
	PeriodStart         string   `json:"periodStart"`
	PeriodEnd           string   `json:"periodEnd"`
}

func toEntitlementDTO(e leave.Entitlement) EntitlementDTO {
	dto := EntitlementDTO{
		LeaveType:           e.Category,
		CarriedForward:      e.CarriedForward.Float64(),
		Used:                e.Used.Float64(),
		Pending:             e.Pending.Float64(),
		Balance:             e.Balance.Float64(),
		IsMonthly:           e.IsMonthly,
		CarryForwardEnabled: e.CarryForwardEnabled,
		Unrestricted:        e.Unrestricted,
		Range:               e.RangeKind(),
		PeriodStart:         e.Period.Start.String(),
		PeriodEnd:           e.Period.End.String(),
	}
	if e.BaseLimit != nil {
		v := e.BaseLimit.Float64()
		dto.BaseLimit = &v
	}
	if e.TotalAvailable != nil {
		v := e.TotalAvailable.Float64()
		dto.TotalAvailable = &v
	}
	return dto
}

type SyncResultDTO struct {
	Created int  `json:"created"`
	Updated int  `json:"updated"`
	Deleted int  `json:"deleted"`
	Skipped bool `json:"skipped"`
}

// =============================================================================
// SEED / ADMIN
// =============================================================================

// StaffRequest is the body of POST /api/staff. Template, when present, is
// template JSON saved alongside and linked to the staff member.
type StaffRequest struct {
	ID         string          `json:"id"`
	CompanyID  string          `json:"companyId"`
	Name       string          `json:"name"`
	TemplateID string          `json:"templateId"`
	ShiftName  string          `json:"shiftName"`
	Template   json.RawMessage `json:"template,omitempty"`
}

type StaffDTO struct {
	ID         string `json:"id"`
	CompanyID  string `json:"companyId"`
	Name       string `json:"name"`
	TemplateID string `json:"templateId,omitempty"`
	ShiftName  string `json:"shiftName,omitempty"`
}

func toStaffDTO(s *leave.Staff) StaffDTO {
	return StaffDTO{ID: s.ID, CompanyID: s.CompanyID, Name: s.Name, TemplateID: s.TemplateID, ShiftName: s.ShiftName}
}

type ShiftDTO struct {
	Name      string `json:"shiftName"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type CompanyDTO struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Shifts []ShiftDTO `json:"shifts"`
}

func (c CompanyDTO) toCompany() *leave.Company {
	company := &leave.Company{ID: c.ID, Name: c.Name}
	for _, s := range c.Shifts {
		company.Shifts = append(company.Shifts, leave.Shift(s))
	}
	return company
}

func toCompanyDTO(c *leave.Company) CompanyDTO {
	dto := CompanyDTO{ID: c.ID, Name: c.Name, Shifts: make([]ShiftDTO, len(c.Shifts))}
	for i, s := range c.Shifts {
		dto.Shifts[i] = ShiftDTO(s)
	}
	return dto
}

type TemplateDTO struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}
