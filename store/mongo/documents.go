package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// Documents mirror the domain types with bson tags. Dates are YYYY-MM-DD
// strings so range filters compare lexically, and day counts are decimal
// strings so half days survive exactly.

type staffDoc struct {
	ID         string `bson:"_id"`
	CompanyID  string `bson:"company_id"`
	Name       string `bson:"name"`
	TemplateID string `bson:"template_id,omitempty"`
	ShiftName  string `bson:"shift_name,omitempty"`
}

type companyDoc struct {
	ID     string        `bson:"_id"`
	Name   string        `bson:"name"`
	Shifts []leave.Shift `bson:"shifts"`
}

type leaveTypeDoc struct {
	Type         string   `bson:"type"`
	Days         *float64 `bson:"days,omitempty"`
	Limit        *float64 `bson:"limit,omitempty"`
	CarryForward bool     `bson:"carry_forward,omitempty"`
}

type templateDoc struct {
	ID         string             `bson:"_id"`
	Name       string             `bson:"name"`
	LeaveTypes []leaveTypeDoc     `bson:"leave_types,omitempty"`
	Limits     map[string]float64 `bson:"limits,omitempty"`
	Fields     map[string]float64 `bson:"fields,omitempty"`
}

type leaveDoc struct {
	ID              string     `bson:"_id"`
	StaffID         string     `bson:"staff_id"`
	CompanyID       string     `bson:"company_id"`
	LeaveType       string     `bson:"leave_type"`
	CategoryKey     string     `bson:"category_key"`
	StartDate       string     `bson:"start_date"`
	EndDate         string     `bson:"end_date"`
	Days            string     `bson:"days"`
	Status          string     `bson:"status"`
	Reason          string     `bson:"reason,omitempty"`
	Session         string     `bson:"session,omitempty"`
	ApprovedBy      *string    `bson:"approved_by,omitempty"`
	ApprovedAt      *time.Time `bson:"approved_at,omitempty"`
	RejectionReason *string    `bson:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`

	// Seq breaks created_at ties; bson datetimes only keep milliseconds.
	Seq int64 `bson:"seq"`
}

type attendanceDoc struct {
	ID         string     `bson:"_id"`
	StaffID    string     `bson:"staff_id"`
	CompanyID  string     `bson:"company_id"`
	Date       string     `bson:"date"`
	Status     string     `bson:"status"`
	PunchIn    *time.Time `bson:"punch_in,omitempty"`
	PunchOut   *time.Time `bson:"punch_out,omitempty"`
	WorkHours  float64    `bson:"work_hours"`
	ApprovedBy *string    `bson:"approved_by,omitempty"`
	ApprovedAt *time.Time `bson:"approved_at,omitempty"`
	Remarks    string     `bson:"remarks"`
	CreatedAt  time.Time  `bson:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toTemplateDoc(t *leave.Template) templateDoc {
	doc := templateDoc{ID: t.ID, Name: t.Name, Limits: t.Limits, Fields: t.Fields}
	for _, lt := range t.LeaveTypes {
		doc.LeaveTypes = append(doc.LeaveTypes, leaveTypeDoc(lt))
	}
	return doc
}

func (d templateDoc) toTemplate() *leave.Template {
	t := &leave.Template{ID: d.ID, Name: d.Name, Limits: d.Limits, Fields: d.Fields}
	for _, lt := range d.LeaveTypes {
		t.LeaveTypes = append(t.LeaveTypes, leave.TemplateLeaveType(lt))
	}
	return t
}

func toLeaveDoc(r *leave.Request, seq int64) leaveDoc {
	return leaveDoc{
		ID:              r.ID,
		StaffID:         r.StaffID,
		CompanyID:       r.CompanyID,
		LeaveType:       r.Category,
		CategoryKey:     leave.CategoryKey(r.Category),
		StartDate:       r.Start.String(),
		EndDate:         r.End.String(),
		Days:            r.Days.String(),
		Status:          string(r.Status),
		Reason:          r.Reason,
		Session:         r.Session,
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      r.ApprovedAt,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		Seq:             seq,
	}
}

func (d leaveDoc) toRequest() (leave.Request, error) {
	start, err := generic.ParseDate(d.StartDate)
	if err != nil {
		return leave.Request{}, fmt.Errorf("leave %s start_date: %w", d.ID, err)
	}
	end, err := generic.ParseDate(d.EndDate)
	if err != nil {
		return leave.Request{}, fmt.Errorf("leave %s end_date: %w", d.ID, err)
	}
	days, err := decimal.NewFromString(d.Days)
	if err != nil {
		return leave.Request{}, fmt.Errorf("leave %s days: %w", d.ID, err)
	}
	return leave.Request{
		ID:              d.ID,
		StaffID:         d.StaffID,
		CompanyID:       d.CompanyID,
		Category:        d.LeaveType,
		Start:           start,
		End:             end,
		Days:            generic.Amount{Value: days, Unit: generic.UnitDays},
		Status:          leave.Status(d.Status),
		Reason:          d.Reason,
		Session:         d.Session,
		ApprovedBy:      d.ApprovedBy,
		ApprovedAt:      d.ApprovedAt,
		RejectionReason: d.RejectionReason,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}, nil
}

func toAttendanceDoc(rec *leave.AttendanceRecord) attendanceDoc {
	return attendanceDoc{
		ID:         rec.ID,
		StaffID:    rec.StaffID,
		CompanyID:  rec.CompanyID,
		Date:       rec.Date.String(),
		Status:     string(rec.Status),
		PunchIn:    rec.PunchIn,
		PunchOut:   rec.PunchOut,
		WorkHours:  rec.WorkHours,
		ApprovedBy: rec.ApprovedBy,
		ApprovedAt: rec.ApprovedAt,
		Remarks:    rec.Remarks,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func (d attendanceDoc) toRecord() (*leave.AttendanceRecord, error) {
	day, err := generic.ParseDate(d.Date)
	if err != nil {
		return nil, fmt.Errorf("attendance %s date: %w", d.ID, err)
	}
	return &leave.AttendanceRecord{
		ID:         d.ID,
		StaffID:    d.StaffID,
		CompanyID:  d.CompanyID,
		Date:       day,
		Status:     leave.AttendanceStatus(d.Status),
		PunchIn:    d.PunchIn,
		PunchOut:   d.PunchOut,
		WorkHours:  d.WorkHours,
		ApprovedBy: d.ApprovedBy,
		ApprovedAt: d.ApprovedAt,
		Remarks:    d.Remarks,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}
