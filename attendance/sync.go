/*
sync.go - Mirrors approved leave into daily attendance

PURPOSE:
  An approved leave marks every date it covers as "On Leave" (or "Half Day")
  in the attendance log. Deleting the leave undoes that.

KEY CONCEPTS:
  - Each calendar day is handled independently. A failure on one day doesn't
    stop the others; all failures are joined and returned at the end.
  - Apply is idempotent: running it again leaves the same records, and the
    half-day annotation is only written once.
  - Apply re-derives the entitlement without the request itself. If approved
    usage plus this request plus other pending requests no longer fits the
    limit, nothing is written.

SEE ALSO:
  - leave/service.go: calls Apply after approval and Revert after delete
  - shift.go: session windows for half-day remarks
*/
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// Result reports what a pass did.
type Result = leave.SyncResult

type Synchronizer struct {
	staff   leave.StaffStore
	records leave.AttendanceStore
	calc    *leave.Calculator
	logger  *slog.Logger

	// Now stamps approval and update times.
	Now func() time.Time
}

func NewSynchronizer(staff leave.StaffStore, records leave.AttendanceStore, calc *leave.Calculator, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		staff:   staff,
		records: records,
		calc:    calc,
		logger:  logger,
		Now:     time.Now,
	}
}

// =============================================================================
// APPLY
// =============================================================================

// Apply writes attendance for every day of an approved request. Requests in
// any other status are ignored.
func (s *Synchronizer) Apply(ctx context.Context, req *leave.Request) (Result, error) {
	if req == nil || !req.Status.Is(leave.StatusApproved) {
		return Result{}, nil
	}

	staff, err := s.staff.FindStaff(ctx, req.StaffID)
	if err != nil {
		return Result{}, fmt.Errorf("find staff %s: %w", req.StaffID, err)
	}
	if staff == nil {
		return Result{}, &generic.NotFoundError{Kind: "staff", ID: req.StaffID}
	}

	fits, err := s.fits(ctx, staff, req)
	if err != nil {
		return Result{}, err
	}
	if !fits {
		s.logger.WarnContext(ctx, "leave limit would be exceeded, attendance not marked",
			"leave_id", req.ID,
			"staff_id", req.StaffID,
			"leave_type", req.Category,
		)
		return Result{Skipped: true}, nil
	}

	company, err := s.staff.FindCompany(ctx, staff.CompanyID)
	if err != nil {
		return Result{}, fmt.Errorf("find company %s: %w", staff.CompanyID, err)
	}
	shift := ResolveShift(company, staff)

	var res Result
	var errs []error
	for day := range generic.CalendarDays(req.Start, req.End) {
		created, err := s.applyDay(ctx, req, day, shift)
		if err != nil {
			errs = append(errs, &generic.SyncError{Date: day, Err: err})
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	s.logger.InfoContext(ctx, "attendance marked for leave",
		"leave_id", req.ID,
		"created", res.Created,
		"updated", res.Updated,
		"failed", len(errs),
	)
	return res, errors.Join(errs...)
}

// fits reports whether approved usage, this request and every other pending
// request of the category still fit the limit of the request's period.
func (s *Synchronizer) fits(ctx context.Context, staff *leave.Staff, req *leave.Request) (bool, error) {
	ent, err := s.calc.CalculateExcluding(ctx, staff, req.Category, req.Start, req.ID)
	if err != nil {
		return false, err
	}
	if !ent.Bounded() {
		return true, nil
	}
	own := leave.Tally(ent.Period, []leave.Request{*req}).Approved
	committed := ent.Used.Add(own).Add(ent.Pending)
	return committed.LessThanOrEqual(*ent.TotalAvailable), nil
}

func (s *Synchronizer) applyDay(ctx context.Context, req *leave.Request, day generic.TimePoint, shift leave.Shift) (bool, error) {
	rec, err := s.records.FindAttendance(ctx, req.StaffID, generic.Day(day))
	if err != nil {
		return false, err
	}

	now := s.Now().UTC()
	approvedAt := now
	if req.ApprovedAt != nil {
		approvedAt = *req.ApprovedAt
	}

	status := leave.AttendanceOnLeave
	remark := ""
	if req.IsHalfDay() {
		status = leave.AttendanceHalfDay
		remark = HalfDayRemark(shift, req.Session)
	}

	if rec != nil {
		rec.Status = status
		if !req.IsHalfDay() {
			rec.PunchIn = nil
			rec.PunchOut = nil
			rec.WorkHours = 0
		}
		rec.ApprovedBy = req.ApprovedBy
		rec.ApprovedAt = &approvedAt
		if remark != "" {
			rec.Remarks = appendRemark(rec.Remarks, remark)
		}
		rec.UpdatedAt = now
		return false, s.records.SaveAttendance(ctx, rec)
	}

	rec = &leave.AttendanceRecord{
		StaffID:    req.StaffID,
		CompanyID:  req.CompanyID,
		Date:       day,
		Status:     status,
		WorkHours:  0,
		ApprovedBy: req.ApprovedBy,
		ApprovedAt: &approvedAt,
		Remarks:    remark,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return true, s.records.CreateAttendance(ctx, rec)
}

func appendRemark(remarks, note string) string {
	if strings.Contains(remarks, note) {
		return remarks
	}
	return strings.TrimSpace(remarks + " [" + note + "]")
}

// =============================================================================
// REVERT
// =============================================================================

var leaveRemarks = regexp.MustCompile(`(?i)\[?Half Day - Session [12](?: \(\d{2}:\d{2}-\d{2}:\d{2}\))?\]?|On Leave`)

// StripLeaveRemarks removes the annotations Apply writes.
func StripLeaveRemarks(remarks string) string {
	return strings.Join(strings.Fields(leaveRemarks.ReplaceAllString(remarks, "")), " ")
}

// Revert undoes Apply for every day of the request. Leave-only records are
// deleted; records with punches go back to Pending.
func (s *Synchronizer) Revert(ctx context.Context, req *leave.Request) (Result, error) {
	if req == nil {
		return Result{}, nil
	}

	var res Result
	var errs []error
	for day := range generic.CalendarDays(req.Start, req.End) {
		deleted, touched, err := s.revertDay(ctx, req.StaffID, day)
		if err != nil {
			errs = append(errs, &generic.SyncError{Date: day, Err: err})
			continue
		}
		switch {
		case deleted:
			res.Deleted++
		case touched:
			res.Updated++
		}
	}

	s.logger.InfoContext(ctx, "attendance reverted for leave",
		"leave_id", req.ID,
		"deleted", res.Deleted,
		"updated", res.Updated,
		"failed", len(errs),
	)
	return res, errors.Join(errs...)
}

func (s *Synchronizer) revertDay(ctx context.Context, staffID string, day generic.TimePoint) (deleted, touched bool, err error) {
	rec, err := s.records.FindAttendance(ctx, staffID, generic.Day(day))
	if err != nil {
		return false, false, err
	}
	if rec == nil || (rec.Status != leave.AttendanceOnLeave && rec.Status != leave.AttendanceHalfDay) {
		return false, false, nil
	}

	if !rec.HasPunches() {
		return true, true, s.records.DeleteAttendance(ctx, rec.ID)
	}

	rec.Status = leave.AttendancePending
	rec.Remarks = StripLeaveRemarks(rec.Remarks)
	rec.ApprovedBy = nil
	rec.ApprovedAt = nil
	rec.UpdatedAt = s.Now().UTC()
	return false, true, s.records.SaveAttendance(ctx, rec)
}
