package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/i18n"
)

// =============================================================================
// LEAVE LIFECYCLE
// =============================================================================
//
//   Create ──▶ Pending ──▶ Approved ──▶ attendance marked
//                     └──▶ Rejected
//   Delete ──▶ removed, attendance reverted if it was Approved
//
// Pending is the only state a decision can be taken from.

// SyncResult reports what an attendance pass did.
type SyncResult struct {
	Created int
	Updated int
	Deleted int

	// Skipped is set when approval-time accounting no longer fits the limit
	// and no attendance was written.
	Skipped bool
}

// AttendanceSyncer mirrors approved leave into daily attendance.
type AttendanceSyncer interface {
	Apply(ctx context.Context, req *Request) (SyncResult, error)
	Revert(ctx context.Context, req *Request) (SyncResult, error)
}

// Service guards the leave lifecycle: creation, decisions, deletion and resync.
type Service struct {
	staff  StaffStore
	leaves LeaveStore
	calc   *Calculator
	sync   AttendanceSyncer
	logger *slog.Logger

	// Now is the service clock.
	Now func() time.Time
}

// NewService wires the lifecycle guard. sync may be nil, in which case
// decisions never touch attendance.
func NewService(staff StaffStore, leaves LeaveStore, calc *Calculator, sync AttendanceSyncer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		staff:  staff,
		leaves: leaves,
		calc:   calc,
		sync:   sync,
		logger: logger,
		Now:    time.Now,
	}
}

// Calculator returns the entitlement calculator the service checks against.
func (s *Service) Calculator() *Calculator { return s.calc }

func (s *Service) today() generic.TimePoint { return generic.DateOf(s.Now()) }

// =============================================================================
// CREATE
// =============================================================================

// CreateInput is an application as received; dates are YYYY-MM-DD.
type CreateInput struct {
	StaffID   string
	Category  string
	StartDate string
	EndDate   string
	Reason    string
	Session   string
}

// Create validates the input, checks it against the staff member's
// entitlement and stores it as Pending.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Request, error) {
	req, err := s.draft(ctx, in)
	if err != nil {
		return nil, err
	}

	staff, err := s.findStaff(ctx, in.StaffID)
	if err != nil {
		return nil, err
	}

	if err := s.checkEntitlement(ctx, staff, req); err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	req.StaffID = staff.ID
	req.CompanyID = staff.CompanyID
	req.Status = StatusPending
	req.CreatedAt = now
	req.UpdatedAt = now

	if err := s.leaves.CreateLeave(ctx, req); err != nil {
		return nil, fmt.Errorf("create leave: %w", err)
	}

	s.logger.InfoContext(ctx, "leave requested",
		"leave_id", req.ID,
		"staff_id", req.StaffID,
		"leave_type", req.Category,
		"days", req.Days.String(),
	)
	return req, nil
}

// draft parses and validates the input into an unsaved request.
func (s *Service) draft(ctx context.Context, in CreateInput) (*Request, error) {
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, validation(ctx, "category_required", nil)
	}

	start, err := generic.ParseDate(in.StartDate)
	if err != nil {
		return nil, validation(ctx, "invalid_date", map[string]any{"Field": "startDate"})
	}
	end, err := generic.ParseDate(in.EndDate)
	if err != nil {
		return nil, validation(ctx, "invalid_date", map[string]any{"Field": "endDate"})
	}
	if end.Before(start) {
		return nil, validation(ctx, "invalid_date_range", nil)
	}

	req := &Request{
		Category: category,
		Start:    start,
		End:      end,
		Reason:   strings.TrimSpace(in.Reason),
	}

	if IsHalfDay(category) {
		session := strings.TrimSpace(in.Session)
		if session != SessionFirst && session != SessionSecond {
			return nil, validation(ctx, "half_day_session_required", nil)
		}
		if !start.Equal(end) {
			return nil, validation(ctx, "half_day_single_date", nil)
		}
		req.Session = session
		req.Days = generic.Days(0.5)
		return req, nil
	}

	req.Days = generic.NewAmountFromInt(generic.InclusiveDays(start, end), generic.UnitDays)
	return req, nil
}

// checkEntitlement applies, in order: the allow-list, template membership,
// then the limit checks against the entitlement at the start date.
func (s *Service) checkEntitlement(ctx context.Context, staff *Staff, req *Request) error {
	if IsAlwaysAllowed(req.Category, s.calc.AlwaysAllowed) {
		return nil
	}

	tmpl := staff.Template
	if tmpl == nil {
		return nil
	}

	rule, found := tmpl.Find(req.Category)
	if !found {
		names := tmpl.CategoryNames()
		if len(names) == 0 {
			return nil
		}
		return &generic.PolicyViolationError{
			Code:    "category_not_in_template",
			Message: i18n.T(ctx, "category_not_in_template", map[string]any{"Category": req.Category}),
			Details: map[string]any{
				"leaveType":      req.Category,
				"availableTypes": names,
			},
			AvailableCategories: names,
		}
	}

	if !rule.Limited() {
		return violation(ctx, "limit_not_configured", req.Category, Entitlement{}, req.Days)
	}

	ent, err := s.calc.Calculate(ctx, staff, rule.Name, req.Start)
	if err != nil {
		return err
	}
	if !ent.Bounded() {
		return nil
	}

	switch {
	case !ent.Balance.IsPositive():
		return violation(ctx, "balance_exhausted", req.Category, ent, req.Days)
	case req.Days.GreaterThan(ent.Balance):
		return violation(ctx, "exceeds_balance", req.Category, ent, req.Days)
	case ent.Used.Add(req.Days).GreaterThan(*ent.TotalAvailable):
		return violation(ctx, "limit_exceeded", req.Category, ent, req.Days)
	}
	return nil
}

// =============================================================================
// DECIDE
// =============================================================================

// StatusInput decides a pending request.
type StatusInput struct {
	Status          string
	ApproverID      string
	RejectionReason string
}

// UpdateStatus approves or rejects a pending request. Approval re-checks the
// limit and then mirrors the leave into attendance. Attendance failures are
// logged and never undo the decision.
func (s *Service) UpdateStatus(ctx context.Context, id string, in StatusInput) (*Request, error) {
	target, ok := ParseStatus(in.Status)
	if !ok || target == StatusPending {
		return nil, validation(ctx, "invalid_status", nil)
	}

	req, err := s.findLeave(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Status.Is(StatusPending) {
		return nil, &generic.ValidationError{
			Code:    "invalid_transition",
			Message: i18n.T(ctx, "invalid_transition", map[string]any{"Status": string(req.Status)}),
		}
	}

	if target == StatusApproved {
		if err := s.checkApproval(ctx, req); err != nil {
			return nil, err
		}
	}

	now := s.Now().UTC()
	req.Status = target
	req.UpdatedAt = now
	if approver := strings.TrimSpace(in.ApproverID); approver != "" {
		req.ApprovedBy = &approver
	}
	req.ApprovedAt = &now
	if target == StatusRejected {
		if reason := strings.TrimSpace(in.RejectionReason); reason != "" {
			req.RejectionReason = &reason
		}
	}

	if err := s.leaves.SaveLeave(ctx, req); err != nil {
		return nil, fmt.Errorf("save leave %s: %w", req.ID, err)
	}

	s.logger.InfoContext(ctx, "leave decided",
		"leave_id", req.ID,
		"staff_id", req.StaffID,
		"status", string(req.Status),
	)

	if target == StatusApproved && s.sync != nil {
		if _, err := s.sync.Apply(ctx, req); err != nil {
			s.logger.ErrorContext(ctx, "attendance sync failed",
				"leave_id", req.ID,
				"staff_id", req.StaffID,
				"error", err,
			)
		}
	}
	return req, nil
}

// checkApproval rejects an approval when approved usage in the request's
// start period already exceeds the total available.
func (s *Service) checkApproval(ctx context.Context, req *Request) error {
	staff, err := s.findStaff(ctx, req.StaffID)
	if err != nil {
		return err
	}
	ent, err := s.calc.Calculate(ctx, staff, req.Category, req.Start)
	if err != nil {
		return err
	}
	if ent.Bounded() && ent.Used.GreaterThan(*ent.TotalAvailable) {
		return violation(ctx, "approval_limit_exceeded", req.Category, ent, req.Days)
	}
	return nil
}

// =============================================================================
// DELETE & RESYNC
// =============================================================================

// Delete removes a request. Attendance written for an approved request is
// reverted; revert failures are logged.
func (s *Service) Delete(ctx context.Context, id string) error {
	req, err := s.findLeave(ctx, id)
	if err != nil {
		return err
	}
	if err := s.leaves.DeleteLeave(ctx, id); err != nil {
		return fmt.Errorf("delete leave %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "leave deleted", "leave_id", id, "staff_id", req.StaffID)

	if req.Status.Is(StatusApproved) && s.sync != nil {
		if _, err := s.sync.Revert(ctx, req); err != nil {
			s.logger.ErrorContext(ctx, "attendance revert failed",
				"leave_id", req.ID,
				"staff_id", req.StaffID,
				"error", err,
			)
		}
	}
	return nil
}

// Resync re-applies an approved request to attendance. Unlike approval, the
// synchronizer's error is returned to the caller.
func (s *Service) Resync(ctx context.Context, id string) (SyncResult, error) {
	req, err := s.findLeave(ctx, id)
	if err != nil {
		return SyncResult{}, err
	}
	if !req.Status.Is(StatusApproved) {
		return SyncResult{}, validation(ctx, "not_approved", nil)
	}
	if s.sync == nil {
		return SyncResult{}, nil
	}
	return s.sync.Apply(ctx, req)
}

// =============================================================================
// ENTITLEMENT
// =============================================================================

// Entitlement reports the staff member's entitlement for category on date
// (today when empty).
func (s *Service) Entitlement(ctx context.Context, staffID, category, date string) (Entitlement, error) {
	if strings.TrimSpace(category) == "" {
		return Entitlement{}, validation(ctx, "category_required", nil)
	}
	on := s.today()
	if date != "" {
		d, err := generic.ParseDate(date)
		if err != nil {
			return Entitlement{}, validation(ctx, "invalid_date", map[string]any{"Field": "date"})
		}
		on = d
	}
	staff, err := s.findStaff(ctx, staffID)
	if err != nil {
		return Entitlement{}, err
	}
	return s.calc.Calculate(ctx, staff, strings.TrimSpace(category), on)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) findStaff(ctx context.Context, id string) (*Staff, error) {
	staff, err := s.staff.FindStaff(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find staff %s: %w", id, err)
	}
	if staff == nil {
		return nil, &generic.NotFoundError{Kind: "staff", ID: id}
	}
	return staff, nil
}

func (s *Service) findLeave(ctx context.Context, id string) (*Request, error) {
	req, err := s.leaves.GetLeave(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get leave %s: %w", id, err)
	}
	if req == nil {
		return nil, &generic.NotFoundError{Kind: "leave", ID: id}
	}
	return req, nil
}

func validation(ctx context.Context, code string, data map[string]any) error {
	return generic.NewValidationError(code, i18n.T(ctx, code, data))
}

// violation builds a policy rejection whose message cites the entitlement
// breakdown. Carry-forward entitlements use the "_carry" message variant.
func violation(ctx context.Context, code, category string, ent Entitlement, requested generic.Amount) error {
	data := map[string]any{
		"Category":  category,
		"Range":     ent.RangeKind(),
		"Used":      ent.Used.String(),
		"Balance":   ent.Balance.String(),
		"Requested": requested.String(),
		"Carried":   ent.CarriedForward.String(),
	}
	if ent.BaseLimit != nil {
		data["Base"] = ent.BaseLimit.String()
	}
	if ent.TotalAvailable != nil {
		data["Total"] = ent.TotalAvailable.String()
	}

	messageID := code
	if ent.CarryForwardEnabled && (code == "exceeds_balance" || code == "limit_exceeded") {
		messageID = code + "_carry"
	}

	var details map[string]any
	if ent.BaseLimit != nil {
		details = ent.Details(requested)
	}
	return &generic.PolicyViolationError{
		Code:    code,
		Message: i18n.T(ctx, messageID, data),
		Details: details,
	}
}

// IsPolicyViolation reports whether err is a rejection with the given code.
func IsPolicyViolation(err error, code string) bool {
	var pv *generic.PolicyViolationError
	return errors.As(err, &pv) && pv.Code == code
}
