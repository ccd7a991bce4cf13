package leave

import (
	"context"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// STORE CONTRACTS
// =============================================================================
//
// Lookups of a missing id return (nil, nil). Category filters match by
// canonical key, so "Casual" finds "Casual Leave" records.

type StaffStore interface {
	// FindStaff returns the staff member with Template resolved.
	FindStaff(ctx context.Context, id string) (*Staff, error)
	FindCompany(ctx context.Context, id string) (*Company, error)
}

type LeaveStore interface {
	FindLeaves(ctx context.Context, filter LeaveFilter) ([]Request, error)
	CountLeaves(ctx context.Context, filter LeaveFilter) (int, error)
	GetLeave(ctx context.Context, id string) (*Request, error)
	CreateLeave(ctx context.Context, req *Request) error
	SaveLeave(ctx context.Context, req *Request) error
	DeleteLeave(ctx context.Context, id string) error
}

type AttendanceStore interface {
	// FindAttendance returns the staff member's record dated within day.
	FindAttendance(ctx context.Context, staffID string, day generic.Period) (*AttendanceRecord, error)
	CreateAttendance(ctx context.Context, rec *AttendanceRecord) error
	SaveAttendance(ctx context.Context, rec *AttendanceRecord) error
	DeleteAttendance(ctx context.Context, id string) error
}

// SeedStore writes the externally owned records. Used by admin endpoints and
// demo scenarios.
type SeedStore interface {
	SaveStaff(ctx context.Context, staff *Staff) error
	SaveCompany(ctx context.Context, company *Company) error
	SaveTemplate(ctx context.Context, tmpl *Template) error
}

// Store is everything a backend provides.
type Store interface {
	StaffStore
	LeaveStore
	AttendanceStore
	SeedStore
}

// LeaveFilter selects leave requests. Zero fields don't filter.
type LeaveFilter struct {
	StaffID  string
	Category string
	Statuses []Status

	// ExcludeID drops one request, typically the one being evaluated.
	ExcludeID string

	// Overlap keeps requests sharing at least one day with the period.
	Overlap *generic.Period

	// Search is a case-insensitive substring of category or reason.
	Search string

	// Offset and Limit page the result, which is ordered by CreatedAt
	// descending. Limit 0 returns everything.
	Offset int
	Limit  int
}

// Matches applies the filter to one request, ignoring paging. Backends that
// can't express a clause natively fall back to it.
func (f LeaveFilter) Matches(r *Request) bool {
	if f.StaffID != "" && r.StaffID != f.StaffID {
		return false
	}
	if f.ExcludeID != "" && r.ID == f.ExcludeID {
		return false
	}
	if f.Category != "" && !SameCategory(r.Category, f.Category) {
		return false
	}
	if len(f.Statuses) > 0 && !statusIn(r.Status, f.Statuses) {
		return false
	}
	if f.Overlap != nil && !f.Overlap.Overlaps(r.Start, r.End) {
		return false
	}
	if f.Search != "" && !containsFold(r.Category, f.Search) && !containsFold(r.Reason, f.Search) {
		return false
	}
	return true
}

func statusIn(s Status, set []Status) bool {
	for _, candidate := range set {
		if s.Is(candidate) {
			return true
		}
	}
	return false
}
