package leave

import (
	"context"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// ENTITLEMENT CALCULATOR
// =============================================================================
//
// For one staff member, category and date:
//
//   totalAvailable = baseLimit + carriedForward
//   carriedForward = max(0, baseLimit - approved in previous period)  (if enabled)
//   balance        = max(0, totalAvailable - (used + pending))
//
// Categories that are always allowed, or that the template doesn't bound,
// are unrestricted: no limit and a nominal balance of UnboundedBalance.

// UnboundedBalance is reported as the balance of unrestricted categories.
var UnboundedBalance = generic.Days(999)

// Entitlement is a staff member's allowance for one category in one period.
type Entitlement struct {
	Category string

	// BaseLimit and TotalAvailable are nil when unrestricted.
	BaseLimit      *generic.Amount
	CarriedForward generic.Amount
	TotalAvailable *generic.Amount

	// Used is approved-only; Pending is pending-only.
	Used    generic.Amount
	Pending generic.Amount
	Balance generic.Amount

	IsMonthly           bool
	CarryForwardEnabled bool
	Unrestricted        bool

	Period generic.Period
}

// RangeKind is "month" or "year".
func (e Entitlement) RangeKind() string {
	if e.IsMonthly {
		return generic.PeriodMonthly.RangeKind()
	}
	return generic.PeriodCalendarYear.RangeKind()
}

// Bounded reports whether the entitlement limits usage.
func (e Entitlement) Bounded() bool {
	return !e.Unrestricted && e.TotalAvailable != nil
}

// Details is the numeric breakdown attached to a rejection.
func (e Entitlement) Details(requested generic.Amount) map[string]any {
	d := map[string]any{
		"leaveType":      e.Category,
		"carriedForward": e.CarriedForward.Float64(),
		"used":           e.Used.Float64(),
		"pending":        e.Pending.Float64(),
		"requested":      requested.Float64(),
		"balance":        e.Balance.Float64(),
		"range":          e.RangeKind(),
	}
	if e.BaseLimit != nil {
		d["baseLimit"] = e.BaseLimit.Float64()
	}
	if e.TotalAvailable != nil {
		d["totalAvailable"] = e.TotalAvailable.Float64()
	}
	return d
}

// Calculator derives entitlements from a staff member's template and their
// recorded leave.
type Calculator struct {
	Leaves LeaveStore

	// AlwaysAllowed lists categories that are never limited.
	AlwaysAllowed []string
}

// NewCalculator creates a calculator. A nil allow-list uses DefaultAlwaysAllowed.
func NewCalculator(leaves LeaveStore, alwaysAllowed []string) *Calculator {
	if alwaysAllowed == nil {
		alwaysAllowed = DefaultAlwaysAllowed
	}
	return &Calculator{Leaves: leaves, AlwaysAllowed: alwaysAllowed}
}

// Calculate returns the entitlement for category in the period containing date.
func (c *Calculator) Calculate(ctx context.Context, staff *Staff, category string, date generic.TimePoint) (Entitlement, error) {
	return c.CalculateExcluding(ctx, staff, category, date, "")
}

// CalculateExcluding is Calculate with one request left out of every tally.
func (c *Calculator) CalculateExcluding(ctx context.Context, staff *Staff, category string, date generic.TimePoint, excludeID string) (Entitlement, error) {
	periods := ResolvePeriods(category, date)
	ent := Entitlement{
		Category:       category,
		CarriedForward: generic.ZeroDays(),
		Used:           generic.ZeroDays(),
		Pending:        generic.ZeroDays(),
		IsMonthly:      periods.Monthly,
		Period:         periods.Current,
	}

	rule, ok := c.rule(staff, category)
	if !ok {
		ent.Unrestricted = true
		ent.Balance = UnboundedBalance
		return ent, nil
	}

	agg := Aggregator{Leaves: c.Leaves}
	current, err := agg.Usage(ctx, UsageQuery{
		StaffID:   staff.ID,
		Category:  category,
		Window:    periods.Current,
		Statuses:  []Status{StatusApproved, StatusPending},
		ExcludeID: excludeID,
	})
	if err != nil {
		return Entitlement{}, err
	}

	base := *rule.Limit
	ent.BaseLimit = &base
	ent.Used = current.Approved
	ent.Pending = current.Pending
	ent.CarryForwardEnabled = rule.CarryForward

	// Carry-forward only ever looks at approved usage in the prior period.
	if rule.CarryForward {
		prior, err := agg.Usage(ctx, UsageQuery{
			StaffID:   staff.ID,
			Category:  category,
			Window:    periods.Previous,
			Statuses:  []Status{StatusApproved},
			ExcludeID: excludeID,
		})
		if err != nil {
			return Entitlement{}, err
		}
		ent.CarriedForward = base.Sub(prior.Approved).FloorZero()
	}

	total := base.Add(ent.CarriedForward)
	ent.TotalAvailable = &total
	ent.Balance = total.Sub(current.Total()).FloorZero()
	return ent, nil
}

// rule resolves the limiting rule for category. ok is false when the
// category is unrestricted.
func (c *Calculator) rule(staff *Staff, category string) (Rule, bool) {
	if IsAlwaysAllowed(category, c.AlwaysAllowed) {
		return Rule{}, false
	}
	if staff == nil || staff.Template == nil {
		return Rule{}, false
	}
	r, ok := staff.Template.Find(category)
	if !ok || !r.Limited() {
		return Rule{}, false
	}
	return r, true
}
