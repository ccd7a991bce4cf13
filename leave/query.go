package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// LISTING
// =============================================================================

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ListQuery filters one staff member's requests. String fields come straight
// from query parameters; empty means "don't filter".
type ListQuery struct {
	StaffID   string
	Status    string
	Category  string
	Search    string
	StartDate string
	EndDate   string
	Page      int
	Limit     int
}

type ListResult struct {
	Items []Request
	Total int
	Page  int
	Limit int
	Pages int
}

// List returns a page of requests, newest first.
func (s *Service) List(ctx context.Context, q ListQuery) (ListResult, error) {
	filter := LeaveFilter{
		StaffID:  q.StaffID,
		Category: strings.TrimSpace(q.Category),
		Search:   strings.TrimSpace(q.Search),
	}

	if status := strings.TrimSpace(q.Status); status != "" && !isAllStatus(status) {
		if st, ok := ParseStatus(status); ok {
			filter.Statuses = []Status{st}
		} else {
			filter.Statuses = []Status{Status(status)}
		}
	}

	window, err := listWindow(ctx, q.StartDate, q.EndDate)
	if err != nil {
		return ListResult{}, err
	}
	filter.Overlap = window

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	total, err := s.leaves.CountLeaves(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("count leaves: %w", err)
	}

	filter.Offset = (page - 1) * limit
	filter.Limit = limit
	items, err := s.leaves.FindLeaves(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("find leaves: %w", err)
	}
	if items == nil {
		items = []Request{}
	}

	return ListResult{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: (total + limit - 1) / limit,
	}, nil
}

func isAllStatus(s string) bool {
	return strings.EqualFold(s, "all") || strings.EqualFold(s, "all status")
}

// listWindow builds the overlap filter. A single bound leaves the other side
// open.
func listWindow(ctx context.Context, startDate, endDate string) (*generic.Period, error) {
	if startDate == "" && endDate == "" {
		return nil, nil
	}
	window := generic.Period{
		Start: generic.NewTimePoint(1, time.January, 1),
		End:   generic.NewTimePoint(9999, time.December, 31),
	}
	if startDate != "" {
		d, err := generic.ParseDate(startDate)
		if err != nil {
			return nil, validation(ctx, "invalid_date", map[string]any{"Field": "startDate"})
		}
		window.Start = d
	}
	if endDate != "" {
		d, err := generic.ParseDate(endDate)
		if err != nil {
			return nil, validation(ctx, "invalid_date", map[string]any{"Field": "endDate"})
		}
		window.End = d
	}
	if err := window.Validate(); err != nil {
		return nil, validation(ctx, "invalid_date_range", nil)
	}
	return &window, nil
}

// =============================================================================
// CATEGORY SUMMARY
// =============================================================================

// DefaultSummaryCategories always appear in a summary, even with zero taken.
var DefaultSummaryCategories = []string{
	"Casual Leave",
	"Sick Leave",
	"Half Day",
	"Earned Leave",
	"Unpaid Leave",
}

// SummaryQuery addresses the summary range either by explicit dates or by
// month and year. Zero Month/Year default to the current month.
type SummaryQuery struct {
	StaffID   string
	StartDate string
	EndDate   string
	Month     int
	Year      int
}

type SummaryItem struct {
	Category string
	Taken    generic.Amount
}

type Summary struct {
	Range generic.Period
	Items []SummaryItem
}

// Summary counts approved leave per category inside the range. Each day of a
// half-day request, or of a 0.5-day request, counts 0.5.
func (s *Service) Summary(ctx context.Context, q SummaryQuery) (Summary, error) {
	window, err := s.summaryWindow(ctx, q)
	if err != nil {
		return Summary{}, err
	}

	staff, err := s.findStaff(ctx, q.StaffID)
	if err != nil {
		return Summary{}, err
	}

	approved, err := s.leaves.FindLeaves(ctx, LeaveFilter{
		StaffID:  staff.ID,
		Statuses: []Status{StatusApproved},
		Overlap:  &window,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("find approved leaves: %w", err)
	}

	var items []SummaryItem
	index := make(map[string]int)
	card := func(name string) int {
		key := CategoryKey(name)
		if i, ok := index[key]; ok {
			return i
		}
		index[key] = len(items)
		items = append(items, SummaryItem{Category: name, Taken: generic.ZeroDays()})
		return len(items) - 1
	}

	for _, name := range DefaultSummaryCategories {
		card(name)
	}
	for _, name := range staff.Template.CategoryNames() {
		card(name)
	}

	half := generic.Days(0.5)
	for i := range approved {
		r := &approved[i]
		perDay := generic.Days(1)
		if r.IsHalfDay() || r.Days.Equal(half) {
			perDay = half
		}
		c := card(r.Category)
		items[c].Taken = items[c].Taken.Add(perDay.Times(window.OverlapDays(r.Start, r.End)))
	}

	return Summary{Range: window, Items: items}, nil
}

func (s *Service) summaryWindow(ctx context.Context, q SummaryQuery) (generic.Period, error) {
	if q.StartDate != "" && q.EndDate != "" {
		w, err := listWindow(ctx, q.StartDate, q.EndDate)
		if err != nil {
			return generic.Period{}, err
		}
		return *w, nil
	}

	today := s.today()
	year, month := q.Year, time.Month(q.Month)
	if year == 0 {
		year = today.Year()
	}
	if month == 0 {
		month = today.Month()
	}
	w, err := generic.MonthPeriod(year, month)
	if err != nil {
		return generic.Period{}, generic.NewValidationError("invalid_month", err.Error())
	}
	return w, nil
}
