package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - The accounting window a limit applies to
// =============================================================================

// Period is an inclusive window of whole calendar days.
//
// Examples:
//   - Month: Mar 1 - Mar 31
//   - Calendar year 2025: Jan 1 - Dec 31
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Day returns the single-day period for date.
func Day(date TimePoint) Period {
	d := DateOf(date.Time)
	return Period{Start: d, End: d}
}

// Contains returns true if the date is within [Start, End].
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Overlaps reports whether [start, end] shares at least one day with p.
func (p Period) Overlaps(start, end TimePoint) bool {
	return start.BeforeOrEqual(p.End) && end.AfterOrEqual(p.Start)
}

// Clip returns the intersection of [start, end] with p.
// ok is false when they share no day.
func (p Period) Clip(start, end TimePoint) (Period, bool) {
	s, e := start, end
	if p.Start.After(s) {
		s = p.Start
	}
	if p.End.Before(e) {
		e = p.End
	}
	if e.Before(s) {
		return Period{}, false
	}
	return Period{Start: s, End: e}, true
}

// OverlapDays counts the days [start, end] shares with p.
func (p Period) OverlapDays(start, end TimePoint) int {
	clipped, ok := p.Clip(start, end)
	if !ok {
		return 0
	}
	return clipped.Days()
}

// Days returns the number of days in the period.
func (p Period) Days() int {
	return InclusiveDays(p.Start, p.End)
}

// Validate checks that the period is well formed.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// PeriodType defines how periods are calculated
type PeriodType string

const (
	PeriodMonthly      PeriodType = "monthly"       // 1st - last day of month
	PeriodCalendarYear PeriodType = "calendar_year" // Jan 1 - Dec 31
)

// RangeKind is the word used for this period type in user-facing messages.
func (t PeriodType) RangeKind() string {
	if t == PeriodMonthly {
		return "month"
	}
	return "year"
}

// PeriodConfig defines how to calculate periods for a category
type PeriodConfig struct {
	Type PeriodType
}

// =============================================================================
// PERIOD CALCULATOR - Determines which period a date falls into
// =============================================================================

// PeriodFor returns the period that contains the given date
func (pc PeriodConfig) PeriodFor(date TimePoint) Period {
	switch pc.Type {
	case PeriodMonthly:
		return Period{
			Start: StartOfMonth(date.Year(), date.Month()),
			End:   EndOfMonth(date.Year(), date.Month()),
		}
	case PeriodCalendarYear:
		return Period{Start: StartOfYear(date.Year()), End: EndOfYear(date.Year())}
	default:
		return Period{Start: StartOfYear(date.Year()), End: EndOfYear(date.Year())}
	}
}

// PreviousPeriodFor returns the period of the same granularity immediately
// before the one containing date. January's previous month is December of
// the prior year.
func (pc PeriodConfig) PreviousPeriodFor(date TimePoint) Period {
	switch pc.Type {
	case PeriodMonthly:
		year, month := date.Year(), date.Month()-1
		if month < time.January {
			month = time.December
			year--
		}
		return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
	default:
		return Period{Start: StartOfYear(date.Year() - 1), End: EndOfYear(date.Year() - 1)}
	}
}

// MonthPeriod returns the whole of month in year. Used by summaries that are
// addressed by month/year rather than by date.
func MonthPeriod(year int, month time.Month) (Period, error) {
	if month < time.January || month > time.December {
		return Period{}, fmt.Errorf("%w: month %d", ErrInvalidPeriod, month)
	}
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}, nil
}
