package generic

import (
	"iter"
	"time"
)

// =============================================================================
// TIME POINT - Calendar day abstraction (leave is booked in whole days)
// =============================================================================

// TimePoint is a calendar date. Comparisons ignore the time of day, so an
// event stamped 00:00:00 on the last day of a window is always inside it.
type TimePoint struct {
	Time time.Time
}

const DateLayout = "2006-01-02"

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping its calendar date.
func DateOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the calendar date.
func ParseDate(value string) (TimePoint, error) {
	if t, err := time.Parse(DateLayout, value); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return TimePoint{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return DateOf(tp.normalize().AddDate(0, 0, n)) }

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

// At returns the instant on this date at the given clock time (UTC).
func (tp TimePoint) At(hour, minute int) time.Time {
	n := tp.normalize()
	return time.Date(n.Year(), n.Month(), n.Day(), hour, minute, 0, 0, time.UTC)
}

func (tp TimePoint) String() string {
	return tp.Time.Format(DateLayout)
}

// =============================================================================
// CALENDAR DAYS - Finite, restartable day sequence
// =============================================================================

// CalendarDays yields every date from start to end inclusive. Each range over
// the returned sequence starts again from start. Yields nothing when end is
// before start.
func CalendarDays(start, end TimePoint) iter.Seq[TimePoint] {
	return func(yield func(TimePoint) bool) {
		for d := DateOf(start.Time); d.BeforeOrEqual(end); d = d.AddDays(1) {
			if !yield(d) {
				return
			}
		}
	}
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysBetween returns the number of midnights between from and to.
func DaysBetween(from, to TimePoint) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

// InclusiveDays counts calendar days from start to end, both included.
// Returns 0 when end is before start.
func InclusiveDays(start, end TimePoint) int {
	if end.Before(start) {
		return 0
	}
	return DaysBetween(start, end) + 1
}

func StartOfYear(year int) TimePoint { return NewTimePoint(year, time.January, 1) }
func EndOfYear(year int) TimePoint   { return NewTimePoint(year, time.December, 31) }
func StartOfMonth(year int, month time.Month) TimePoint {
	return NewTimePoint(year, month, 1)
}
func EndOfMonth(year int, month time.Month) TimePoint {
	return DateOf(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}
