package generic_test

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

// =============================================================================
// PERIOD RESOLUTION TESTS
// =============================================================================

func TestPeriodFor_Monthly(t *testing.T) {
	pc := generic.PeriodConfig{Type: generic.PeriodMonthly}

	p := pc.PeriodFor(date(2024, time.February, 14))
	assert.Equal(t, date(2024, time.February, 1), p.Start)
	assert.Equal(t, date(2024, time.February, 29), p.End, "leap year February")
}

func TestPeriodFor_CalendarYear(t *testing.T) {
	pc := generic.PeriodConfig{Type: generic.PeriodCalendarYear}

	p := pc.PeriodFor(date(2025, time.July, 4))
	assert.Equal(t, date(2025, time.January, 1), p.Start)
	assert.Equal(t, date(2025, time.December, 31), p.End)
}

func TestPreviousPeriodFor_MonthWrapsToDecember(t *testing.T) {
	// GIVEN: A date in January
	// WHEN: Resolving the previous monthly period
	// THEN: It is December of the previous year
	pc := generic.PeriodConfig{Type: generic.PeriodMonthly}

	prev := pc.PreviousPeriodFor(date(2025, time.January, 20))
	assert.Equal(t, date(2024, time.December, 1), prev.Start)
	assert.Equal(t, date(2024, time.December, 31), prev.End)
}

func TestPreviousPeriodFor_Month(t *testing.T) {
	pc := generic.PeriodConfig{Type: generic.PeriodMonthly}

	prev := pc.PreviousPeriodFor(date(2025, time.March, 31))
	assert.Equal(t, date(2025, time.February, 1), prev.Start)
	assert.Equal(t, date(2025, time.February, 28), prev.End)
}

func TestPreviousPeriodFor_Year(t *testing.T) {
	pc := generic.PeriodConfig{Type: generic.PeriodCalendarYear}

	prev := pc.PreviousPeriodFor(date(2025, time.March, 31))
	assert.Equal(t, date(2024, time.January, 1), prev.Start)
	assert.Equal(t, date(2024, time.December, 31), prev.End)
}

// =============================================================================
// OVERLAP TESTS
// =============================================================================

func TestOverlapDays_PartialOverlapCountsOnlyInsideWindow(t *testing.T) {
	// GIVEN: June window, request June 28 - July 3
	// THEN: Only June 28, 29, 30 count
	june := generic.Period{Start: date(2025, time.June, 1), End: date(2025, time.June, 30)}

	assert.Equal(t, 3, june.OverlapDays(date(2025, time.June, 28), date(2025, time.July, 3)))
}

func TestOverlapDays_NoOverlap(t *testing.T) {
	june := generic.Period{Start: date(2025, time.June, 1), End: date(2025, time.June, 30)}

	assert.Equal(t, 0, june.OverlapDays(date(2025, time.July, 1), date(2025, time.July, 3)))
	assert.False(t, june.Overlaps(date(2025, time.July, 1), date(2025, time.July, 3)))
}

func TestOverlapDays_LastDayIncluded(t *testing.T) {
	// An event on the final day of the window, at any clock time, is inside.
	june := generic.Period{Start: date(2025, time.June, 1), End: date(2025, time.June, 30)}
	lastDay := generic.TimePoint{Time: time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)}
	lateLastDay := generic.TimePoint{Time: time.Date(2025, time.June, 30, 23, 30, 0, 0, time.UTC)}

	assert.Equal(t, 1, june.OverlapDays(lastDay, lastDay))
	assert.True(t, june.Contains(lateLastDay))
}

func TestOverlapDays_RequestCoversWholeWindow(t *testing.T) {
	feb := generic.Period{Start: date(2025, time.February, 1), End: date(2025, time.February, 28)}

	assert.Equal(t, 28, feb.OverlapDays(date(2025, time.January, 15), date(2025, time.March, 15)))
}

func TestPeriod_DaysAndValidate(t *testing.T) {
	feb := generic.Period{Start: date(2024, time.February, 1), End: date(2024, time.February, 29)}
	assert.Equal(t, 29, feb.Days())
	require.NoError(t, feb.Validate())

	inverted := generic.Period{Start: date(2025, time.March, 2), End: date(2025, time.March, 1)}
	assert.ErrorIs(t, inverted.Validate(), generic.ErrInvalidPeriod)
	assert.True(t, generic.IsClientError(inverted.Validate()))
}

// =============================================================================
// CALENDAR DAY SEQUENCE TESTS
// =============================================================================

func TestCalendarDays_InclusiveAndRestartable(t *testing.T) {
	seq := generic.CalendarDays(date(2025, time.January, 30), date(2025, time.February, 2))

	first := slices.Collect(seq)
	second := slices.Collect(seq)

	require.Len(t, first, 4)
	assert.Equal(t, date(2025, time.January, 30), first[0])
	assert.Equal(t, date(2025, time.February, 2), first[3])
	assert.Equal(t, first, second, "ranging again restarts from the start date")
}

func TestCalendarDays_EndBeforeStartIsEmpty(t *testing.T) {
	seq := generic.CalendarDays(date(2025, time.January, 3), date(2025, time.January, 1))
	assert.Empty(t, slices.Collect(seq))
}

func TestInclusiveDays(t *testing.T) {
	assert.Equal(t, 1, generic.InclusiveDays(date(2025, time.January, 10), date(2025, time.January, 10)))
	assert.Equal(t, 3, generic.InclusiveDays(date(2025, time.January, 10), date(2025, time.January, 12)))
	assert.Equal(t, 0, generic.InclusiveDays(date(2025, time.January, 12), date(2025, time.January, 10)))
}

func TestParseDate_AcceptsDateAndRFC3339(t *testing.T) {
	d, err := generic.ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.March, 10), d)

	d, err = generic.ParseDate("2025-03-10T18:45:00Z")
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.March, 10), d)

	_, err = generic.ParseDate("10/03/2025")
	assert.Error(t, err)
}

// =============================================================================
// AMOUNT TESTS
// =============================================================================

func TestAmount_FloorZero(t *testing.T) {
	assert.True(t, generic.Days(4).Sub(generic.Days(5)).FloorZero().IsZero())
	assert.True(t, generic.Days(1.5).FloorZero().Equal(generic.Days(1.5)))
}

func TestAmount_HalfDaysAddExactly(t *testing.T) {
	total := generic.Days(0.5).Add(generic.Days(0.5))
	assert.True(t, total.Equal(generic.Days(1)))
}
