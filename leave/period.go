package leave

import "github.com/warp/leave-engine/generic"

// Periods are the accounting windows a category's limit is evaluated against
// for a given date.
type Periods struct {
	Current  generic.Period
	Previous generic.Period
	Monthly  bool
}

// PeriodConfigFor returns the period granularity of category.
func PeriodConfigFor(category string) generic.PeriodConfig {
	if IsMonthly(category) {
		return generic.PeriodConfig{Type: generic.PeriodMonthly}
	}
	return generic.PeriodConfig{Type: generic.PeriodCalendarYear}
}

// ResolvePeriods returns the current and immediately preceding period of the
// category's granularity that contain date.
func ResolvePeriods(category string, date generic.TimePoint) Periods {
	pc := PeriodConfigFor(category)
	return Periods{
		Current:  pc.PeriodFor(date),
		Previous: pc.PreviousPeriodFor(date),
		Monthly:  pc.Type == generic.PeriodMonthly,
	}
}
