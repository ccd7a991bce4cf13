package attendance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/warp/leave-engine/leave"
)

// DefaultShift applies when the company configures no shifts.
var DefaultShift = leave.Shift{Name: "General", StartTime: "09:30", EndTime: "18:30"}

const defaultWorkHours = 8.0

// ResolveShift picks the staff member's named shift, else the company's first
// shift, else DefaultShift. Missing start or end times fall back to the
// default's.
func ResolveShift(company *leave.Company, staff *leave.Staff) leave.Shift {
	shift := DefaultShift
	if company == nil || len(company.Shifts) == 0 {
		return shift
	}

	chosen := company.Shifts[0]
	if staff != nil && staff.ShiftName != "" {
		for _, s := range company.Shifts {
			if s.Name == staff.ShiftName {
				chosen = s
				break
			}
		}
	}

	shift.Name = chosen.Name
	if chosen.StartTime != "" {
		shift.StartTime = chosen.StartTime
	}
	if chosen.EndTime != "" {
		shift.EndTime = chosen.EndTime
	}
	return shift
}

// WorkHours is the shift length in hours. Shifts ending at or before their
// start run past midnight.
func WorkHours(shift leave.Shift) float64 {
	start, err := clockMinutes(shift.StartTime)
	if err != nil {
		return defaultWorkHours
	}
	end, err := clockMinutes(shift.EndTime)
	if err != nil {
		return defaultWorkHours
	}
	diff := end - start
	if diff <= 0 {
		diff += 24 * 60
	}
	return float64(diff) / 60
}

// SessionWindow returns the HH:mm bounds of a half-day session: Session 1
// runs from shift start to the midpoint, Session 2 from the midpoint to
// shift end.
func SessionWindow(shift leave.Shift, session string) (from, to string, err error) {
	start, err := clockMinutes(shift.StartTime)
	if err != nil {
		return "", "", err
	}
	mid := start + int(WorkHours(shift)*60)/2
	end := start + int(WorkHours(shift)*60)

	switch session {
	case leave.SessionFirst:
		return formatClock(start), formatClock(mid), nil
	case leave.SessionSecond:
		return formatClock(mid), formatClock(end), nil
	default:
		return "", "", fmt.Errorf("unknown session %q", session)
	}
}

// HalfDayRemark is the annotation written on half-day attendance, e.g.
// "Half Day - Session 1 (09:30-14:00)".
func HalfDayRemark(shift leave.Shift, session string) string {
	from, to, err := SessionWindow(shift, session)
	if err != nil {
		return "Half Day - " + session
	}
	return fmt.Sprintf("Half Day - %s (%s-%s)", session, from, to)
}

func clockMinutes(hhmm string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q", hhmm)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid clock time %q", hhmm)
	}
	mins, err := strconv.Atoi(m)
	if err != nil || mins < 0 || mins > 59 {
		return 0, fmt.Errorf("invalid clock time %q", hhmm)
	}
	return hours*60 + mins, nil
}

func formatClock(minutes int) string {
	minutes %= 24 * 60
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
