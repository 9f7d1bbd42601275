// Package calendar provides the read-only calendar knowledge the resolvers
// consult: month arithmetic, weekday positions, solar terms, moveable feasts,
// lunar conversion and the statutory holiday table.
//
// All values are naive calendar timestamps expressed in time.UTC.
package calendar

import "time"

// Date builds a naive midnight timestamp.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ValidDate reports whether year/month/day names an existing calendar day.
func ValidDate(year int, month time.Month, day int) bool {
	if month < time.January || month > time.December || day < 1 {
		return false
	}
	return day <= DaysIn(year, month)
}

// AddMonths adds n calendar months to t, clamping the day-of-month to the
// target month's last day instead of overflowing into the following month.
func AddMonths(t time.Time, n int) time.Time {
	total := int(t.Month()) - 1 + n
	year := t.Year() + floorDiv(total, 12)
	month := time.Month(total - floorDiv(total, 12)*12 + 1)
	day := t.Day()
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// AddYears adds n years to t with the same clamping rule (Feb 29 → Feb 28).
func AddYears(t time.Time, n int) time.Time {
	return AddMonths(t, 12*n)
}

// StartOfDay truncates t to midnight.
func StartOfDay(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// EndOfDay returns the last second of t's day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}

// StartOfWeek returns the Monday of t's week.
func StartOfWeek(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, -MondayIndex(t.Weekday()))
}

// MondayIndex maps a weekday onto 0 (Monday) .. 6 (Sunday).
func MondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// NthWeekday returns the nth occurrence of wd in the month. Negative n counts
// from the end of the month (-1 is the last). ok is false when the month has
// no such occurrence.
func NthWeekday(year int, month time.Month, wd time.Weekday, n int) (time.Time, bool) {
	if n == 0 {
		return time.Time{}, false
	}
	if n > 0 {
		first := Date(year, month, 1)
		offset := (int(wd) - int(first.Weekday()) + 7) % 7
		day := 1 + offset + 7*(n-1)
		if day > DaysIn(year, month) {
			return time.Time{}, false
		}
		return Date(year, month, day), true
	}
	lastDay := DaysIn(year, month)
	last := Date(year, month, lastDay)
	offset := (int(last.Weekday()) - int(wd) + 7) % 7
	day := lastDay - offset - 7*(-n-1)
	if day < 1 {
		return time.Time{}, false
	}
	return Date(year, month, day), true
}

// QuarterOf returns the 1-based quarter containing month.
func QuarterOf(month time.Month) int {
	return (int(month)-1)/3 + 1
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
