package calendar

import "time"

// Easter calculates Easter Sunday for a Gregorian year using the anonymous
// computus (Meeus/Jones/Butcher).
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return Date(year, time.Month(month), day)
}

func easterOffset(days int) func(int) (time.Time, bool) {
	return func(year int) (time.Time, bool) {
		return Easter(year).AddDate(0, 0, days), true
	}
}

func nthWeekday(month time.Month, wd time.Weekday, n int) func(int) (time.Time, bool) {
	return func(year int) (time.Time, bool) {
		return NthWeekday(year, month, wd, n)
	}
}

func solarTerm(term Term) func(int) (time.Time, bool) {
	return func(year int) (time.Time, bool) {
		return SolarTerm(term, year)
	}
}
