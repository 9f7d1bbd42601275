package calendar

import "time"

// Term identifies one of the solar terms the resolvers need.
type Term int

const (
	VernalEquinox Term = iota
	PureBrightness
	SummerSolstice
	AutumnalEquinox
	WinterSolstice
)

type termCoefficients struct {
	month time.Month
	c20   float64 // 1901-2000
	c21   float64 // 2001-2100
}

var terms = map[Term]termCoefficients{
	VernalEquinox:   {time.March, 21.4155, 20.646},
	PureBrightness:  {time.April, 5.59, 4.81},
	SummerSolstice:  {time.June, 22.20, 21.37},
	AutumnalEquinox: {time.September, 23.822, 23.042},
	WinterSolstice:  {time.December, 22.60, 21.94},
}

// Known years where the closed form is off by one day.
var termCorrections = map[Term]map[int]int{
	VernalEquinox:   {2084: 1},
	SummerSolstice:  {1928: 1},
	AutumnalEquinox: {1942: 1},
	WinterSolstice:  {1918: -1, 2021: -1},
}

// SolarTerm returns the day the term falls on in year using the closed-form
// approximation day = [Y*D + C] - [Y/4], valid for 1901..2100.
func SolarTerm(term Term, year int) (time.Time, bool) {
	coef, ok := terms[term]
	if !ok || year < 1901 || year > 2100 {
		return time.Time{}, false
	}
	c, y := coef.c21, year-2000
	if year <= 2000 {
		c, y = coef.c20, year-1900
	}
	day := int(float64(y)*0.2422+c) - y/4
	day += termCorrections[term][year]
	return Date(year, coef.month, day), true
}

// Season is a quarter of the year bounded by equinoxes and solstices.
type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
	Winter Season = "winter"
)

// SeasonSpan returns the first and last day of season in year. Winter starts at
// the December solstice and ends the day before the next vernal equinox.
func SeasonSpan(season Season, year int) (time.Time, time.Time, bool) {
	var from, to Term
	toYear := year
	switch season {
	case Spring:
		from, to = VernalEquinox, SummerSolstice
	case Summer:
		from, to = SummerSolstice, AutumnalEquinox
	case Autumn:
		from, to = AutumnalEquinox, WinterSolstice
	case Winter:
		from, to = WinterSolstice, VernalEquinox
		toYear = year + 1
	default:
		return time.Time{}, time.Time{}, false
	}
	start, ok := SolarTerm(from, year)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	next, ok := SolarTerm(to, toYear)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, next.AddDate(0, 0, -1), true
}
