package resolver

import (
	"math"
	"strconv"
	"strings"
	"time"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/calendar"
	"github.com/hrygo/timenorm/plugin/timenorm/locale"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

// Attribute keys of the v1 vocabulary.
const (
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldDay         = "day"
	FieldHour        = "hour"
	FieldMinute      = "minute"
	FieldSecond      = "second"
	FieldWeek        = "week"
	FieldPeriod      = "period"
	FieldMonthPeriod = "month_period"
	FieldEra         = "era"
	FieldWeekday     = "weekday"
	FieldSeason      = "season"
	FieldHoliday     = "holiday"
	FieldScope       = "scope"
	FieldDirection   = "direction"
	FieldLeap        = "leap"
	FieldOrdinal     = "ordinal_position"
	FieldUnit        = "unit"
	FieldQuarter     = "quarter"
	FieldPosition    = "position"
	FieldInterval    = "interval"
	FieldRRule       = "rrule"

	FieldOffsetYear  = "offset_year"
	FieldOffsetMonth = "offset_month"
	FieldOffsetWeek  = "offset_week"
	FieldOffsetDay   = "offset_day"
)

// DateFields are the absolute calendar-date attributes.
var DateFields = []string{FieldYear, FieldMonth, FieldDay}

// ClockFields are the time-of-day attributes.
var ClockFields = []string{FieldHour, FieldMinute, FieldSecond, FieldPeriod}

// OffsetFields are the relative attributes, coarsest first.
var OffsetFields = []string{FieldOffsetYear, FieldOffsetMonth, FieldOffsetWeek, FieldOffsetDay}

// intField reads an integer attribute. present is false when the key is absent.
func intField(tok token.Token, key string) (n int, present bool, err error) {
	v, ok := tok.Get(key)
	if !ok {
		return 0, false, nil
	}
	n, err = strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(v), "+"))
	if err != nil {
		return 0, true, terrors.InvalidField(key, v)
	}
	return n, true, nil
}

// rangedField reads an integer attribute that must lie in [lo, hi].
func rangedField(tok token.Token, key string, lo, hi int) (int, bool, error) {
	n, ok, err := intField(tok, key)
	if err != nil || !ok {
		return n, ok, err
	}
	if n < lo || n > hi {
		return 0, true, terrors.InvalidField(key, tok.Value(key))
	}
	return n, true, nil
}

// floatField reads a possibly fractional, non-negative-or-signed amount.
func floatField(tok token.Token, key string) (float64, bool, error) {
	v, ok := tok.Get(key)
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true, terrors.InvalidField(key, v)
	}
	return f, true, nil
}

func monthField(tok token.Token, loc *locale.Locale) (time.Month, bool, error) {
	v, ok := tok.Get(FieldMonth)
	if !ok {
		return 0, false, nil
	}
	m, ok := loc.Month(v)
	if !ok {
		return 0, true, terrors.InvalidField(FieldMonth, v)
	}
	return m, true, nil
}

func weekdayField(tok token.Token, loc *locale.Locale) (time.Weekday, bool, error) {
	v, ok := tok.Get(FieldWeekday)
	if !ok {
		return 0, false, nil
	}
	wd, ok := loc.Weekday(v)
	if !ok {
		return 0, true, terrors.InvalidField(FieldWeekday, v)
	}
	return wd, true, nil
}

func boolField(tok token.Token, key string) bool {
	switch strings.ToLower(tok.Value(key)) {
	case "true", "1", "yes", "闰":
		return true
	}
	return false
}

// yearField reads year honoring an era marker; BC years become negative and
// are later dropped by the year guard.
func yearField(tok token.Token) (int, bool, error) {
	y, ok, err := intField(tok, FieldYear)
	if err != nil || !ok {
		return y, ok, err
	}
	if IsBC(tok.Value(FieldEra)) {
		y = -y
	}
	return y, true, nil
}

// IsBC reports whether an era value names the years before the common era.
func IsBC(era string) bool {
	switch strings.ToLower(strings.TrimSpace(era)) {
	case "bc", "b.c.", "bce", "公元前":
		return true
	}
	return false
}

// Grain is the granularity a resolved value spans.
type Grain int

const (
	GrainYear Grain = iota
	GrainMonth
	GrainWeek
	GrainDay
	GrainInstant
)

// Span expands t to the full unit of grain.
func Span(t time.Time, g Grain) Result {
	switch g {
	case GrainYear:
		return Interval(calendar.Date(t.Year(), time.January, 1), calendar.EndOfDay(calendar.Date(t.Year(), time.December, 31)))
	case GrainMonth:
		start := calendar.Date(t.Year(), t.Month(), 1)
		return Interval(start, calendar.EndOfDay(calendar.Date(t.Year(), t.Month(), calendar.DaysIn(t.Year(), t.Month()))))
	case GrainWeek:
		start := calendar.StartOfWeek(t)
		return Interval(start, calendar.EndOfDay(start.AddDate(0, 0, 6)))
	case GrainDay:
		return DaySpan(t, t)
	}
	return Instant(t)
}

// DaySpan covers whole days from start's day through end's day.
func DaySpan(start, end time.Time) Result {
	return Interval(calendar.StartOfDay(start), calendar.EndOfDay(end))
}

// clock is a parsed time of day.
type clock struct {
	hour, minute, second int
	set                  bool
	nextDay              bool   // midnight closing the day, as in "12 at night"
	period               string // canonical period name, may be set without hour
}

var pmPeriods = map[string]bool{
	"afternoon": true, "evening": true, "night": true, "tonight": true,
	"tomorrow_evening": true, "last_night": true,
}

var amPeriods = map[string]bool{
	"morning": true, "forenoon": true, "early_morning": true, "dawn": true,
	"midnight": true, "tomorrow_morning": true, "yesterday_morning": true,
}

// nightPeriods read 12 o'clock as the midnight that ends the day.
var nightPeriods = map[string]bool{
	"evening": true, "night": true, "tonight": true,
	"tomorrow_evening": true, "last_night": true,
}

// readClock parses hour/minute/second/period. Values are validated before the
// period shifts the hour: 0-23 and 0-59, nothing is clamped.
func readClock(tok token.Token, loc *locale.Locale) (clock, error) {
	var c clock
	if v, ok := tok.Get(FieldPeriod); ok {
		p, ok := loc.Period(v)
		if !ok {
			return clock{}, terrors.InvalidField(FieldPeriod, v)
		}
		c.period = p
	}
	h, hasHour, err := rangedField(tok, FieldHour, 0, 23)
	if err != nil {
		return clock{}, err
	}
	m, hasMinute, err := rangedField(tok, FieldMinute, 0, 59)
	if err != nil {
		return clock{}, err
	}
	s, hasSecond, err := rangedField(tok, FieldSecond, 0, 59)
	if err != nil {
		return clock{}, err
	}
	if !hasHour && (hasMinute || hasSecond) {
		return clock{}, terrors.InsufficientFields("minute or second without hour")
	}
	if !hasHour {
		return c, nil
	}
	c.hour, c.nextDay = shiftHour(h, c.period)
	c.minute, c.second, c.set = m, s, true
	return c, nil
}

// shiftHour applies a period marker to a 12-hour clock value. nextDay is set
// when the hour is the midnight after the period's day.
func shiftHour(h int, period string) (hour int, nextDay bool) {
	switch {
	case nightPeriods[period] && h == 12:
		return 0, true
	case pmPeriods[period] && h < 12:
		return h + 12, false
	case period == "noon" && h < 6:
		return h + 12, false
	case amPeriods[period] && h == 12:
		return 0, false
	}
	return h, false
}

func (c clock) on(day time.Time) time.Time {
	t := time.Date(day.Year(), day.Month(), day.Day(), c.hour, c.minute, c.second, 0, time.UTC)
	if c.nextDay {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// resolveDay turns a resolved day plus an optional clock into a result: an
// instant when an hour is set, the period's interval when only a period is
// given, otherwise the whole day.
func resolveDay(day time.Time, c clock) (Result, error) {
	if c.set {
		return Instant(c.on(day)), nil
	}
	if c.period != "" {
		return PeriodOn(day, c.period)
	}
	return DaySpan(day, day), nil
}
