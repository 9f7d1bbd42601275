package resolver

import (
	"fmt"
	"strings"
	"time"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/calendar"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

// UTCResolver resolves absolute time_utc tokens. Any subset of the date and
// clock fields may be given; fields coarser than the ones present default
// from the reference instant, finer ones widen the result to a span.
type UTCResolver struct {
	env Env
}

// Resolve implements Resolver.
func (r *UTCResolver) Resolve(tok token.Token, base time.Time) ([]Result, error) {
	year, hasYear, err := yearField(tok)
	if err != nil {
		return nil, err
	}
	month, hasMonth, err := monthField(tok, r.env.Locale)
	if err != nil {
		return nil, err
	}
	day, hasDay, err := rangedField(tok, FieldDay, 1, 31)
	if err != nil {
		return nil, err
	}
	c, err := readClock(tok, r.env.Locale)
	if err != nil {
		return nil, err
	}
	monthPeriod, hasMonthPeriod := tok.Get(FieldMonthPeriod)

	if !hasYear && !hasMonth && !hasDay && !c.set && c.period == "" && !hasMonthPeriod {
		return nil, terrors.InsufficientFields("time_utc carries no date or time field")
	}

	if !hasYear {
		year = base.Year()
	}
	if !hasMonth {
		month = base.Month()
	}
	needDay := hasDay || c.set || (c.period != "" && !hasMonth && !hasYear)
	if needDay && !hasDay {
		day = base.Day()
	}
	if needDay && !calendar.ValidDate(year, month, day) {
		return nil, terrors.InvalidDate(fmt.Sprintf("%d-%02d-%02d", year, month, day))
	}

	var res Result
	switch {
	case needDay:
		res, err = resolveDay(calendar.Date(year, month, day), c)
	case hasMonthPeriod:
		res, err = MonthPeriod(year, month, monthPeriod)
	case hasMonth:
		res = Span(calendar.Date(year, month, 1), GrainMonth)
	default:
		res = Span(calendar.Date(year, time.January, 1), GrainYear)
	}
	if err != nil {
		return nil, err
	}
	return []Result{res}, nil
}

// MonthPeriod resolves early/mid/late month markers to days 1-10, 11-20 and
// 21 to the end of the month.
func MonthPeriod(year int, month time.Month, marker string) (Result, error) {
	var from, to int
	switch strings.ToLower(strings.TrimSpace(marker)) {
	case "early", "beginning", "start", "上旬", "初":
		from, to = 1, 10
	case "mid", "middle", "中旬", "中":
		from, to = 11, 20
	case "late", "end", "下旬", "末", "底":
		from, to = 21, calendar.DaysIn(year, month)
	default:
		return Result{}, terrors.InvalidField(FieldMonthPeriod, marker)
	}
	return DaySpan(calendar.Date(year, month, from), calendar.Date(year, month, to)), nil
}
