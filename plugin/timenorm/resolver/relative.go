package resolver

import (
	"fmt"
	"time"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/calendar"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

// RelativeResolver resolves time_relative tokens: additive year/month/week/day
// offsets from the reference day, optionally narrowed by an absolute month,
// day, weekday or clock. The finest field present picks the granularity.
type RelativeResolver struct {
	env Env
}

// Resolve implements Resolver.
func (r *RelativeResolver) Resolve(tok token.Token, base time.Time) ([]Result, error) {
	offYear, hasOffYear, err := intField(tok, FieldOffsetYear)
	if err != nil {
		return nil, err
	}
	offMonth, hasOffMonth, err := intField(tok, FieldOffsetMonth)
	if err != nil {
		return nil, err
	}
	offWeek, hasOffWeek, err := intField(tok, FieldOffsetWeek)
	if err != nil {
		return nil, err
	}
	offDay, hasOffDay, err := intField(tok, FieldOffsetDay)
	if err != nil {
		return nil, err
	}
	wd, hasWeekday, err := weekdayField(tok, r.env.Locale)
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
	if !hasOffYear && !hasOffMonth && !hasOffWeek && !hasOffDay && !hasWeekday {
		return nil, terrors.InsufficientFields("time_relative carries no offset")
	}

	t := calendar.StartOfDay(base)
	grain := GrainDay
	if hasOffYear {
		t, grain = calendar.AddYears(t, offYear), GrainYear
	}
	if hasOffMonth {
		t, grain = calendar.AddMonths(t, offMonth), GrainMonth
	}
	if hasMonth {
		d := t.Day()
		if last := calendar.DaysIn(t.Year(), month); d > last {
			d = last
		}
		t, grain = calendar.Date(t.Year(), month, d), GrainMonth
	}
	if hasOffWeek {
		t, grain = t.AddDate(0, 0, 7*offWeek), GrainWeek
	}
	if hasWeekday {
		t, grain = calendar.StartOfWeek(t).AddDate(0, 0, calendar.MondayIndex(wd)), GrainDay
	}
	if hasOffDay {
		t, grain = t.AddDate(0, 0, offDay), GrainDay
	}
	if hasDay {
		if !calendar.ValidDate(t.Year(), t.Month(), day) {
			return nil, terrors.InvalidDate(fmt.Sprintf("%d-%02d-%02d", t.Year(), t.Month(), day))
		}
		t, grain = calendar.Date(t.Year(), t.Month(), day), GrainDay
	}

	if c.set || c.period != "" {
		res, err := resolveDay(t, c)
		if err != nil {
			return nil, err
		}
		return []Result{res}, nil
	}
	return []Result{Span(t, grain)}, nil
}
