package resolver

import (
	"time"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/calendar"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

type periodSpan struct {
	dayOffset int
	start     [3]int
	end       [3]int
}

// periods is the closed name → (day offset, start, end) table.
var periods = map[string]periodSpan{
	"dawn":              {0, [3]int{4, 0, 0}, [3]int{6, 59, 59}},
	"early_morning":     {0, [3]int{0, 0, 0}, [3]int{5, 59, 59}},
	"morning":           {0, [3]int{6, 0, 0}, [3]int{11, 59, 59}},
	"forenoon":          {0, [3]int{8, 0, 0}, [3]int{11, 59, 59}},
	"noon":              {0, [3]int{11, 0, 0}, [3]int{13, 59, 59}},
	"afternoon":         {0, [3]int{12, 0, 0}, [3]int{17, 59, 59}},
	"evening":           {0, [3]int{17, 0, 0}, [3]int{19, 59, 59}},
	"night":             {0, [3]int{18, 0, 0}, [3]int{23, 59, 59}},
	"midnight":          {0, [3]int{23, 0, 0}, [3]int{23, 59, 59}},
	"tonight":           {0, [3]int{18, 0, 0}, [3]int{23, 59, 59}},
	"last_night":        {-1, [3]int{18, 0, 0}, [3]int{23, 59, 59}},
	"tomorrow_morning":  {1, [3]int{6, 0, 0}, [3]int{11, 59, 59}},
	"tomorrow_evening":  {1, [3]int{18, 0, 0}, [3]int{23, 59, 59}},
	"yesterday_morning": {-1, [3]int{6, 0, 0}, [3]int{11, 59, 59}},
}

// PeriodOn returns the interval of the named period anchored on day,
// including the period's own day offset.
func PeriodOn(day time.Time, name string) (Result, error) {
	p, ok := periods[name]
	if !ok {
		return Result{}, terrors.InvalidField(FieldPeriod, name)
	}
	d := calendar.StartOfDay(day).AddDate(0, 0, p.dayOffset)
	at := func(hms [3]int) time.Time {
		return time.Date(d.Year(), d.Month(), d.Day(), hms[0], hms[1], hms[2], 0, time.UTC)
	}
	return Interval(at(p.start), at(p.end)), nil
}

// PeriodResolver resolves time_period tokens: periods of the day and seasons.
type PeriodResolver struct {
	env Env
}

// Resolve implements Resolver.
func (r *PeriodResolver) Resolve(tok token.Token, base time.Time) ([]Result, error) {
	if v, ok := tok.Get(FieldSeason); ok {
		return r.season(tok, v, base)
	}
	v, ok := tok.Get(FieldPeriod)
	if !ok {
		return nil, terrors.InsufficientFields("time_period needs period or season")
	}
	name, ok := r.env.Locale.Period(v)
	if !ok {
		return nil, terrors.InvalidField(FieldPeriod, v)
	}
	offset, _, err := intField(tok, FieldOffsetDay)
	if err != nil {
		return nil, err
	}
	res, err := PeriodOn(base.AddDate(0, 0, offset), name)
	if err != nil {
		return nil, err
	}
	return []Result{res}, nil
}

func (r *PeriodResolver) season(tok token.Token, v string, base time.Time) ([]Result, error) {
	name, ok := r.env.Locale.Season(v)
	if !ok {
		return nil, terrors.InvalidField(FieldSeason, v)
	}
	year, hasYear, err := yearField(tok)
	if err != nil {
		return nil, err
	}
	if !hasYear {
		offset, _, err := intField(tok, FieldOffsetYear)
		if err != nil {
			return nil, err
		}
		year = base.Year() + offset
	}
	start, end, ok := calendar.SeasonSpan(calendar.Season(name), year)
	if !ok {
		return nil, terrors.InvalidDate("no season data for year")
	}
	return []Result{DaySpan(start, end)}, nil
}
