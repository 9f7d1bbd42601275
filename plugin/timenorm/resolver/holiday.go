package resolver

import (
	"strings"
	"time"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

// ScopeVacation asks for a holiday's official off-day span instead of its day.
const ScopeVacation = "vacation"

// HolidayResolver resolves time_holiday tokens through the locale alias table
// and the holiday calendar.
type HolidayResolver struct {
	env Env
}

// Resolve implements Resolver.
func (r *HolidayResolver) Resolve(tok token.Token, base time.Time) ([]Result, error) {
	name, year, err := r.lookup(tok, base)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(tok.Value(FieldScope), ScopeVacation) {
		start, end, err := r.env.Calendar.Vacation(name, year)
		if err != nil {
			return nil, err
		}
		return []Result{DaySpan(start, end)}, nil
	}

	day, err := r.env.Calendar.Date(name, year)
	if err != nil {
		return nil, err
	}
	c, err := readClock(tok, r.env.Locale)
	if err != nil {
		return nil, err
	}
	res, err := resolveDay(day, c)
	if err != nil {
		return nil, err
	}
	return []Result{res}, nil
}

// HolidayDate returns the day a time_holiday token names, ignoring scope and clock.
func HolidayDate(tok token.Token, base time.Time, env Env) (time.Time, error) {
	r := HolidayResolver{env: env}
	name, year, err := r.lookup(tok, base)
	if err != nil {
		return time.Time{}, err
	}
	return env.Calendar.Date(name, year)
}

func (r *HolidayResolver) lookup(tok token.Token, base time.Time) (string, int, error) {
	v, ok := tok.Get(FieldHoliday)
	if !ok {
		return "", 0, terrors.InsufficientFields("time_holiday needs holiday")
	}
	name, ok := r.env.Locale.Holiday(v)
	if !ok {
		return "", 0, terrors.InvalidField(FieldHoliday, v)
	}
	year, hasYear, err := yearField(tok)
	if err != nil {
		return "", 0, err
	}
	if !hasYear {
		offset, _, err := intField(tok, FieldOffsetYear)
		if err != nil {
			return "", 0, err
		}
		year = base.Year() + offset
	}
	return name, year, nil
}
