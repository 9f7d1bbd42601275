package resolver

import (
	"time"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/calendar"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

// WeekdayResolver resolves time_weekday tokens. Weeks start on Monday and
// offset_week picks the week: 0 this week, 1 next week, -1 last week.
type WeekdayResolver struct {
	env Env
}

// Resolve implements Resolver.
func (r *WeekdayResolver) Resolve(tok token.Token, base time.Time) ([]Result, error) {
	day, err := WeekdayDate(tok, base, r.env)
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

// WeekdayDate returns the day a time_weekday token names.
func WeekdayDate(tok token.Token, base time.Time, env Env) (time.Time, error) {
	wd, ok, err := weekdayField(tok, env.Locale)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, terrors.InsufficientFields("time_weekday needs weekday")
	}
	offWeek, _, err := intField(tok, FieldOffsetWeek)
	if err != nil {
		return time.Time{}, err
	}
	monday := calendar.StartOfWeek(base).AddDate(0, 0, 7*offWeek)
	return monday.AddDate(0, 0, calendar.MondayIndex(wd)), nil
}
