package resolver

import (
	"math"
	"strings"
	"time"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/calendar"
	"github.com/hrygo/timenorm/plugin/timenorm/locale"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

// Delta is a signed calendar displacement after fractional carry.
type Delta struct {
	Years  int
	Months int
	Days   int
	Clock  time.Duration
	// Fine is set when the finest unit is hour, minute or second; the
	// displaced value is then an instant rather than a whole day.
	Fine bool
}

// DeltaResolver resolves time_delta tokens relative to the reference instant.
type DeltaResolver struct {
	env Env
}

// Resolve implements Resolver.
func (r *DeltaResolver) Resolve(tok token.Token, base time.Time) ([]Result, error) {
	d, err := ReadDelta(tok, r.env.Locale)
	if err != nil {
		return nil, err
	}
	return []Result{d.Apply(base)}, nil
}

var (
	beforeWords = []string{"before", "ago", "earlier", "prior", "-", "past", "前", "以前", "之前"}
	afterWords  = []string{"after", "later", "hence", "in", "+", "后", "以后", "之后", "过"}
)

// ReadDelta reads the unit amounts and direction of a time_delta token.
// Fractions carry into the next finer unit: a year is 12 months, a month
// 30 days, a week 7 days, a day 24 hours, an hour 60 minutes and a minute 60
// seconds. Fractional seconds are truncated.
func ReadDelta(tok token.Token, loc *locale.Locale) (Delta, error) {
	amounts := make(map[string]float64, 7)
	present := false
	for _, key := range []string{FieldYear, FieldMonth, FieldWeek, FieldDay, FieldHour, FieldMinute, FieldSecond} {
		f, ok, err := floatField(tok, key)
		if err != nil {
			return Delta{}, err
		}
		if ok {
			if f < 0 {
				return Delta{}, terrors.InvalidField(key, tok.Value(key))
			}
			amounts[key] = f
			present = true
		}
	}
	if !present {
		return Delta{}, terrors.InsufficientFields("time_delta carries no amount")
	}

	sign, err := deltaSign(tok.Value(FieldDirection), loc)
	if err != nil {
		return Delta{}, err
	}

	whole := func(f float64) (int, float64) {
		f = math.Round(f*1e6) / 1e6
		i := math.Trunc(f)
		return int(i), f - i
	}
	years, frac := whole(amounts[FieldYear])
	months, frac := whole(amounts[FieldMonth] + frac*12)
	days, frac := whole(amounts[FieldDay] + amounts[FieldWeek]*7 + frac*30)
	hours, frac := whole(amounts[FieldHour] + frac*24)
	minutes, frac := whole(amounts[FieldMinute] + frac*60)
	seconds, _ := whole(amounts[FieldSecond] + frac*60)

	_, explicitClock := amounts[FieldHour]
	if !explicitClock {
		_, explicitClock = amounts[FieldMinute]
	}
	if !explicitClock {
		_, explicitClock = amounts[FieldSecond]
	}
	clock := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second

	return Delta{
		Years:  sign * years,
		Months: sign * months,
		Days:   sign * days,
		Clock:  time.Duration(sign) * clock,
		Fine:   explicitClock || clock != 0,
	}, nil
}

func deltaSign(direction string, loc *locale.Locale) (int, error) {
	dir := strings.TrimSpace(direction)
	switch {
	case dir == "":
		return 1, nil
	case locale.Match(dir, loc.Connectors.DeltaBefore), locale.Match(dir, beforeWords):
		return -1, nil
	case locale.Match(dir, loc.Connectors.DeltaAfter), locale.Match(dir, afterWords):
		return 1, nil
	}
	return 0, terrors.InvalidField(FieldDirection, direction)
}

// Negate reverses the direction of d.
func (d Delta) Negate() Delta {
	return Delta{Years: -d.Years, Months: -d.Months, Days: -d.Days, Clock: -d.Clock, Fine: d.Fine}
}

// From displaces t by d. Year and month steps clamp to the end of the month.
func (d Delta) From(t time.Time) time.Time {
	t = calendar.AddYears(t, d.Years)
	t = calendar.AddMonths(t, d.Months)
	return t.AddDate(0, 0, d.Days).Add(d.Clock)
}

// Apply displaces anchor by d: an instant when the delta is clock-grained,
// otherwise the whole day it lands on.
func (d Delta) Apply(anchor time.Time) Result {
	t := d.From(anchor)
	if d.Fine {
		return Instant(t)
	}
	return DaySpan(t, t)
}
