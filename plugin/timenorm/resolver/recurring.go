package resolver

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/calendar"
	"github.com/hrygo/timenorm/plugin/timenorm/rrule"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

// Recurring units.
const (
	UnitHour    = "hour"
	UnitWorkday = "workday"
)

// RecurringCaps bounds how many future occurrences a recurring token expands to.
type RecurringCaps struct {
	Hour    int `yaml:"hour"`
	Day     int `yaml:"day"`
	Workday int `yaml:"workday"`
	Week    int `yaml:"week"`
	Month   int `yaml:"month"`
	Year    int `yaml:"year"`
}

// DefaultRecurringCaps is one day of hours, a month of days, a year of weeks,
// three years of months and a decade of years.
var DefaultRecurringCaps = RecurringCaps{Hour: 24, Day: 30, Workday: 30, Week: 52, Month: 36, Year: 10}

// For returns the cap for unit; unknown units get the day cap.
func (c RecurringCaps) For(unit string) int {
	switch unit {
	case UnitHour:
		return c.Hour
	case UnitWorkday:
		return c.Workday
	case UnitWeek:
		return c.Week
	case UnitMonth:
		return c.Month
	case UnitYear:
		return c.Year
	}
	return c.Day
}

// RecurringResolver expands time_recurring tokens into a bounded sequence of
// occurrences after the reference instant. Plain patterns (every day at 9,
// every Monday and Friday) are expanded by a cron expression; interval-stepped
// ones (every 2 weeks) and explicit rrule attributes by the rrule generator.
type RecurringResolver struct {
	env Env
}

// pattern is the normalized recurrence a token describes.
type pattern struct {
	unit     string
	interval int
	weekdays []time.Weekday
	day      int
	month    time.Month
	minute   int
	clock    clock
}

// Resolve implements Resolver.
func (r *RecurringResolver) Resolve(tok token.Token, base time.Time) ([]Result, error) {
	if v, ok := tok.Get(FieldRRule); ok {
		return r.fromRRule(tok, v, base)
	}
	p, err := r.pattern(tok, base)
	if err != nil {
		return nil, err
	}
	limit := r.env.Caps.For(p.unit)
	if limit <= 0 {
		return nil, nil
	}

	var times []time.Time
	switch {
	case p.interval == 1:
		times, err = p.cron(base, limit)
	case p.unit == UnitWorkday:
		times = p.everyNthWorkday(base, limit)
	default:
		times = rrule.NewGenerator(p.rule(), p.first(base)).All(limit)
	}
	if err != nil {
		return nil, err
	}
	return []Result{p.sequence(times)}, nil
}

func (r *RecurringResolver) pattern(tok token.Token, base time.Time) (pattern, error) {
	p := pattern{unit: strings.ToLower(strings.TrimSpace(tok.Value(FieldUnit)))}
	switch p.unit {
	case UnitHour, UnitDay, UnitWorkday, UnitWeek, UnitMonth, UnitYear:
	case "":
		return p, terrors.InsufficientFields("time_recurring needs unit")
	default:
		return p, terrors.InvalidField(FieldUnit, p.unit)
	}

	interval, ok, err := intField(tok, FieldInterval)
	if err != nil {
		return p, err
	}
	if !ok {
		interval = 1
	}
	if interval < 1 {
		return p, terrors.InvalidField(FieldInterval, tok.Value(FieldInterval))
	}
	p.interval = interval

	if p.unit == UnitHour {
		if p.minute, _, err = rangedField(tok, FieldMinute, 0, 59); err != nil {
			return p, err
		}
	} else if p.clock, err = readClock(tok, r.env.Locale); err != nil {
		return p, err
	}

	if p.weekdays, err = r.weekdays(tok); err != nil {
		return p, err
	}
	if len(p.weekdays) == 0 {
		p.weekdays = []time.Weekday{base.Weekday()}
	}
	day, hasDay, err := rangedField(tok, FieldDay, 1, 31)
	if err != nil {
		return p, err
	}
	if !hasDay {
		day = base.Day()
	}
	p.day = day
	month, hasMonth, err := monthField(tok, r.env.Locale)
	if err != nil {
		return p, err
	}
	if !hasMonth {
		month = base.Month()
	}
	p.month = month
	if p.unit == UnitYear && !calendar.ValidDate(2024, p.month, p.day) {
		return p, terrors.InvalidDate(fmt.Sprintf("%02d-%02d", p.month, p.day))
	}
	return p, nil
}

func (r *RecurringResolver) weekdays(tok token.Token) ([]time.Weekday, error) {
	v, ok := tok.Get(FieldWeekday)
	if !ok {
		return nil, nil
	}
	parts := strings.FieldsFunc(v, func(c rune) bool {
		return c == ',' || c == '、' || c == ' ' || c == '/'
	})
	seen := make(map[time.Weekday]bool, len(parts))
	var out []time.Weekday
	for _, part := range parts {
		wd, ok := r.env.Locale.Weekday(part)
		if !ok {
			return nil, terrors.InvalidField(FieldWeekday, v)
		}
		if !seen[wd] {
			seen[wd] = true
			out = append(out, wd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return calendar.MondayIndex(out[i]) < calendar.MondayIndex(out[j]) })
	return out, nil
}

// cronSpec renders the pattern as a five-field cron expression.
func (p pattern) cronSpec() string {
	h, m := p.clock.hour, p.clock.minute
	switch p.unit {
	case UnitHour:
		return fmt.Sprintf("%d * * * *", p.minute)
	case UnitWorkday:
		return fmt.Sprintf("%d %d * * 1-5", m, h)
	case UnitWeek:
		days := make([]string, len(p.weekdays))
		for i, wd := range p.weekdays {
			days[i] = strconv.Itoa(int(wd))
		}
		return fmt.Sprintf("%d %d * * %s", m, h, strings.Join(days, ","))
	case UnitMonth:
		return fmt.Sprintf("%d %d %d * *", m, h, p.day)
	case UnitYear:
		return fmt.Sprintf("%d %d %d %d *", m, h, p.day, int(p.month))
	}
	return fmt.Sprintf("%d %d * * *", m, h)
}

// from is the instant occurrences must follow. Without a clock the
// reference day itself still counts.
func (p pattern) from(base time.Time) time.Time {
	if p.unit == UnitHour || p.clock.set {
		return base
	}
	return calendar.StartOfDay(base).Add(-time.Second)
}

func (p pattern) cron(base time.Time, limit int) ([]time.Time, error) {
	expr, err := cronexpr.Parse(p.cronSpec())
	if err != nil {
		return nil, terrors.Wrap(err, terrors.ErrCodeInvalidField, "recurring pattern")
	}
	return expr.NextN(p.from(base), uint(limit)), nil
}

// rule is the rrule equivalent of an interval-stepped pattern.
func (p pattern) rule() *rrule.Rule {
	rule := &rrule.Rule{Interval: p.interval}
	switch p.unit {
	case UnitHour:
		rule.Frequency = rrule.Hourly
	case UnitWeek:
		rule.Frequency = rrule.Weekly
		for _, wd := range p.weekdays {
			rule.ByDay = append(rule.ByDay, rrule.FromWeekday(wd))
		}
	case UnitMonth:
		rule.Frequency = rrule.Monthly
		rule.ByMonthDay = []int{p.day}
	case UnitYear:
		rule.Frequency = rrule.Yearly
	default:
		rule.Frequency = rrule.Daily
	}
	return rule
}

// first is the first candidate occurrence; it anchors the interval phase.
func (p pattern) first(base time.Time) time.Time {
	from := p.from(base)
	var t time.Time
	switch p.unit {
	case UnitHour:
		t = base.Truncate(time.Hour).Add(time.Duration(p.minute) * time.Minute)
		if !t.After(from) {
			t = t.Add(time.Hour)
		}
		return t
	case UnitYear:
		t = p.clock.on(calendar.Date(base.Year(), p.month, min(p.day, calendar.DaysIn(base.Year(), p.month))))
		if !t.After(from) {
			t = calendar.AddYears(t, 1)
		}
		return t
	}
	t = p.clock.on(base)
	if !t.After(from) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// maxWorkdayInterval is about LastYear years of workdays; a longer step
// cannot land on another occurrence.
const maxWorkdayInterval = 262 * rrule.LastYear

// everyNthWorkday starts at the first Monday-Friday day after base and keeps
// every interval-th one.
func (p pattern) everyNthWorkday(base time.Time, limit int) []time.Time {
	var out []time.Time
	t := nextWorkday(p.first(base))
	for len(out) < limit && t.Year() <= rrule.LastYear {
		out = append(out, t)
		if p.interval > maxWorkdayInterval {
			break
		}
		t = addWorkdays(t, p.interval)
	}
	return out
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

func nextWorkday(t time.Time) time.Time {
	for isWeekend(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// addWorkdays moves n Monday-Friday days forward from a workday.
func addWorkdays(t time.Time, n int) time.Time {
	t = t.AddDate(0, 0, 7*(n/5))
	for rem := n % 5; rem > 0; {
		t = t.AddDate(0, 0, 1)
		if !isWeekend(t) {
			rem--
		}
	}
	return t
}

func (p pattern) sequence(times []time.Time) Result {
	items := make([]Result, 0, len(times))
	for _, t := range times {
		if p.unit == UnitHour || p.clock.set {
			items = append(items, Instant(t))
		} else {
			items = append(items, DaySpan(t, t))
		}
	}
	return Sequence(items)
}

func (r *RecurringResolver) fromRRule(tok token.Token, v string, base time.Time) ([]Result, error) {
	rule, err := rrule.Parse(v)
	if err != nil {
		return nil, terrors.Wrap(err, terrors.ErrCodeInvalidField, "rrule")
	}
	c, err := readClock(tok, r.env.Locale)
	if err != nil {
		return nil, err
	}
	unit := map[rrule.Frequency]string{
		rrule.Hourly: UnitHour, rrule.Daily: UnitDay, rrule.Weekly: UnitWeek,
		rrule.Monthly: UnitMonth, rrule.Yearly: UnitYear,
	}[rule.Frequency]
	p := pattern{unit: unit, interval: rule.Interval, clock: c, minute: base.Minute(), month: base.Month(), day: base.Day()}
	if unit == UnitHour {
		p.minute = c.minute
	}
	times := rrule.NewGenerator(rule, p.first(base)).All(r.env.Caps.For(unit))
	return []Result{p.sequence(times)}, nil
}
