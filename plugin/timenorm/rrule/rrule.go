// Package rrule provides a bounded subset of iCalendar (RFC 5545) recurrence
// rules used to expand interval-stepped recurring expressions.
package rrule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hrygo/timenorm/plugin/timenorm/calendar"
)

// Frequency represents the recurrence frequency.
type Frequency string

const (
	Hourly  Frequency = "HOURLY"
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

// Weekday represents the day of week for recurrence.
type Weekday string

const (
	Sunday    Weekday = "SU"
	Monday    Weekday = "MO"
	Tuesday   Weekday = "TU"
	Wednesday Weekday = "WE"
	Thursday  Weekday = "TH"
	Friday    Weekday = "FR"
	Saturday  Weekday = "SA"
)

var weekdayCodes = map[time.Weekday]Weekday{
	time.Sunday:    Sunday,
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
}

// FromWeekday converts a time.Weekday to its RRULE code.
func FromWeekday(wd time.Weekday) Weekday {
	return weekdayCodes[wd]
}

// Rule represents a parsed recurrence rule.
type Rule struct {
	Frequency  Frequency // FREQ
	Interval   int       // INTERVAL (default 1)
	Count      int       // COUNT (number of occurrences)
	Until      time.Time // UNTIL (end date)
	ByDay      []Weekday // BYDAY
	ByMonthDay []int     // BYMONTHDAY
}

// Parse parses an RRULE string into a Rule struct.
// Example: "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE,FR;COUNT=10"
func Parse(rrule string) (*Rule, error) {
	rule := &Rule{Interval: 1}

	for _, part := range strings.Split(rrule, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])

		switch key {
		case "FREQ":
			rule.Frequency = Frequency(value)
		case "INTERVAL":
			if _, err := fmt.Sscanf(value, "%d", &rule.Interval); err != nil {
				return nil, fmt.Errorf("invalid INTERVAL %q", value)
			}
		case "COUNT":
			if _, err := fmt.Sscanf(value, "%d", &rule.Count); err != nil {
				return nil, fmt.Errorf("invalid COUNT %q", value)
			}
		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", value)
			if err != nil {
				return nil, fmt.Errorf("invalid UNTIL %q", value)
			}
			rule.Until = t
		case "BYDAY":
			for _, d := range strings.Split(value, ",") {
				if d = strings.TrimSpace(d); d != "" {
					rule.ByDay = append(rule.ByDay, Weekday(d))
				}
			}
		case "BYMONTHDAY":
			for _, d := range strings.Split(value, ",") {
				var n int
				if _, err := fmt.Sscanf(strings.TrimSpace(d), "%d", &n); err != nil || n < 1 || n > 31 {
					return nil, fmt.Errorf("invalid BYMONTHDAY %q", value)
				}
				rule.ByMonthDay = append(rule.ByMonthDay, n)
			}
		}
	}

	switch rule.Frequency {
	case Hourly, Daily, Weekly, Monthly, Yearly:
	case "":
		return nil, fmt.Errorf("missing required FREQ in RRULE")
	default:
		return nil, fmt.Errorf("unsupported FREQ %q", rule.Frequency)
	}
	if rule.Interval < 1 {
		rule.Interval = 1
	}
	sort.Ints(rule.ByMonthDay)
	return rule, nil
}

// String returns the RRULE string representation.
func (r *Rule) String() string {
	parts := []string{fmt.Sprintf("FREQ=%s", r.Frequency)}
	if r.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", r.Interval))
	}
	if r.Count > 0 {
		parts = append(parts, fmt.Sprintf("COUNT=%d", r.Count))
	}
	if !r.Until.IsZero() {
		parts = append(parts, fmt.Sprintf("UNTIL=%s", r.Until.Format("20060102T150405Z")))
	}
	if len(r.ByDay) > 0 {
		days := make([]string, len(r.ByDay))
		for i, d := range r.ByDay {
			days[i] = string(d)
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	if len(r.ByMonthDay) > 0 {
		days := make([]string, len(r.ByMonthDay))
		for i, d := range r.ByMonthDay {
			days[i] = fmt.Sprintf("%d", d)
		}
		parts = append(parts, "BYMONTHDAY="+strings.Join(days, ","))
	}
	return strings.Join(parts, ";")
}

// LastYear is the last year an occurrence may fall in; expansion stops there.
const LastYear = 9999

// horizon is how many units of each frequency fit in LastYear years. An
// interval step beyond it can never produce another occurrence.
var horizon = map[Frequency]int{
	Hourly:  LastYear * 366 * 24,
	Daily:   LastYear * 366,
	Weekly:  LastYear * 53,
	Monthly: LastYear * 12,
	Yearly:  LastYear,
}

// Generator generates occurrences from a recurrence rule.
type Generator struct {
	rule  *Rule
	start time.Time // first candidate
}

// NewGenerator creates a new occurrence generator.
func NewGenerator(rule *Rule, start time.Time) *Generator {
	return &Generator{rule: rule, start: start}
}

// All generates occurrences at or after start, at most limit of them.
// COUNT lowers the limit; UNTIL and LastYear stop the expansion early.
func (g *Generator) All(limit int) []time.Time {
	if g.rule.Count > 0 && g.rule.Count < limit {
		limit = g.rule.Count
	}
	if limit <= 0 {
		return nil
	}

	var occurrences []time.Time
	emit := func(t time.Time) bool {
		if t.Before(g.start) {
			return true
		}
		if t.Year() > LastYear {
			return false
		}
		if !g.rule.Until.IsZero() && t.After(g.rule.Until) {
			return false
		}
		occurrences = append(occurrences, t)
		return len(occurrences) < limit
	}

	switch g.rule.Frequency {
	case Weekly:
		if len(g.rule.ByDay) > 0 {
			g.weeklyByDay(emit)
			return occurrences
		}
	case Monthly:
		if len(g.rule.ByMonthDay) > 0 {
			g.monthlyByDay(emit)
			return occurrences
		}
	}

	for k := 0; k <= g.maxStep(); k++ {
		if !emit(g.step(k)) {
			break
		}
	}
	return occurrences
}

// maxStep is the largest k for which k*Interval stays within the horizon.
func (g *Generator) maxStep() int {
	return horizon[g.rule.Frequency] / g.rule.Interval
}

// step returns the kth occurrence of a rule without BY* constraints.
func (g *Generator) step(k int) time.Time {
	n := k * g.rule.Interval
	switch g.rule.Frequency {
	case Hourly:
		return g.start.AddDate(0, 0, n/24).Add(time.Duration(n%24) * time.Hour)
	case Weekly:
		return g.start.AddDate(0, 0, 7*n)
	case Monthly:
		return calendar.AddMonths(g.start, n)
	case Yearly:
		return calendar.AddYears(g.start, n)
	default:
		return g.start.AddDate(0, 0, n)
	}
}

// weeklyByDay jumps from active week to active week. The week holding the
// first matching day on or after start is active; so is every interval-th
// week after it.
func (g *Generator) weeklyByDay(emit func(time.Time) bool) {
	days := make(map[Weekday]bool, len(g.rule.ByDay))
	for _, d := range g.rule.ByDay {
		days[d] = true
	}
	var offsets []int
	for wd, code := range weekdayCodes {
		if days[code] {
			offsets = append(offsets, calendar.MondayIndex(wd))
		}
	}
	if len(offsets) == 0 {
		return
	}
	sort.Ints(offsets)

	var anchor time.Time
	for i := 0; i < 7; i++ {
		t := g.start.AddDate(0, 0, i)
		if days[FromWeekday(t.Weekday())] {
			anchor = t.AddDate(0, 0, -calendar.MondayIndex(t.Weekday()))
			break
		}
	}
	for k := 0; k <= g.maxStep(); k++ {
		week := anchor.AddDate(0, 0, 7*k*g.rule.Interval)
		for _, off := range offsets {
			if !emit(week.AddDate(0, 0, off)) {
				return
			}
		}
	}
}

// monthlyByDay visits every interval-th month and emits the listed days that
// exist in it; a 31st is skipped in shorter months.
func (g *Generator) monthlyByDay(emit func(time.Time) bool) {
	first := time.Date(g.start.Year(), g.start.Month(), 1, g.start.Hour(), g.start.Minute(), g.start.Second(), 0, time.UTC)
	for k := 0; k <= g.maxStep(); k++ {
		month := calendar.AddMonths(first, k*g.rule.Interval)
		for _, d := range g.rule.ByMonthDay {
			if !calendar.ValidDate(month.Year(), month.Month(), d) {
				continue
			}
			if !emit(month.AddDate(0, 0, d-1)) {
				return
			}
		}
	}
}
