package resolver

import (
	"fmt"
	"strings"
	"time"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/calendar"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

// Composite units.
const (
	UnitDay     = "day"
	UnitWeekday = "weekday"
	UnitWeek    = "week"
	UnitMonth   = "month"
	UnitQuarter = "quarter"
	UnitYear    = "year"
)

type position int

const (
	posBeginning position = iota
	posMiddle
	posEnd
)

// CompositeResolver resolves time_composite_relative tokens: ordinal
// selections ("the last day of February", "the 2nd Monday of May") and
// positions within a unit ("the end of this quarter").
type CompositeResolver struct {
	env Env
}

// anchor is the calendar context a composite token selects within.
type anchor struct {
	year       int
	month      time.Month
	hasMonth   bool
	quarter    int
	hasQuarter bool
	base       time.Time
}

// Resolve implements Resolver.
func (r *CompositeResolver) Resolve(tok token.Token, base time.Time) ([]Result, error) {
	a, err := r.anchor(tok, base)
	if err != nil {
		return nil, err
	}
	unit := strings.ToLower(strings.TrimSpace(tok.Value(FieldUnit)))

	var res Result
	switch {
	case tok.Has(FieldPosition):
		pos, err := parsePosition(tok.Value(FieldPosition))
		if err != nil {
			return nil, err
		}
		res, err = a.position(unit, pos)
		if err != nil {
			return nil, err
		}
	case tok.Has(FieldOrdinal):
		n, _, err := intField(tok, FieldOrdinal)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, terrors.InvalidField(FieldOrdinal, "0")
		}
		res, err = r.ordinal(tok, a, unit, n)
		if err != nil {
			return nil, err
		}
	case a.hasQuarter:
		res = quarterSpan(a.year, a.quarter)
	default:
		return nil, terrors.InsufficientFields("time_composite_relative needs ordinal_position, position or quarter")
	}
	return []Result{res}, nil
}

func (r *CompositeResolver) anchor(tok token.Token, base time.Time) (anchor, error) {
	a := anchor{base: base}
	year, hasYear, err := yearField(tok)
	if err != nil {
		return a, err
	}
	offYear, hasOffYear, err := intField(tok, FieldOffsetYear)
	if err != nil {
		return a, err
	}
	offMonth, hasOffMonth, err := intField(tok, FieldOffsetMonth)
	if err != nil {
		return a, err
	}
	month, hasMonth, err := monthField(tok, r.env.Locale)
	if err != nil {
		return a, err
	}
	quarter, hasQuarter, err := rangedField(tok, FieldQuarter, 1, 4)
	if err != nil {
		return a, err
	}

	switch {
	case hasYear:
		a.year = year
	default:
		a.year = base.Year() + offYear
	}
	switch {
	case hasMonth:
		a.month, a.hasMonth = month, true
	case hasOffMonth:
		t := calendar.AddMonths(calendar.Date(base.Year(), base.Month(), 1), offMonth)
		a.year, a.month, a.hasMonth = t.Year(), t.Month(), true
	case !hasYear && !hasOffYear && !hasQuarter:
		a.month = base.Month()
	}
	if hasQuarter {
		a.quarter, a.hasQuarter = quarter, true
	} else if a.month != 0 {
		a.quarter = calendar.QuarterOf(a.month)
	} else {
		a.quarter = calendar.QuarterOf(base.Month())
	}
	return a, nil
}

func parsePosition(v string) (position, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "beginning", "start", "early", "初", "头", "上旬":
		return posBeginning, nil
	case "middle", "mid", "中", "中旬":
		return posMiddle, nil
	case "end", "late", "末", "底", "尾", "下旬":
		return posEnd, nil
	}
	return 0, terrors.InvalidField(FieldPosition, v)
}

// position splits a unit into thirds: Mon-Tue/Wed-Thu/Fri-Sun for a week,
// days 1-10/11-20/21-end for a month, its first/second/third month for a
// quarter, and Q1/Q2-Q3/Q4 for a year.
func (a anchor) position(unit string, pos position) (Result, error) {
	if unit == "" {
		switch {
		case a.hasQuarter:
			unit = UnitQuarter
		case a.month != 0:
			unit = UnitMonth
		default:
			unit = UnitYear
		}
	}
	switch unit {
	case UnitWeek:
		monday := calendar.StartOfWeek(a.base)
		from, to := [3]int{0, 2, 4}[pos], [3]int{1, 3, 6}[pos]
		return DaySpan(monday.AddDate(0, 0, from), monday.AddDate(0, 0, to)), nil
	case UnitMonth:
		month := a.month
		if month == 0 {
			month = a.base.Month()
		}
		return MonthPeriod(a.year, month, [3]string{"early", "mid", "late"}[pos])
	case UnitQuarter:
		first := time.Month(3*(a.quarter-1) + 1)
		return Span(calendar.Date(a.year, first+time.Month(pos), 1), GrainMonth), nil
	case UnitYear:
		switch pos {
		case posBeginning:
			return quarterSpan(a.year, 1), nil
		case posMiddle:
			start := quarterSpan(a.year, 2)
			end := quarterSpan(a.year, 3)
			return Interval(start.Start, end.End), nil
		default:
			return quarterSpan(a.year, 4), nil
		}
	}
	return Result{}, terrors.InvalidField(FieldUnit, unit)
}

func (r *CompositeResolver) ordinal(tok token.Token, a anchor, unit string, n int) (Result, error) {
	switch unit {
	case UnitDay:
		if a.month == 0 {
			return nthDayOfYear(a.year, n)
		}
		last := calendar.DaysIn(a.year, a.month)
		d := n
		if n < 0 {
			d = last + n + 1
		}
		if d < 1 || d > last {
			return Result{}, terrors.InvalidDate(fmt.Sprintf("day %d of %d-%02d", n, a.year, a.month))
		}
		day := calendar.Date(a.year, a.month, d)
		return DaySpan(day, day), nil

	case UnitWeekday:
		wd, ok, err := weekdayField(tok, r.env.Locale)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, terrors.InsufficientFields("ordinal weekday needs weekday")
		}
		day, ok := calendar.NthWeekday(a.year, a.monthOrBase(), wd, n)
		if !ok {
			return Result{}, terrors.InvalidDate(fmt.Sprintf("weekday %d of %d-%02d", n, a.year, a.monthOrBase()))
		}
		return DaySpan(day, day), nil

	case UnitWeek:
		// Weeks of a month are 7-day blocks counted from the 1st, or from the
		// last day when n is negative.
		month := a.monthOrBase()
		last := calendar.DaysIn(a.year, month)
		var from, to int
		if n > 0 {
			from, to = 7*(n-1)+1, min(7*n, last)
		} else {
			to = last + 7*(n+1)
			from = max(to-6, 1)
		}
		if from > last || to < 1 {
			return Result{}, terrors.InvalidDate(fmt.Sprintf("week %d of %d-%02d", n, a.year, month))
		}
		return DaySpan(calendar.Date(a.year, month, from), calendar.Date(a.year, month, to)), nil

	case UnitMonth:
		lo, count := time.January, 12
		if a.hasQuarter {
			lo, count = time.Month(3*(a.quarter-1)+1), 3
		}
		k := n
		if n < 0 {
			k = count + n + 1
		}
		if k < 1 || k > count {
			return Result{}, terrors.InvalidDate(fmt.Sprintf("month %d", n))
		}
		return Span(calendar.Date(a.year, lo+time.Month(k-1), 1), GrainMonth), nil

	case UnitQuarter:
		k := n
		if n < 0 {
			k = 4 + n + 1
		}
		if k < 1 || k > 4 {
			return Result{}, terrors.InvalidDate(fmt.Sprintf("quarter %d", n))
		}
		return quarterSpan(a.year, k), nil
	}
	return Result{}, terrors.InvalidField(FieldUnit, unit)
}

func (a anchor) monthOrBase() time.Month {
	if a.month != 0 {
		return a.month
	}
	return a.base.Month()
}

func nthDayOfYear(year, n int) (Result, error) {
	total := 365
	if calendar.DaysIn(year, time.February) == 29 {
		total = 366
	}
	k := n
	if n < 0 {
		k = total + n + 1
	}
	if k < 1 || k > total {
		return Result{}, terrors.InvalidDate(fmt.Sprintf("day %d of %d", n, year))
	}
	day := calendar.Date(year, time.January, 1).AddDate(0, 0, k-1)
	return DaySpan(day, day), nil
}

// quarterSpan covers the three months of quarter q.
func quarterSpan(year, q int) Result {
	start := calendar.Date(year, time.Month(3*(q-1)+1), 1)
	end := calendar.AddMonths(start, 3).AddDate(0, 0, -1)
	return DaySpan(start, end)
}
