package resolver

import (
	"strconv"
	"strings"
	"time"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/calendar"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

var lunarMonthNames = map[string]int{
	"正月": 1, "一月": 1, "二月": 2, "三月": 3, "四月": 4, "五月": 5, "六月": 6,
	"七月": 7, "八月": 8, "九月": 9, "十月": 10, "冬月": 11, "十一月": 11, "腊月": 12, "十二月": 12,
}

// LunarResolver resolves time_lunar tokens to Gregorian values.
type LunarResolver struct {
	env Env
}

// Resolve implements Resolver.
func (r *LunarResolver) Resolve(tok token.Token, base time.Time) ([]Result, error) {
	year, hasYear, err := yearField(tok)
	if err != nil {
		return nil, err
	}
	if !hasYear {
		offset, _, err := intField(tok, FieldOffsetYear)
		if err != nil {
			return nil, err
		}
		year = calendar.LunarYearOf(base) + offset
	}
	leap := boolField(tok, FieldLeap) || strings.HasPrefix(strings.TrimSpace(tok.Value(FieldMonth)), "闰")

	month, hasMonth, err := lunarMonth(tok)
	if err != nil {
		return nil, err
	}
	day, hasDay, err := rangedField(tok, FieldDay, 1, 30)
	if err != nil {
		return nil, err
	}
	c, err := readClock(tok, r.env.Locale)
	if err != nil {
		return nil, err
	}

	switch {
	case !hasMonth && hasDay:
		return nil, terrors.InsufficientFields("lunar day without month")
	case !hasMonth:
		start, err := calendar.LunarToSolar(year, 1, 1, false)
		if err != nil {
			return nil, err
		}
		next, err := calendar.LunarToSolar(year+1, 1, 1, false)
		if err != nil {
			return nil, err
		}
		return []Result{DaySpan(start, next.AddDate(0, 0, -1))}, nil
	case !hasDay:
		start, err := calendar.LunarToSolar(year, month, 1, leap)
		if err != nil {
			return nil, err
		}
		end, err := calendar.LunarMonthEnd(year, month, leap)
		if err != nil {
			return nil, err
		}
		return []Result{DaySpan(start, end)}, nil
	}

	d, err := calendar.LunarToSolar(year, month, day, leap)
	if err != nil {
		return nil, err
	}
	res, err := resolveDay(d, c)
	if err != nil {
		return nil, err
	}
	return []Result{res}, nil
}

func lunarMonth(tok token.Token) (int, bool, error) {
	v, ok := tok.Get(FieldMonth)
	if !ok {
		return 0, false, nil
	}
	v = strings.TrimSpace(v)
	if m, ok := lunarMonthNames[strings.TrimPrefix(v, "闰")]; ok {
		return m, true, nil
	}
	m, err := strconv.Atoi(v)
	if err != nil || m < 1 || m > 12 {
		return 0, true, terrors.InvalidField(FieldMonth, v)
	}
	return m, true, nil
}
