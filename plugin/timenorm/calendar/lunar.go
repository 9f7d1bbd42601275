package calendar

import (
	"fmt"
	"time"

	lunar "github.com/6tail/lunar-go/calendar"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/cache"
)

type lunarKey struct {
	year, month, day int
	leap             bool
}

type lunarValue struct {
	date time.Time
	ok   bool
}

var lunarMemo = cache.NewLRU[lunarKey, lunarValue](1024)

// LunarToSolar converts a Chinese lunar date to its Gregorian day. Leap months
// are selected with leap=true. Dates that do not exist in the lunar year (a
// 30th day in a short month, a leap month the year lacks) are rejected.
func LunarToSolar(year, month, day int, leap bool) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || day > 30 {
		return time.Time{}, terrors.InvalidDate(fmt.Sprintf("lunar %d-%d-%d", year, month, day))
	}
	key := lunarKey{year: year, month: month, day: day, leap: leap}
	v := lunarMemo.GetOrCompute(key, func() lunarValue {
		d, ok := convertLunar(key)
		return lunarValue{date: d, ok: ok}
	})
	if !v.ok {
		return time.Time{}, terrors.InvalidDate(fmt.Sprintf("lunar %d-%d-%d (leap=%t)", year, month, day, leap))
	}
	return v.date, nil
}

// convertLunar round-trips through the solar date to reject days the lunar
// month does not have; the library panics on some out-of-range input.
func convertLunar(k lunarKey) (date time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			date, ok = time.Time{}, false
		}
	}()

	month := k.month
	if k.leap {
		month = -month
	}
	solar := lunar.NewLunarFromYmd(k.year, month, k.day).GetSolar()
	back := solar.GetLunar()
	if back.GetYear() != k.year || back.GetMonth() != month || back.GetDay() != k.day {
		return time.Time{}, false
	}
	return Date(solar.GetYear(), time.Month(solar.GetMonth()), solar.GetDay()), true
}

func lunarDay(month, day int) func(int) (time.Time, bool) {
	return func(year int) (time.Time, bool) {
		d, err := LunarToSolar(year, month, day, false)
		return d, err == nil
	}
}

// lunarNewYearsEve is the last day of the twelfth lunar month of the previous
// lunar year, i.e. the day before the Spring Festival of year.
func lunarNewYearsEve(year int) (time.Time, bool) {
	d, err := LunarToSolar(year, 1, 1, false)
	if err != nil {
		return time.Time{}, false
	}
	return d.AddDate(0, 0, -1), true
}

// LunarYearOf returns the Chinese lunar year that contains the Gregorian day t.
func LunarYearOf(t time.Time) int {
	return lunar.NewSolarFromYmd(t.Year(), int(t.Month()), t.Day()).GetLunar().GetYear()
}

// LunarMonthEnd returns the last day of a lunar month, which has 29 or 30 days.
func LunarMonthEnd(year, month int, leap bool) (time.Time, error) {
	if d, err := LunarToSolar(year, month, 30, leap); err == nil {
		return d, nil
	}
	return LunarToSolar(year, month, 29, leap)
}
