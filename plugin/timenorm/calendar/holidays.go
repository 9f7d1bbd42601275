package calendar

import (
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/cache"
)

//go:embed data/statutory.yaml
var statutoryFS embed.FS

// Kind classifies how a holiday's date is obtained.
type Kind int

const (
	// Fixed holidays fall on the same month/day every year.
	Fixed Kind = iota
	// Moveable holidays are computed per year by an algorithm.
	Moveable
	// Lunar holidays are fixed in the Chinese lunar calendar.
	Lunar
)

// vacationTemplate derives the off-day span for years the override table does
// not cover: Start days relative to the holiday, Length days long.
type vacationTemplate struct {
	Start  int
	Length int
}

// Holiday describes one named holiday.
type Holiday struct {
	Name  string
	Kind  Kind
	Month time.Month
	Day   int

	compute   func(year int) (time.Time, bool)
	statutory *vacationTemplate
}

func fixed(name string, month time.Month, day int) *Holiday {
	return &Holiday{Name: name, Kind: Fixed, Month: month, Day: day}
}

func moveable(name string, compute func(int) (time.Time, bool)) *Holiday {
	return &Holiday{Name: name, Kind: Moveable, compute: compute}
}

func lunarFestival(name string, month, day int) *Holiday {
	return &Holiday{Name: name, Kind: Lunar, Month: time.Month(month), Day: day, compute: lunarDay(month, day)}
}

func (h *Holiday) withVacation(start, length int) *Holiday {
	h.statutory = &vacationTemplate{Start: start, Length: length}
	return h
}

// Statutory reports whether the holiday has an official off-day span.
func (h *Holiday) Statutory() bool {
	return h.statutory != nil
}

var holidays = func() map[string]*Holiday {
	list := []*Holiday{
		fixed("new_year", time.January, 1).withVacation(0, 1),
		fixed("valentines_day", time.February, 14),
		fixed("womens_day", time.March, 8),
		fixed("april_fools", time.April, 1),
		fixed("labor_day", time.May, 1).withVacation(0, 5),
		fixed("youth_day", time.May, 4),
		fixed("childrens_day", time.June, 1),
		fixed("independence_day", time.July, 4),
		fixed("teachers_day", time.September, 10),
		fixed("national_day", time.October, 1).withVacation(0, 7),
		fixed("halloween", time.October, 31),
		fixed("christmas_eve", time.December, 24),
		fixed("christmas", time.December, 25),
		fixed("new_years_eve", time.December, 31),

		moveable("easter", easterOffset(0)),
		moveable("good_friday", easterOffset(-2)),
		moveable("ash_wednesday", easterOffset(-46)),
		moveable("ascension_day", easterOffset(39)),
		moveable("pentecost", easterOffset(49)),
		moveable("mothers_day", nthWeekday(time.May, time.Sunday, 2)),
		moveable("fathers_day", nthWeekday(time.June, time.Sunday, 3)),
		moveable("thanksgiving", nthWeekday(time.November, time.Thursday, 4)),
		moveable("memorial_day", nthWeekday(time.May, time.Monday, -1)),
		moveable("us_labor_day", nthWeekday(time.September, time.Monday, 1)),
		moveable("mlk_day", nthWeekday(time.January, time.Monday, 3)),
		moveable("qingming", solarTerm(PureBrightness)).withVacation(0, 3),
		moveable("lunar_new_years_eve", lunarNewYearsEve),

		lunarFestival("spring_festival", 1, 1).withVacation(-1, 8),
		lunarFestival("lantern_festival", 1, 15),
		lunarFestival("dragon_boat", 5, 5).withVacation(0, 3),
		lunarFestival("qixi", 7, 7),
		lunarFestival("mid_autumn", 8, 15).withVacation(0, 3),
		lunarFestival("double_ninth", 9, 9),
		lunarFestival("laba", 12, 8),
	}
	m := make(map[string]*Holiday, len(list))
	for _, h := range list {
		m[h.Name] = h
	}
	return m
}()

// Lookup returns the holiday registered under its canonical name.
func Lookup(name string) (*Holiday, bool) {
	h, ok := holidays[name]
	return h, ok
}

type span struct {
	Start time.Time
	End   time.Time
}

type holidayKey struct {
	name string
	year int
}

// Calendar answers holiday questions for any year. It is safe for concurrent use.
type Calendar struct {
	overrides map[int]map[string]span
	memo      *cache.LRU[holidayKey, time.Time]
}

var (
	defaultOnce     sync.Once
	defaultCalendar *Calendar
)

// Default returns the process-wide calendar built from the embedded override table.
func Default() *Calendar {
	defaultOnce.Do(func() {
		raw, err := statutoryFS.ReadFile("data/statutory.yaml")
		if err != nil {
			panic(errors.Wrap(err, "read statutory holiday table"))
		}
		c, err := New(raw)
		if err != nil {
			panic(err)
		}
		defaultCalendar = c
	})
	return defaultCalendar
}

// New builds a calendar from a YAML override table keyed by year, then
// holiday name, each entry a ["YYYY-MM-DD", "YYYY-MM-DD"] span.
func New(overrideYAML []byte) (*Calendar, error) {
	var doc map[int]map[string][2]string
	if err := yaml.Unmarshal(overrideYAML, &doc); err != nil {
		return nil, errors.Wrap(err, "parse statutory holiday table")
	}
	c := &Calendar{
		overrides: make(map[int]map[string]span, len(doc)),
		memo:      cache.NewLRU[holidayKey, time.Time](512),
	}
	for year, entries := range doc {
		c.overrides[year] = make(map[string]span, len(entries))
		for name, pair := range entries {
			if _, ok := holidays[name]; !ok {
				return nil, errors.Errorf("statutory table %d: unknown holiday %q", year, name)
			}
			start, err := time.Parse(time.DateOnly, pair[0])
			if err != nil {
				return nil, errors.Wrapf(err, "statutory table %d/%s", year, name)
			}
			end, err := time.Parse(time.DateOnly, pair[1])
			if err != nil {
				return nil, errors.Wrapf(err, "statutory table %d/%s", year, name)
			}
			if end.Before(start) {
				return nil, errors.Errorf("statutory table %d/%s: end before start", year, name)
			}
			c.overrides[year][name] = span{Start: start, End: end}
		}
	}
	return c, nil
}

// Date returns the day the named holiday falls on in year.
func (c *Calendar) Date(name string, year int) (time.Time, error) {
	h, ok := holidays[name]
	if !ok {
		return time.Time{}, terrors.InvalidField("holiday", name)
	}
	if h.Kind == Fixed {
		return Date(year, h.Month, h.Day), nil
	}
	d := c.memo.GetOrCompute(holidayKey{name: name, year: year}, func() time.Time {
		d, ok := h.compute(year)
		if !ok {
			return time.Time{}
		}
		return d
	})
	if d.IsZero() {
		return time.Time{}, terrors.InvalidDate(fmt.Sprintf("%s has no date in %d", name, year))
	}
	return d, nil
}

// Vacation returns the official off-day span of a statutory holiday in year,
// from the override table when it covers the year and from the holiday's
// template otherwise.
func (c *Calendar) Vacation(name string, year int) (time.Time, time.Time, error) {
	h, ok := holidays[name]
	if !ok {
		return time.Time{}, time.Time{}, terrors.InvalidField("holiday", name)
	}
	if !h.Statutory() {
		return time.Time{}, time.Time{}, terrors.InsufficientFields(name + " has no statutory vacation")
	}
	if s, ok := c.overrides[year][name]; ok {
		return s.Start, s.End, nil
	}
	day, err := c.Date(name, year)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := day.AddDate(0, 0, h.statutory.Start)
	return start, start.AddDate(0, 0, h.statutory.Length-1), nil
}

// Covers reports whether the override table has an entry for year.
func (c *Calendar) Covers(year int) bool {
	_, ok := c.overrides[year]
	return ok
}
