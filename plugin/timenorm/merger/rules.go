package merger

import (
	"strconv"
	"strings"
	"time"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/calendar"
	"github.com/hrygo/timenorm/plugin/timenorm/resolver"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

// DefaultRules returns the merge-rule catalog, highest priority first.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "suppress_enumeration", Match: suppressEnumeration},
		{Name: "anchored_time", Match: anchoredTime},
		{Name: "short_hour_range", Match: shortHourRange},
		{Name: "deadline", Match: deadline},
		{Name: "duration_anchor", Match: durationAnchor},
		{Name: "holiday_delta", Match: holidayDelta},
		{Name: "range", Match: rangeRule},
		{Name: "compact_day_range", Match: compactDayRange},
		{Name: "qualified_range", Match: qualifiedRange},
	}
}

var dateTypes = map[string]bool{
	token.TypeUTC:               true,
	token.TypeRelative:          true,
	token.TypeWeekday:           true,
	token.TypeHoliday:           true,
	token.TypeCompositeRelative: true,
	token.TypeLunar:             true,
	token.TypePeriod:            true,
	token.TypeDelta:             true,
}

var dateKeys = []string{resolver.FieldYear, resolver.FieldMonth, resolver.FieldDay, resolver.FieldMonthPeriod, resolver.FieldEra}

// onlyKeys reports whether every attribute of tok is raw or one of keys.
func onlyKeys(tok token.Token, keys ...string) bool {
	for _, a := range tok.Attrs {
		if a.Key == token.AttrRaw {
			continue
		}
		found := false
		for _, k := range keys {
			if a.Key == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// hourOnly matches a bare "3" or "三点": a utc token with nothing but an hour.
func hourOnly(tok token.Token) bool {
	return tok.Type == token.TypeUTC && tok.Has(resolver.FieldHour) && onlyKeys(tok, resolver.FieldHour)
}

// bareClock matches a utc hour with optional minute and second, no period.
func bareClock(tok token.Token) bool {
	return tok.Type == token.TypeUTC && tok.Has(resolver.FieldHour) &&
		onlyKeys(tok, resolver.FieldHour, resolver.FieldMinute, resolver.FieldSecond)
}

// clockOnly matches a utc time of day without any date field.
func clockOnly(tok token.Token) bool {
	return tok.Type == token.TypeUTC && tok.HasAny(clockKeys...) && !tok.HasAny(dateKeys...)
}

func yearOnly(tok token.Token) bool {
	return tok.Type == token.TypeUTC && tok.Has(resolver.FieldYear) && onlyKeys(tok, resolver.FieldYear, resolver.FieldEra)
}

func isDate(tok token.Token, ok bool) bool {
	return ok && dateTypes[tok.Type]
}

func isDelta(tok token.Token, ok bool) bool {
	return ok && tok.Type == token.TypeDelta
}

func isHoliday(tok token.Token, ok bool) bool {
	return ok && tok.Type == token.TypeHoliday
}

// suppressEnumeration drops an hour-only match followed by an enumeration cue,
// as in "三点、" or "1)". The cue itself is consumed as plain text later.
func suppressEnumeration(s *Scan) ([]resolver.Result, int, bool) {
	tok, ok := s.Peek(0)
	if !ok || !hourOnly(tok) || !s.IsWord(1, s.Locale().Connectors.EnumerationCues) {
		return nil, 0, false
	}
	return nil, 1, true
}

// anchoredTime handles "at N", where a bare hour from 1 to 6 is read as
// afternoon, and "N past noon|midnight".
func anchoredTime(s *Scan) ([]resolver.Result, int, bool) {
	conn := s.Locale().Connectors
	if s.IsWord(0, conn.At) {
		tok, ok := s.Peek(1)
		if !ok || !bareClock(tok) || s.IsWord(2, conn.RangeTo) {
			return nil, 0, false
		}
		if h, err := strconv.Atoi(strings.TrimSpace(tok.Value(resolver.FieldHour))); err == nil && h >= 1 && h <= 6 {
			tok = tok.With(resolver.FieldHour, strconv.Itoa(h+12))
		}
		res, err := s.ResolveOne(s.Inherit(tok), s.Base())
		if err != nil {
			s.fail("", err)
			return nil, 0, false
		}
		return []resolver.Result{res}, 2, true
	}

	amount, ok := s.Peek(0)
	if !isDelta(amount, ok) || !s.IsWord(1, conn.Past) {
		return nil, 0, false
	}
	anchorTok, ok := s.Peek(2)
	if !ok || (anchorTok.Type != token.TypePeriod && anchorTok.Type != token.TypeUTC) {
		return nil, 0, false
	}
	name, ok := s.Locale().Period(anchorTok.Value(resolver.FieldPeriod))
	if !ok || (name != "noon" && name != "midnight") {
		return nil, 0, false
	}
	d, err := resolver.ReadDelta(amount.Without(resolver.FieldDirection), s.Locale())
	if err != nil {
		s.fail("", err)
		return nil, 0, false
	}
	offset, _ := strconv.Atoi(anchorTok.Value(resolver.FieldOffsetDay))
	at := calendar.StartOfDay(s.Base()).AddDate(0, 0, offset)
	if name == "noon" {
		at = at.Add(12 * time.Hour)
	}
	return []resolver.Result{resolver.Instant(d.From(at))}, 3, true
}

// shortHourRange handles "3-5pm": the right end's period applies to the left
// unless that would put the left end after the right, as in "11-1pm".
func shortHourRange(s *Scan) ([]resolver.Result, int, bool) {
	left, ok := s.Peek(0)
	if !ok || !bareClock(left) || !s.IsWord(1, s.Locale().Connectors.RangeTo) {
		return nil, 0, false
	}
	right, ok := s.Peek(2)
	if !ok || !clockOnly(right) || !right.Has(resolver.FieldHour) || !right.Has(resolver.FieldPeriod) {
		return nil, 0, false
	}

	end, err := s.ResolveOne(s.Inherit(right), s.Base())
	if err != nil {
		s.fail("", err)
		return nil, 0, false
	}
	start, err := s.ResolveOne(s.Inherit(left.With(resolver.FieldPeriod, right.Value(resolver.FieldPeriod))), s.Base())
	if err == nil && start.Start.After(end.Start) {
		start, err = s.ResolveOne(s.Inherit(left), s.Base())
	}
	if err != nil {
		s.fail("", err)
		return nil, 0, false
	}
	if start.Start.After(end.Start) {
		return nil, 0, false
	}
	return []resolver.Result{resolver.Interval(start.Start, end.Start)}, 3, true
}

// deadline handles "by X" (through the end of X), "before X" and "X之前"
// (up to X), all starting at the reference instant.
func deadline(s *Scan) ([]resolver.Result, int, bool) {
	conn := s.Locale().Connectors
	var (
		target    token.Token
		exclusive bool
		consumed  int
	)
	switch {
	case s.IsWord(0, conn.DeadlineInclusive), s.IsWord(0, conn.DeadlineExclusive):
		tok, ok := s.Peek(1)
		if !isDate(tok, ok) {
			return nil, 0, false
		}
		target, exclusive, consumed = tok, !s.IsWord(0, conn.DeadlineInclusive), 2
	default:
		tok, ok := s.Peek(0)
		if !isDate(tok, ok) || !s.IsWord(1, conn.DeadlineSuffix) {
			return nil, 0, false
		}
		// "春节前三天" is a holiday delta, not a deadline.
		if next, ok := s.Peek(2); isDelta(next, ok) {
			return nil, 0, false
		}
		target, exclusive, consumed = tok, true, 2
	}

	res, err := s.ResolveOne(s.Inherit(target), s.Base())
	if err != nil {
		s.fail("", err)
		return nil, 0, false
	}
	end := res.End
	if exclusive {
		end = res.Start.Add(-time.Second)
	}
	if end.Before(s.Base()) {
		return nil, 0, false
	}
	return []resolver.Result{resolver.Interval(s.Base(), end)}, consumed, true
}

// durationAnchor handles a length of time tied to a start: "for 3 days from
// Monday", "Monday for 3 days", "周一起3天", and the displacement "3 days
// from Monday".
func durationAnchor(s *Scan) ([]resolver.Result, int, bool) {
	conn := s.Locale().Connectors
	var (
		anchor, amount token.Token
		consumed       int
		displace       bool
	)
	t0, ok0 := s.Peek(0)
	t1, ok1 := s.Peek(1)
	t2, ok2 := s.Peek(2)
	t3, ok3 := s.Peek(3)
	switch {
	case s.IsWord(0, conn.DurationFor) && isDelta(t1, ok1) && s.IsWord(2, conn.DurationFrom) && isDate(t3, ok3):
		anchor, amount, consumed = t3, t1, 4
	case isDate(t0, ok0) && !isDelta(t0, ok0) && s.IsWord(1, conn.DurationFor) && isDelta(t2, ok2):
		anchor, amount, consumed = t0, t2, 3
	case isDate(t0, ok0) && !isDelta(t0, ok0) && s.IsWord(1, conn.DurationStartSuffix) && isDelta(t2, ok2):
		anchor, amount, consumed = t0, t2, 3
	case isDelta(t0, ok0) && !t0.Has(resolver.FieldDirection) && s.IsWord(1, conn.DurationFrom) &&
		isDate(t2, ok2) && !isDelta(t2, ok2) && !isHoliday(t2, ok2):
		anchor, amount, consumed, displace = t2, t0, 3, true
	default:
		return nil, 0, false
	}

	d, err := resolver.ReadDelta(amount.Without(resolver.FieldDirection), s.Locale())
	if err != nil {
		s.fail("", err)
		return nil, 0, false
	}
	res, err := s.ResolveOne(s.Inherit(anchor), s.Base())
	if err != nil {
		s.fail("", err)
		return nil, 0, false
	}
	if displace {
		return []resolver.Result{d.Apply(res.Start)}, consumed, true
	}

	start := res.Start
	if d.Fine {
		return []resolver.Result{resolver.Interval(start, d.From(start))}, consumed, true
	}
	last := d.From(calendar.StartOfDay(start)).AddDate(0, 0, -1)
	if last.Before(calendar.StartOfDay(start)) {
		return nil, 0, false
	}
	return []resolver.Result{resolver.DaySpan(start, last)}, consumed, true
}

// holidayDelta displaces a holiday: "春节后三天", "3 days before Christmas",
// or a holiday followed by a directed delta.
func holidayDelta(s *Scan) ([]resolver.Result, int, bool) {
	conn := s.Locale().Connectors
	direction := func(k int) (string, bool) {
		switch {
		case s.IsWord(k, conn.DeltaBefore):
			return "before", true
		case s.IsWord(k, conn.DeltaAfter):
			return "after", true
		}
		return "", false
	}

	var (
		holiday, amount token.Token
		dir             string
		consumed        int
	)
	t0, ok0 := s.Peek(0)
	t1, ok1 := s.Peek(1)
	t2, ok2 := s.Peek(2)
	switch {
	case isHoliday(t0, ok0) && isDelta(t1, ok1):
		holiday, amount, dir, consumed = t0, t1, t1.Value(resolver.FieldDirection), 2
	case isHoliday(t0, ok0) && isDelta(t2, ok2):
		d, ok := direction(1)
		if !ok {
			return nil, 0, false
		}
		holiday, amount, dir, consumed = t0, t2, d, 3
	case isDelta(t0, ok0) && isHoliday(t2, ok2):
		d, ok := direction(1)
		if !ok {
			return nil, 0, false
		}
		holiday, amount, dir, consumed = t2, t0, d, 3
	case isDelta(t0, ok0) && t0.Has(resolver.FieldDirection) && isHoliday(t1, ok1):
		holiday, amount, dir, consumed = t1, t0, t0.Value(resolver.FieldDirection), 2
	default:
		return nil, 0, false
	}

	d, err := resolver.ReadDelta(amount.With(resolver.FieldDirection, dir), s.Locale())
	if err != nil {
		s.fail("", err)
		return nil, 0, false
	}
	day, err := resolver.HolidayDate(holiday, s.Base(), s.Env())
	if err != nil {
		s.fail("", err)
		return nil, 0, false
	}
	return []resolver.Result{d.Apply(day)}, consumed, true
}

// era returns the era marker of a connector at offset k.
func (s *Scan) era(k int) string {
	conn := s.Locale().Connectors
	switch {
	case s.IsWord(k, conn.EraBC):
		return "bc"
	case s.IsWord(k, conn.EraAD):
		return "ad"
	}
	return ""
}

// endpoint reads a range end at offset k together with an era marker that
// directly follows a utc year.
func (s *Scan) endpoint(k int) (token.Token, int, bool) {
	tok, ok := s.Peek(k)
	if !isDate(tok, ok) {
		return token.Token{}, 0, false
	}
	if tok.Type == token.TypeUTC && tok.Has(resolver.FieldYear) && !tok.Has(resolver.FieldEra) {
		if e := s.era(k + 1); e != "" {
			return tok.With(resolver.FieldEra, e), 2, true
		}
	}
	return tok, 1, true
}

// trailing absorbs a year or era stated once after both range ends, as in
// "March 3 to April 5 2024" or "300 to 200 BC".
func (s *Scan) trailing(k int, left, right token.Token) (token.Token, token.Token, int) {
	origLeft, origRight := left, right
	changed := false
	apply := func(tok token.Token, key, value string, need func(token.Token) bool) token.Token {
		if tok.Type == token.TypeUTC && !tok.Has(key) && need(tok) {
			changed = true
			return tok.With(key, value)
		}
		return tok
	}
	hasDate := func(tok token.Token) bool { return tok.HasAny(resolver.FieldMonth, resolver.FieldDay) }
	hasYear := func(tok token.Token) bool { return tok.Has(resolver.FieldYear) }

	if tok, ok := s.Peek(k); ok && yearOnly(tok) {
		year := tok.Value(resolver.FieldYear)
		left = apply(left, resolver.FieldYear, year, hasDate)
		right = apply(right, resolver.FieldYear, year, hasDate)
		n := 1
		e := tok.Value(resolver.FieldEra)
		if e == "" {
			if e = s.era(k + 1); e != "" {
				n++
			}
		}
		if e != "" {
			left = apply(left, resolver.FieldEra, e, hasYear)
			right = apply(right, resolver.FieldEra, e, hasYear)
		}
		if changed {
			return left, right, n
		}
		return origLeft, origRight, 0
	}
	if e := s.era(k); e != "" {
		left = apply(left, resolver.FieldEra, e, hasYear)
		right = apply(right, resolver.FieldEra, e, hasYear)
		if changed {
			return left, right, 1
		}
	}
	return origLeft, origRight, 0
}

// span resolves both ends against at and joins them. A time-only right end
// after a dated left end falls on the left end's day. A time-only range that
// wraps past midnight ends on the next day; a month/day range that wraps past
// the year end ends in the next year.
func (s *Scan) span(left, right token.Token, timeOnly bool, at time.Time) (resolver.Result, error) {
	l, err := s.ResolveOne(left, at)
	if err != nil {
		return resolver.Result{}, err
	}
	rightAt := at
	anchored := clockOnly(right) && !clockOnly(left)
	if anchored {
		rightAt = calendar.StartOfDay(l.Start)
	}
	r, err := s.ResolveOne(right, rightAt)
	if err != nil {
		return resolver.Result{}, err
	}
	end := r.End
	if end.Before(l.Start) {
		switch {
		case timeOnly || anchored:
			end = end.AddDate(0, 0, 1)
		case right.Type == token.TypeUTC && !right.Has(resolver.FieldYear) && right.Has(resolver.FieldMonth):
			end = calendar.AddYears(end, 1)
		}
	}
	if end.Before(l.Start) {
		return resolver.Result{}, terrors.InvalidDate("range ends before it starts")
	}
	return resolver.Interval(l.Start, end), nil
}

// rangeParts locates "[from|between] A to|and B [year|era]" at the current
// position.
func (s *Scan) rangeParts() (left, right token.Token, consumed int, ok bool) {
	conn := s.Locale().Connectors
	at, toSet := 0, conn.RangeTo
	switch {
	case s.IsWord(0, conn.RangeFrom):
		at = 1
	case s.IsWord(0, conn.Between):
		at, toSet = 1, conn.BetweenAnd
	}
	left, lw, ok := s.endpoint(at)
	if !ok || !s.IsWord(at+lw, toSet) {
		return left, right, 0, false
	}
	right, rw, ok := s.endpoint(at + lw + 1)
	if !ok {
		return left, right, 0, false
	}
	consumed = at + lw + 1 + rw
	left, right, n := s.trailing(consumed, left, right)
	return left, right, consumed + n, true
}

// rangeRule composes "from A to B", "between A and B" and "A to B". The right
// end inherits what it leaves out from the left. A left end less specific
// than the right is left to compactDayRange.
func rangeRule(s *Scan) ([]resolver.Result, int, bool) {
	left, right, consumed, ok := s.rangeParts()
	if !ok || lessSpecific(left, right) {
		return nil, 0, false
	}
	timeOnly := clockOnly(left) && clockOnly(right)
	left = s.Inherit(left)
	right = inherit(right, left)
	res, err := s.span(left, right, timeOnly, s.Base())
	if err != nil {
		s.fail("", err)
		return nil, 0, false
	}
	return []resolver.Result{res}, consumed, true
}

// compactDayRange handles "13 to 15 July" and "3号到5月2号": the left end
// takes its coarser fields from the right.
func compactDayRange(s *Scan) ([]resolver.Result, int, bool) {
	left, right, consumed, ok := s.rangeParts()
	if !ok || !lessSpecific(left, right) {
		return nil, 0, false
	}
	right = s.Inherit(right)
	left = inherit(left, right)
	res, err := s.span(left, right, false, s.Base())
	if err != nil {
		s.fail("", err)
		return nil, 0, false
	}
	return []resolver.Result{res}, consumed, true
}

// qualifiedRange handles a date followed by a time-only range: "Thursday from
// 9:30 to 11:00", "明天上午9点到11点".
func qualifiedRange(s *Scan) ([]resolver.Result, int, bool) {
	conn := s.Locale().Connectors
	q, ok := s.Peek(0)
	if !isDate(q, ok) || q.Type == token.TypeDelta || clockOnly(q) {
		return nil, 0, false
	}
	at, toSet := 1, conn.RangeTo
	switch {
	case s.IsWord(1, conn.RangeFrom):
		at = 2
	case s.IsWord(1, conn.Between):
		at, toSet = 2, conn.BetweenAnd
	}
	left, ok := s.Peek(at)
	if !ok || !clockOnly(left) || !s.IsWord(at+1, toSet) {
		return nil, 0, false
	}
	right, ok := s.Peek(at + 2)
	if !ok || !clockOnly(right) {
		return nil, 0, false
	}

	day, err := s.ResolveOne(s.Inherit(q), s.Base())
	if err != nil {
		s.fail("", err)
		return nil, 0, false
	}
	res, err := s.span(left, right, true, calendar.StartOfDay(day.Start))
	if err != nil {
		s.fail("", err)
		return nil, 0, false
	}
	return []resolver.Result{res}, at + 3, true
}
