package merger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/timenorm/plugin/timenorm/resolver"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

// base is a Tuesday morning.
var base = time.Date(2025, time.January, 21, 8, 0, 0, 0, time.UTC)

func newMerger(t *testing.T, localeName string, opts ...Option) *Merger {
	t.Helper()
	env, err := resolver.DefaultEnv(localeName)
	require.NoError(t, err)
	return New(resolver.DefaultRegistry(env), env, opts...)
}

func merge(t *testing.T, m *Merger, tagged string) [][]string {
	t.Helper()
	tokens, err := token.Parse(tagged)
	require.NoError(t, err)
	out := [][]string{}
	for _, r := range m.Merge(tokens, base) {
		out = append(out, r.Values())
	}
	return out
}

func day(s string) []string {
	return []string{s + "T00:00:00Z", s + "T23:59:59Z"}
}

type mergeCase struct {
	name   string
	tagged string
	want   [][]string
}

func runMerge(t *testing.T, m *Merger, tests []mergeCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, merge(t, m, tt.tagged))
		})
	}
}

func TestMerge_Scenarios(t *testing.T) {
	runMerge(t, newMerger(t, "en"), []mergeCase{
		{
			name:   "tomorrow",
			tagged: `time_relative { offset_day: "1" }`,
			want:   [][]string{day("2025-01-22")},
		},
		{
			name:   "month day range",
			tagged: `time_utc { month: "4" day: "3" } time_range { value: "to" } time_utc { month: "5" day: "1" }`,
			want:   [][]string{{"2025-04-03T00:00:00Z", "2025-05-01T23:59:59Z"}},
		},
		{
			name:   "invalid hour",
			tagged: `time_utc { hour: "25" }`,
			want:   [][]string{},
		},
		{
			name:   "last day of february",
			tagged: `time_composite_relative { ordinal_position: "-1" unit: "day" month: "february" year: "2020" }`,
			want:   [][]string{day("2020-02-29")},
		},
	})
}

func TestMerge_Rules(t *testing.T) {
	runMerge(t, newMerger(t, "en"), []mergeCase{
		{
			name:   "enumeration suppressed",
			tagged: `time_utc { hour: 1 } char { value: ")" } time_relative { offset_day: 1 }`,
			want:   [][]string{day("2025-01-22")},
		},
		{
			name:   "at 3 means afternoon",
			tagged: `char { value: "at" } time_utc { hour: 3 }`,
			want:   [][]string{{"2025-01-21T15:00:00Z"}},
		},
		{
			name:   "at 9 stays morning",
			tagged: `char { value: "at" } time_utc { hour: 9 minute: 15 }`,
			want:   [][]string{{"2025-01-21T09:15:00Z"}},
		},
		{
			name:   "twenty past noon",
			tagged: `time_delta { minute: 20 } char { value: "past" } time_period { period: "noon" }`,
			want:   [][]string{{"2025-01-21T12:20:00Z"}},
		},
		{
			name:   "short pm range",
			tagged: `time_utc { hour: 3 } char { value: "-" } time_utc { hour: 5 period: "pm" }`,
			want:   [][]string{{"2025-01-21T15:00:00Z", "2025-01-21T17:00:00Z"}},
		},
		{
			name:   "short range across noon",
			tagged: `time_utc { hour: 11 } char { value: "-" } time_utc { hour: 1 period: "pm" }`,
			want:   [][]string{{"2025-01-21T11:00:00Z", "2025-01-21T13:00:00Z"}},
		},
		{
			name:   "by friday",
			tagged: `char { value: "by" } time_weekday { weekday: "friday" }`,
			want:   [][]string{{"2025-01-21T08:00:00Z", "2025-01-24T23:59:59Z"}},
		},
		{
			name:   "before friday",
			tagged: `char { value: "before" } time_weekday { weekday: "friday" }`,
			want:   [][]string{{"2025-01-21T08:00:00Z", "2025-01-23T23:59:59Z"}},
		},
		{
			name:   "deadline in the past declines",
			tagged: `char { value: "by" } time_relative { offset_day: -1 }`,
			want:   [][]string{day("2025-01-20")},
		},
		{
			name:   "for three days from next monday",
			tagged: `char { value: "for" } time_delta { day: 3 } char { value: "from" } time_weekday { weekday: "monday" offset_week: 1 }`,
			want:   [][]string{{"2025-01-27T00:00:00Z", "2025-01-29T23:59:59Z"}},
		},
		{
			name:   "next monday for three days",
			tagged: `time_weekday { weekday: "monday" offset_week: 1 } char { value: "for" } time_delta { day: 3 }`,
			want:   [][]string{{"2025-01-27T00:00:00Z", "2025-01-29T23:59:59Z"}},
		},
		{
			name:   "three days from next monday",
			tagged: `time_delta { day: 3 } char { value: "from" } time_weekday { weekday: "monday" offset_week: 1 }`,
			want:   [][]string{day("2025-01-30")},
		},
		{
			name:   "two days before christmas",
			tagged: `time_delta { day: 2 } char { value: "before" } time_holiday { holiday: "christmas" }`,
			want:   [][]string{day("2025-12-23")},
		},
		{
			name:   "three days after christmas",
			tagged: `time_delta { day: 3 } char { value: "after" } time_holiday { holiday: "christmas" }`,
			want:   [][]string{day("2025-12-28")},
		},
		{
			name:   "weekday range inherits week",
			tagged: `char { value: "from" } time_weekday { weekday: "monday" offset_week: 1 } char { value: "to" } time_weekday { weekday: "wednesday" }`,
			want:   [][]string{{"2025-01-27T00:00:00Z", "2025-01-29T23:59:59Z"}},
		},
		{
			name:   "between and",
			tagged: `time_between { value: "between" } time_utc { month: 3 day: 1 } time_between { value: "and" } time_utc { month: 3 day: 10 }`,
			want:   [][]string{{"2025-03-01T00:00:00Z", "2025-03-10T23:59:59Z"}},
		},
		{
			name:   "compact day range",
			tagged: `time_utc { day: 13 } char { value: "to" } time_utc { day: 15 month: "july" }`,
			want:   [][]string{{"2025-07-13T00:00:00Z", "2025-07-15T23:59:59Z"}},
		},
		{
			name:   "trailing year",
			tagged: `time_utc { month: 3 day: 3 } char { value: "to" } time_utc { month: 4 day: 5 } time_utc { year: 2024 }`,
			want:   [][]string{{"2024-03-03T00:00:00Z", "2024-04-05T23:59:59Z"}},
		},
		{
			name:   "overnight",
			tagged: `time_utc { hour: 22 } char { value: "to" } time_utc { hour: 2 }`,
			want:   [][]string{{"2025-01-21T22:00:00Z", "2025-01-22T02:00:00Z"}},
		},
		{
			name:   "across new year",
			tagged: `time_utc { month: 12 day: 20 } char { value: "to" } time_utc { month: 1 day: 5 }`,
			want:   [][]string{{"2025-12-20T00:00:00Z", "2026-01-05T23:59:59Z"}},
		},
		{
			name:   "clock range inherits date",
			tagged: `time_utc { month: 4 day: 3 hour: 9 } char { value: "to" } time_utc { hour: 17 }`,
			want:   [][]string{{"2025-04-03T09:00:00Z", "2025-04-03T17:00:00Z"}},
		},
		{
			name:   "clock end falls on the relative day",
			tagged: `time_relative { offset_day: "1" hour: "9" period: "am" } time_range { value: "to" } time_utc { hour: "5" period: "pm" }`,
			want:   [][]string{{"2025-01-22T09:00:00Z", "2025-01-22T17:00:00Z"}},
		},
		{
			name:   "clock end after weekday wraps past midnight",
			tagged: `time_weekday { weekday: "friday" hour: 22 } char { value: "to" } time_utc { hour: 2 }`,
			want:   [][]string{{"2025-01-24T22:00:00Z", "2025-01-25T02:00:00Z"}},
		},
		{
			name:   "thursday from 9:30 to 11",
			tagged: `time_weekday { weekday: "thursday" } char { value: "from" } time_utc { hour: 9 minute: 30 } char { value: "to" } time_utc { hour: 11 }`,
			want:   [][]string{{"2025-01-23T09:30:00Z", "2025-01-23T11:00:00Z"}},
		},
	})
}

func TestMerge_EraRange(t *testing.T) {
	tokens, err := token.Parse(`char { value: "from" } time_utc { year: 300 } char { value: "bc" } char { value: "to" } time_utc { year: 200 } char { value: "bc" }`)
	require.NoError(t, err)

	got := newMerger(t, "en").Merge(tokens, base)
	require.Len(t, got, 1)
	assert.Equal(t, -300, got[0].Start.Year())
	assert.Equal(t, -200, got[0].End.Year())
	assert.Empty(t, resolver.DefaultYearWindow.Guard(got))
}

func TestMerge_Chinese(t *testing.T) {
	runMerge(t, newMerger(t, "zh"), []mergeCase{
		{
			name:   "春节后三天",
			tagged: `time_holiday { holiday: "春节" } char { value: "后" } time_delta { day: 3 }`,
			want:   [][]string{day("2025-02-01")},
		},
		{
			name:   "春节之前",
			tagged: `time_holiday { holiday: "春节" } char { value: "之前" }`,
			want:   [][]string{{"2025-01-21T08:00:00Z", "2025-01-28T23:59:59Z"}},
		},
		{
			name:   "从4月3日到5月1日",
			tagged: `char { value: "从" } time_utc { month: 4 day: 3 } char { value: "到" } time_utc { month: 5 day: 1 }`,
			want:   [][]string{{"2025-04-03T00:00:00Z", "2025-05-01T23:59:59Z"}},
		},
		{
			name:   "三点、",
			tagged: `time_utc { hour: 3 } char { value: "、" }`,
			want:   [][]string{},
		},
	})
}

func TestMerge_AdjacencyInheritance(t *testing.T) {
	runMerge(t, newMerger(t, "en"), []mergeCase{
		{
			name:   "day inherits month",
			tagged: `time_utc { month: 4 day: 3 } char { value: "and" } time_utc { day: 5 }`,
			want:   [][]string{day("2025-04-03"), day("2025-04-05")},
		},
		{
			name:   "relative ignores absolute date",
			tagged: `time_utc { month: 4 day: 3 } time_relative { offset_day: 1 }`,
			want:   [][]string{day("2025-04-03"), day("2025-01-22")},
		},
		{
			name:   "relative inherits time of day",
			tagged: `time_relative { offset_day: 1 hour: 9 } char { value: "and" } time_relative { offset_day: 2 }`,
			want:   [][]string{{"2025-01-22T09:00:00Z"}, {"2025-01-23T09:00:00Z"}},
		},
		{
			name:   "bad token is isolated",
			tagged: `time_utc { hour: 25 } time_relative { offset_day: 1 }`,
			want:   [][]string{day("2025-01-22")},
		},
		{
			name:   "unknown type skipped",
			tagged: `time_future { eon: 1 } time_relative { offset_day: 1 }`,
			want:   [][]string{day("2025-01-22")},
		},
	})
}

func TestInherit(t *testing.T) {
	earlier := token.New(token.TypeUTC, "year", "2024", "month", "4", "day", "3", "hour", "9")

	got := inherit(token.New(token.TypeUTC, "day", "5"), earlier)
	assert.Equal(t, "2024", got.Value("year"))
	assert.Equal(t, "4", got.Value("month"))
	assert.False(t, got.Has("hour"))

	got = inherit(token.New(token.TypeUTC, "month", "5"), earlier)
	assert.Equal(t, "2024", got.Value("year"))
	assert.False(t, got.Has("day"))

	other := inherit(token.New(token.TypeRelative, "offset_day", "1"), earlier)
	assert.Equal(t, token.New(token.TypeRelative, "offset_day", "1"), other)

	rel := inherit(
		token.New(token.TypeRelative, "offset_day", "1"),
		token.New(token.TypeRelative, "offset_week", "1", "offset_day", "2", "hour", "8"),
	)
	assert.Equal(t, "1", rel.Value("offset_week"))
	assert.Equal(t, "1", rel.Value("offset_day"))
	assert.Equal(t, "8", rel.Value("hour"))
}

func TestMerge_RecoversFromPanickingRule(t *testing.T) {
	boom := Rule{Name: "boom", Match: func(*Scan) ([]resolver.Result, int, bool) { panic("boom") }}
	m := newMerger(t, "en", WithRules(append([]Rule{boom}, DefaultRules()...)))

	assert.Equal(t, [][]string{day("2025-01-22")}, merge(t, m, `time_relative { offset_day: 1 }`))
}

func TestMerge_Terminates(t *testing.T) {
	stuck := Rule{Name: "stuck", Match: func(*Scan) ([]resolver.Result, int, bool) { return nil, 0, true }}
	greedy := Rule{Name: "greedy", Match: func(s *Scan) ([]resolver.Result, int, bool) { return nil, 100, true }}

	tokens, err := token.Parse(`time_relative { offset_day: 1 } time_relative { offset_day: 2 } char { value: "x" }`)
	require.NoError(t, err)

	got := newMerger(t, "en", WithRules([]Rule{stuck})).Merge(tokens, base)
	assert.Len(t, got, 2)

	got = newMerger(t, "en", WithRules([]Rule{greedy})).Merge(tokens, base)
	assert.Empty(t, got)
}

func TestMerge_Deterministic(t *testing.T) {
	m := newMerger(t, "en")
	tagged := `char { value: "from" } time_weekday { weekday: "monday" offset_week: 1 } char { value: "to" } time_weekday { weekday: "wednesday" } time_recurring { unit: "day" hour: 9 }`
	first := merge(t, m, tagged)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, merge(t, m, tagged))
	}
}

func TestDefaultRules_Order(t *testing.T) {
	var names []string
	for _, r := range DefaultRules() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{
		"suppress_enumeration", "anchored_time", "short_hour_range", "deadline",
		"duration_anchor", "holiday_delta", "range", "compact_day_range", "qualified_range",
	}, names)
}
