package resolver

import (
	"testing"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

func TestCompositeResolver(t *testing.T) {
	tok := func(kv ...string) token.Token { return token.New(token.TypeCompositeRelative, kv...) }

	runCases(t, newRegistry(t, "en"), base, []resolveCase{
		{name: "last day of february 2020", tok: tok("ordinal_position", "-1", "unit", "day", "month", "february", "year", "2020"),
			want: [][]string{day("2020-02-29")}},
		{name: "last day of february 2025", tok: tok("ordinal_position", "-1", "unit", "day", "month", "2", "year", "2025"),
			want: [][]string{day("2025-02-28")}},
		{name: "second sunday of may", tok: tok("ordinal_position", "2", "unit", "weekday", "weekday", "sunday", "month", "may", "year", "2025"),
			want: [][]string{day("2025-05-11")}},
		{name: "last friday of this month", tok: tok("ordinal_position", "-1", "unit", "weekday", "weekday", "friday"),
			want: [][]string{day("2025-01-31")}},
		{name: "second week of february", tok: tok("ordinal_position", "2", "unit", "week", "month", "2"),
			want: [][]string{{"2025-02-08T00:00:00Z", "2025-02-14T23:59:59Z"}}},
		{name: "last week of february", tok: tok("ordinal_position", "-1", "unit", "week", "month", "2"),
			want: [][]string{{"2025-02-22T00:00:00Z", "2025-02-28T23:59:59Z"}}},
		{name: "hundredth day of 2024", tok: tok("ordinal_position", "100", "unit", "day", "year", "2024"),
			want: [][]string{day("2024-04-09")}},
		{name: "second month of q2", tok: tok("ordinal_position", "2", "unit", "month", "quarter", "2", "year", "2025"),
			want: [][]string{{"2025-05-01T00:00:00Z", "2025-05-31T23:59:59Z"}}},
		{name: "last quarter", tok: tok("ordinal_position", "-1", "unit", "quarter"),
			want: [][]string{{"2025-10-01T00:00:00Z", "2025-12-31T23:59:59Z"}}},
		{name: "end of this month", tok: tok("position", "end", "unit", "month"),
			want: [][]string{{"2025-01-21T00:00:00Z", "2025-01-31T23:59:59Z"}}},
		{name: "beginning of next month", tok: tok("position", "beginning", "offset_month", "1"),
			want: [][]string{{"2025-02-01T00:00:00Z", "2025-02-10T23:59:59Z"}}},
		{name: "beginning of this week", tok: tok("position", "beginning", "unit", "week"),
			want: [][]string{{"2025-01-20T00:00:00Z", "2025-01-21T23:59:59Z"}}},
		{name: "end of this week", tok: tok("position", "end", "unit", "week"),
			want: [][]string{{"2025-01-24T00:00:00Z", "2025-01-26T23:59:59Z"}}},
		{name: "end of this quarter", tok: tok("position", "end", "unit", "quarter"),
			want: [][]string{{"2025-03-01T00:00:00Z", "2025-03-31T23:59:59Z"}}},
		{name: "middle of 2025", tok: tok("position", "middle", "year", "2025"),
			want: [][]string{{"2025-04-01T00:00:00Z", "2025-09-30T23:59:59Z"}}},
		{name: "end of next year", tok: tok("position", "end", "unit", "year", "offset_year", "1"),
			want: [][]string{{"2026-10-01T00:00:00Z", "2026-12-31T23:59:59Z"}}},
		{name: "third quarter", tok: tok("quarter", "3", "year", "2025"),
			want: [][]string{{"2025-07-01T00:00:00Z", "2025-09-30T23:59:59Z"}}},
		{name: "zeroth", tok: tok("ordinal_position", "0", "unit", "day"), code: terrors.ErrCodeInvalidField},
		{name: "thirtieth of february", tok: tok("ordinal_position", "30", "unit", "day", "month", "2"), code: terrors.ErrCodeInvalidDate},
		{name: "fifth friday of february", tok: tok("ordinal_position", "5", "unit", "weekday", "weekday", "friday", "month", "2", "year", "2025"), code: terrors.ErrCodeInvalidDate},
		{name: "weekday missing", tok: tok("ordinal_position", "1", "unit", "weekday"), code: terrors.ErrCodeInsufficientFields},
		{name: "bad position", tok: tok("position", "sideways"), code: terrors.ErrCodeInvalidField},
		{name: "nothing to select", tok: tok("unit", "day"), code: terrors.ErrCodeInsufficientFields},
	})
}
