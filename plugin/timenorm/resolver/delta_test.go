package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/locale"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

func TestDeltaResolver(t *testing.T) {
	runCases(t, newRegistry(t, "en"), base, []resolveCase{
		{name: "in three days", tok: token.New(token.TypeDelta, "day", "3"),
			want: [][]string{day("2025-01-24")}},
		{name: "two hours ago", tok: token.New(token.TypeDelta, "hour", "2", "direction", "ago"),
			want: [][]string{{"2025-01-21T06:00:00Z"}}},
		{name: "half a year", tok: token.New(token.TypeDelta, "year", "0.5", "direction", "after"),
			want: [][]string{day("2025-07-21")}},
		{name: "a day and a half", tok: token.New(token.TypeDelta, "day", "1.5"),
			want: [][]string{{"2025-01-22T20:00:00Z"}}},
		{name: "two weeks before", tok: token.New(token.TypeDelta, "week", "2", "direction", "before"),
			want: [][]string{day("2025-01-07")}},
		{name: "ninety minutes", tok: token.New(token.TypeDelta, "minute", "90", "direction", "+"),
			want: [][]string{{"2025-01-21T09:30:00Z"}}},
		{name: "fractional seconds truncate", tok: token.New(token.TypeDelta, "second", "1.9"),
			want: [][]string{{"2025-01-21T08:00:01Z"}}},
		{name: "no amount", tok: token.New(token.TypeDelta, "direction", "after"), code: terrors.ErrCodeInsufficientFields},
		{name: "bad direction", tok: token.New(token.TypeDelta, "day", "1", "direction", "sideways"), code: terrors.ErrCodeInvalidField},
		{name: "negative amount", tok: token.New(token.TypeDelta, "day", "-1"), code: terrors.ErrCodeInvalidField},
		{name: "not a number", tok: token.New(token.TypeDelta, "day", "three"), code: terrors.ErrCodeInvalidField},
	})
}

func TestDeltaResolver_Chinese(t *testing.T) {
	runCases(t, newRegistry(t, "zh"), base, []resolveCase{
		{name: "三天后", tok: token.New(token.TypeDelta, "day", "3", "direction", "后"),
			want: [][]string{day("2025-01-24")}},
		{name: "两个月前", tok: token.New(token.TypeDelta, "month", "2", "direction", "前"),
			want: [][]string{day("2024-11-21")}},
	})
}

func TestDelta_ClampsMonthEnd(t *testing.T) {
	d, err := ReadDelta(token.New(token.TypeDelta, "month", "1"), locale.MustGet("en"))
	require.NoError(t, err)
	got := d.Apply(time.Date(2025, time.January, 31, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, day("2025-02-28"), got.Values())

	back := d.Negate().From(time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2025-02-28", back.Format(time.DateOnly))
}

func TestReadDelta_Carry(t *testing.T) {
	d, err := ReadDelta(token.New(token.TypeDelta, "year", "1.25"), locale.MustGet("en"))
	require.NoError(t, err)
	assert.Equal(t, Delta{Years: 1, Months: 3}, d)

	d, err = ReadDelta(token.New(token.TypeDelta, "month", "1.5", "direction", "before"), locale.MustGet("en"))
	require.NoError(t, err)
	assert.Equal(t, Delta{Months: -1, Days: -15}, d)

	d, err = ReadDelta(token.New(token.TypeDelta, "hour", "0.25"), locale.MustGet("en"))
	require.NoError(t, err)
	assert.Equal(t, Delta{Clock: 15 * time.Minute, Fine: true}, d)
}
