package resolver

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	terrors "github.com/hrygo/timenorm/internal/errors"
)

func ts(s string) time.Time {
	t, err := time.Parse(Layout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseReference(t *testing.T) {
	for _, in := range []string{"2025-01-21T08:00:00Z", "2025-01-21T08:00:00", " 2025-01-21 08:00:00 "} {
		got, err := ParseReference(in)
		require.NoError(t, err, in)
		assert.Equal(t, base, got)
	}

	_, err := ParseReference("tomorrow")
	require.Error(t, err)
	assert.True(t, terrors.IsCode(err, terrors.ErrCodeInvalidArgument))
}

func TestResult_MarshalJSON(t *testing.T) {
	results := []Result{
		Instant(ts("2025-01-21T09:00:00Z")),
		Interval(ts("2025-01-22T00:00:00Z"), ts("2025-01-22T23:59:59Z")),
		Sequence([]Result{Instant(ts("2025-01-23T09:00:00Z")), Instant(ts("2025-01-24T09:00:00Z"))}),
	}
	b, err := json.Marshal(results)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		["2025-01-21T09:00:00Z"],
		["2025-01-22T00:00:00Z","2025-01-22T23:59:59Z"],
		[["2025-01-23T09:00:00Z"],["2025-01-24T09:00:00Z"]]
	]`, string(b))
}

func TestYearWindow_Guard(t *testing.T) {
	results := []Result{
		Instant(ts("1899-12-31T23:59:59Z")),
		Instant(ts("1900-01-01T00:00:00Z")),
		Interval(ts("2100-12-31T00:00:00Z"), ts("2101-01-01T00:00:00Z")),
		Interval(ts("2100-12-31T00:00:00Z"), ts("2100-12-31T23:59:59Z")),
		Sequence([]Result{Instant(ts("2100-06-01T00:00:00Z")), Instant(ts("2101-06-01T00:00:00Z"))}),
		Sequence([]Result{Instant(ts("2101-06-01T00:00:00Z"))}),
	}

	got := DefaultYearWindow.Guard(results)
	require.Len(t, got, 3)
	assert.Equal(t, "1900-01-01T00:00:00Z", got[0].Key())
	assert.Equal(t, "2100-12-31T00:00:00Z", got[1].Key())
	assert.Len(t, got[2].Items, 1)
	assert.Len(t, results[4].Items, 2, "input must not be modified")
}

func TestDedup(t *testing.T) {
	day1 := Interval(ts("2025-01-22T00:00:00Z"), ts("2025-01-22T23:59:59Z"))
	sameStart := Interval(ts("2025-01-22T00:00:00Z"), ts("2025-01-25T23:59:59Z"))
	instant := Instant(ts("2025-01-22T00:00:00Z"))
	seq := Sequence([]Result{instant})

	got := Dedup([]Result{day1, sameStart, instant, seq, seq})
	assert.Equal(t, []Result{day1, seq}, got)
	assert.Equal(t, got, Dedup(got))
	assert.Empty(t, Dedup(nil))
}
