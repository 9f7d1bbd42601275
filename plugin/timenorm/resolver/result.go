package resolver

import (
	"encoding/json"
	"strings"
	"time"

	terrors "github.com/hrygo/timenorm/internal/errors"
)

// Layout is the naive output timestamp format. The trailing Z is literal.
const Layout = "2006-01-02T15:04:05Z"

var referenceLayouts = []string{
	Layout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseReference parses a reference instant. The value is read as a naive
// calendar timestamp; no zone conversion takes place.
func ParseReference(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range referenceLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, terrors.InvalidArgument("reference instant must look like 2025-01-21T08:00:00Z, got " + s)
}

// Format renders a naive timestamp in Layout.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Kind distinguishes the result shapes.
type Kind int

const (
	KindInstant Kind = iota
	KindInterval
	KindSequence
)

// Result is one resolved value: an Instant, an Interval, or a Sequence of
// results produced by a recurring expression.
type Result struct {
	Kind  Kind
	Start time.Time
	End   time.Time
	Items []Result
}

// Instant builds a single-timestamp result.
func Instant(t time.Time) Result {
	return Result{Kind: KindInstant, Start: t, End: t}
}

// Interval builds an ordered [start, end] result.
func Interval(start, end time.Time) Result {
	return Result{Kind: KindInterval, Start: start, End: end}
}

// Sequence wraps recurring occurrences; they stay nested.
func Sequence(items []Result) Result {
	r := Result{Kind: KindSequence, Items: items}
	if len(items) > 0 {
		r.Start = items[0].Start
		r.End = items[len(items)-1].End
	}
	return r
}

// Values returns the formatted timestamps of an Instant or Interval.
func (r Result) Values() []string {
	switch r.Kind {
	case KindInstant:
		return []string{Format(r.Start)}
	case KindInterval:
		return []string{Format(r.Start), Format(r.End)}
	}
	return nil
}

// Key is the first-element identity used for deduplication: the Instant value,
// the Interval start, or the key of a Sequence's first item.
func (r Result) Key() string {
	if r.Kind == KindSequence {
		if len(r.Items) == 0 {
			return ""
		}
		return "seq:" + r.Items[0].Key()
	}
	return Format(r.Start)
}

// MarshalJSON renders an Instant as ["t"], an Interval as ["s","e"] and a
// Sequence as a list of those.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Kind == KindSequence {
		items := r.Items
		if items == nil {
			items = []Result{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(r.Values())
}

func (r Result) String() string {
	b, _ := r.MarshalJSON()
	return string(b)
}

// YearWindow bounds the years a result may carry.
type YearWindow struct {
	Min int
	Max int
}

// DefaultYearWindow is the [1900, 2100] guard.
var DefaultYearWindow = YearWindow{Min: 1900, Max: 2100}

func (w YearWindow) contains(t time.Time) bool {
	return t.Year() >= w.Min && t.Year() <= w.Max
}

// Guard drops results outside the year window. Both ends of an Interval must
// be inside; Sequence items are filtered one by one and an emptied Sequence
// disappears.
func (w YearWindow) Guard(results []Result) []Result {
	out := results[:0:0]
	for _, r := range results {
		switch r.Kind {
		case KindSequence:
			kept := w.Guard(r.Items)
			if len(kept) > 0 {
				out = append(out, Sequence(kept))
			}
		default:
			if w.contains(r.Start) && w.contains(r.End) {
				out = append(out, r)
			}
		}
	}
	return out
}

// Dedup keeps the first result for each Key, preserving order.
func Dedup(results []Result) []Result {
	seen := make(map[string]struct{}, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
