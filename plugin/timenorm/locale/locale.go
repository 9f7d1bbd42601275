// Package locale holds the per-language lookup tables the resolution engine is
// parameterized by: weekday, month, period, season and holiday aliases, the
// connector words merge rules look for, and the ambiguity-filter configuration.
//
// Tables are embedded YAML, parsed once on first use and read-only afterwards.
package locale

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Default is the locale used when none is configured.
const Default = "en"

//go:embed data/*.yaml
var dataFS embed.FS

// Connectors lists the surface words merge rules match against.
type Connectors struct {
	RangeFrom           []string `yaml:"range_from"`
	RangeTo             []string `yaml:"range_to"`
	Between             []string `yaml:"between"`
	BetweenAnd          []string `yaml:"between_and"`
	DeadlineInclusive   []string `yaml:"deadline_inclusive"`
	DeadlineExclusive   []string `yaml:"deadline_exclusive"`
	DeadlineSuffix      []string `yaml:"deadline_suffix"`
	DurationFor         []string `yaml:"duration_for"`
	DurationFrom        []string `yaml:"duration_from"`
	DurationStartSuffix []string `yaml:"duration_start_suffix"`
	Past                []string `yaml:"past"`
	At                  []string `yaml:"at"`
	DeltaAfter          []string `yaml:"delta_after"`
	DeltaBefore         []string `yaml:"delta_before"`
	EraAD               []string `yaml:"era_ad"`
	EraBC               []string `yaml:"era_bc"`
	EnumerationCues     []string `yaml:"enumeration_cues"`
}

// Ambiguity configures the lexical filter for hour tokens with a colloquial,
// non-temporal reading.
type Ambiguity struct {
	Triggers            []string `yaml:"triggers"`
	EnumerationPrefixes []string `yaml:"enumeration_prefixes"`
	OneAdverbPrefixes   []string `yaml:"one_adverb_prefixes"`
	OneNegationSuffixes []string `yaml:"one_negation_suffixes"`
}

type document struct {
	Name       string              `yaml:"name"`
	Weekdays   map[string][]string `yaml:"weekdays"`
	Months     map[string][]string `yaml:"months"`
	Periods    map[string][]string `yaml:"periods"`
	Seasons    map[string][]string `yaml:"seasons"`
	Holidays   map[string][]string `yaml:"holidays"`
	Connectors Connectors          `yaml:"connectors"`
	Ambiguity  Ambiguity           `yaml:"ambiguity"`
}

// Locale is an immutable lookup table for one source language.
type Locale struct {
	Name       string
	Connectors Connectors
	Ambiguity  Ambiguity

	weekdays map[string]time.Weekday
	months   map[string]time.Month
	periods  map[string]string
	seasons  map[string]string
	holidays map[string]string
}

var (
	loadOnce sync.Once
	locales  map[string]*Locale
	loadErr  error
)

// Get returns the named locale, loading all embedded tables on first use.
func Get(name string) (*Locale, error) {
	loadOnce.Do(func() {
		locales, loadErr = loadAll()
	})
	if loadErr != nil {
		return nil, loadErr
	}
	if name == "" {
		name = Default
	}
	l, ok := locales[strings.ToLower(name)]
	if !ok {
		return nil, errors.Errorf("unknown locale %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return l, nil
}

// MustGet is Get for the embedded locales known to exist.
func MustGet(name string) *Locale {
	l, err := Get(name)
	if err != nil {
		panic(err)
	}
	return l
}

// Names lists the available locale names in sorted order.
func Names() []string {
	loadOnce.Do(func() {
		locales, loadErr = loadAll()
	})
	names := make([]string, 0, len(locales))
	for name := range locales {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func loadAll() (map[string]*Locale, error) {
	entries, err := dataFS.ReadDir("data")
	if err != nil {
		return nil, errors.Wrap(err, "read embedded locale tables")
	}
	out := make(map[string]*Locale, len(entries))
	for _, e := range entries {
		raw, err := dataFS.ReadFile(path.Join("data", e.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "read locale table %s", e.Name())
		}
		l, err := parse(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "parse locale table %s", e.Name())
		}
		out[l.Name] = l
	}
	return out, nil
}

func parse(raw []byte) (*Locale, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Name == "" {
		return nil, errors.New("missing locale name")
	}

	l := &Locale{
		Name:       doc.Name,
		Connectors: doc.Connectors,
		Ambiguity:  doc.Ambiguity,
		weekdays:   make(map[string]time.Weekday),
		months:     make(map[string]time.Month),
		periods:    aliasMap(doc.Periods),
		seasons:    aliasMap(doc.Seasons),
		holidays:   aliasMap(doc.Holidays),
	}
	for canonical, aliases := range doc.Weekdays {
		wd, ok := canonicalWeekdays[canonical]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", canonical)
		}
		for _, a := range append(aliases, canonical) {
			l.weekdays[normalize(a)] = wd
		}
	}
	for canonical, aliases := range doc.Months {
		m, ok := canonicalMonths[canonical]
		if !ok {
			return nil, fmt.Errorf("unknown month %q", canonical)
		}
		for _, a := range append(aliases, canonical) {
			l.months[normalize(a)] = m
		}
	}
	return l, nil
}

func aliasMap(src map[string][]string) map[string]string {
	out := make(map[string]string, len(src))
	for canonical, aliases := range src {
		out[normalize(canonical)] = canonical
		for _, a := range aliases {
			out[normalize(a)] = canonical
		}
	}
	return out
}

var canonicalWeekdays = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sunday": time.Sunday,
}

var canonicalMonths = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Weekday resolves a weekday name or a number 1-7 (Monday=1, Sunday=7).
func (l *Locale) Weekday(v string) (time.Weekday, bool) {
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		if n < 1 || n > 7 {
			return 0, false
		}
		return time.Weekday(n % 7), true
	}
	wd, ok := l.weekdays[normalize(v)]
	if !ok {
		wd, ok = canonicalWeekdays[normalize(v)]
	}
	return wd, ok
}

// Month resolves a month name or a number 1-12.
func (l *Locale) Month(v string) (time.Month, bool) {
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		if n < 1 || n > 12 {
			return 0, false
		}
		return time.Month(n), true
	}
	m, ok := l.months[normalize(v)]
	if !ok {
		m, ok = canonicalMonths[normalize(v)]
	}
	return m, ok
}

// Period maps a period-of-day alias to its canonical name.
func (l *Locale) Period(v string) (string, bool) {
	p, ok := l.periods[normalize(v)]
	return p, ok
}

// Season maps a season alias to its canonical name.
func (l *Locale) Season(v string) (string, bool) {
	s, ok := l.seasons[normalize(v)]
	return s, ok
}

// Holiday maps a holiday alias to its canonical key.
func (l *Locale) Holiday(v string) (string, bool) {
	h, ok := l.holidays[normalize(v)]
	return h, ok
}

// Match reports whether word is one of set, ignoring case and surrounding space.
func Match(word string, set []string) bool {
	w := normalize(word)
	if w == "" {
		return false
	}
	for _, s := range set {
		if normalize(s) == w {
			return true
		}
	}
	return false
}
