package merger

import (
	"fmt"
	"strings"
	"time"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/plugin/timenorm/locale"
	"github.com/hrygo/timenorm/plugin/timenorm/resolver"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

// Scan is the state of one Merge call: the token list, the current position
// and the window of recently consumed tokens.
type Scan struct {
	m      *Merger
	tokens []token.Token
	pos    int
	base   time.Time
	window []token.Token
	rule   string
}

// Base returns the reference instant.
func (s *Scan) Base() time.Time {
	return s.base
}

// Locale returns the locale tables of the merger.
func (s *Scan) Locale() *locale.Locale {
	return s.m.env.Locale
}

// Env returns the resolver environment of the merger.
func (s *Scan) Env() resolver.Env {
	return s.m.env
}

// Peek returns the token k positions after the current one.
func (s *Scan) Peek(k int) (token.Token, bool) {
	i := s.pos + k
	if k < 0 || i >= len(s.tokens) {
		return token.Token{}, false
	}
	return s.tokens[i], true
}

// Word returns the connector text at offset k: the value of a char, range or
// between token, lower-cased. Any other token yields "".
func (s *Scan) Word(k int) string {
	tok, ok := s.Peek(k)
	if !ok {
		return ""
	}
	switch tok.Type {
	case token.TypeChar, token.TypeRange, token.TypeBetween:
		return strings.ToLower(strings.TrimSpace(tok.Value(token.AttrValue)))
	}
	return ""
}

// IsWord reports whether the connector at offset k is one of set.
func (s *Scan) IsWord(k int, set []string) bool {
	return locale.Match(s.Word(k), set)
}

// Resolve resolves tok against at through the registry. A panicking resolver
// is reported as an error.
func (s *Scan) Resolve(tok token.Token, at time.Time) (results []resolver.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			results, err = nil, fmt.Errorf("resolver %s panicked: %v", tok.Type, r)
		}
	}()
	return s.m.registry.Resolve(tok, at)
}

// ResolveOne resolves tok to a single Instant or Interval.
func (s *Scan) ResolveOne(tok token.Token, at time.Time) (resolver.Result, error) {
	results, err := s.Resolve(tok, at)
	if err != nil {
		return resolver.Result{}, err
	}
	if len(results) == 0 {
		return resolver.Result{}, terrors.InsufficientFields(tok.Type + " has no value")
	}
	if results[0].Kind == resolver.KindSequence {
		return resolver.Result{}, terrors.InsufficientFields(tok.Type + " is recurring")
	}
	return results[0], nil
}

// Inherit fills tok from the most recent consumed token of the same type.
func (s *Scan) Inherit(tok token.Token) token.Token {
	for i := len(s.window) - 1; i >= 0; i-- {
		if s.window[i].Type == tok.Type {
			return inherit(tok, s.window[i])
		}
	}
	return tok
}

func (s *Scan) fail(where string, err error) {
	if where == "" {
		where = s.rule
	}
	s.m.logger.Debug("merge step failed",
		"step", where,
		"position", s.pos,
		"error", err,
	)
}

// advance consumes n tokens, recording them in the inheritance window. When
// the step resolved a single token after inheritance, that form is recorded.
func (s *Scan) advance(n int, resolved *token.Token) {
	for i := 0; i < n; i++ {
		tok := s.tokens[s.pos+i]
		if i == 0 && resolved != nil {
			tok = *resolved
		}
		s.window = append(s.window, tok)
	}
	if len(s.window) > windowSize {
		s.window = s.window[len(s.window)-windowSize:]
	}
	s.pos += n
}

// levels orders the inheritable fields of each interval-bearing type from
// coarsest to finest. Keys within one level travel together.
var levels = map[string][][]string{
	token.TypeUTC: {
		{resolver.FieldYear, resolver.FieldEra},
		{resolver.FieldMonth},
		{resolver.FieldDay},
		{resolver.FieldHour, resolver.FieldPeriod},
		{resolver.FieldMinute},
		{resolver.FieldSecond},
	},
	token.TypeRelative: {
		{resolver.FieldOffsetYear},
		{resolver.FieldOffsetMonth},
		{resolver.FieldOffsetWeek},
		{resolver.FieldOffsetDay},
		{resolver.FieldHour, resolver.FieldPeriod},
		{resolver.FieldMinute},
		{resolver.FieldSecond},
	},
	token.TypeWeekday: {
		{resolver.FieldOffsetWeek},
		{resolver.FieldWeekday},
		{resolver.FieldHour, resolver.FieldPeriod},
		{resolver.FieldMinute},
		{resolver.FieldSecond},
	},
	token.TypeLunar: {
		{resolver.FieldYear, resolver.FieldOffsetYear},
		{resolver.FieldMonth, resolver.FieldLeap},
		{resolver.FieldDay},
		{resolver.FieldHour, resolver.FieldPeriod},
		{resolver.FieldMinute},
	},
}

var clockKeys = []string{resolver.FieldHour, resolver.FieldMinute, resolver.FieldSecond, resolver.FieldPeriod}

// coarsest returns the index of the coarsest level tok carries, or len(lv).
func coarsest(tok token.Token, lv [][]string) int {
	for i, keys := range lv {
		if tok.HasAny(keys...) {
			return i
		}
	}
	return len(lv)
}

// inherit copies into later the fields of earlier that are coarser than
// anything later already states. A relative token never takes absolute date
// fields; it takes missing coarser offsets, and a time of day when it has none.
func inherit(later, earlier token.Token) token.Token {
	lv, ok := levels[later.Type]
	if !ok || earlier.Type != later.Type {
		return later
	}
	c := coarsest(later, lv)
	for i := 0; i < c; i++ {
		for _, key := range lv[i] {
			if later.Has(key) {
				continue
			}
			if v, ok := earlier.Get(key); ok {
				later = later.With(key, v)
			}
		}
	}
	if later.Type == token.TypeRelative && !later.HasAny(clockKeys...) {
		for _, key := range clockKeys {
			if v, ok := earlier.Get(key); ok {
				later = later.With(key, v)
			}
		}
	}
	return later
}

// lessSpecific reports whether left states only finer fields than right, as
// in "13 to 15 July".
func lessSpecific(left, right token.Token) bool {
	lv, ok := levels[left.Type]
	if !ok || left.Type != right.Type {
		return false
	}
	return coarsest(left, lv) > coarsest(right, lv)
}
