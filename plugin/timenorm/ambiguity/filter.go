// Package ambiguity drops hour tokens whose surface text is a colloquial,
// non-temporal idiom ("有一点", "第三点", "no one") before merging.
package ambiguity

import (
	"strconv"
	"strings"

	"github.com/hrygo/timenorm/plugin/timenorm/locale"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

// Filter is a lexical pre-pass configured by a locale. It is immutable and
// safe for concurrent use.
type Filter struct {
	cfg locale.Ambiguity
}

// New returns the filter for loc.
func New(loc *locale.Locale) *Filter {
	return &Filter{cfg: loc.Ambiguity}
}

// Apply returns the tokens that survive the filter, in order. Each token's raw
// text is located in source left to right; only tokens carrying an hour whose
// raw text contains a trigger are inspected, and only the exact substrings
// around that occurrence decide. Tokens whose raw text cannot be located are
// kept.
func (f *Filter) Apply(source string, tokens []token.Token) []token.Token {
	if len(f.cfg.Triggers) == 0 || source == "" {
		return tokens
	}
	text := strings.ToLower(source)
	cursor := 0
	out := make([]token.Token, 0, len(tokens))
	for _, tok := range tokens {
		raw := strings.ToLower(tok.Value(token.AttrRaw))
		if raw == "" {
			out = append(out, tok)
			continue
		}
		idx := strings.Index(text[cursor:], raw)
		if idx < 0 {
			out = append(out, tok)
			continue
		}
		start := cursor + idx
		end := start + len(raw)
		cursor = end

		if f.idiom(tok, raw, text[:start], text[end:]) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// idiom reports whether the token would be removed given the text right
// before and after its raw occurrence.
func (f *Filter) idiom(tok token.Token, raw, before, after string) bool {
	hour, ok := tok.Get("hour")
	if !ok || !containsAny(raw, f.cfg.Triggers) {
		return false
	}
	if hasSuffixAny(before, f.cfg.EnumerationPrefixes) {
		return true
	}
	if n, err := strconv.Atoi(strings.TrimSpace(hour)); err != nil || n != 1 {
		return false
	}
	return hasSuffixAny(before, f.cfg.OneAdverbPrefixes) || hasPrefixAny(after, f.cfg.OneNegationSuffixes)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

func hasSuffixAny(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if suf != "" && strings.HasSuffix(s, strings.ToLower(suf)) {
			return true
		}
	}
	return false
}

func hasPrefixAny(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
