// Package token defines the tagged token records emitted by the upstream tagger
// and the parser that deserializes them.
package token

import (
	"strings"
)

// Token type names of the v1 vocabulary.
const (
	TypeUTC               = "time_utc"
	TypeRelative          = "time_relative"
	TypeWeekday           = "time_weekday"
	TypeHoliday           = "time_holiday"
	TypeDelta             = "time_delta"
	TypePeriod            = "time_period"
	TypeLunar             = "time_lunar"
	TypeBetween           = "time_between"
	TypeRange             = "time_range"
	TypeRecurring         = "time_recurring"
	TypeCompositeRelative = "time_composite_relative"
	TypeChar              = "char"
)

// Attribute keys shared by several token families.
const (
	AttrRaw   = "raw"
	AttrValue = "value"
)

// Attr is one key/value pair of a token.
type Attr struct {
	Key   string
	Value string
}

// Token is a typed, attributed record produced by the tagger.
// Tokens are treated as immutable; With returns a patched copy.
type Token struct {
	Type  string
	Attrs []Attr
}

// New creates a token from alternating key/value strings.
func New(typ string, kv ...string) Token {
	t := Token{Type: typ}
	for i := 0; i+1 < len(kv); i += 2 {
		t.Attrs = append(t.Attrs, Attr{Key: kv[i], Value: kv[i+1]})
	}
	return t
}

// Get returns the value stored for key.
func (t Token) Get(key string) (string, bool) {
	for _, a := range t.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Value returns the value stored for key or the empty string.
func (t Token) Value(key string) string {
	v, _ := t.Get(key)
	return v
}

// Has reports whether the token carries key.
func (t Token) Has(key string) bool {
	_, ok := t.Get(key)
	return ok
}

// HasAny reports whether the token carries at least one of keys.
func (t Token) HasAny(keys ...string) bool {
	for _, k := range keys {
		if t.Has(k) {
			return true
		}
	}
	return false
}

// With returns a copy of the token with key set to value. An existing key keeps
// its position; a new key is appended.
func (t Token) With(key, value string) Token {
	out := Token{Type: t.Type, Attrs: make([]Attr, 0, len(t.Attrs)+1)}
	replaced := false
	for _, a := range t.Attrs {
		if a.Key == key {
			out.Attrs = append(out.Attrs, Attr{Key: key, Value: value})
			replaced = true
			continue
		}
		out.Attrs = append(out.Attrs, a)
	}
	if !replaced {
		out.Attrs = append(out.Attrs, Attr{Key: key, Value: value})
	}
	return out
}

// Without returns a copy of the token with key removed.
func (t Token) Without(key string) Token {
	out := Token{Type: t.Type, Attrs: make([]Attr, 0, len(t.Attrs))}
	for _, a := range t.Attrs {
		if a.Key != key {
			out.Attrs = append(out.Attrs, a)
		}
	}
	return out
}

// IsTime reports whether the token belongs to a temporal family.
func (t Token) IsTime() bool {
	return strings.HasPrefix(t.Type, "time_")
}

// Text returns the char value of a non-temporal token, lower-cased.
func (t Token) Text() string {
	if t.Type != TypeChar {
		return ""
	}
	return strings.ToLower(t.Value(AttrValue))
}

// String renders the token back into tagger syntax.
func (t Token) String() string {
	var b strings.Builder
	b.WriteString(t.Type)
	b.WriteString(" {")
	for _, a := range t.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(": \"")
		b.WriteString(strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(a.Value))
		b.WriteByte('"')
	}
	b.WriteString(" }")
	return b.String()
}
