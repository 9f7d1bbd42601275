// Package merger composes resolved values across adjacent tokens. It scans the
// token list once, trying an ordered catalog of multi-token merge rules at each
// position before falling back to single-token resolution with adjacency
// inheritance.
package merger

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/timenorm/plugin/timenorm/resolver"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

// windowSize is how many consumed tokens inheritance looks back over.
const windowSize = 3

// Rule is one stateless merge pattern. Match inspects the scan at its current
// position and either declines (ok=false) or returns the results and how many
// tokens it consumed, at least one.
type Rule struct {
	Name  string
	Match func(s *Scan) (results []resolver.Result, consumed int, ok bool)
}

// Merger is immutable after construction and safe for concurrent use; all
// per-call state lives in a Scan.
type Merger struct {
	registry *resolver.Registry
	env      resolver.Env
	rules    []Rule
	logger   *slog.Logger
}

// Option configures a Merger.
type Option func(*Merger)

// WithLogger sets the logger recovered failures are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(m *Merger) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithRules replaces the rule catalog. Order is priority.
func WithRules(rules []Rule) Option {
	return func(m *Merger) {
		m.rules = rules
	}
}

// New creates a merger over reg using env's locale tables.
func New(reg *resolver.Registry, env resolver.Env, opts ...Option) *Merger {
	m := &Merger{
		registry: reg,
		env:      env,
		rules:    DefaultRules(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rules returns the catalog in priority order.
func (m *Merger) Rules() []Rule {
	return m.rules
}

// Merge resolves tokens against base in one left-to-right pass. A token or
// rule that fails contributes nothing; the scan always finishes in at most
// len(tokens) steps.
func (m *Merger) Merge(tokens []token.Token, base time.Time) []resolver.Result {
	s := &Scan{m: m, tokens: tokens, base: base}
	var out []resolver.Result
	for s.pos < len(tokens) {
		results, consumed, inherited := m.step(s)
		if consumed < 1 {
			consumed = 1
		}
		if consumed > len(tokens)-s.pos {
			consumed = len(tokens) - s.pos
		}
		out = append(out, results...)
		s.advance(consumed, inherited)
	}
	return out
}

// step applies the first rule that fires, or resolves the current token alone.
// For the fallback it also returns the token after inheritance so later tokens
// can chain on it.
func (m *Merger) step(s *Scan) ([]resolver.Result, int, *token.Token) {
	for _, rule := range m.rules {
		results, consumed, ok := m.try(s, rule)
		if ok {
			return results, consumed, nil
		}
	}

	tok := s.tokens[s.pos]
	if !tok.IsTime() {
		return nil, 1, nil
	}
	tok = s.Inherit(tok)
	results, err := s.Resolve(tok, s.base)
	if err != nil {
		s.fail(tok.Type, err)
		return nil, 1, &tok
	}
	return results, 1, &tok
}

func (m *Merger) try(s *Scan, rule Rule) (results []resolver.Result, consumed int, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(rule.Name, fmt.Errorf("panic: %v", r))
			results, consumed, ok = nil, 0, false
		}
	}()
	s.rule = rule.Name
	results, consumed, ok = rule.Match(s)
	s.rule = ""
	if ok && consumed < 1 {
		return nil, 0, false
	}
	return results, consumed, ok
}
