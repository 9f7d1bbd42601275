// Package resolver turns single tokens into calendar values. Each token family
// has one Resolver; the Registry dispatches on the token type.
package resolver

import (
	"fmt"
	"sort"
	"time"

	"github.com/hrygo/timenorm/plugin/timenorm/calendar"
	"github.com/hrygo/timenorm/plugin/timenorm/locale"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

// Resolver resolves one token against the reference instant. An empty result
// with a nil error means the token was recognized but is not resolvable alone.
type Resolver interface {
	Resolve(tok token.Token, base time.Time) ([]Result, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(tok token.Token, base time.Time) ([]Result, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(tok token.Token, base time.Time) ([]Result, error) {
	return f(tok, base)
}

// Env carries the read-only tables resolvers consult.
type Env struct {
	Locale   *locale.Locale
	Calendar *calendar.Calendar
	Caps     RecurringCaps
}

// DefaultEnv returns the environment for the named locale with default caps.
func DefaultEnv(localeName string) (Env, error) {
	loc, err := locale.Get(localeName)
	if err != nil {
		return Env{}, err
	}
	return Env{Locale: loc, Calendar: calendar.Default(), Caps: DefaultRecurringCaps}, nil
}

// Registry maps token types to their resolvers. A Registry is immutable once
// built and safe for concurrent use.
type Registry struct {
	resolvers map[string]Resolver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[string]Resolver)}
}

// Register adds the resolver for typ. Registering a type twice is a programming
// error and panics.
func (r *Registry) Register(typ string, res Resolver) {
	if _, dup := r.resolvers[typ]; dup {
		panic(fmt.Sprintf("resolver for %q registered twice", typ))
	}
	r.resolvers[typ] = res
}

// Lookup returns the resolver for typ.
func (r *Registry) Lookup(typ string) (Resolver, bool) {
	res, ok := r.resolvers[typ]
	return res, ok
}

// Types lists the registered token types.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.resolvers))
	for t := range r.resolvers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Resolve dispatches tok. Unknown types resolve to nothing so the vocabulary
// can grow without breaking older engines.
func (r *Registry) Resolve(tok token.Token, base time.Time) ([]Result, error) {
	res, ok := r.resolvers[tok.Type]
	if !ok {
		return nil, nil
	}
	return res.Resolve(tok, base)
}

// DefaultRegistry registers every resolver family of the v1 vocabulary.
// Range, between and char tokens have no single-token meaning; the merger
// composes them.
func DefaultRegistry(env Env) *Registry {
	r := NewRegistry()
	r.Register(token.TypeUTC, &UTCResolver{env: env})
	r.Register(token.TypeRelative, &RelativeResolver{env: env})
	r.Register(token.TypeWeekday, &WeekdayResolver{env: env})
	r.Register(token.TypePeriod, &PeriodResolver{env: env})
	r.Register(token.TypeHoliday, &HolidayResolver{env: env})
	r.Register(token.TypeDelta, &DeltaResolver{env: env})
	r.Register(token.TypeLunar, &LunarResolver{env: env})
	r.Register(token.TypeCompositeRelative, &CompositeResolver{env: env})
	r.Register(token.TypeRecurring, &RecurringResolver{env: env})
	return r
}
