// Package language implements the per-target-language model: name
// mangling, native type mapping, literal formatting, include
// computation, and the option tables of the C and C++ backends.
//
// Languages are a closed, compile-time-known set rather than a plugin
// registry discovered at runtime: one concrete implementation per
// supported tag, held in a construction-time-populated, name-keyed
// Registry.
package language

import (
	"regexp"

	"github.com/OpenCyphal/nunavut/pkg/config"
	"github.com/OpenCyphal/nunavut/pkg/dsdl"
	"github.com/OpenCyphal/nunavut/pkg/errs"
)

// Context distinguishes the identifier position Mangle is asked about, so
// a language can apply position-specific casing on top of reserved-word
// stropping.
type Context int

const (
	ContextField Context = iota
	ContextFunction
	ContextMacro
	ContextHeaderGuard
	ContextType
)

// Endianness is the byte order a language's native integer types use on
// its reference target.
type Endianness int

const (
	EndianAny Endianness = iota
	EndianLittle
	EndianBig
)

// Language is the capability record for one target-language backend:
// one concrete implementation per supported tag, held in a
// compile-time-known Registry.
type Language interface {
	// Tag is the short identifier used on the CLI and in config sheets
	// ("c", "cpp").
	Tag() string

	// Experimental reports whether this language requires
	// --include-experimental-languages to be selectable.
	Experimental() bool

	// Mangle idempotently mangles symbol for the given Context: if symbol
	// is reserved, StroppingPrefix is prepended exactly once; otherwise
	// symbol is returned unchanged. Calling Mangle on an already-mangled
	// symbol is a no-op.
	Mangle(symbol string, ctx Context) string

	// NativeType maps a primitive to its native type spelling. Bit
	// widths without a matching native integer width return the
	// next-larger native type; the caller is responsible for noting that
	// narrowing happens at pack time in the support library.
	NativeType(p dsdl.Primitive) string

	// NativeValue formats a literal of the given primitive type in this
	// language's syntax.
	NativeValue(p dsdl.Primitive, value interface{}) (string, error)

	// IncludeFor returns the include/import path a consumer must add to
	// depend on entity.
	IncludeFor(entity dsdl.Composite) string

	// FullReference returns a language-qualified reference to entity.
	FullReference(entity dsdl.Composite) string

	// HeaderGuard returns a deterministic, unique guard token for entity.
	HeaderGuard(entity dsdl.Composite) string

	// Options returns the resolved, validated option table for this
	// language given the finalized configuration section at
	// "language.options". For C++, unknown option keys and wrongly typed
	// values are errs.ConfigType, caught eagerly here rather than
	// surfacing as a confusing failure deep in template rendering. C has
	// no options and does not read the section.
	Options(store *config.Store) (Options, error)
}

// Options is the resolved C/C++ option table. Fields not meaningful for
// a given language are left at their zero value.
type Options struct {
	StdVariant                          bool
	AllocatorInclude                    string
	AllocatorType                       string
	VariableArrayTypeInclude            string
	VariableArrayTypeTemplate           string
	CtorConvention                      string
	EnableOverrideVariableArrayCapacity bool
}

// Registry is the compile-time-known map of supported languages.
type Registry struct {
	byTag map[string]Language
	order []string
}

// NewRegistry returns a Registry pre-populated with the built-in C and
// C++ languages, in declaration order (c, then cpp).
func NewRegistry() *Registry {
	r := &Registry{byTag: make(map[string]Language)}
	r.register(newC())
	r.register(newCPP())
	return r
}

func (r *Registry) register(l Language) {
	r.byTag[l.Tag()] = l
	r.order = append(r.order, l.Tag())
}

// Tags lists every registered language tag in declaration order.
func (r *Registry) Tags() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup resolves tag to a Language, honoring the
// --include-experimental-languages gate.
func (r *Registry) Lookup(tag string, allowExperimental bool) (Language, error) {
	l, ok := r.byTag[tag]
	if !ok {
		return nil, errs.New(errs.UnknownLanguage, "unknown target language %q", tag)
	}
	if l.Experimental() && !allowExperimental {
		return nil, errs.New(errs.ExperimentalLanguageNotEnabled,
			"language %q is experimental; pass --include-experimental-languages", tag)
	}
	return l, nil
}

// reservedSet builds a fast-lookup set plus compiled reserved_patterns
// regexes, shared by both built-in languages.
type reservedSet struct {
	words    map[string]bool
	patterns []*regexp.Regexp
}

func newReservedSet(words []string, patterns []string) *reservedSet {
	set := &reservedSet{words: make(map[string]bool, len(words))}
	for _, w := range words {
		set.words[w] = true
	}
	for _, p := range patterns {
		set.patterns = append(set.patterns, regexp.MustCompile(p))
	}
	return set
}

func (s *reservedSet) isReserved(sym string) bool {
	if s.words[sym] {
		return true
	}
	for _, p := range s.patterns {
		if p.MatchString(sym) {
			return true
		}
	}
	return false
}

// mangleWithPrefix implements the idempotent stropping contract:
// prefixing only when reserved, and only once — a symbol that already
// carries the prefix and whose unprefixed form is reserved is left
// alone, since re-prefixing would violate idempotence.
func mangleWithPrefix(sym, prefix string, reserved *reservedSet) string {
	if len(prefix) > 0 && len(sym) >= len(prefix) && sym[:len(prefix)] == prefix && reserved.isReserved(sym[len(prefix):]) {
		return sym
	}
	if reserved.isReserved(sym) {
		return prefix + sym
	}
	return sym
}
