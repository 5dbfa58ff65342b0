package language

import (
	"fmt"
	"strings"

	"github.com/OpenCyphal/nunavut/pkg/config"
	"github.com/OpenCyphal/nunavut/pkg/dsdl"
	"github.com/OpenCyphal/nunavut/pkg/errs"
)

var cppReservedWords = []string{
	"alignas", "alignof", "and", "asm", "auto", "bool", "break", "case",
	"catch", "char", "class", "const", "constexpr", "continue", "default",
	"delete", "do", "double", "else", "enum", "explicit", "export",
	"extern", "false", "float", "for", "friend", "goto", "if", "inline",
	"int", "long", "mutable", "namespace", "new", "noexcept", "nullptr",
	"operator", "private", "protected", "public", "register",
	"reinterpret_cast", "return", "short", "signed", "sizeof", "static",
	"static_assert", "static_cast", "struct", "switch", "template", "this",
	"thread_local", "throw", "true", "try", "typedef", "typeid",
	"typename", "union", "unsigned", "using", "virtual", "void",
	"volatile", "while",
}

type cppLanguage struct {
	reserved *reservedSet
	prefix   string
	c        *cLanguage // C++ reuses C's native integer/float mapping verbatim
}

func newCPP() *cppLanguage {
	return &cppLanguage{
		reserved: newReservedSet(cppReservedWords, nil),
		prefix:   "_",
		c:        newC(),
	}
}

func (p *cppLanguage) Tag() string        { return "cpp" }
func (p *cppLanguage) Experimental() bool { return false }

func (p *cppLanguage) Mangle(symbol string, _ Context) string {
	return mangleWithPrefix(symbol, p.prefix, p.reserved)
}

func (p *cppLanguage) NativeType(prim dsdl.Primitive) string {
	if prim.Kind == dsdl.Float && prim.BitWidth == 16 {
		return "std::uint16_t" // half stored as bit pattern, as in C
	}
	native := p.c.NativeType(prim)
	switch native {
	case "uint8_t", "uint16_t", "uint32_t", "uint64_t",
		"int8_t", "int16_t", "int32_t", "int64_t":
		return "std::" + native
	default:
		return native
	}
}

func (p *cppLanguage) NativeValue(prim dsdl.Primitive, value interface{}) (string, error) {
	return p.c.NativeValue(prim, value)
}

func (p *cppLanguage) IncludeFor(entity dsdl.Composite) string {
	return strings.ReplaceAll(entity.FullName, ".", "/") + ".hpp"
}

func (p *cppLanguage) FullReference(entity dsdl.Composite) string {
	segs := strings.Split(entity.FullName, ".")
	mangled := make([]string, len(segs))
	for i, seg := range segs {
		mangled[i] = p.Mangle(seg, ContextType)
	}
	return strings.Join(mangled, "::") + fmt.Sprintf("_%d_%d", entity.Version.Major, entity.Version.Minor)
}

func (p *cppLanguage) HeaderGuard(entity dsdl.Composite) string {
	flat := strings.ReplaceAll(entity.FullName, ".", "_")
	return strings.ToUpper(fmt.Sprintf("%s_%d_%d_HPP_INCLUDED", flat, entity.Version.Major, entity.Version.Minor))
}

// cppOptionDefaults mirrors pkg/config/sheets/cpp.yaml's "language.options"
// table bit-for-bit, so the built-in defaults and the shipping
// configuration sheet never silently drift apart.
var cppOptionDefaults = Options{
	StdVariant:                          true,
	AllocatorInclude:                    "",
	AllocatorType:                       "std::allocator",
	VariableArrayTypeInclude:            "<vector>",
	VariableArrayTypeTemplate:           "std::vector<{}>",
	CtorConvention:                      "implicit",
	EnableOverrideVariableArrayCapacity: false,
}

var validCtorConventions = map[string]bool{
	"uses-leading-allocator":  true,
	"uses-trailing-allocator": true,
	"implicit":                true,
}

func (p *cppLanguage) Options(store *config.Store) (Options, error) {
	opts := cppOptionDefaults
	sec, err := store.Section("language.options")
	if err != nil {
		// No override section present: defaults stand.
		return opts, nil
	}
	for _, k := range sec.Keys() {
		var err error
		switch k {
		case "std_variant", "enable_override_variable_array_capacity":
			_, err = sec.GetBool(k)
		case "allocator_include", "allocator_type", "variable_array_type_include",
			"variable_array_type_template", "ctor_convention":
			_, err = sec.GetString(k)
		default:
			err = errs.New(errs.ConfigType, "unknown language option %q", k)
		}
		if err != nil {
			return Options{}, err
		}
	}
	if v, err := sec.GetBoolOr("std_variant", opts.StdVariant); err == nil {
		opts.StdVariant = v
	}
	if v, err := sec.GetStringOr("allocator_include", opts.AllocatorInclude); err == nil {
		opts.AllocatorInclude = v
	}
	if v, err := sec.GetStringOr("allocator_type", opts.AllocatorType); err == nil {
		opts.AllocatorType = v
	}
	if v, err := sec.GetStringOr("variable_array_type_include", opts.VariableArrayTypeInclude); err == nil {
		opts.VariableArrayTypeInclude = v
	}
	if v, err := sec.GetStringOr("variable_array_type_template", opts.VariableArrayTypeTemplate); err == nil {
		opts.VariableArrayTypeTemplate = v
	}
	if v, err := sec.GetStringOr("ctor_convention", opts.CtorConvention); err == nil {
		opts.CtorConvention = v
	}
	if v, err := sec.GetBoolOr("enable_override_variable_array_capacity", opts.EnableOverrideVariableArrayCapacity); err == nil {
		opts.EnableOverrideVariableArrayCapacity = v
	}
	if !validCtorConventions[opts.CtorConvention] {
		return Options{}, errs.New(errs.ConfigType, "invalid ctor_convention %q", opts.CtorConvention)
	}
	return opts, nil
}
