package language

import (
	"fmt"
	"math"
	"strings"

	"github.com/OpenCyphal/nunavut/pkg/config"
	"github.com/OpenCyphal/nunavut/pkg/dsdl"
	"github.com/OpenCyphal/nunavut/pkg/errs"
)

// cReservedWords is the bit-for-bit reserved word list shipped in
// pkg/config/sheets/c.yaml, duplicated here so the language model can
// mangle identifiers even when no config sheet was loaded (e.g. from a
// library caller that supplies its own Entity tree directly).
var cReservedWords = []string{
	"auto", "break", "case", "char", "const", "continue", "default", "do",
	"double", "else", "enum", "extern", "float", "for", "goto", "if",
	"inline", "int", "long", "register", "restrict", "return", "short",
	"signed", "sizeof", "static", "struct", "switch", "typedef", "union",
	"unsigned", "void", "volatile", "while", "_Bool", "_Complex", "_Imaginary",
}

type cLanguage struct {
	reserved *reservedSet
	prefix   string
}

func newC() *cLanguage {
	return &cLanguage{
		reserved: newReservedSet(cReservedWords, nil),
		prefix:   "_",
	}
}

func (c *cLanguage) Tag() string        { return "c" }
func (c *cLanguage) Experimental() bool { return false }

func (c *cLanguage) Mangle(symbol string, _ Context) string {
	return mangleWithPrefix(symbol, c.prefix, c.reserved)
}

// cNativeInt maps a bit width to C's next-larger native unsigned/signed
// integer type: widths not matching a native integer width map up to
// the next-larger native type.
func cNativeInt(width int, signed bool) string {
	var base string
	switch {
	case width <= 8:
		base = "8"
	case width <= 16:
		base = "16"
	case width <= 32:
		base = "32"
	default:
		base = "64"
	}
	if signed {
		return "int" + base + "_t"
	}
	return "uint" + base + "_t"
}

func (c *cLanguage) NativeType(p dsdl.Primitive) string {
	switch p.Kind {
	case dsdl.UnsignedInt:
		return cNativeInt(p.BitWidth, false)
	case dsdl.SignedInt:
		return cNativeInt(p.BitWidth, true)
	case dsdl.Bool:
		return "bool"
	case dsdl.Float:
		switch p.BitWidth {
		case 16:
			return "uint16_t" // half stored as its bit pattern; support lib packs/unpacks
		case 32:
			return "float"
		default:
			return "double"
		}
	case dsdl.Void:
		return "void"
	default:
		return "void"
	}
}

func (c *cLanguage) NativeValue(p dsdl.Primitive, value interface{}) (string, error) {
	switch p.Kind {
	case dsdl.UnsignedInt:
		v, ok := toInt64(value)
		if !ok {
			return "", errs.New(errs.ConfigType, "value %v is not an integer", value)
		}
		return fmt.Sprintf("0x%XU", uint64(v)), nil
	case dsdl.SignedInt:
		v, ok := toInt64(value)
		if !ok {
			return "", errs.New(errs.ConfigType, "value %v is not an integer", value)
		}
		return fmt.Sprintf("%d", v), nil
	case dsdl.Bool:
		b, ok := value.(bool)
		if !ok {
			return "", errs.New(errs.ConfigType, "value %v is not a bool", value)
		}
		if b {
			return "true", nil
		}
		return "false", nil
	case dsdl.Float:
		f, ok := toFloat64(value)
		if !ok {
			return "", errs.New(errs.ConfigType, "value %v is not a float", value)
		}
		return formatCFloat(f, p.BitWidth), nil
	default:
		return "", errs.New(errs.ConfigType, "void has no literal form")
	}
}

func formatCFloat(f float64, width int) string {
	suffix := ""
	if width == 32 {
		suffix = "f"
	}
	if math.IsNaN(f) {
		return "NAN"
	}
	if math.IsInf(f, 1) {
		return "INFINITY"
	}
	if math.IsInf(f, -1) {
		return "(-INFINITY)"
	}
	return fmt.Sprintf("%g%s", f, suffix)
}

func (c *cLanguage) IncludeFor(entity dsdl.Composite) string {
	return strings.ReplaceAll(entity.FullName, ".", "/") + ".h"
}

func (c *cLanguage) FullReference(entity dsdl.Composite) string {
	mangled := make([]string, 0)
	for _, seg := range strings.Split(entity.FullName, ".") {
		mangled = append(mangled, c.Mangle(seg, ContextType))
	}
	return strings.Join(mangled, "_") + fmt.Sprintf("_%d_%d", entity.Version.Major, entity.Version.Minor)
}

func (c *cLanguage) HeaderGuard(entity dsdl.Composite) string {
	return strings.ToUpper(strings.ReplaceAll(c.FullReference(entity), ".", "_")) + "_INCLUDED"
}

func (c *cLanguage) Options(store *config.Store) (Options, error) {
	// C has no allocator/variant/template concepts; only the
	// override-capacity knob from the shared table is meaningful, and C
	// has no config sheet entry for it today so it is always false. The
	// "language.options" section is not read, so keys placed there are
	// neither applied nor rejected.
	return Options{}, nil
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
