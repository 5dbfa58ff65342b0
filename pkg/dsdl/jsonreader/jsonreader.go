// Package jsonreader implements the concrete dsdl.Reader the CLI wires up
// at runtime. It does not parse `.dsdl` grammar itself; instead it reads
// a fixed, explicit JSON encoding of the same dsdl.Entity sum type: every
// `*.json` file under a lookup root describes one namespace's
// composites, in the shape a real front-end's IR dump would take.
//
// This is a boundary concern — decoding an external collaborator's
// output — not a DSDL-grammar reimplementation, so encoding/json is the
// correct tool.
package jsonreader

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/OpenCyphal/nunavut/pkg/dsdl"
	"github.com/OpenCyphal/nunavut/pkg/errs"
)

// fieldJSON mirrors dsdl.Field plus enough of dsdl.Entity's sum type to
// round-trip through JSON: a field is either a primitive, an array, or a
// reference to another composite (by full name and version).
type fieldJSON struct {
	Name string `json:"name"`

	// Primitive fields.
	PrimitiveKind string `json:"primitive_kind,omitempty"` // "uint","int","float","bool","void"
	BitWidth      int    `json:"bit_width,omitempty"`
	Saturating    bool   `json:"saturating,omitempty"`

	// Array fields: Element is itself a fieldJSON-shaped entity, minus Name.
	ArrayKind     string     `json:"array_kind,omitempty"` // "fixed","variable"
	ArrayCapacity int        `json:"array_capacity,omitempty"`
	Element       *fieldJSON `json:"element,omitempty"`

	// Reference fields.
	RefFullName string `json:"ref_full_name,omitempty"`
	RefMajor    int    `json:"ref_major,omitempty"`
	RefMinor    int    `json:"ref_minor,omitempty"`
}

type compositeJSON struct {
	FullName    string      `json:"full_name"`
	ShortName   string      `json:"short_name"`
	Major       int         `json:"major"`
	Minor       int         `json:"minor"`
	Kind        string      `json:"kind"` // "structure","union"
	Fields      []fieldJSON `json:"fields"`
	ExtentBytes int         `json:"extent_bytes"`
	Delimited   bool        `json:"delimited"`
	FixedPortID *uint16     `json:"fixed_port_id,omitempty"`
}

type namespaceFileJSON struct {
	Composites []compositeJSON `json:"composites"`
}

// Reader reads the JSON IR described above from every *.json file under
// the roots passed to ReadNamespace.
type Reader struct{}

// New returns a Reader. It holds no state: every call re-reads its roots
// from disk, so dependency analysis never works from stale in-memory
// state between CLI invocations.
func New() *Reader { return &Reader{} }

// ReadNamespace implements dsdl.Reader.
func (r *Reader) ReadNamespace(roots []string) ([]dsdl.Composite, error) {
	var files []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == ".json" {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, errs.Wrap(errs.DsdlParse, err, "walking lookup root %s", root)
		}
	}
	sort.Strings(files)

	var out []dsdl.Composite
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, errs.Wrap(errs.DsdlParse, err, "reading %s", f)
		}
		var doc namespaceFileJSON
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errs.Wrap(errs.DsdlParse, err, "parsing %s", f)
		}
		for _, cj := range doc.Composites {
			c, err := toComposite(cj)
			if err != nil {
				return nil, errs.Wrap(errs.DsdlParse, err, "decoding composite in %s", f)
			}
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		if out[i].Version.Major != out[j].Version.Major {
			return out[i].Version.Major < out[j].Version.Major
		}
		return out[i].Version.Minor < out[j].Version.Minor
	})
	return out, nil
}

// BitLengthSet implements dsdl.Reader. The JSON IR carries only the
// computed ExtentBytes, not a front-end's full bit-length-set algorithm,
// so this returns the single value implied by that extent — sufficient
// for SERIALIZATION_BUFFER_SIZE_BYTES, which is defined from the
// *maximum* serialized bit length.
func (r *Reader) BitLengthSet(t dsdl.Entity) ([]int, error) {
	switch e := t.(type) {
	case dsdl.Composite:
		return []int{e.ExtentBytes * 8}, nil
	case dsdl.Primitive:
		return []int{e.BitWidth}, nil
	default:
		return nil, errs.New(errs.DsdlParse, "cannot compute bit length set for %T", t)
	}
}

func toComposite(cj compositeJSON) (dsdl.Composite, error) {
	kind := dsdl.Structure
	if cj.Kind == "union" {
		kind = dsdl.TaggedUnion
	}
	fields := make([]dsdl.Field, 0, len(cj.Fields))
	for _, fj := range cj.Fields {
		ent, err := toEntity(fj)
		if err != nil {
			return dsdl.Composite{}, err
		}
		fields = append(fields, dsdl.Field{Name: fj.Name, Type: ent})
	}
	return dsdl.Composite{
		FullName:    cj.FullName,
		ShortName:   cj.ShortName,
		Version:     dsdl.Version{Major: cj.Major, Minor: cj.Minor},
		Kind:        kind,
		Fields:      fields,
		ExtentBytes: cj.ExtentBytes,
		Delimited:   cj.Delimited,
		FixedPortID: cj.FixedPortID,
	}, nil
}

func toEntity(fj fieldJSON) (dsdl.Entity, error) {
	switch {
	case fj.RefFullName != "":
		return dsdl.Reference{
			FullName: fj.RefFullName,
			Version:  dsdl.Version{Major: fj.RefMajor, Minor: fj.RefMinor},
		}, nil
	case fj.ArrayKind != "":
		elemEnt, err := toEntity(*fj.Element)
		if err != nil {
			return nil, err
		}
		kind := dsdl.FixedArray
		if fj.ArrayKind == "variable" {
			kind = dsdl.VariableArray
		}
		return dsdl.Array{Element: elemEnt, Kind: kind, Capacity: fj.ArrayCapacity}, nil
	case fj.PrimitiveKind != "":
		var pk dsdl.PrimitiveKind
		switch fj.PrimitiveKind {
		case "uint":
			pk = dsdl.UnsignedInt
		case "int":
			pk = dsdl.SignedInt
		case "float":
			pk = dsdl.Float
		case "bool":
			pk = dsdl.Bool
		case "void":
			pk = dsdl.Void
		default:
			return nil, errs.New(errs.DsdlParse, "unknown primitive kind %q", fj.PrimitiveKind)
		}
		return dsdl.Primitive{Kind: pk, BitWidth: fj.BitWidth, Saturating: fj.Saturating}, nil
	default:
		return nil, errs.New(errs.DsdlParse, "field %q has no recognizable type", fj.Name)
	}
}
