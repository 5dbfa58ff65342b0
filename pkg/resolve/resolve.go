// Package resolve turns the flat list of composites an external DSDL
// front-end returns into an in-memory namespace tree: child namespaces
// by dotted segment, each composite annotated with its output path and
// language-specific spellings.
//
// Tree assembly and cycle detection follow the same shape as building
// and validating any directed reference graph from a flat node list —
// walk the list once to index nodes, then a second pass to link edges
// and detect cycles via a three-color DFS.
package resolve

import (
	"path"
	"sort"
	"strings"

	"github.com/OpenCyphal/nunavut/pkg/dsdl"
	"github.com/OpenCyphal/nunavut/pkg/errs"
	"github.com/OpenCyphal/nunavut/pkg/language"
)

// ResolvedType is a single composite annotated for codegen.
type ResolvedType struct {
	Composite   dsdl.Composite
	OutputPath  string // relative to the output root, mirroring the namespace
	ShortName   string // post-mangling spelling
	FullRef     string // language-qualified reference
	HeaderGuard string
	Includes    []string // deduplicated, sorted
}

// Namespace is one segment of the dotted DSDL namespace tree.
type Namespace struct {
	Name     string // this segment only, e.g. "primitive"
	FullName string // dotted path from the root, e.g. "uavcan.primitive"
	Children map[string]*Namespace
	Types    []*ResolvedType
}

func newNamespace(name, full string) *Namespace {
	return &Namespace{Name: name, FullName: full, Children: make(map[string]*Namespace)}
}

// Tree is the resolved namespace tree for one generator invocation.
type Tree struct {
	Root *Namespace
	// ByFullNameAndVersion indexes every resolved type for fast lookup,
	// keyed "full.name:major.minor".
	ByFullNameAndVersion map[string]*ResolvedType
}

func key(fullName string, v dsdl.Version) string {
	return fullName + ":" + itoa(v.Major) + "." + itoa(v.Minor)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// Resolve builds a Tree from the composites a dsdl.Reader returns.
//
// Identity rule: two types are the same iff full name and version match.
// Minor versions share a short-name spelling at the
// major-version level but each still gets its own output file. Name
// collisions after mangling within a namespace are fatal
// (errs.NameCollision); unresolved Reference fields are fatal
// (errs.MissingDependency).
func Resolve(reader dsdl.Reader, roots []string, lang language.Language, outputExt string) (*Tree, error) {
	composites, err := reader.ReadNamespace(roots)
	if err != nil {
		return nil, errs.Wrap(errs.DsdlParse, err, "reading namespace")
	}

	tree := &Tree{Root: newNamespace("", ""), ByFullNameAndVersion: make(map[string]*ResolvedType)}

	sorted := append([]dsdl.Composite(nil), composites...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].FullName != sorted[j].FullName {
			return sorted[i].FullName < sorted[j].FullName
		}
		if sorted[i].Version.Major != sorted[j].Version.Major {
			return sorted[i].Version.Major < sorted[j].Version.Major
		}
		return sorted[i].Version.Minor < sorted[j].Version.Minor
	})

	for _, c := range sorted {
		k := key(c.FullName, c.Version)
		if _, exists := tree.ByFullNameAndVersion[k]; exists {
			return nil, errs.New(errs.NameCollision, "duplicate type %s", k)
		}
		rt := &ResolvedType{
			Composite:   c,
			OutputPath:  outputPathFor(c, outputExt, lang),
			ShortName:   lang.Mangle(c.ShortName, language.ContextType),
			FullRef:     lang.FullReference(c),
			HeaderGuard: lang.HeaderGuard(c),
		}
		tree.ByFullNameAndVersion[k] = rt
		ns := ensureNamespace(tree.Root, c.FullName)
		if err := insertNoCollision(ns, rt, lang); err != nil {
			return nil, err
		}
	}

	// Resolve Reference fields against the index now that every
	// composite is known, and verify no dependency cycle exists.
	for _, rt := range tree.ByFullNameAndVersion {
		includeSet := map[string]bool{}
		for _, f := range rt.Composite.Fields {
			refs := referencedComposites(f.Type)
			for _, ref := range refs {
				target, ok := resolveReference(tree, ref)
				if !ok {
					return nil, errs.New(errs.MissingDependency,
						"%s references unresolved type %s %d.%d", rt.Composite.FullName, ref.FullName, ref.Version.Major, ref.Version.Minor)
				}
				includeSet[lang.IncludeFor(target.Composite)] = true
			}
		}
		rt.Includes = sortedKeys(includeSet)
	}

	if cyc := detectCycle(tree); cyc != "" {
		return nil, errs.New(errs.MissingDependency, "cyclic type dependency involving %s", cyc)
	}

	return tree, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// referencedComposites walks an Entity for embedded Reference leaves
// (directly, or through Array element types).
func referencedComposites(e dsdl.Entity) []dsdl.Reference {
	switch t := e.(type) {
	case dsdl.Reference:
		return []dsdl.Reference{t}
	case dsdl.Array:
		return referencedComposites(t.Element)
	default:
		return nil
	}
}

func resolveReference(tree *Tree, ref dsdl.Reference) (*ResolvedType, bool) {
	rt, ok := tree.ByFullNameAndVersion[key(ref.FullName, ref.Version)]
	return rt, ok
}

// outputPathFor mirrors the namespace as a directory structure.
func outputPathFor(c dsdl.Composite, ext string, lang language.Language) string {
	segs := strings.Split(c.FullName, ".")
	for i, s := range segs {
		segs[i] = lang.Mangle(s, language.ContextType)
	}
	filename := segs[len(segs)-1] + "_" + itoa(c.Version.Major) + "_" + itoa(c.Version.Minor) + ext
	dir := path.Join(segs[:len(segs)-1]...)
	return path.Join(dir, filename)
}

func ensureNamespace(root *Namespace, fullName string) *Namespace {
	segs := strings.Split(fullName, ".")
	cur := root
	built := ""
	for _, s := range segs[:len(segs)-1] {
		if built == "" {
			built = s
		} else {
			built = built + "." + s
		}
		child, ok := cur.Children[s]
		if !ok {
			child = newNamespace(s, built)
			cur.Children[s] = child
		}
		cur = child
	}
	return cur
}

func insertNoCollision(ns *Namespace, rt *ResolvedType, lang language.Language) error {
	for _, existing := range ns.Types {
		if existing.ShortName == rt.ShortName && existing.Composite.FullName != rt.Composite.FullName &&
			existing.Composite.Version.Major == rt.Composite.Version.Major {
			return errs.New(errs.NameCollision,
				"%s and %s collide after mangling in namespace %q", existing.Composite.FullName, rt.Composite.FullName, ns.FullName)
		}
	}
	ns.Types = append(ns.Types, rt)
	return nil
}

// detectCycle walks the reference graph depth-first; returns the
// ByFullNameAndVersion key of a type found to be part of a cycle, or ""
// if none exists.
func detectCycle(tree *Tree) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(tree.ByFullNameAndVersion))
	var visit func(k string) string
	visit = func(k string) string {
		if color[k] == black {
			return ""
		}
		if color[k] == gray {
			return k
		}
		color[k] = gray
		rt := tree.ByFullNameAndVersion[k]
		for _, f := range rt.Composite.Fields {
			for _, ref := range referencedComposites(f.Type) {
				rk := key(ref.FullName, ref.Version)
				if _, ok := tree.ByFullNameAndVersion[rk]; !ok {
					continue // already reported as MissingDependency by caller
				}
				if found := visit(rk); found != "" {
					return found
				}
			}
		}
		color[k] = black
		return ""
	}
	keys := make([]string, 0, len(tree.ByFullNameAndVersion))
	for k := range tree.ByFullNameAndVersion {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if found := visit(k); found != "" {
			return found
		}
	}
	return ""
}
