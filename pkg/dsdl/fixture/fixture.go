// Package fixture provides an in-memory dsdl.Reader for tests, standing
// in for a real DSDL front-end parser without requiring one on disk.
package fixture

import (
	"sort"

	"github.com/OpenCyphal/nunavut/pkg/dsdl"
)

// Reader is a canned dsdl.Reader backed by a fixed slice of composites.
type Reader struct {
	Composites []dsdl.Composite
	// BitLengths overrides the naive computed bit-length-set per full
	// name; tests populate this for delimited/variable-length cases the
	// naive walk can't derive on its own.
	BitLengths map[string][]int
}

// New builds a Reader from the given composites, sorted into the
// deterministic order the Reader interface promises.
func New(composites ...dsdl.Composite) *Reader {
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
	return &Reader{Composites: sorted, BitLengths: map[string][]int{}}
}

func (r *Reader) ReadNamespace(roots []string) ([]dsdl.Composite, error) {
	return r.Composites, nil
}

// BitLengthSet returns the override recorded under the composite's full
// name, or a naive single-value estimate derived from its byte extent.
func (r *Reader) BitLengthSet(t dsdl.Entity) ([]int, error) {
	c, ok := t.(dsdl.Composite)
	if !ok {
		return []int{8}, nil
	}
	if bl, ok := r.BitLengths[c.FullName]; ok {
		return bl, nil
	}
	return []int{c.ExtentBytes * 8}, nil
}
