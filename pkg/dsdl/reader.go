package dsdl

// Reader is the collaborator interface the generator requires from its
// DSDL front-end parser. Parsing `.dsdl` source itself lives outside
// this module; pkg/dsdl/jsonreader is the concrete reader cmd/nunavut
// wires in, and pkg/dsdl/fixture provides an in-memory stand-in used
// only by this repository's own tests.
type Reader interface {
	// ReadNamespace parses every DSDL file reachable from roots and
	// returns the composites it defines, in a deterministic order
	// (lexicographic by full name then version).
	ReadNamespace(roots []string) ([]Composite, error)

	// BitLengthSet returns the set of possible serialized bit lengths
	// of t, used to compute SERIALIZATION_BUFFER_SIZE_BYTES.
	BitLengthSet(t Entity) ([]int, error)
}
