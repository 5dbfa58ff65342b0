package config

import "github.com/OpenCyphal/nunavut/pkg/errs"

// Kind discriminates the tagged-union shape a configuration cell may
// take: Kind plus Value below form a closed sum type in place of a
// duck-typed sub-mapping.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindMapping
)

// Value is a single configuration cell: a scalar, an ordered sequence of
// cells, or an ordered mapping of string key to cell. Declaration order is
// preserved within a mapping so Section()'s enumeration contract holds.
type Value struct {
	Kind     Kind
	Scalar   interface{}
	Sequence []Value
	Mapping  *orderedMap
}

func ScalarValue(v interface{}) Value { return Value{Kind: KindScalar, Scalar: v} }

func SequenceValue(vs []Value) Value { return Value{Kind: KindSequence, Sequence: vs} }

func MappingValue(m *orderedMap) Value { return Value{Kind: KindMapping, Mapping: m} }

// orderedMap is a string-keyed map that remembers insertion order, used so
// layer merges and Section() enumeration are deterministic.
type orderedMap struct {
	keys   []string
	values map[string]Value
}

func newOrderedMap() *orderedMap {
	return &orderedMap{values: make(map[string]Value)}
}

func (m *orderedMap) set(key string, v Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *orderedMap) get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *orderedMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// mergeInto merges src into dst key-wise: a leaf (scalar or
// sequence) at a path in src fully replaces the same path's leaf in dst; a
// mapping at that path merges recursively instead of replacing wholesale.
func mergeInto(dst *orderedMap, src *orderedMap) {
	for _, k := range src.keys {
		sv := src.values[k]
		if sv.Kind == KindMapping {
			if existing, ok := dst.get(k); ok && existing.Kind == KindMapping {
				mergeInto(existing.Mapping, sv.Mapping)
				continue
			}
			merged := newOrderedMap()
			mergeInto(merged, sv.Mapping)
			dst.set(k, MappingValue(merged))
			continue
		}
		dst.set(k, sv)
	}
}

// typedGet performs the dotted-path lookup and kind check that backs every
// exported Get* accessor.
func typedGet(root *orderedMap, path string) (Value, error) {
	segs := splitPath(path)
	cur := root
	var v Value
	for i, seg := range segs {
		val, ok := cur.get(seg)
		if !ok {
			return Value{}, errs.New(errs.ConfigMissing, "no value at path %q", path)
		}
		if i == len(segs)-1 {
			v = val
			break
		}
		if val.Kind != KindMapping {
			return Value{}, errs.New(errs.ConfigMissing, "path %q descends through non-mapping segment %q", path, seg)
		}
		cur = val.Mapping
	}
	return v, nil
}
