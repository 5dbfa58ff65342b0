// Package config implements the layered configuration store: built-in
// defaults, then one sheet per supported language, then user-supplied
// files in CLI order, then explicit CLI overrides, each layer able to
// override a leaf or merge into a mapping but never replace a mapping
// wholesale.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/OpenCyphal/nunavut/pkg/errs"
	"gopkg.in/yaml.v3"
)

// Store is a layered, dotted-path configuration cell mapping. It is
// immutable after Finalize.
type Store struct {
	root     *orderedMap
	finalize bool
}

// New returns an empty, unfinalized Store.
func New() *Store {
	return &Store{root: newOrderedMap()}
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func (s *Store) requireMutable() {
	if s.finalize {
		panic("config: mutation after Finalize")
	}
}

// LoadLayer ingests a YAML layer from raw bytes, merging it over
// whatever the store already holds. Source is used only for error
// messages. Fails with errs.ConfigParse on syntax errors.
//
// Decoding goes through yaml.Node rather than map[string]interface{}:
// the latter loses a mapping's declaration order, and Keys()/Section()
// enumeration order is part of this store's contract.
func (s *Store) LoadLayer(source string, data []byte) error {
	s.requireMutable()
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errs.Wrap(errs.ConfigParse, err, "parsing layer %s", source)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	v, err := valueFromNode(doc.Content[0])
	if err != nil {
		return errs.Wrap(errs.ConfigParse, err, "parsing layer %s", source)
	}
	if v.Kind != KindMapping {
		return errs.New(errs.ConfigParse, "layer %s: top-level document must be a mapping", source)
	}
	mergeInto(s.root, v.Mapping)
	return nil
}

// LoadLayerFile reads path and loads it as a layer. A missing file is not
// an error: layers are optional, the store simply keeps whatever it had.
func (s *Store) LoadLayerFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Wrap(errs.IoError, err, "reading config layer %s", path)
	}
	return s.LoadLayer(path, data)
}

// valueFromNode walks a decoded yaml.Node tree into a Value, preserving
// a mapping node's Content order (key, value, key, value, ...) exactly
// as yaml.v3 parsed it rather than routing through an unordered Go map.
func valueFromNode(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.MappingNode:
		m := newOrderedMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			var key string
			if err := node.Content[i].Decode(&key); err != nil {
				return Value{}, err
			}
			v, err := valueFromNode(node.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			m.set(key, v)
		}
		return MappingValue(m), nil
	case yaml.SequenceNode:
		seq := make([]Value, len(node.Content))
		for i, c := range node.Content {
			v, err := valueFromNode(c)
			if err != nil {
				return Value{}, err
			}
			seq[i] = v
		}
		return SequenceValue(seq), nil
	case yaml.ScalarNode:
		var raw interface{}
		if err := node.Decode(&raw); err != nil {
			return Value{}, err
		}
		return ScalarValue(raw), nil
	case yaml.AliasNode:
		return valueFromNode(node.Alias)
	default:
		return Value{}, fmt.Errorf("unsupported yaml node kind %v", node.Kind)
	}
}

// Set imperatively overrides a single dotted path, as CLI flags do. Last
// writer wins within the layer formed by successive Set calls.
func (s *Store) Set(path string, v Value) {
	s.requireMutable()
	segs := splitPath(path)
	cur := s.root
	for i, seg := range segs {
		if i == len(segs)-1 {
			cur.set(seg, v)
			return
		}
		existing, ok := cur.get(seg)
		if !ok || existing.Kind != KindMapping {
			m := newOrderedMap()
			cur.set(seg, MappingValue(m))
			cur = m
			continue
		}
		cur = existing.Mapping
	}
}

// SetString is a convenience wrapper around Set for CLI flag plumbing.
func (s *Store) SetString(path, v string) { s.Set(path, ScalarValue(v)) }

// Get returns the raw Value at path, or errs.ConfigMissing.
func (s *Store) Get(path string) (Value, error) {
	return typedGet(s.root, path)
}

// GetString performs a typed lookup, failing with errs.ConfigType if the
// cell is not a scalar string.
func (s *Store) GetString(path string) (string, error) {
	v, err := s.Get(path)
	if err != nil {
		return "", err
	}
	str, ok := v.Scalar.(string)
	if v.Kind != KindScalar || !ok {
		return "", errs.New(errs.ConfigType, "path %q is not a string", path)
	}
	return str, nil
}

// GetStringOr returns the value at path, or def if the path is missing.
// Any type mismatch still surfaces as an error.
func (s *Store) GetStringOr(path, def string) (string, error) {
	v, err := s.GetString(path)
	if errs.Is(err, errs.ConfigMissing) {
		return def, nil
	}
	return v, err
}

func (s *Store) GetBool(path string) (bool, error) {
	v, err := s.Get(path)
	if err != nil {
		return false, err
	}
	b, ok := v.Scalar.(bool)
	if v.Kind != KindScalar || !ok {
		return false, errs.New(errs.ConfigType, "path %q is not a bool", path)
	}
	return b, nil
}

func (s *Store) GetBoolOr(path string, def bool) (bool, error) {
	v, err := s.GetBool(path)
	if errs.Is(err, errs.ConfigMissing) {
		return def, nil
	}
	return v, err
}

func (s *Store) GetInt(path string) (int, error) {
	v, err := s.Get(path)
	if err != nil {
		return 0, err
	}
	if v.Kind != KindScalar {
		return 0, errs.New(errs.ConfigType, "path %q is not an int", path)
	}
	switch n := v.Scalar.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	default:
		return 0, errs.New(errs.ConfigType, "path %q is not an int", path)
	}
}

func (s *Store) GetStringSlice(path string) ([]string, error) {
	v, err := s.Get(path)
	if err != nil {
		return nil, err
	}
	if v.Kind != KindSequence {
		return nil, errs.New(errs.ConfigType, "path %q is not a sequence", path)
	}
	out := make([]string, len(v.Sequence))
	for i, e := range v.Sequence {
		str, ok := e.Scalar.(string)
		if e.Kind != KindScalar || !ok {
			return nil, errs.New(errs.ConfigType, "path %q element %d is not a string", path, i)
		}
		out[i] = str
	}
	return out, nil
}

// Section returns a restricted view rooted at prefix. Enumeration via the
// returned Store's Keys() preserves declaration order within a layer and
// layer-ordering between layers (oldest first), since merges already
// happened in that order.
func (s *Store) Section(prefix string) (*Store, error) {
	v, err := s.Get(prefix)
	if err != nil {
		return nil, err
	}
	if v.Kind != KindMapping {
		return nil, errs.New(errs.ConfigType, "path %q is not a mapping", prefix)
	}
	return &Store{root: v.Mapping, finalize: s.finalize}, nil
}

// Keys enumerates the top-level keys of this store (or section) in
// declaration order.
func (s *Store) Keys() []string { return s.root.Keys() }

// Finalize freezes the store. Further mutation is a programming error
// and panics rather than silently being ignored.
func (s *Store) Finalize() { s.finalize = true }

// Finalized reports whether Finalize has been called.
func (s *Store) Finalized() bool { return s.finalize }

// Clone produces a deep, unfinalized copy — used by Section callers that
// need a mutable working copy, and by tests.
func (s *Store) Clone() *Store {
	clone := newOrderedMap()
	mergeInto(clone, s.root)
	return &Store{root: clone}
}

func (s *Store) String() string {
	return fmt.Sprintf("config.Store{keys=%v, finalized=%v}", s.Keys(), s.finalize)
}
