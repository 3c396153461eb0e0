// Package store implements the Hierarchical Keyed Store (C4): an n-level
// nested index built from a flat record list and an ordered key-field list,
// read-only once built (spec.md §4.4).
package store

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/reflect/protoreflect"

	"xlstool/internal/coerce"
	"xlstool/internal/descriptor"
	"xlstool/internal/record"
)

// SchemaError is the SchemaError kind of spec.md §7: a key field name not
// present on the message, or present but of an invalid kind for a Key.
type SchemaError struct {
	Field string
	Msg   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("store: key field %q: %s", e.Field, e.Msg)
}

// Store is one node of the index: a leaf holds only the records it was
// built from (children is nil); an internal node additionally holds a
// key->child mapping (ExportKeys lists its keys in the Key total order),
// with records holding the flattened list beneath it.
type Store struct {
	records  []record.Record
	children map[record.Key]*Store
}

// Build partitions records by the value of keyNames[0], recursing on each
// bucket with the tail of keyNames, per spec.md §4.4. A node built with an
// empty keyNames is a leaf holding exactly the records passed to it.
func Build(md protoreflect.MessageDescriptor, records []record.Record, keyNames []string) (*Store, error) {
	if len(keyNames) == 0 {
		return &Store{records: records}, nil
	}

	name := keyNames[0]
	fd := descriptor.FindField(md, name)
	if fd == nil {
		return nil, &SchemaError{Field: name, Msg: "not found in message"}
	}

	var order []record.Key
	buckets := make(map[record.Key][]record.Record)
	seen := make(map[record.Key]bool)
	for _, rec := range records {
		k, err := coerce.GetKey(rec, fd)
		if err != nil {
			return nil, &SchemaError{Field: name, Msg: err.Error()}
		}
		if !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], rec)
	}

	children := make(map[record.Key]*Store, len(order))
	for _, k := range order {
		child, err := Build(md, buckets[k], keyNames[1:])
		if err != nil {
			return nil, err
		}
		children[k] = child
	}

	return &Store{records: records, children: children}, nil
}

// IsLeaf reports whether this node has no children mapping.
func (s *Store) IsLeaf() bool { return s.children == nil }

// Records returns the record list beneath this node (for an internal node,
// the flattened union of every descendant leaf's records, original order
// preserved).
func (s *Store) Records() []record.Record { return s.records }

// Record returns the first record held directly by this node ("first-wins"
// duplicate-key semantics of spec.md §4.4), or false if it holds none.
func (s *Store) Record() (record.Record, bool) {
	if len(s.records) == 0 {
		return nil, false
	}
	return s.records[0], true
}

// Get looks up an immediate child by key.
func (s *Store) Get(key record.Key) (*Store, bool) {
	child, ok := s.children[key]
	return child, ok
}

// ExportKeys returns this node's children keys in the Key total order
// (spec.md §3), used by the encoders for deterministic output.
func (s *Store) ExportKeys() []record.Key {
	keys := make([]record.Key, 0, len(s.children))
	for k := range s.children {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
