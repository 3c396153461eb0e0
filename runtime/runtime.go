// Package runtime is the companion loader of spec.md §4.5: it decodes a
// binary envelope produced by xlstool and rebuilds the nested index for
// keyed lookup, independent of the producer-side descriptor compilation
// and spreadsheet backends.
package runtime

import (
	"os"

	"google.golang.org/protobuf/reflect/protoreflect"

	"xlstool/internal/codec"
	"xlstool/internal/record"
	"xlstool/internal/store"
)

// Store is a loaded, queryable binary envelope.
type Store struct {
	scheme string
	root   *store.Store
}

// Load reads and decodes the envelope at path against md, then rebuilds
// the nested index.
func Load(path string, md protoreflect.MessageDescriptor) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadBytes(data, md)
}

// LoadBytes decodes an already-read envelope, useful when it is embedded
// or fetched by some other means than a plain file read.
func LoadBytes(data []byte, md protoreflect.MessageDescriptor) (*Store, error) {
	env, err := codec.DecodeBinary(data, md)
	if err != nil {
		return nil, err
	}
	root, err := store.Build(md, env.Records, env.Keys)
	if err != nil {
		return nil, err
	}
	return &Store{scheme: env.Scheme, root: root}, nil
}

// Scheme is the decoded message type's short name.
func (s *Store) Scheme() string { return s.scheme }

// GetConfig returns the record reachable by one or more successive keys
// (spec.md §4.5's GetConfig(k1) / GetConfig(k1, k2) overloads), or false at
// the first miss. A nil Store (one that failed to load) answers every query
// with false.
func (s *Store) GetConfig(keys ...record.Key) (record.Record, bool) {
	if s == nil || s.root == nil {
		return nil, false
	}
	st := s.root
	for _, k := range keys {
		child, ok := st.Get(k)
		if !ok {
			return nil, false
		}
		st = child
	}
	return st.Record()
}
