package record

import (
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Record is a schema-typed value tree (spec.md §9's re-architecture note):
// a dynamicpb.Message plays the role the source's reflective
// Message/Reflection pair played in C++, minted empty by New and mutated
// only by the Row Parser via the Field Coercer.
type Record = *dynamicpb.Message

// New mints an empty record of the given message type — the
// "Descriptor -> empty_value constructor" of spec.md §9.
func New(md protoreflect.MessageDescriptor) Record {
	return dynamicpb.NewMessage(md)
}
