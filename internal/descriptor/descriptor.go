// Package descriptor implements the Descriptor Model (C1): a passive schema
// interface that the rest of the core queries. Rather than hand-rolling an
// abstract message/field/enum tree, it compiles ordinary .proto schema files
// with the real protobuf toolchain and walks the resulting protoreflect
// descriptors directly — the original tool drove identical queries off
// google::protobuf::Descriptor/Reflection, and proto's own wire model already
// represents a `map` field as `repeated` of a synthetic {key, value} message,
// exactly as spec.md §3 describes.
package descriptor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bufbuild/protocompile"
	"github.com/bufbuild/protocompile/reporter"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Schema wraps one compiled .proto file and the custom option extensions
// registered against it.
type Schema struct {
	file protoreflect.FileDescriptor

	msgExt  map[string]protoreflect.ExtensionType
	textExt protoreflect.ExtensionType
	cnameExt protoreflect.ExtensionType
}

// Load compiles the schema file at path, together with the embedded
// options.proto, and returns a queryable Schema. This is the Descriptor
// Provider collaborator of spec.md §6.
func Load(ctx context.Context, path string) (*Schema, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	resolver := protocompile.WithStandardImports(protocompile.CompositeResolver{
		&protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(map[string]string{
				optionsProtoPath: optionsProtoSource,
			}),
		},
		&protocompile.SourceResolver{ImportPaths: []string{dir}},
	})

	compiler := protocompile.Compiler{
		Resolver:       resolver,
		SourceInfoMode: protocompile.SourceInfoNone,
		Reporter:       reporter.NewReporter(nil, nil),
	}

	files, err := compiler.Compile(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("descriptor: compile schema %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("descriptor: compile schema %s: no files produced", path)
	}
	fd := files[0]

	optsFile := fd.Imports().ByPath(optionsProtoPath)
	if optsFile.FileDescriptor == nil || optsFile.IsPlaceholder() {
		return nil, fmt.Errorf("descriptor: schema %s must import %q", path, optionsProtoPath)
	}
	exts := optsFile.Extensions()

	lookup := func(name string) protoreflect.ExtensionType {
		ed := exts.ByName(protoreflect.Name(name))
		if ed == nil {
			return nil
		}
		return dynamicpb.NewExtensionType(ed)
	}

	s := &Schema{
		file:     fd,
		msgExt:   make(map[string]protoreflect.ExtensionType, len(messageOptionTags)),
		textExt:  lookup("text"),
		cnameExt: lookup("cname"),
	}
	for _, tag := range messageOptionTags {
		s.msgExt[tag] = lookup(tag)
	}
	return s, nil
}

// Messages returns every top-level message type declared in the schema, in
// declaration order.
func (s *Schema) Messages() []protoreflect.MessageDescriptor {
	msgs := s.file.Messages()
	out := make([]protoreflect.MessageDescriptor, msgs.Len())
	for i := range out {
		out[i] = msgs.Get(i)
	}
	return out
}

// Message looks up a top-level message type by its short name.
func (s *Schema) Message(name string) (protoreflect.MessageDescriptor, bool) {
	md := s.file.Messages().ByName(protoreflect.Name(name))
	if md == nil {
		return nil, false
	}
	return md, true
}

// FieldsInOrder returns a message's fields in declaration order.
func FieldsInOrder(md protoreflect.MessageDescriptor) []protoreflect.FieldDescriptor {
	fields := md.Fields()
	out := make([]protoreflect.FieldDescriptor, fields.Len())
	for i := range out {
		out[i] = fields.Get(i)
	}
	return out
}

// FindField looks up a field of md by name.
func FindField(md protoreflect.MessageDescriptor, name string) protoreflect.FieldDescriptor {
	return md.Fields().ByName(protoreflect.Name(name))
}

// EnumValues returns an enum's declared values in declaration order.
func EnumValues(ed protoreflect.EnumDescriptor) []protoreflect.EnumValueDescriptor {
	vals := ed.Values()
	out := make([]protoreflect.EnumValueDescriptor, vals.Len())
	for i := range out {
		out[i] = vals.Get(i)
	}
	return out
}

// MessageOption reads a message-level option recognized by the core (spec.md
// §3: excel, sheet, key, output, prefix, suffix).
func (s *Schema) MessageOption(md protoreflect.MessageDescriptor, tag string) (string, bool) {
	ext := s.msgExt[tag]
	if ext == nil {
		return "", false
	}
	opts, ok := md.Options().(*descriptorpb.MessageOptions)
	if !ok || opts == nil || !proto.HasExtension(opts, ext) {
		return "", false
	}
	v, _ := proto.GetExtension(opts, ext).(string)
	return v, v != ""
}

// FieldOption reads the field-level "text" option (spec.md §3).
func (s *Schema) FieldOption(fd protoreflect.FieldDescriptor, tag string) (string, bool) {
	if tag != "text" || s.textExt == nil {
		return "", false
	}
	opts, ok := fd.Options().(*descriptorpb.FieldOptions)
	if !ok || opts == nil || !proto.HasExtension(opts, s.textExt) {
		return "", false
	}
	v, _ := proto.GetExtension(opts, s.textExt).(string)
	return v, v != ""
}

// EnumValueOption reads the enum-value-level "cname" alias option (spec.md
// §3).
func (s *Schema) EnumValueOption(ev protoreflect.EnumValueDescriptor, tag string) (string, bool) {
	if tag != "cname" || s.cnameExt == nil {
		return "", false
	}
	opts, ok := ev.Options().(*descriptorpb.EnumValueOptions)
	if !ok || opts == nil || !proto.HasExtension(opts, s.cnameExt) {
		return "", false
	}
	v, _ := proto.GetExtension(opts, s.cnameExt).(string)
	return v, v != ""
}

// Label returns a field's effective column label: its "text" option if set,
// otherwise its declared name (spec.md §4.3 name synthesis).
func (s *Schema) Label(fd protoreflect.FieldDescriptor) string {
	if text, ok := s.FieldOption(fd, "text"); ok {
		return text
	}
	return string(fd.Name())
}
