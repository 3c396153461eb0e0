package codec

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"xlstool/internal/descriptor"
	"xlstool/internal/record"
	"xlstool/internal/store"
)

// EncodeText renders st as the nested `{[key]=value, …}` literal of
// spec.md §4.5, wrapped in the message type's prefix/suffix options, ready
// to write to <output>.lua.
func EncodeText(schema *descriptor.Schema, md protoreflect.MessageDescriptor, st *store.Store) string {
	prefix, _ := schema.MessageOption(md, "prefix")
	suffix, _ := schema.MessageOption(md, "suffix")

	var b strings.Builder
	b.WriteString(prefix)
	writeStore(&b, schema, md, st, 1)
	b.WriteString(suffix)
	return b.String()
}

func writeStore(b *strings.Builder, schema *descriptor.Schema, md protoreflect.MessageDescriptor, st *store.Store, depth int) {
	b.WriteString("{\n")
	for _, k := range st.ExportKeys() {
		child, _ := st.Get(k)
		indent(b, depth)
		b.WriteString(keyLiteral(k))
		b.WriteString(" = ")
		writeNode(b, schema, md, child, depth+1)
		b.WriteString(",\n")
	}
	indent(b, depth-1)
	b.WriteString("}")
}

func writeNode(b *strings.Builder, schema *descriptor.Schema, md protoreflect.MessageDescriptor, st *store.Store, depth int) {
	if st.IsLeaf() {
		rec, _ := st.Record()
		writeRecord(b, schema, md, rec)
		return
	}
	writeStore(b, schema, md, st, depth)
}

func writeRecord(b *strings.Builder, schema *descriptor.Schema, md protoreflect.MessageDescriptor, rec record.Record) {
	b.WriteString("{")
	for i, fd := range descriptor.FieldsInOrder(md) {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(fd.Name()))
		b.WriteString("=")
		writeValue(b, schema, fd, rec)
	}
	b.WriteString("}")
}

func writeValue(b *strings.Builder, schema *descriptor.Schema, fd protoreflect.FieldDescriptor, rec record.Record) {
	switch {
	case fd.IsMap():
		writeTable(b, schema, fd, rec)
	case fd.Cardinality() == protoreflect.Repeated:
		writeArray(b, schema, fd, rec)
	case fd.Kind() == protoreflect.MessageKind:
		sub, _ := rec.Get(fd).Message().Interface().(*dynamicpb.Message)
		writeRecord(b, schema, fd.Message(), sub)
	default:
		b.WriteString(singleLiteral(fd, rec.Get(fd)))
	}
}

func writeArray(b *strings.Builder, schema *descriptor.Schema, fd protoreflect.FieldDescriptor, rec record.Record) {
	list := rec.Get(fd).List()
	b.WriteString("{")
	for i := 0; i < list.Len(); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		v := list.Get(i)
		if fd.Kind() == protoreflect.MessageKind {
			sub, _ := v.Message().Interface().(*dynamicpb.Message)
			writeRecord(b, schema, fd.Message(), sub)
		} else {
			b.WriteString(singleLiteral(fd, v))
		}
	}
	b.WriteString("}")
}

// writeTable renders a map field (spec.md §3: repeated {key, value} under
// the hood) as a TABLE, key selection done via the synthetic key sub-field
// and sorted into the Key total order, same as a Store's children.
func writeTable(b *strings.Builder, schema *descriptor.Schema, fd protoreflect.FieldDescriptor, rec record.Record) {
	m := rec.Get(fd).Map()
	keyFD := fd.MapKey()
	valFD := fd.MapValue()

	type entry struct {
		key record.Key
		mk  protoreflect.MapKey
	}
	var entries []entry
	m.Range(func(mk protoreflect.MapKey, v protoreflect.Value) bool {
		entries = append(entries, entry{key: mapKeyToKey(keyFD, mk), mk: mk})
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].key.Less(entries[j].key) })

	b.WriteString("{")
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(keyLiteral(e.key))
		b.WriteString(" = ")
		v := m.Get(e.mk)
		if valFD.Kind() == protoreflect.MessageKind {
			sub, _ := v.Message().Interface().(*dynamicpb.Message)
			writeRecord(b, schema, valFD.Message(), sub)
		} else {
			b.WriteString(singleLiteral(valFD, v))
		}
	}
	b.WriteString("}")
}

func mapKeyToKey(fd protoreflect.FieldDescriptor, mk protoreflect.MapKey) record.Key {
	v := mk.Value()
	switch fd.Kind() {
	case protoreflect.StringKind:
		return record.StringKey(v.String())
	case protoreflect.BoolKind:
		if v.Bool() {
			return record.IntKey(1)
		}
		return record.IntKey(0)
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind, protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return record.IntKey(int64(v.Uint()))
	default:
		return record.IntKey(v.Int())
	}
}

// keyLiteral renders a Key in the KEY grammar of spec.md §4.5:
// '[' int ']' for an integer key, "['" str "']" for a string key.
func keyLiteral(k record.Key) string {
	if k.Kind == record.KindInt {
		return fmt.Sprintf("[%d]", k.Int)
	}
	return fmt.Sprintf("['%s']", k.Str)
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("\t")
	}
}

// singleLiteral renders a scalar field value per spec.md §4.5: booleans as
// 0/1, strings single-quoted with no escaping, enums as their numeric
// ordinal, floats via the host's default double-to-text conversion.
func singleLiteral(fd protoreflect.FieldDescriptor, v protoreflect.Value) string {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		if v.Bool() {
			return "1"
		}
		return "0"
	case protoreflect.StringKind:
		return "'" + v.String() + "'"
	case protoreflect.EnumKind:
		return strconv.FormatInt(int64(v.Enum()), 10)
	case protoreflect.FloatKind:
		return strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
	case protoreflect.DoubleKind:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return strconv.FormatInt(v.Int(), 10)
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return strconv.FormatUint(v.Uint(), 10)
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}
