// Package coerce implements the Field Coercer (C2): typed set/append of a
// record's field from raw cell values, enum-name/alias resolution, and
// semicolon-delimited inline-array expansion. The Row Parser is agnostic to
// field kind beyond dispatching to the right function here.
package coerce

import (
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"

	"xlstool/internal/charset"
	"xlstool/internal/record"
)

// ResolutionError is the ResolutionError kind of spec.md §7: an enum text
// matched neither a canonical name nor a cname alias. The caller logs it as
// a warning and the field is left at the enum's default value.
type ResolutionError struct {
	Field string
	Text  string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("coerce: field %s: enum text %q matches no name or alias", e.Field, e.Text)
}

// AliasLookup resolves an enum value's cname option, if any. Supplied by the
// caller so this package does not need to depend on internal/descriptor.
type AliasLookup func(protoreflect.EnumValueDescriptor) (string, bool)

func numberValue(fd protoreflect.FieldDescriptor, value float64) (protoreflect.Value, error) {
	switch fd.Kind() {
	case protoreflect.DoubleKind:
		return protoreflect.ValueOfFloat64(value), nil
	case protoreflect.FloatKind:
		return protoreflect.ValueOfFloat32(float32(value)), nil
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return protoreflect.ValueOfInt32(int32(value)), nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return protoreflect.ValueOfUint32(uint32(value)), nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return protoreflect.ValueOfInt64(int64(value)), nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return protoreflect.ValueOfUint64(uint64(value)), nil
	default:
		return protoreflect.Value{}, fmt.Errorf("coerce: field %s: not a numeric kind (%s)", fd.Name(), fd.Kind())
	}
}

// SetNumber coerces value to the field's numeric kind and writes it.
func SetNumber(msg record.Record, fd protoreflect.FieldDescriptor, value float64) error {
	v, err := numberValue(fd, value)
	if err != nil {
		return err
	}
	msg.Set(fd, v)
	return nil
}

// AddNumber coerces value to the field's numeric kind and appends it.
func AddNumber(msg record.Record, fd protoreflect.FieldDescriptor, value float64) error {
	v, err := numberValue(fd, value)
	if err != nil {
		return err
	}
	msg.Mutable(fd).List().Append(v)
	return nil
}

// SetBool writes a bool field.
func SetBool(msg record.Record, fd protoreflect.FieldDescriptor, value bool) error {
	if fd.Kind() != protoreflect.BoolKind {
		return fmt.Errorf("coerce: field %s: not a bool kind", fd.Name())
	}
	msg.Set(fd, protoreflect.ValueOfBool(value))
	return nil
}

// AddBool appends to a repeated bool field.
func AddBool(msg record.Record, fd protoreflect.FieldDescriptor, value bool) error {
	if fd.Kind() != protoreflect.BoolKind {
		return fmt.Errorf("coerce: field %s: not a bool kind", fd.Name())
	}
	msg.Mutable(fd).List().Append(protoreflect.ValueOfBool(value))
	return nil
}

// SetString writes a string field after transcoding to UTF-8.
func SetString(msg record.Record, fd protoreflect.FieldDescriptor, value string, cs charset.Transcoder) error {
	utf8, err := cs.ToUTF8(value)
	if err != nil {
		return err
	}
	msg.Set(fd, protoreflect.ValueOfString(utf8))
	return nil
}

// AddString appends to a repeated string field after transcoding to UTF-8.
func AddString(msg record.Record, fd protoreflect.FieldDescriptor, value string, cs charset.Transcoder) error {
	utf8, err := cs.ToUTF8(value)
	if err != nil {
		return err
	}
	msg.Mutable(fd).List().Append(protoreflect.ValueOfString(utf8))
	return nil
}

func resolveEnum(fd protoreflect.FieldDescriptor, text string, cs charset.Transcoder, alias AliasLookup) (protoreflect.EnumNumber, error) {
	utf8, err := cs.ToUTF8(text)
	def := fd.Default().Enum()
	if err != nil {
		return def, err
	}
	values := fd.Enum().Values()
	for i := 0; i < values.Len(); i++ {
		v := values.Get(i)
		if string(v.Name()) == utf8 {
			return v.Number(), nil
		}
		if alias != nil {
			if cname, ok := alias(v); ok && cname == utf8 {
				return v.Number(), nil
			}
		}
	}
	return def, &ResolutionError{Field: string(fd.Name()), Text: text}
}

// SetEnum resolves text to an enum value by canonical name or cname alias
// and writes it; on no match it writes the enum's default value and returns
// a *ResolutionError for the caller to log as a warning.
func SetEnum(msg record.Record, fd protoreflect.FieldDescriptor, text string, cs charset.Transcoder, alias AliasLookup) error {
	num, err := resolveEnum(fd, text, cs, alias)
	msg.Set(fd, protoreflect.ValueOfEnum(num))
	return err
}

// AddEnum is the repeated-field counterpart of SetEnum.
func AddEnum(msg record.Record, fd protoreflect.FieldDescriptor, text string, cs charset.Transcoder, alias AliasLookup) error {
	num, err := resolveEnum(fd, text, cs, alias)
	msg.Mutable(fd).List().Append(protoreflect.ValueOfEnum(num))
	return err
}

// IsNumericKind reports whether k is one of the numeric field kinds.
func IsNumericKind(k protoreflect.Kind) bool { return isNumericKind(k) }

func isNumericKind(k protoreflect.Kind) bool {
	switch k {
	case protoreflect.DoubleKind, protoreflect.FloatKind,
		protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return true
	default:
		return false
	}
}

// FillNumberArray splits text on ';' and appends each fragment as a number
// (spec.md §4.2): empty fragments yield 0.
func FillNumberArray(msg record.Record, fd protoreflect.FieldDescriptor, text string, cs charset.Transcoder) error {
	if !isNumericKind(fd.Kind()) {
		return fmt.Errorf("coerce: field %s: fill_number_array requires a numeric kind, got %s", fd.Name(), fd.Kind())
	}
	utf8, err := cs.ToUTF8(text)
	if err != nil {
		return err
	}
	for _, frag := range strings.Split(utf8, ";") {
		frag = strings.TrimSpace(frag)
		var v float64
		if frag != "" {
			v, err = strconv.ParseFloat(frag, 64)
			if err != nil {
				return fmt.Errorf("coerce: field %s: invalid numeric fragment %q: %w", fd.Name(), frag, err)
			}
		}
		if err := AddNumber(msg, fd, v); err != nil {
			return err
		}
	}
	return nil
}

// GetKey reads a scalar field as a Key; the field's kind must be
// integer/enum/string.
func GetKey(msg record.Record, fd protoreflect.FieldDescriptor) (record.Key, error) {
	v := msg.Get(fd)
	switch fd.Kind() {
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return record.IntKey(v.Int()), nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return record.IntKey(int64(v.Uint())), nil
	case protoreflect.EnumKind:
		return record.IntKey(int64(v.Enum())), nil
	case protoreflect.StringKind:
		return record.StringKey(v.String()), nil
	default:
		return record.Key{}, fmt.Errorf("coerce: field %s: kind %s is not a valid key kind", fd.Name(), fd.Kind())
	}
}
