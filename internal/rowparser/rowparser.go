// Package rowparser implements the Row Parser (C3): header indexing against
// a schema's field labels, and the recursive row -> record algorithm of
// spec.md §4.3 (name synthesis, type enforcement, date -> epoch rewrite,
// nested-message and repeated-field enumeration).
package rowparser

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"xlstool/internal/charset"
	"xlstool/internal/coerce"
	"xlstool/internal/descriptor"
	"xlstool/internal/record"
	"xlstool/internal/sheet"
)

// CellError reports a type mismatch between a schema field and the cell
// backing it (spec.md §7's CellError kind).
type CellError struct {
	Sheet, Label     string
	Row              int
	Expected, Actual string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("rowparser: sheet %s row %d column %q: expected %s cell, got %s", e.Sheet, e.Row, e.Label, e.Expected, e.Actual)
}

// Parser turns the data rows of one sheet into records of a fixed message
// type. One Parser is built per (schema, sheet) pair and discarded once the
// sheet is exhausted.
type Parser struct {
	schema *descriptor.Schema
	cs     charset.Transcoder
	sh     sheet.Sheet
	log    *slog.Logger

	headers map[string]int // column label -> 1-based column index
}

// New builds a Parser and indexes sh's header row. logger may be nil, in
// which case slog.Default() is used for enum-resolution warnings.
func New(schema *descriptor.Schema, cs charset.Transcoder, sh sheet.Sheet, logger *slog.Logger) (*Parser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Parser{schema: schema, cs: cs, sh: sh, log: logger}
	if err := p.indexHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) indexHeader() error {
	p.headers = make(map[string]int)
	row := p.sh.FirstRow()
	for col := p.sh.FirstCol(); col <= p.sh.LastCol(); col++ {
		if p.sh.CellType(row, col) != sheet.CellString {
			continue
		}
		raw, err := p.sh.ReadString(row, col)
		if err != nil {
			return fmt.Errorf("rowparser: sheet %s: read header cell: %w", p.sh.Name(), err)
		}
		label, err := p.cs.ToUTF8(raw)
		if err != nil {
			return fmt.Errorf("rowparser: sheet %s: transcode header cell: %w", p.sh.Name(), err)
		}
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		p.headers[label] = col
	}
	return nil
}

// ParseRows parses every non-blank data row of the sheet into a record of
// type md. A malformed row aborts the whole sheet (spec.md §7: "a row error
// propagates to abort the sheet").
func (p *Parser) ParseRows(md protoreflect.MessageDescriptor) ([]record.Record, error) {
	var out []record.Record
	for row := p.sh.FirstRow() + 1; row <= p.sh.LastRow(); row++ {
		if p.rowEmpty(row) {
			continue
		}
		rec := record.New(md)
		if err := p.parseMessage(rec, md, row, ""); err != nil {
			return nil, fmt.Errorf("rowparser: sheet %s row %d: %w", p.sh.Name(), row, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p *Parser) rowEmpty(row int) bool {
	for col := p.sh.FirstCol(); col <= p.sh.LastCol(); col++ {
		ct := p.sh.CellType(row, col)
		if ct != sheet.CellEmpty && ct != sheet.CellBlank {
			return false
		}
	}
	return true
}

// join synthesizes the column label of a top-level or nested-message field
// (spec.md §4.3's f(base, label)).
func join(base, label string) string { return base + label }

// indexed synthesizes the column label of the i'th element of a repeated
// field (spec.md §4.3's g(label, i)). Enumeration is 1-based.
func indexed(label string, i int) string { return label + "[" + strconv.Itoa(i) + "]" }

func (p *Parser) parseMessage(rec record.Record, md protoreflect.MessageDescriptor, row int, base string) error {
	for _, fd := range descriptor.FieldsInOrder(md) {
		label := join(base, p.schema.Label(fd))
		switch {
		case fd.Kind() == protoreflect.MessageKind && fd.Cardinality() == protoreflect.Repeated:
			if err := p.parseRepeatedMessage(rec, fd, row, label); err != nil {
				return err
			}
		case fd.Kind() == protoreflect.MessageKind:
			if err := p.parseSingularMessage(rec, fd, row, label); err != nil {
				return err
			}
		case fd.Cardinality() == protoreflect.Repeated:
			if err := p.parseRepeatedScalar(rec, fd, row, label); err != nil {
				return err
			}
		default:
			if err := p.parseSingularScalar(rec, fd, row, label); err != nil {
				return err
			}
		}
	}
	return nil
}

func asDynamic(v protoreflect.Value) (*dynamicpb.Message, error) {
	m, ok := v.Message().Interface().(*dynamicpb.Message)
	if !ok {
		return nil, fmt.Errorf("rowparser: sub-message is not a dynamicpb.Message (got %T)", v.Message().Interface())
	}
	return m, nil
}

func (p *Parser) parseSingularMessage(rec record.Record, fd protoreflect.FieldDescriptor, row int, label string) error {
	present, err := p.subRecordPresent(fd.Message(), row, label+".")
	if err != nil {
		return err
	}
	if !present {
		return nil
	}
	sub, err := asDynamic(rec.Mutable(fd))
	if err != nil {
		return err
	}
	return p.parseMessage(sub, fd.Message(), row, label+".")
}

// parseRepeatedMessage enumerates elements at label[1], label[2], ... until
// the first absent element, appending one record per present element. A map
// field is a repeated message of the synthetic {key, value} entry type
// (spec.md §3), so it is handled by this same path.
func (p *Parser) parseRepeatedMessage(rec record.Record, fd protoreflect.FieldDescriptor, row int, label string) error {
	list := rec.Mutable(fd).List()
	for i := 1; ; i++ {
		idxLabel := indexed(label, i)
		present, err := p.subRecordPresent(fd.Message(), row, idxLabel+".")
		if err != nil {
			return err
		}
		if !present {
			break
		}
		val := list.NewElement()
		sub, err := asDynamic(val)
		if err != nil {
			return err
		}
		if err := p.parseMessage(sub, fd.Message(), row, idxLabel+"."); err != nil {
			return err
		}
		list.Append(val)
	}
	return nil
}

// subRecordPresent reports whether any leaf column under base holds a
// non-empty cell for row, which is how element enumeration detects the end
// of a repeated-message run (spec.md §4.4: "absence of every leaf column of
// an element ends the enumeration").
func (p *Parser) subRecordPresent(md protoreflect.MessageDescriptor, row int, base string) (bool, error) {
	for _, fd := range descriptor.FieldsInOrder(md) {
		label := join(base, p.schema.Label(fd))
		switch {
		case fd.Kind() == protoreflect.MessageKind && fd.Cardinality() == protoreflect.Repeated:
			present, err := p.subRecordPresent(fd.Message(), row, indexed(label, 1)+".")
			if err != nil {
				return false, err
			}
			if present {
				return true, nil
			}
		case fd.Kind() == protoreflect.MessageKind:
			present, err := p.subRecordPresent(fd.Message(), row, label+".")
			if err != nil {
				return false, err
			}
			if present {
				return true, nil
			}
		default:
			if p.cellNonEmpty(row, label) {
				return true, nil
			}
			if fd.Cardinality() == protoreflect.Repeated && p.cellNonEmpty(row, indexed(label, 1)) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (p *Parser) cellNonEmpty(row int, label string) bool {
	col, ok := p.headers[label]
	if !ok {
		return false
	}
	ct := p.sh.CellType(row, col)
	return ct != sheet.CellEmpty && ct != sheet.CellBlank
}

func (p *Parser) parseSingularScalar(rec record.Record, fd protoreflect.FieldDescriptor, row int, label string) error {
	col, ok := p.headers[label]
	if !ok {
		return nil
	}
	if !p.cellNonEmpty(row, label) {
		return nil
	}
	return p.writeScalar(rec, fd, row, col, label, false)
}

// parseRepeatedScalar handles both shapes spec.md §4.2 allows for a
// repeated scalar field: a single column holding a ';'-delimited numeric
// list, or a run of indexed columns label[1], label[2], ....
func (p *Parser) parseRepeatedScalar(rec record.Record, fd protoreflect.FieldDescriptor, row int, label string) error {
	if col, ok := p.headers[label]; ok {
		if !p.cellNonEmpty(row, label) {
			return nil
		}
		if !coerce.IsNumericKind(fd.Kind()) {
			return fmt.Errorf("rowparser: field %s: inline array column requires a numeric element kind, got %s", fd.Name(), fd.Kind())
		}
		raw, err := p.sh.ReadString(row, col)
		if err != nil {
			return fmt.Errorf("rowparser: field %s: %w", fd.Name(), err)
		}
		return coerce.FillNumberArray(rec, fd, raw, p.cs)
	}
	for i := 1; ; i++ {
		idxLabel := indexed(label, i)
		col, ok := p.headers[idxLabel]
		if !ok || !p.cellNonEmpty(row, idxLabel) {
			break
		}
		if err := p.writeScalar(rec, fd, row, col, idxLabel, true); err != nil {
			return err
		}
	}
	return nil
}

// writeScalar enforces the cell's type against the field kind and
// dispatches to the Field Coercer. isAppend selects Add* over Set* for
// repeated-field elements.
func (p *Parser) writeScalar(rec record.Record, fd protoreflect.FieldDescriptor, row, col int, label string, isAppend bool) error {
	ct := p.sh.CellType(row, col)

	switch fd.Kind() {
	case protoreflect.EnumKind:
		if ct != sheet.CellString {
			return &CellError{Sheet: p.sh.Name(), Row: row, Label: label, Expected: "string", Actual: ct.String()}
		}
		raw, err := p.sh.ReadString(row, col)
		if err != nil {
			return err
		}
		alias := func(ev protoreflect.EnumValueDescriptor) (string, bool) {
			return p.schema.EnumValueOption(ev, "cname")
		}
		var rerr error
		if isAppend {
			rerr = coerce.AddEnum(rec, fd, raw, p.cs, alias)
		} else {
			rerr = coerce.SetEnum(rec, fd, raw, p.cs, alias)
		}
		if rerr != nil {
			if re, ok := rerr.(*coerce.ResolutionError); ok {
				p.log.Warn("enum value did not resolve, using default", "sheet", p.sh.Name(), "row", row, "field", string(fd.Name()), "text", re.Text)
				return nil
			}
			return rerr
		}
		return nil

	case protoreflect.StringKind:
		if ct != sheet.CellString {
			return &CellError{Sheet: p.sh.Name(), Row: row, Label: label, Expected: "string", Actual: ct.String()}
		}
		raw, err := p.sh.ReadString(row, col)
		if err != nil {
			return err
		}
		if isAppend {
			return coerce.AddString(rec, fd, raw, p.cs)
		}
		return coerce.SetString(rec, fd, raw, p.cs)

	case protoreflect.BoolKind:
		if ct != sheet.CellBool {
			return &CellError{Sheet: p.sh.Name(), Row: row, Label: label, Expected: "bool", Actual: ct.String()}
		}
		v, err := p.sh.ReadBool(row, col)
		if err != nil {
			return err
		}
		if isAppend {
			return coerce.AddBool(rec, fd, v)
		}
		return coerce.SetBool(rec, fd, v)

	default: // numeric kinds, with date -> epoch conversion
		var num float64
		switch ct {
		case sheet.CellDate:
			t, err := p.sh.DateUnpack(row, col)
			if err != nil {
				return err
			}
			num = float64(t.Unix())
			if err := p.sh.WriteNumber(row, col, num); err != nil {
				return err
			}
		case sheet.CellNumber:
			v, err := p.sh.ReadNumber(row, col)
			if err != nil {
				return err
			}
			num = v
		default:
			return &CellError{Sheet: p.sh.Name(), Row: row, Label: label, Expected: "number", Actual: ct.String()}
		}
		if isAppend {
			return coerce.AddNumber(rec, fd, num)
		}
		return coerce.SetNumber(rec, fd, num)
	}
}
