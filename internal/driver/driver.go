// Package driver wires the Descriptor Model, Row Parser, Keyed Store, and
// encoders into the batch pipeline of spec.md §5–§7: one pass per schema
// message type that carries a "key" option, workbook/sheet pairs from the
// excel/sheet message options' semicolon-separated lists zipped positionally
// (not as a cross product) and concatenated in pair order, and output
// written only after a fully successful in-memory encode.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"

	"xlstool/internal/charset"
	"xlstool/internal/codec"
	"xlstool/internal/config"
	"xlstool/internal/descriptor"
	"xlstool/internal/record"
	"xlstool/internal/rowparser"
	"xlstool/internal/sheet"
	"xlstool/internal/sheet/excelsheet"
	"xlstool/internal/sheet/legacysheet"
	"xlstool/internal/store"
	"xlstool/internal/util"
)

// OpenWorkbook dispatches to the spreadsheet backend selected by the
// path's extension (spec.md §6: "Workbook extension determines backend
// variant"). It lives here, above internal/sheet's subpackages, so that
// neither backend needs to import the other.
func OpenWorkbook(path string) (sheet.Workbook, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return excelsheet.Open(path)
	case ".xls":
		return legacysheet.Open(path)
	default:
		return nil, fmt.Errorf("driver: unsupported workbook extension %q", filepath.Ext(path))
	}
}

// Result is one message type's completed output, held in memory until
// Write persists it.
type Result struct {
	Message  string
	OutDir   string
	BaseName string
	Binary   []byte
	Text     string
}

// Write persists the .bytes envelope and .lua text literal under OutDir,
// creating it if necessary.
func (r *Result) Write() error {
	if r.OutDir != "" {
		if err := os.MkdirAll(r.OutDir, 0o755); err != nil {
			return util.WrapError(util.KindIO, err, "create output directory", slog.String("dir", r.OutDir))
		}
	}
	binPath := filepath.Join(r.OutDir, r.BaseName+".bytes")
	if err := os.WriteFile(binPath, r.Binary, 0o644); err != nil {
		return util.WrapError(util.KindIO, err, "write binary envelope", slog.String("path", binPath))
	}
	luaPath := filepath.Join(r.OutDir, r.BaseName+".lua")
	if err := os.WriteFile(luaPath, []byte(r.Text), 0o644); err != nil {
		return util.WrapError(util.KindIO, err, "write text literal", slog.String("path", luaPath))
	}
	return nil
}

// Run compiles schemaPath and processes every message type carrying a
// "key" option. A failure on one message type is logged and skipped,
// matching spec.md §7's "abort scheme, skip to next scheme" policy; Run
// itself only errors if the schema fails to compile at all or the
// configured codepage is unsupported.
func Run(ctx context.Context, schemaPath string, cfg *config.Config) ([]*Result, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}

	schema, err := descriptor.Load(ctx, schemaPath)
	if err != nil {
		return nil, util.WrapError(util.KindSchema, err, "load schema", slog.String("path", schemaPath))
	}

	cs, err := charset.New(cfg.Codepage)
	if err != nil {
		return nil, util.WrapError(util.KindSchema, err, "build charset transcoder", slog.String("codepage", cfg.Codepage))
	}

	ctx = util.WithField(ctx, "schema", schemaPath)

	var results []*Result
	for _, md := range schema.Messages() {
		keyOpt, ok := schema.MessageOption(md, "key")
		if !ok {
			continue // a plain nested type, not a top-level config message
		}
		res, err := processMessage(ctx, schema, md, cfg, cs, keyOpt)
		if err != nil {
			util.LogError(util.Logger, err)
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

func processMessage(ctx context.Context, schema *descriptor.Schema, md protoreflect.MessageDescriptor, cfg *config.Config, cs charset.Transcoder, keyOpt string) (*Result, error) {
	name := string(md.Name())
	ctx = util.WithField(ctx, "message", name)
	log := util.FromContext(ctx)

	excelOpt, hasExcel := schema.MessageOption(md, "excel")
	if over, ok := cfg.OverrideExcel(name); ok {
		excelOpt, hasExcel = over, true
	}
	if !hasExcel {
		return nil, util.NewError(util.KindInput, "message has a key option but no excel option", slog.String("message", name))
	}

	sheetOpt, hasSheet := schema.MessageOption(md, "sheet")
	if over, ok := cfg.OverrideSheet(name); ok {
		sheetOpt, hasSheet = over, true
	}
	if !hasSheet {
		return nil, util.NewError(util.KindInput, "message has a key option but no sheet option", slog.String("message", name))
	}

	outputName, hasOutput := schema.MessageOption(md, "output")
	if over, ok := cfg.OverrideOutput(name); ok {
		outputName, hasOutput = over, true
	}
	if !hasOutput {
		outputName = name
	}

	keys := splitList(keyOpt)
	log.Info("processing message", "excel", excelOpt, "sheet", sheetOpt, "keys", keyOpt)
	records, err := loadRecords(ctx, schema, md, cs, splitList(excelOpt), splitList(sheetOpt))
	if err != nil {
		return nil, err
	}

	st, err := store.Build(md, records, keys)
	if err != nil {
		return nil, util.WrapError(util.KindSchema, err, "build store", slog.String("message", name))
	}

	binary, err := codec.EncodeBinary(name, keys, records)
	if err != nil {
		return nil, util.WrapError(util.KindIO, err, "encode binary envelope", slog.String("message", name))
	}
	text := codec.EncodeText(schema, md, st)

	return &Result{Message: name, OutDir: cfg.OutDir, BaseName: outputName, Binary: binary, Text: text}, nil
}

// pairWorkbooksAndSheets pairs excelPaths with sheetNames the way
// ProtoExcel.cpp's ParseConfig does: a list of one is broadcast to match
// the other by repeating its last element; two lists both longer than one
// must already agree in length. It is a positional zip, never a
// cross product — "a.xlsx;b.xlsx" paired with "Monsters;Items" means
// a.xlsx/Monsters and b.xlsx/Items, not all four combinations.
func pairWorkbooksAndSheets(excelPaths, sheetNames []string) ([]string, []string, error) {
	if len(excelPaths) > 1 && len(sheetNames) > 1 && len(excelPaths) != len(sheetNames) {
		return nil, nil, util.NewError(util.KindInput, "excel/sheet list size mismatch",
			slog.Int("excel_count", len(excelPaths)), slog.Int("sheet_count", len(sheetNames)))
	}

	n := len(excelPaths)
	if len(sheetNames) > n {
		n = len(sheetNames)
	}

	paths := broadcast(excelPaths, n)
	sheets := broadcast(sheetNames, n)
	return paths, sheets, nil
}

// broadcast extends list to length n by repeating its last element, the
// same rule ParseConfig applies to whichever of excel_names/sheet_names is
// shorter.
func broadcast(list []string, n int) []string {
	out := make([]string, len(list), n)
	copy(out, list)
	last := list[len(list)-1]
	for len(out) < n {
		out = append(out, last)
	}
	return out
}

// loadRecords pairs the message's workbooks and sheets positionally
// (pairWorkbooksAndSheets) and concatenates each pair's rows in pair order
// before handing the combined list to the Keyed Store.
func loadRecords(ctx context.Context, schema *descriptor.Schema, md protoreflect.MessageDescriptor, cs charset.Transcoder, excelPaths, sheetNames []string) ([]record.Record, error) {
	name := string(md.Name())
	log := util.FromContext(ctx)

	paths, sheets, err := pairWorkbooksAndSheets(excelPaths, sheetNames)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	var openPath string
	var wb sheet.Workbook

	for i, path := range paths {
		if wb == nil || path != openPath {
			if wb != nil {
				if err := wb.Close(); err != nil {
					util.Logger.Warn("closing workbook failed", "path", openPath, "error", err.Error())
				}
			}
			wb, err = OpenWorkbook(path)
			if err != nil {
				return nil, util.WrapError(util.KindInput, err, "open workbook", slog.String("message", name), slog.String("path", path))
			}
			openPath = path
		}

		sheetName := sheets[i]
		sh, err := wb.SheetByName(sheetName)
		if err != nil {
			log.Warn("sheet not found in workbook, skipping", "workbook", path, "sheet", sheetName)
			continue
		}

		parser, err := rowparser.New(schema, cs, sh, nil)
		if err != nil {
			wb.Close()
			return nil, util.WrapError(util.KindCell, err, "index sheet header", slog.String("message", name), slog.String("sheet", sheetName))
		}

		rows, err := parser.ParseRows(md)
		if err != nil {
			wb.Close()
			return nil, util.WrapError(util.KindCell, err, "parse rows", slog.String("message", name), slog.String("sheet", sheetName))
		}
		records = append(records, rows...)
	}

	if wb != nil {
		if err := wb.Close(); err != nil {
			util.Logger.Warn("closing workbook failed", "path", openPath, "error", err.Error())
		}
	}

	return records, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
