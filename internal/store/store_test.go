package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"xlstool/internal/charset"
	"xlstool/internal/coerce"
	"xlstool/internal/descriptor"
	"xlstool/internal/record"
)

const testSchema = `syntax = "proto2";

package test;

import "xlstool/options.proto";

message Role {
  option (xlstool.excel) = "roles.xlsx";
  option (xlstool.sheet) = "Sheet1";
  option (xlstool.key) = "faction;roleid";

  required string faction = 1;
  required int32 roleid = 2;
  required string name = 3;
}
`

func loadFixture(t *testing.T) *descriptor.Schema {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "role.proto")
	if err := os.WriteFile(path, []byte(testSchema), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	schema, err := descriptor.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return schema
}

func makeRole(t *testing.T, schema *descriptor.Schema, faction string, roleid int32, name string) record.Record {
	t.Helper()
	md, ok := schema.Message("Role")
	if !ok {
		t.Fatal("message Role not found")
	}
	rec := record.New(md)
	factionFD := md.Fields().ByName("faction")
	roleidFD := md.Fields().ByName("roleid")
	nameFD := md.Fields().ByName("name")
	cs, err := charset.New("utf-8")
	if err != nil {
		t.Fatalf("charset.New: %v", err)
	}
	if err := coerce.SetString(rec, factionFD, faction, cs); err != nil {
		t.Fatalf("SetString(faction): %v", err)
	}
	if err := coerce.SetNumber(rec, roleidFD, float64(roleid)); err != nil {
		t.Fatalf("SetNumber(roleid): %v", err)
	}
	if err := coerce.SetString(rec, nameFD, name, cs); err != nil {
		t.Fatalf("SetString(name): %v", err)
	}
	return rec
}

func TestBuildTwoLevelPartition(t *testing.T) {
	schema := loadFixture(t)
	md, _ := schema.Message("Role")
	records := []record.Record{
		makeRole(t, schema, "red", 1, "Archer"),
		makeRole(t, schema, "red", 2, "Knight"),
		makeRole(t, schema, "blue", 1, "Mage"),
	}

	root, err := Build(md, records, []string{"faction", "roleid"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if root.IsLeaf() {
		t.Fatal("root should not be a leaf")
	}
	if len(root.Records()) != 3 {
		t.Fatalf("root.Records() len = %d, want 3", len(root.Records()))
	}

	red, ok := root.Get(record.StringKey("red"))
	if !ok {
		t.Fatal("expected a red faction bucket")
	}
	if red.IsLeaf() {
		t.Fatal("faction node should not be a leaf")
	}
	if len(red.Records()) != 2 {
		t.Fatalf("red.Records() len = %d, want 2", len(red.Records()))
	}

	archer, ok := red.Get(record.IntKey(1))
	if !ok {
		t.Fatal("expected roleid 1 under red")
	}
	if !archer.IsLeaf() {
		t.Fatal("roleid node should be a leaf")
	}
	rec, ok := archer.Record()
	if !ok {
		t.Fatal("expected a record at the leaf")
	}
	md2 := rec.Descriptor()
	if got := rec.Get(md2.Fields().ByName("name")).String(); got != "Archer" {
		t.Errorf("name = %q, want Archer", got)
	}
}

func TestBuildFirstWinsOnDuplicateKey(t *testing.T) {
	schema := loadFixture(t)
	md, _ := schema.Message("Role")
	records := []record.Record{
		makeRole(t, schema, "red", 1, "First"),
		makeRole(t, schema, "red", 1, "Second"),
	}
	root, err := Build(md, records, []string{"faction", "roleid"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	red, _ := root.Get(record.StringKey("red"))
	leaf, _ := red.Get(record.IntKey(1))
	rec, ok := leaf.Record()
	if !ok {
		t.Fatal("expected a record")
	}
	if got := rec.Get(rec.Descriptor().Fields().ByName("name")).String(); got != "First" {
		t.Errorf("name = %q, want First (first-wins)", got)
	}
	if len(leaf.Records()) != 2 {
		t.Errorf("leaf should retain both duplicate records, got %d", len(leaf.Records()))
	}
}

func TestExportKeysSortedByTotalOrder(t *testing.T) {
	schema := loadFixture(t)
	md, _ := schema.Message("Role")
	records := []record.Record{
		makeRole(t, schema, "zeta", 1, "Z"),
		makeRole(t, schema, "alpha", 1, "A"),
		makeRole(t, schema, "mid", 1, "M"),
	}
	root, err := Build(md, records, []string{"faction"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	keys := root.ExportKeys()
	want := []string{"alpha", "mid", "zeta"}
	if len(keys) != len(want) {
		t.Fatalf("ExportKeys len = %d, want %d", len(keys), len(want))
	}
	for i, w := range want {
		if keys[i].String() != w {
			t.Errorf("ExportKeys[%d] = %q, want %q", i, keys[i].String(), w)
		}
	}
}

func TestBuildUnknownKeyFieldIsSchemaError(t *testing.T) {
	schema := loadFixture(t)
	md, _ := schema.Message("Role")
	records := []record.Record{makeRole(t, schema, "red", 1, "Archer")}
	_, err := Build(md, records, []string{"nonexistent"})
	if err == nil {
		t.Fatal("expected a SchemaError")
	}
	if _, ok := err.(*SchemaError); !ok {
		t.Fatalf("got %T, want *SchemaError", err)
	}
}
