package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"xlstool/internal/charset"
	"xlstool/internal/codec"
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

func loadFixtureSchema(t *testing.T) *descriptor.Schema {
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
	md, _ := schema.Message("Role")
	rec := record.New(md)
	cs, _ := charset.New("utf-8")
	fields := md.Fields()
	if err := coerce.SetString(rec, fields.ByName("faction"), faction, cs); err != nil {
		t.Fatalf("SetString(faction): %v", err)
	}
	if err := coerce.SetNumber(rec, fields.ByName("roleid"), float64(roleid)); err != nil {
		t.Fatalf("SetNumber(roleid): %v", err)
	}
	if err := coerce.SetString(rec, fields.ByName("name"), name, cs); err != nil {
		t.Fatalf("SetString(name): %v", err)
	}
	return rec
}

func TestLoadBytesAndGetConfig(t *testing.T) {
	schema := loadFixtureSchema(t)
	md, _ := schema.Message("Role")
	records := []record.Record{
		makeRole(t, schema, "red", 1, "Archer"),
		makeRole(t, schema, "red", 2, "Knight"),
		makeRole(t, schema, "blue", 1, "Mage"),
	}
	data, err := codec.EncodeBinary("Role", []string{"faction", "roleid"}, records)
	if err != nil {
		t.Fatalf("EncodeBinary: %v", err)
	}

	store, err := LoadBytes(data, md)
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if store.Scheme() != "Role" {
		t.Errorf("Scheme() = %q, want Role", store.Scheme())
	}

	rec, ok := store.GetConfig(record.StringKey("red"), record.IntKey(1))
	if !ok {
		t.Fatal("expected a hit for red/1")
	}
	fields := md.Fields()
	if got := rec.Get(fields.ByName("name")).String(); got != "Archer" {
		t.Errorf("GetConfig(red,1).name = %q, want Archer", got)
	}

	if _, ok := store.GetConfig(record.StringKey("green"), record.IntKey(1)); ok {
		t.Error("expected a miss for an unknown faction")
	}
	if _, ok := store.GetConfig(record.StringKey("red"), record.IntKey(99)); ok {
		t.Error("expected a miss for an unknown roleid within a known faction")
	}
}

func TestLoadBytesRejectsCorruptEnvelope(t *testing.T) {
	schema := loadFixtureSchema(t)
	md, _ := schema.Message("Role")
	if _, err := LoadBytes([]byte{0xde, 0xad, 0xbe, 0xef}, md); err == nil {
		t.Fatal("expected an error decoding a corrupt envelope")
	}
}

func TestLoadReadsFromDisk(t *testing.T) {
	schema := loadFixtureSchema(t)
	md, _ := schema.Message("Role")
	records := []record.Record{makeRole(t, schema, "red", 1, "Archer")}
	data, err := codec.EncodeBinary("Role", []string{"faction", "roleid"}, records)
	if err != nil {
		t.Fatalf("EncodeBinary: %v", err)
	}
	path := filepath.Join(t.TempDir(), "roles.bytes")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	store, err := Load(path, md)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := store.GetConfig(record.StringKey("red"), record.IntKey(1)); !ok {
		t.Error("expected a hit for red/1 after loading from disk")
	}
}
