package codec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"xlstool/internal/charset"
	"xlstool/internal/coerce"
	"xlstool/internal/descriptor"
	"xlstool/internal/record"
	"xlstool/internal/store"
)

const testSchema = `syntax = "proto2";

package test;

import "xlstool/options.proto";

message Role {
  option (xlstool.excel) = "roles.xlsx";
  option (xlstool.sheet) = "Sheet1";
  option (xlstool.key) = "faction;roleid";
  option (xlstool.prefix) = "return ";
  option (xlstool.suffix) = "\n";

  required string faction = 1;
  required int32 roleid = 2;
  required string name = 3;
  required bool active = 4;
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

func makeRole(t *testing.T, schema *descriptor.Schema, faction string, roleid int32, name string, active bool) record.Record {
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
	if err := coerce.SetBool(rec, fields.ByName("active"), active); err != nil {
		t.Fatalf("SetBool(active): %v", err)
	}
	return rec
}

func TestEncodeDecodeBinaryRoundTrip(t *testing.T) {
	schema := loadFixture(t)
	md, _ := schema.Message("Role")
	records := []record.Record{
		makeRole(t, schema, "red", 1, "Archer", true),
		makeRole(t, schema, "blue", 2, "Mage", false),
	}
	keys := []string{"faction", "roleid"}

	data, err := EncodeBinary("Role", keys, records)
	if err != nil {
		t.Fatalf("EncodeBinary: %v", err)
	}

	env, err := DecodeBinary(data, md)
	if err != nil {
		t.Fatalf("DecodeBinary: %v", err)
	}
	if env.Scheme != "Role" {
		t.Errorf("Scheme = %q, want Role", env.Scheme)
	}
	if len(env.Keys) != 2 || env.Keys[0] != "faction" || env.Keys[1] != "roleid" {
		t.Errorf("Keys = %v, want [faction roleid]", env.Keys)
	}
	if len(env.Records) != 2 {
		t.Fatalf("Records len = %d, want 2", len(env.Records))
	}
	fields := md.Fields()
	if got := env.Records[0].Get(fields.ByName("name")).String(); got != "Archer" {
		t.Errorf("Records[0].name = %q, want Archer", got)
	}
	if got := env.Records[1].Get(fields.ByName("active")).Bool(); got != false {
		t.Errorf("Records[1].active = %v, want false", got)
	}
}

func TestDecodeBinaryRejectsMalformedData(t *testing.T) {
	schema := loadFixture(t)
	md, _ := schema.Message("Role")
	garbage := []byte{0x00, 0x01, 0x02, 0x03}
	if _, err := DecodeBinary(garbage, md); err == nil {
		t.Fatal("expected a DecodeError for malformed data")
	}
}

func TestEncodeTextProducesNestedLiteral(t *testing.T) {
	schema := loadFixture(t)
	md, _ := schema.Message("Role")
	records := []record.Record{
		makeRole(t, schema, "red", 1, "Archer", true),
		makeRole(t, schema, "red", 2, "Knight", false),
	}
	st, err := store.Build(md, records, []string{"faction", "roleid"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	text := EncodeText(schema, md, st)
	if text[:len("return ")] != "return " {
		t.Errorf("expected prefix 'return ', got %q", text[:len("return ")])
	}
	if text[len(text)-1] != '\n' {
		t.Error("expected suffix newline")
	}
	if !contains(text, "['red']") {
		t.Errorf("expected a ['red'] key literal, got %s", text)
	}
	if !contains(text, "[1]") || !contains(text, "[2]") {
		t.Errorf("expected [1] and [2] key literals, got %s", text)
	}
	if !contains(text, "faction='red'") {
		t.Errorf("expected faction field literal, got %s", text)
	}
	if !contains(text, "active=1") || !contains(text, "active=0") {
		t.Errorf("expected bool fields rendered as 1/0, got %s", text)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
