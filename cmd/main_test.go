package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"overbind/internal/config"
)

func withConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := flagConfigDir
	flagConfigDir = dir
	t.Cleanup(func() { flagConfigDir = old })
	return dir
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bindings.yaml")
	yml := `bindings:
  - keycode: "41"
    result_type: socd
    result_value: 68
  - keycode: "44"
    result_type: socd
    result_value: 65
  - keycode: "20"
    result_type: mash_trigger
    result_value: 32
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runValidate(&out, []string{path}); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !strings.Contains(out.String(), `"mash_triggers": 1`) {
		t.Errorf("Expected one mash trigger in summary, got %s", out.String())
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`[{"keycode":"41","result_type":"warp","result_value":1}]`), 0644)
	if err := runValidate(&out, []string{bad}); err == nil {
		t.Error("Expected an error for an unknown result type")
	}
}

func TestExportImport(t *testing.T) {
	dir := withConfigDir(t)

	var out bytes.Buffer
	flagExportFormat = "yaml"
	flagExportOutput = ""
	t.Cleanup(func() { flagExportFormat = "json" })
	if err := runExport(&out); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(out.String(), "bindings:") {
		t.Errorf("Expected YAML document, got %s", out.String())
	}

	src := filepath.Join(t.TempDir(), "new.json")
	os.WriteFile(src, []byte(`[{"keycode":"57","result_type":"thumb_ly","result_value":-32768}]`), 0644)
	out.Reset()
	if err := runImport(&out, src); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	saved, err := config.ReadBindingsFile(filepath.Join(dir, config.BindingsFileName))
	if err != nil {
		t.Fatalf("Failed to read saved bindings: %v", err)
	}
	if len(saved) != 1 || saved[0].Keycode != "57" {
		t.Errorf("Expected imported binding 57, got %+v", saved)
	}
}

func TestImportRejectsInvalid(t *testing.T) {
	withConfigDir(t)

	src := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(src, []byte(`[{"keycode":"41","result_type":"socd","result_value":65}]`), 0644)
	if err := runImport(&bytes.Buffer{}, src); err == nil {
		t.Error("Expected a self-paired socd key to be rejected")
	}
}
