package config

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// bindingsDocument is the YAML layout used for import/export; it keeps the
// records under a named key so the file can grow more sections later.
type bindingsDocument struct {
	Bindings []Binding `yaml:"bindings"`
}

// ExportBindings writes bindings in the given format ("json" or "yaml")
func ExportBindings(w io.Writer, bindings []Binding, format string) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(bindingsDocument{Bindings: bindings}); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		data, err := json.MarshalIndent(bindings, "", "  ")
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// ImportBindings parses bindings from data. The format is taken from the
// file name extension; anything that is not .yaml/.yml is read as JSON.
func ImportBindings(name string, data []byte) ([]Binding, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var doc bindingsDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		return doc.Bindings, nil
	default:
		var bindings []Binding
		if err := json.Unmarshal(data, &bindings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		return bindings, nil
	}
}
