package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadMappingFile reads export overrides from a YAML or JSON file.
//
// The file is a map from document kind to target:
//
//	application/vnd.google-apps.document:
//	  mime_type: application/pdf
//	  extension: pdf
//
// The format is determined by extension: .json for JSON, anything else is
// parsed as YAML (a superset of JSON).
func LoadMappingFile(path string) (map[string]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("export mapping file not found: %s", path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied reading export mapping: %s", path)
		}
		return nil, fmt.Errorf("failed to read export mapping file: %w", err)
	}
	return ParseMapping(data, path)
}

// ParseMapping parses export overrides from raw bytes.
// The path parameter is used for error messages and format detection.
func ParseMapping(data []byte, path string) (map[string]Target, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("export mapping file is empty")
	}

	table := make(map[string]Target)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to parse export mapping JSON: %w", err)
		}
	} else {
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(&table); err != nil {
			return nil, fmt.Errorf("failed to parse export mapping YAML: %w", err)
		}
	}

	for kind, target := range table {
		if err := validateEntry(kind, target); err != nil {
			return nil, err
		}
	}
	return table, nil
}
