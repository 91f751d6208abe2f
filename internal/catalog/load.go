package catalog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileDocument is the wrapped form of JSON/YAML catalog files. A bare list of
// entries is accepted too.
type fileDocument struct {
	Entries []Entry `json:"entries" yaml:"entries"`
}

// LoadFile reads a catalog file. The format is chosen by extension: .json,
// .yaml/.yml or .csv.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var entries []Entry
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		entries, err = decodeJSON(data)
	case ".yaml", ".yml":
		entries, err = decodeYAML(data)
	case ".csv":
		entries, err = decodeCSV(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("catalog file %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}

	for i, entry := range entries {
		if strings.TrimSpace(entry.Title) == "" || strings.TrimSpace(entry.System) == "" {
			return nil, fmt.Errorf("catalog file %s: entry %d: title and system are required", path, i+1)
		}
	}
	return entries, nil
}

func decodeJSON(data []byte) ([]Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return entries, nil
	}
	var doc fileDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return doc.Entries, nil
}

func decodeYAML(data []byte) ([]Entry, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var entries []Entry
		if err := root.Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return entries, nil
	}
	var doc fileDocument
	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return doc.Entries, nil
}

// decodeCSV reads a header row naming any of title, system, serial, region,
// path and aliases. Aliases are "type=identifier" pairs separated by ';'.
func decodeCSV(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"title", "system"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("csv header missing %q column", required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var entries []Entry
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		entry := Entry{
			Title:  field(record, "title"),
			System: field(record, "system"),
			Serial: field(record, "serial"),
			Region: field(record, "region"),
			Path:   field(record, "path"),
		}
		aliases, err := parseAliasList(field(record, "aliases"))
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		entry.Aliases = aliases
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseAliasList(value string) ([]Alias, error) {
	if value == "" {
		return nil, nil
	}
	var out []Alias
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idType, identifier, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("alias %q: want type=identifier", part)
		}
		out = append(out, Alias{IDType: strings.TrimSpace(idType), Identifier: strings.TrimSpace(identifier)})
	}
	return out, nil
}
