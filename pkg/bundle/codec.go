package bundle

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Format is a bundle file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXML  Format = "xml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".ubundle":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".xml":
		return FormatXML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Encode serializes doc.
func Encode(doc Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatXML:
		data, err := xml.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append([]byte(xml.Header), data...), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Decode parses a bundle. Documents without a version are rejected.
func Decode(data []byte, format Format) (Document, error) {
	var (
		doc Document
		err error
	)
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatXML:
		err = xml.Unmarshal(data, &doc)
	default:
		return doc, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return doc, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	if doc.ExportVersion <= 0 {
		return doc, fmt.Errorf("%w: missing export_version", ErrInvalidBundle)
	}
	return doc, nil
}

// Save writes doc to path in the format its extension names.
func Save(fs afero.Fs, path string, doc Document) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Encode(doc, format)
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	return nil
}

// Load reads a bundle from path.
func Load(fs afero.Fs, path string) (Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Document{}, err
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read bundle: %w", err)
	}
	return Decode(data, format)
}
