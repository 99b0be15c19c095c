// Package loader reads configuration trees from TOML, YAML and JSON
// documents. The document root is a node: a mapping with "type" and the
// optional "properties", "bindings", "events" and "children" keys.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"gitlab.com/tinyland/lab/declui/pkg/factory"
)

// ErrUnknownFormat is returned for file extensions without a decoder.
var ErrUnknownFormat = errors.New("loader: unknown format")

// Format names a document encoding.
type Format string

const (
	TOML Format = "toml"
	YAML Format = "yaml"
	JSON Format = "json"
)

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
}

// LoadFile reads the node tree stored at path. The format follows the
// file extension.
func LoadFile(path string) (factory.Node, error) {
	format, err := FormatOf(path)
	if err != nil {
		return factory.Node{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return factory.Node{}, fmt.Errorf("loader: read %s: %w", path, err)
	}
	n, err := Decode(format, data)
	if err != nil {
		return factory.Node{}, fmt.Errorf("loader: %s: %w", path, err)
	}
	return n, nil
}

// Decode parses data in format into a node tree.
func Decode(format Format, data []byte) (factory.Node, error) {
	var tree map[string]any
	var err error
	switch format {
	case TOML:
		tree, err = decodeTOML(data)
	case YAML:
		tree, err = decodeYAML(data)
	case JSON:
		tree, err = decodeJSON(data)
	default:
		return factory.Node{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return factory.Node{}, err
	}
	return factory.ParseNode(tree)
}

// LoadTOML reads a TOML document from r.
func LoadTOML(r io.Reader) (factory.Node, error) { return load(TOML, r) }

// LoadYAML reads a YAML document from r.
func LoadYAML(r io.Reader) (factory.Node, error) { return load(YAML, r) }

// LoadJSON reads a JSON document from r.
func LoadJSON(r io.Reader) (factory.Node, error) { return load(JSON, r) }

func load(format Format, r io.Reader) (factory.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return factory.Node{}, fmt.Errorf("loader: read: %w", err)
	}
	return Decode(format, data)
}

func decodeTOML(data []byte) (map[string]any, error) {
	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("loader: toml: %w", err)
	}
	return tree, nil
}

func decodeYAML(data []byte) (map[string]any, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("loader: yaml: %w", err)
	}
	if tree == nil {
		return nil, errors.New("loader: yaml: empty document")
	}
	return tree, nil
}

func decodeJSON(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree map[string]any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("loader: json: %w", err)
	}
	if tree == nil {
		return nil, errors.New("loader: json: null document")
	}
	return tree, nil
}

// --- Encoding ---

// Encode writes n to w in format.
func Encode(w io.Writer, format Format, n factory.Node) error {
	tree := n.Tree()
	switch format {
	case TOML:
		if err := toml.NewEncoder(w).Encode(tree); err != nil {
			return fmt.Errorf("loader: toml: %w", err)
		}
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return fmt.Errorf("loader: yaml: %w", err)
		}
		return enc.Close()
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tree); err != nil {
			return fmt.Errorf("loader: json: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return nil
}

// SaveFile writes n to path in the format implied by its extension.
func SaveFile(path string, n factory.Node) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, format, n); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("loader: write %s: %w", path, err)
	}
	return nil
}
