package erd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// definitionDocument is the on-disk appliance API ERD definition format.
type definitionDocument struct {
	ERDs []rawDefinition `json:"erds" yaml:"erds"`
}

type rawDefinition struct {
	Name       string     `json:"name" yaml:"name"`
	ID         string     `json:"id" yaml:"id"`
	Operations []string   `json:"operations" yaml:"operations"`
	Data       []rawField `json:"data" yaml:"data"`
}

type rawField struct {
	Name   string            `json:"name" yaml:"name"`
	Type   string            `json:"type" yaml:"type"`
	Offset int               `json:"offset" yaml:"offset"`
	Size   int               `json:"size" yaml:"size"`
	Bits   *Bits             `json:"bits,omitempty" yaml:"bits,omitempty"`
	Values map[string]string `json:"values,omitempty" yaml:"values,omitempty"`
}

// LoadDefinitions reads an ERD definition document from path.
//
// Files ending in .yaml or .yml are parsed as YAML, everything else as JSON.
//
// Parameters:
//   - path: Path to the definition document
//
// Returns:
//   - *Store: Validated definitions
//   - error: Read, parse or validation failure
func LoadDefinitions(path string) (*Store, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("reading definitions %s: %w", path, err)
	}
	return ParseDefinitions(data, isYAML(path))
}

// ParseDefinitions parses an ERD definition document.
func ParseDefinitions(data []byte, asYAML bool) (*Store, error) {
	var doc definitionDocument
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parsing document: %v", ErrInvalidDefinition, err)
	}

	defs := make([]Definition, 0, len(doc.ERDs))
	for _, raw := range doc.ERDs {
		def, err := raw.toDefinition()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return NewStore(defs...)
}

func (r rawDefinition) toDefinition() (Definition, error) {
	id, err := ParseID(r.ID)
	if err != nil {
		return Definition{}, fmt.Errorf("%w: %q: %v", ErrInvalidDefinition, r.Name, err)
	}

	def := Definition{
		ID:         id,
		Name:       r.Name,
		Operations: r.Operations,
		Fields:     make([]Field, 0, len(r.Data)),
	}
	for _, rf := range r.Data {
		f := Field{
			Name:   rf.Name,
			Type:   FieldType(strings.ToLower(rf.Type)),
			Offset: rf.Offset,
			Size:   rf.Size,
			Bits:   rf.Bits,
		}
		if len(rf.Values) > 0 {
			f.Values = make(map[int64]string, len(rf.Values))
			for k, label := range rf.Values {
				code, err := strconv.ParseInt(strings.TrimSpace(k), 0, 64)
				if err != nil {
					return Definition{}, fmt.Errorf("%w: %s: field %q has invalid enum code %q",
						ErrInvalidDefinition, id, rf.Name, k)
				}
				f.Values[code] = label
			}
		}
		def.Fields = append(def.Fields, f)
	}
	return def, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
