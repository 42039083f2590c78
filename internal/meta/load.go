package meta

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gea-bridge/internal/erd"
)

// tableDocument is the on-disk transform table format.
type tableDocument struct {
	Transforms []rawRule `json:"transforms" yaml:"transforms"`
}

type rawRule struct {
	ERD     erd.ID      `json:"erd" yaml:"erd"`
	Field   string      `json:"field" yaml:"field"`
	Kind    string      `json:"kind" yaml:"kind"`
	Targets []rawTarget `json:"targets" yaml:"targets"`
}

type rawTarget struct {
	ERD    erd.ID `json:"erd" yaml:"erd"`
	Field  string `json:"field" yaml:"field"`
	Offset *int   `json:"offset,omitempty" yaml:"offset,omitempty"`
	Option string `json:"option,omitempty" yaml:"option,omitempty"`
}

// LoadTable reads a transform table from path.
//
// Files ending in .yaml or .yml are parsed as YAML, everything else as JSON.
//
// Example (YAML):
//
//	transforms:
//	  - erd: "0x4047"
//	    field: Minimum setpoint
//	    kind: set_min
//	    targets:
//	      - { erd: "0x4024", field: Temperature }
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("reading transform table %s: %w", path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return ParseTable(data, ext == ".yaml" || ext == ".yml")
}

// ParseTable parses a transform table document.
func ParseTable(data []byte, asYAML bool) (Table, error) {
	var doc tableDocument
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}

	table := make(Table)
	for i, raw := range doc.Transforms {
		kind, err := ParseKind(raw.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d: %v", ErrInvalidTable, i, err)
		}
		if raw.Field == "" {
			return nil, fmt.Errorf("%w: rule %d: field is required", ErrInvalidTable, i)
		}
		if len(raw.Targets) == 0 {
			return nil, fmt.Errorf("%w: rule %d: at least one target is required", ErrInvalidTable, i)
		}

		rule := Rule{Field: raw.Field, Kind: kind}
		for j, rt := range raw.Targets {
			if rt.Field == "" && rt.Offset == nil {
				return nil, fmt.Errorf("%w: rule %d target %d: field or offset is required", ErrInvalidTable, i, j)
			}
			if kind == KindSetAllowable && rt.Option == "" {
				return nil, fmt.Errorf("%w: rule %d target %d: set_allowable needs an option", ErrInvalidTable, i, j)
			}
			rule.Targets = append(rule.Targets, Target(rt))
		}
		table[raw.ERD] = append(table[raw.ERD], rule)
	}
	return table, nil
}
