package meta

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseKind(t *testing.T) {
	for k, name := range kindNames {
		got, err := ParseKind(name)
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v, want %v", name, got, err, k)
		}
		if k.String() != name {
			t.Errorf("%d.String() = %q, want %q", int(k), k.String(), name)
		}
	}
	if _, err := ParseKind("explode"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ParseKind(explode) error = %v, want ErrUnknownKind", err)
	}
}

func TestLoadTable_YAML(t *testing.T) {
	doc := `
transforms:
  - erd: 0x4047
    field: Minimum setpoint
    kind: set_min
    targets:
      - { erd: "0x4024", field: Temperature }
  - erd: "0x4040"
    field: Available Modes.Hybrid
    kind: set_allowable
    targets:
      - { erd: "0x4041", offset: 0, option: Hybrid }
`
	path := filepath.Join(t.TempDir(), "transforms.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable() error = %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("len(table) = %d, want 2", len(table))
	}

	minRule := table[0x4047][0]
	if minRule.Kind != KindSetMin || minRule.Targets[0].ERD != 0x4024 || minRule.Targets[0].Field != "Temperature" {
		t.Errorf("0x4047 rule = %+v", minRule)
	}
	allow := table[0x4040][0].Targets[0]
	if allow.Offset == nil || *allow.Offset != 0 || allow.Option != "Hybrid" {
		t.Errorf("0x4040 target = %+v", allow)
	}
}

func TestParseTable_JSON(t *testing.T) {
	doc := `{"transforms":[{"erd":"0x0008","field":"Temp Supported","kind":"enable","targets":[{"erd":"0x0001","field":"Test Number"}]}]}`

	table, err := ParseTable([]byte(doc), false)
	if err != nil {
		t.Fatalf("ParseTable() error = %v", err)
	}
	if rules := table[0x0008]; len(rules) != 1 || rules[0].Kind != KindEnable {
		t.Errorf("table = %+v", table)
	}
}

func TestParseTable_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad kind", `{"transforms":[{"erd":"0x1","field":"f","kind":"boom","targets":[{"erd":"0x2","field":"g"}]}]}`},
		{"no field", `{"transforms":[{"erd":"0x1","kind":"enable","targets":[{"erd":"0x2","field":"g"}]}]}`},
		{"no targets", `{"transforms":[{"erd":"0x1","field":"f","kind":"enable"}]}`},
		{"target without field or offset", `{"transforms":[{"erd":"0x1","field":"f","kind":"enable","targets":[{"erd":"0x2"}]}]}`},
		{"allowable without option", `{"transforms":[{"erd":"0x1","field":"f","kind":"set_allowable","targets":[{"erd":"0x2","field":"g"}]}]}`},
		{"bad erd", `{"transforms":[{"erd":"nope","field":"f","kind":"enable","targets":[{"erd":"0x2","field":"g"}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTable([]byte(tt.doc), false); err == nil {
				t.Error("ParseTable() error = nil, want failure")
			}
		})
	}
}

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	rules, ok := table[0x4047]
	if !ok || len(rules) != 2 {
		t.Fatalf("DefaultTable()[0x4047] = %+v", rules)
	}
	if rules[0].Kind != KindSetMin || rules[1].Kind != KindSetMax {
		t.Errorf("kinds = %v, %v, want set_min, set_max", rules[0].Kind, rules[1].Kind)
	}
	if got := table[0x4048]; len(got) != 1 || got[0].Kind != KindSetUnit {
		t.Errorf("DefaultTable()[0x4048] = %+v", got)
	}
	if got := table[0x4049]; len(got) != 3 || got[1].Targets[0].Option != "Cool" {
		t.Errorf("DefaultTable()[0x4049] = %+v", got)
	}
}

func TestDefaultTable_MatchesShippedFile(t *testing.T) {
	shipped, err := LoadTable(filepath.Join("..", "..", "configs", "meta_transforms.yaml"))
	if err != nil {
		t.Fatalf("LoadTable() error = %v", err)
	}
	if want := DefaultTable(); !reflect.DeepEqual(shipped, want) {
		t.Errorf("configs/meta_transforms.yaml = %+v, want %+v", shipped, want)
	}
}
