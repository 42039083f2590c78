package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gea-bridge/internal/api"
	"github.com/nerrad567/gea-bridge/internal/erd"
	"github.com/nerrad567/gea-bridge/internal/infrastructure/config"
)

const testDefinitions = `{"erds":[
 {"name":"Temperature","id":"0x4024","operations":["read","write"],"data":[{"name":"Temperature","type":"i16","offset":0,"size":2}]},
 {"name":"Setpoint Limits","id":"0x4047","operations":["read"],"data":[
   {"name":"Minimum setpoint","type":"i16","offset":0,"size":2},
   {"name":"Maximum setpoint","type":"i16","offset":2,"size":2}]}
]}`

const testAPI = `{
  "common": {"versions": {"1": {"required": [{"erd": "0x4024", "name": "Temperature", "length": 2}], "features": []}}},
  "featureApis": {}
}`

const testTransforms = `transforms:
  - erd: "0x4047"
    field: Minimum setpoint
    kind: set_min
    targets:
      - { erd: "0x4024", field: Temperature }
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GEABRIDGE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Fatalf("run() error = %v, want config load failure", err)
	}
}

func TestRun_MissingDefinitions(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yaml", `
appliance:
  topic_prefix: geappliances
  definitions_file: `+filepath.Join(dir, "missing.json")+`
  api_file: `+filepath.Join(dir, "missing-api.json")+`
database:
  path: `+filepath.Join(dir, "test.db")+`
logging:
  level: error
  format: text
`)
	t.Setenv("GEABRIDGE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil || !strings.Contains(err.Error(), "loading ERD definitions") {
		t.Fatalf("run() error = %v, want definitions failure", err)
	}
}

func TestLoadDomain(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ApplianceConfig{
		DefinitionsFile: writeFile(t, dir, "defs.json", testDefinitions),
		APIFile:         writeFile(t, dir, "api.json", testAPI),
	}

	t.Run("built-in transforms", func(t *testing.T) {
		dom, err := loadDomain(cfg)
		if err != nil {
			t.Fatalf("loadDomain() error = %v", err)
		}
		if dom.defs.Len() != 2 {
			t.Errorf("definitions = %d, want 2", dom.defs.Len())
		}
		if _, ok := dom.catalog.CommonVersion(1); !ok {
			t.Error("common version 1 missing")
		}
		if len(dom.table[erd.ID(0x4047)]) != 2 {
			t.Errorf("built-in table = %v", dom.table)
		}
	})

	t.Run("transforms file", func(t *testing.T) {
		withFile := cfg
		withFile.TransformsFile = writeFile(t, dir, "transforms.yaml", testTransforms)

		dom, err := loadDomain(withFile)
		if err != nil {
			t.Fatalf("loadDomain() error = %v", err)
		}
		if len(dom.table[erd.ID(0x4047)]) != 1 {
			t.Errorf("table = %v, want one rule for 0x4047", dom.table)
		}
	})

	t.Run("missing catalog", func(t *testing.T) {
		bad := cfg
		bad.APIFile = filepath.Join(dir, "nope.json")
		if _, err := loadDomain(bad); err == nil || !strings.Contains(err.Error(), "appliance API") {
			t.Errorf("loadDomain() error = %v", err)
		}
	})
}

type checkFunc func(context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestHealthCheck(t *testing.T) {
	ok := checkFunc(func(context.Context) error { return nil })
	down := errors.New("down")

	if err := healthCheck(context.Background(), map[string]api.HealthChecker{"a": ok, "b": ok}); err != nil {
		t.Errorf("healthCheck() = %v, want nil", err)
	}

	err := healthCheck(context.Background(), map[string]api.HealthChecker{
		"a":    ok,
		"mqtt": checkFunc(func(context.Context) error { return down }),
	})
	if !errors.Is(err, down) || !strings.HasPrefix(err.Error(), "mqtt:") {
		t.Errorf("healthCheck() = %v, want mqtt failure", err)
	}
}
