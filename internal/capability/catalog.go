package capability

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gea-bridge/internal/erd"
)

// Category groups the elements governed by one manifest element.
type Category struct {
	Feature bool
	Type    uint16
}

// Common is the category of the common manifest.
var Common = Category{}

// FeatureCategory returns the category of feature manifest type t.
func FeatureCategory(t uint16) Category {
	return Category{Feature: true, Type: t}
}

// String returns "common" or "feature:<type>".
func (c Category) String() string {
	if !c.Feature {
		return "common"
	}
	return fmt.Sprintf("feature:%d", c.Type)
}

// ElementRef names one element a manifest version requires.
type ElementRef struct {
	ID     erd.ID
	Name   string
	Length int
}

// FeatureGroup is a set of elements activated when Mask intersects the
// announced feature bits.
type FeatureGroup struct {
	Mask     uint32
	Name     string
	Required []ElementRef
}

// Version is the element set of one manifest version.
type Version struct {
	Required []ElementRef
	Features []FeatureGroup
}

// Elements returns the elements activated for the announced feature bits:
// the required list first, then every matching group in declaration order.
// Duplicates keep their first position.
func (v Version) Elements(features uint32) []erd.ID {
	seen := make(map[erd.ID]bool)
	var ids []erd.ID
	add := func(refs []ElementRef) {
		for _, r := range refs {
			if !seen[r.ID] {
				seen[r.ID] = true
				ids = append(ids, r.ID)
			}
		}
	}

	add(v.Required)
	for _, g := range v.Features {
		if g.Mask&features != 0 {
			add(g.Required)
		}
	}
	return ids
}

// AllElements returns every element the version can activate.
func (v Version) AllElements() []erd.ID {
	return v.Elements(^uint32(0))
}

// Catalog describes every known manifest version.
//
// Thread Safety:
//   - A Catalog is never modified after construction and is safe for concurrent reads.
type Catalog struct {
	common   map[uint32]Version
	features map[uint16]map[uint16]Version
}

// NewCatalog creates a catalog from already decoded versions.
func NewCatalog(common map[uint32]Version, features map[uint16]map[uint16]Version) *Catalog {
	c := &Catalog{
		common:   make(map[uint32]Version, len(common)),
		features: make(map[uint16]map[uint16]Version, len(features)),
	}
	for v, ver := range common {
		c.common[v] = ver
	}
	for t, versions := range features {
		c.features[t] = make(map[uint16]Version, len(versions))
		for v, ver := range versions {
			c.features[t][v] = ver
		}
	}
	return c
}

// CommonVersion returns the common manifest description for version v.
func (c *Catalog) CommonVersion(v uint32) (Version, bool) {
	ver, ok := c.common[v]
	return ver, ok
}

// FeatureVersion returns the feature manifest description for type t, version v.
func (c *Catalog) FeatureVersion(t, v uint16) (Version, bool) {
	versions, ok := c.features[t]
	if !ok {
		return Version{}, false
	}
	ver, ok := versions[v]
	return ver, ok
}

// CategoryElements returns every element any version of the category can
// activate, in ascending order.
func (c *Catalog) CategoryElements(cat Category) []erd.ID {
	var versions []Version
	if cat.Feature {
		for _, ver := range c.features[cat.Type] {
			versions = append(versions, ver)
		}
	} else {
		for _, ver := range c.common {
			versions = append(versions, ver)
		}
	}

	seen := make(map[erd.ID]bool)
	var ids []erd.ID
	for _, ver := range versions {
		for _, id := range ver.AllElements() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// apiDocument is the on-disk appliance API format.
type apiDocument struct {
	Common      rawCategory            `json:"common" yaml:"common"`
	FeatureAPIs map[string]rawCategory `json:"featureApis" yaml:"featureApis"`
}

type rawCategory struct {
	Versions map[string]rawVersion `json:"versions" yaml:"versions"`
}

type rawVersion struct {
	Required []rawRef     `json:"required" yaml:"required"`
	Features []rawFeature `json:"features" yaml:"features"`
}

type rawFeature struct {
	Mask     string   `json:"mask" yaml:"mask"`
	Name     string   `json:"name" yaml:"name"`
	Required []rawRef `json:"required" yaml:"required"`
}

type rawRef struct {
	ERD    string `json:"erd" yaml:"erd"`
	Name   string `json:"name" yaml:"name"`
	Length int    `json:"length" yaml:"length"`
}

// LoadCatalog reads the appliance API document from path.
//
// Files ending in .yaml or .yml are parsed as YAML, everything else as JSON.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("reading appliance api %s: %w", path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return ParseCatalog(data, ext == ".yaml" || ext == ".yml")
}

// ParseCatalog parses an appliance API document.
func ParseCatalog(data []byte, asYAML bool) (*Catalog, error) {
	var doc apiDocument
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	common := make(map[uint32]Version, len(doc.Common.Versions))
	for key, raw := range doc.Common.Versions {
		v, err := parseNumber(key, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: common version %q", ErrInvalidCatalog, key)
		}
		ver, err := raw.toVersion()
		if err != nil {
			return nil, err
		}
		common[uint32(v)] = ver
	}

	features := make(map[uint16]map[uint16]Version, len(doc.FeatureAPIs))
	for typeKey, cat := range doc.FeatureAPIs {
		t, err := parseNumber(typeKey, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: feature type %q", ErrInvalidCatalog, typeKey)
		}
		versions := make(map[uint16]Version, len(cat.Versions))
		for key, raw := range cat.Versions {
			v, err := parseNumber(key, 16)
			if err != nil {
				return nil, fmt.Errorf("%w: feature %q version %q", ErrInvalidCatalog, typeKey, key)
			}
			ver, err := raw.toVersion()
			if err != nil {
				return nil, err
			}
			versions[uint16(v)] = ver
		}
		features[uint16(t)] = versions
	}

	return NewCatalog(common, features), nil
}

func (r rawVersion) toVersion() (Version, error) {
	required, err := toRefs(r.Required)
	if err != nil {
		return Version{}, err
	}
	ver := Version{Required: required}
	for _, f := range r.Features {
		mask, err := parseMask(f.Mask)
		if err != nil {
			return Version{}, fmt.Errorf("%w: feature %q mask %q", ErrInvalidCatalog, f.Name, f.Mask)
		}
		refs, err := toRefs(f.Required)
		if err != nil {
			return Version{}, err
		}
		ver.Features = append(ver.Features, FeatureGroup{
			Mask:     mask,
			Name:     f.Name,
			Required: refs,
		})
	}
	return ver, nil
}

func toRefs(raw []rawRef) ([]ElementRef, error) {
	refs := make([]ElementRef, 0, len(raw))
	for _, r := range raw {
		id, err := erd.ParseID(r.ERD)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
		}
		refs = append(refs, ElementRef{ID: id, Name: r.Name, Length: r.Length})
	}
	return refs, nil
}

// parseNumber accepts decimal or 0x-prefixed hexadecimal. Leading zeros
// are decimal, never octal.
func parseNumber(s string, bits int) (uint64, error) {
	s = strings.TrimSpace(s)
	if hex, ok := trimHexPrefix(s); ok {
		return strconv.ParseUint(hex, 16, bits)
	}
	return strconv.ParseUint(s, 10, bits)
}

// parseMask reads a feature mask, which is always hexadecimal with an
// optional 0x prefix.
func parseMask(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if hex, ok := trimHexPrefix(s); ok {
		s = hex
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func trimHexPrefix(s string) (string, bool) {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:], true
	}
	return s, false
}
