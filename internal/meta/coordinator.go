package meta

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/gea-bridge/internal/erd"
)

// Logger defines the logging interface used by the Coordinator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Presenter applies transform effects to presented entities.
//
// Implementations return an error when the target does not exist (yet);
// the Coordinator logs it and continues with the next target.
type Presenter interface {
	SetMinimum(ref EntityRef, v int64) error
	SetMaximum(ref EntityRef, v int64) error
	SetUnit(ref EntityRef, unit string) error
	SetEnabled(ref EntityRef, enabled bool) error
	SetOptionEnabled(ref EntityRef, enabled bool) error
}

// PayloadSource returns the latest known payload of an element.
type PayloadSource interface {
	LastKnown(device string, id erd.ID) ([]byte, bool)
}

// anyOffset marks a targetKey that matches fields at every offset.
const anyOffset = -1

// targetKey indexes targets by element, field and offset. An empty field
// matches every field of the element.
type targetKey struct {
	erd    erd.ID
	field  string
	offset int
}

// Coordinator applies the transform Table.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Coordinator struct {
	defs   *erd.Store
	source PayloadSource
	logger Logger

	mu        sync.RWMutex
	table     Table
	reverse   map[targetKey][]erd.ID
	presenter Presenter
}

// NewCoordinator creates a coordinator and builds its reverse index.
//
// Parameters:
//   - table: Transform table, copied so later changes by the caller have no effect
//   - defs: Element definitions used to slice meta payloads and resolve targets
//   - source: Where meta element payloads are read from
func NewCoordinator(table Table, defs *erd.Store, source PayloadSource) *Coordinator {
	c := &Coordinator{
		defs:   defs,
		source: source,
		logger: noopLogger{},
	}
	c.Rebuild(table)
	return c
}

// SetLogger sets the logger for the coordinator.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
}

// SetPresenter sets the presentation layer the transforms act on.
func (c *Coordinator) SetPresenter(p Presenter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presenter = p
}

// Rebuild replaces the transform table with a copy of table and recomputes
// the target to meta element index. Transforms already applied are not
// revisited.
func (c *Coordinator) Rebuild(table Table) {
	table = table.Clone()
	reverse := make(map[targetKey][]erd.ID)
	for metaID, rules := range table {
		for _, rule := range rules {
			for _, t := range rule.Targets {
				key := targetKey{erd: t.ERD, field: t.Field, offset: anyOffset}
				if _, f, ok := c.resolveField(t); ok {
					key.field, key.offset = f.Name, f.Offset
				} else if t.Offset != nil {
					key.offset = *t.Offset
				}
				if !containsID(reverse[key], metaID) {
					reverse[key] = append(reverse[key], metaID)
				}
			}
		}
	}
	for key := range reverse {
		sortIDs(reverse[key])
	}

	c.mu.Lock()
	c.table = table
	c.reverse = reverse
	c.mu.Unlock()
}

// IsMeta reports whether id has transforms.
func (c *Coordinator) IsMeta(id erd.ID) bool {
	_, ok := c.rules(id)
	return ok
}

// rules returns the rules of metaID. The slice is never modified.
func (c *Coordinator) rules(metaID erd.ID) ([]Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rules, ok := c.table[metaID]
	return rules, ok
}

// MetaFor returns the meta elements that govern ref, in ascending order.
func (c *Coordinator) MetaFor(ref EntityRef) []erd.ID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := []targetKey{
		{ref.ERD, ref.Field, ref.Offset},
		{ref.ERD, ref.Field, anyOffset},
	}
	if ref.Field != "" {
		keys = append(keys, targetKey{ref.ERD, "", ref.Offset}, targetKey{ref.ERD, "", anyOffset})
	}

	var ids []erd.ID
	for _, key := range keys {
		for _, id := range c.reverse[key] {
			if !containsID(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	sortIDs(ids)
	return ids
}

// ApplyTransforms applies every rule of meta element metaID on device.
//
// A meta element with no known payload is deferred and returns nil.
//
// Returns:
//   - error: ErrMissingElementDefinition (joined per failing field); other
//     rules are still applied
func (c *Coordinator) ApplyTransforms(device string, metaID erd.ID) error {
	rules, ok := c.rules(metaID)
	if !ok {
		return nil
	}

	payload, known := c.source.LastKnown(device, metaID)
	if !known {
		c.logger.Debug("meta transform deferred", "device", device, "erd", metaID.String())
		return nil
	}

	def, ok := c.defs.Lookup(metaID)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrMissingElementDefinition, metaID)
		c.logger.Error("meta element has no definition", "device", device, "erd", metaID.String())
		return err
	}

	var errs []error
	for _, rule := range rules {
		field, ok := def.Field(rule.Field)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s field %q", ErrMissingElementDefinition, metaID, rule.Field))
			c.logger.Error("meta field has no definition",
				"device", device, "erd", metaID.String(), "field", rule.Field)
			continue
		}

		raw, err := erd.ReadField(payload, field)
		if err != nil {
			errs = append(errs, err)
			c.logger.Warn("meta payload too short",
				"device", device, "erd", metaID.String(), "field", rule.Field, "error", err)
			continue
		}

		for _, t := range rule.Targets {
			c.applyTarget(device, metaID, field, raw, rule.Kind, t)
		}
	}
	return errors.Join(errs...)
}

// ApplyTransformsToTarget re-applies every meta element that governs ref.
// It is called when a target entity is created.
func (c *Coordinator) ApplyTransformsToTarget(device string, ref EntityRef) error {
	var errs []error
	for _, metaID := range c.MetaFor(ref) {
		if err := c.ApplyTransforms(device, metaID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// applyTarget performs one transform on one target.
func (c *Coordinator) applyTarget(device string, metaID erd.ID, metaField *erd.Field, raw []byte, kind Kind, t Target) {
	c.mu.RLock()
	p := c.presenter
	c.mu.RUnlock()
	if p == nil {
		return
	}

	ref := EntityRef{Device: device, ERD: t.ERD, Field: t.Field, Option: t.Option}
	if t.Offset != nil {
		ref.Offset = *t.Offset
	}
	targetDef, targetField, resolved := c.resolveField(t)
	if resolved {
		ref.Field = targetField.Name
		ref.Offset = targetField.Offset
		ref.SharedName = targetDef.SharesName(targetField)
	} else if t.Field == "" {
		c.logger.Debug("meta target unresolved", "device", device, "meta", metaID.String(), "target", t.ERD.String())
		return
	}

	var err error
	switch kind {
	case KindSetMin:
		err = p.SetMinimum(ref, erd.DecodeInt(raw, resolved && targetField.Type.IsSigned()))
	case KindSetMax:
		err = p.SetMaximum(ref, erd.DecodeInt(raw, resolved && targetField.Type.IsSigned()))
	case KindSetUnit:
		code := int64(erd.DecodeUnsigned(raw)) //nolint:gosec // enum codes are small
		unit, ok := metaField.Label(code)
		if !ok {
			c.logger.Warn("meta unit has no label",
				"device", device, "erd", metaID.String(), "field", metaField.Name, "code", code)
			return
		}
		err = p.SetUnit(ref, unit)
	case KindEnable:
		err = p.SetEnabled(ref, anyNonZero(raw))
	case KindSetAllowable:
		err = p.SetOptionEnabled(ref, len(raw) > 0 && raw[len(raw)-1] != 0)
	default:
		c.logger.Warn("unknown meta transform kind", "kind", kind.String())
		return
	}

	if err != nil {
		c.logger.Debug("meta transform not applied",
			"device", device, "meta", metaID.String(), "target", ref.UniqueID(), "kind", kind.String(), "error", err)
	}
}

// resolveField finds the definition field a target points at.
func (c *Coordinator) resolveField(t Target) (*erd.Definition, *erd.Field, bool) {
	def, ok := c.defs.Lookup(t.ERD)
	if !ok {
		return nil, nil, false
	}
	for i := range def.Fields {
		f := &def.Fields[i]
		if t.Field != "" && f.Name != t.Field {
			continue
		}
		if t.Offset != nil && f.Offset != *t.Offset {
			continue
		}
		return def, f, true
	}
	return nil, nil, false
}

func anyNonZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return true
		}
	}
	return false
}

func containsID(ids []erd.ID, id erd.ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func sortIDs(ids []erd.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
