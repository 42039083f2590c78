package entity

import (
	"fmt"
	"sync"

	"github.com/nerrad567/gea-bridge/internal/appliance"
	"github.com/nerrad567/gea-bridge/internal/erd"
	"github.com/nerrad567/gea-bridge/internal/meta"
)

// Logger defines the logging interface used by the Registry.
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

// ElementStore is the part of the appliance store entities use.
type ElementStore interface {
	Read(name string, id erd.ID) ([]byte, error)
	Subscribe(name string, id erd.ID, fn appliance.Subscriber) (appliance.SubscriptionID, error)
	Unsubscribe(name string, id erd.ID, sub appliance.SubscriptionID) bool
	Publish(name string, id erd.ID, payload []byte) error
}

// TransformApplier re-applies meta transforms to a newly created entity.
type TransformApplier interface {
	ApplyTransformsToTarget(device string, ref meta.EntityRef) error
}

// elementKey groups the entities of one element on one appliance.
type elementKey struct {
	device string
	erd    erd.ID
}

// Registry owns every entity.
//
// All public methods are thread-safe.
type Registry struct {
	store   ElementStore
	defs    *erd.Store
	applier TransformApplier
	logger  Logger

	mu        sync.RWMutex
	byUnique  map[string]*Entity
	byElement map[elementKey][]*Entity
	entityIDs map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry(store ElementStore, defs *erd.Store) *Registry {
	return &Registry{
		store:     store,
		defs:      defs,
		logger:    noopLogger{},
		byUnique:  make(map[string]*Entity),
		byElement: make(map[elementKey][]*Entity),
		entityIDs: make(map[string]bool),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetTransformApplier sets the meta coordinator consulted when entities are created.
func (r *Registry) SetTransformApplier(a TransformApplier) {
	r.applier = a
}

// ElementSupported creates the entities of a newly supported element,
// subscribes them to the store and applies any meta transforms that
// govern them. Calling it again for the same element does nothing.
func (r *Registry) ElementSupported(device string, id erd.ID) {
	def, ok := r.defs.Lookup(id)
	if !ok {
		r.logger.Warn("no definition for supported element", "device", device, "erd", id.String())
		return
	}

	key := elementKey{device, id}
	entities := make([]*Entity, 0, len(def.Fields))
	for i := range def.Fields {
		entities = append(entities, newEntity(device, def, &def.Fields[i]))
	}

	r.mu.Lock()
	if _, exists := r.byElement[key]; exists {
		r.mu.Unlock()
		return
	}
	for _, e := range entities {
		e.entityID = r.allocateEntityID(e)
		r.byUnique[e.UniqueID()] = e
	}
	r.byElement[key] = entities
	r.mu.Unlock()

	for _, e := range entities {
		sub, err := r.store.Subscribe(device, id, e.update)
		if err != nil {
			r.logger.Warn("entity subscription failed", "unique_id", e.UniqueID(), "error", err)
			continue
		}
		e.mu.Lock()
		e.sub = sub
		e.mu.Unlock()

		if payload, err := r.store.Read(device, id); err == nil {
			e.update(payload)
		}
		r.logger.Debug("entity created", "entity_id", e.entityID, "platform", string(e.platform))
	}

	if r.applier == nil {
		return
	}
	for _, e := range entities {
		if err := r.applier.ApplyTransformsToTarget(device, e.Ref()); err != nil {
			r.logger.Warn("meta transforms failed", "unique_id", e.UniqueID(), "error", err)
		}
	}
}

// ElementUnsupported removes the entities of an element that is no longer supported.
func (r *Registry) ElementUnsupported(device string, id erd.ID) {
	key := elementKey{device, id}

	r.mu.Lock()
	entities := r.byElement[key]
	delete(r.byElement, key)
	for _, e := range entities {
		delete(r.byUnique, e.UniqueID())
		delete(r.entityIDs, e.entityID)
	}
	r.mu.Unlock()

	for _, e := range entities {
		e.mu.RLock()
		sub := e.sub
		e.mu.RUnlock()
		r.store.Unsubscribe(device, id, sub)
	}
	if len(entities) > 0 {
		r.logger.Debug("entities removed", "device", device, "erd", id.String(), "count", len(entities))
	}
}

// allocateEntityID returns "<platform>.<device>_<field slug>", suffixed
// when taken. Caller holds mu.
func (r *Registry) allocateEntityID(e *Entity) string {
	base := fmt.Sprintf("%s.%s_%s", e.platform, slug(e.ref.Device), slug(e.ref.Field))
	id := base
	for n := 2; r.entityIDs[id]; n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	r.entityIDs[id] = true
	return id
}

// Get returns the entity with the given unique id.
func (r *Registry) Get(uniqueID string) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byUnique[uniqueID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, uniqueID)
	}
	return e, nil
}

// States returns the state of every entity of device, or of all devices
// when device is empty.
func (r *Registry) States(device string) []State {
	r.mu.RLock()
	entities := make([]*Entity, 0, len(r.byUnique))
	for _, e := range r.byUnique {
		if device == "" || e.ref.Device == device {
			entities = append(entities, e)
		}
	}
	r.mu.RUnlock()

	states := make([]State, 0, len(entities))
	for _, e := range entities {
		states = append(states, e.State())
	}
	sortStates(states)
	return states
}

// Count returns the number of entities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUnique)
}

// Set validates value against the entity and publishes the updated
// element payload. The local state changes when the appliance echoes the
// write back.
//
// Returns:
//   - error: ErrEntityNotFound, ErrReadOnly, ErrDisabled, ErrOutOfRange,
//     ErrOptionNotAllowed, ErrInvalidValue, ErrValueUnknown or a publish error
func (r *Registry) Set(uniqueID string, value any) error {
	e, err := r.Get(uniqueID)
	if err != nil {
		return err
	}

	payload, err := r.store.Read(e.ref.Device, e.ref.ERD)
	if err != nil {
		return err
	}
	if payload == nil {
		return fmt.Errorf("%w: %s", ErrValueUnknown, e.ref.ERD)
	}

	var current byte
	if e.field.Offset < len(payload) {
		current = payload[e.field.Offset]
	}
	fieldBytes, err := e.encode(value, current)
	if err != nil {
		return err
	}

	updated, err := erd.WriteField(payload, &e.field, fieldBytes)
	if err != nil {
		return err
	}
	if err := r.store.Publish(e.ref.Device, e.ref.ERD, updated); err != nil {
		return fmt.Errorf("publishing %s: %w", uniqueID, err)
	}
	r.logger.Info("entity write published", "unique_id", uniqueID, "value", value)
	return nil
}

// find resolves a meta reference to the entity presenting it. Fields that
// share a name are told apart by offset.
func (r *Registry) find(ref meta.EntityRef) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.byElement[elementKey{ref.Device, ref.ERD}] {
		if e.ref.Field == ref.Field && e.ref.Offset == ref.Offset {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, ref.UniqueID())
}

// SetMinimum implements meta.Presenter.
func (r *Registry) SetMinimum(ref meta.EntityRef, v int64) error {
	e, err := r.find(ref)
	if err != nil {
		return err
	}
	if e.platform != PlatformNumber {
		return fmt.Errorf("%w: %s", ErrWrongPlatform, ref.UniqueID())
	}
	e.mu.Lock()
	e.min = v
	e.mu.Unlock()
	return nil
}

// SetMaximum implements meta.Presenter.
func (r *Registry) SetMaximum(ref meta.EntityRef, v int64) error {
	e, err := r.find(ref)
	if err != nil {
		return err
	}
	if e.platform != PlatformNumber {
		return fmt.Errorf("%w: %s", ErrWrongPlatform, ref.UniqueID())
	}
	e.mu.Lock()
	e.max = v
	e.mu.Unlock()
	return nil
}

// SetUnit implements meta.Presenter.
func (r *Registry) SetUnit(ref meta.EntityRef, unit string) error {
	e, err := r.find(ref)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.unit = unit
	e.mu.Unlock()
	return nil
}

// SetEnabled implements meta.Presenter.
func (r *Registry) SetEnabled(ref meta.EntityRef, enabled bool) error {
	e, err := r.find(ref)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.enabled = enabled
	e.mu.Unlock()
	return nil
}

// SetOptionEnabled implements meta.Presenter for ref.Option of a select.
func (r *Registry) SetOptionEnabled(ref meta.EntityRef, enabled bool) error {
	e, err := r.find(ref)
	if err != nil {
		return err
	}
	if _, ok := e.field.Code(ref.Option); !ok {
		return fmt.Errorf("%w: %q", ErrOptionNotAllowed, ref.Option)
	}
	e.mu.Lock()
	if enabled {
		delete(e.disabled, ref.Option)
	} else {
		e.disabled[ref.Option] = true
	}
	e.mu.Unlock()
	return nil
}
