package appliance

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gea-bridge/internal/erd"
)

// Logger defines the logging interface used by the Store.
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

// Publisher sends a user-initiated element write to the appliance.
type Publisher interface {
	PublishElement(device string, id erd.ID, payload []byte) error
}

// Subscriber receives the new payload of a supported element after every
// write. A nil payload means the value is not known yet.
type Subscriber func(payload []byte)

// SubscriptionID identifies one subscription for Unsubscribe.
type SubscriptionID uint64

// WriteObserver is notified of every successful write to a supported element.
type WriteObserver func(device string, id erd.ID, payload []byte)

// element is a supported element.
type element struct {
	payload     []byte
	subscribers map[SubscriptionID]Subscriber
}

// device is the state of one appliance.
type device struct {
	name        string
	handle      string
	mu          sync.Mutex
	supported   map[erd.ID]*element
	unsupported map[erd.ID][]byte
}

// Store is the registry of discovered appliances and their elements.
//
// All public methods are thread-safe.
type Store struct {
	mu        sync.RWMutex
	devices   map[string]*device
	nextSub   atomic.Uint64
	publisher Publisher
	observer  WriteObserver
	logger    Logger
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		devices: make(map[string]*device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetPublisher sets the transport used by Publish.
func (s *Store) SetPublisher(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
}

// SetWriteObserver registers a callback for every supported element write.
func (s *Store) SetWriteObserver(fn WriteObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = fn
}

// DeviceExists reports whether name has been registered.
func (s *Store) DeviceExists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.devices[name]
	return ok
}

// AddDevice registers an appliance with empty element sets.
//
// Parameters:
//   - name: Appliance name as it appears in bus topics
//   - handle: Identifier assigned by the device registry
//
// Returns:
//   - error: ErrDeviceExists if name is already registered
func (s *Store) AddDevice(name, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[name]; ok {
		return fmt.Errorf("%w: %s", ErrDeviceExists, name)
	}
	s.devices[name] = &device{
		name:        name,
		handle:      handle,
		supported:   make(map[erd.ID]*element),
		unsupported: make(map[erd.ID][]byte),
	}
	s.logger.Debug("appliance added", "device", name, "handle", handle)
	return nil
}

func (s *Store) device(name string) (*device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}
	return d, nil
}

// IsSupported reports whether element id is in the device's supported set.
// Unknown devices support nothing.
func (s *Store) IsSupported(name string, id erd.ID) bool {
	d, err := s.device(name)
	if err != nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.supported[id]
	return ok
}

// AddUnsupported caches the latest payload of an element that is not
// supported. A nil payload records the element without a value.
func (s *Store) AddUnsupported(name string, id erd.ID, payload []byte) error {
	d, err := s.device(name)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.supported[id]; ok {
		return fmt.Errorf("%w: %s %s", ErrElementSupported, name, id)
	}
	d.unsupported[id] = clone(payload)
	return nil
}

// Demote moves the listed supported elements back to the unsupported set
// with an empty cache and drops their subscribers. Elements that are not
// supported are skipped.
//
// Returns:
//   - []erd.ID: Elements actually demoted, in ascending order
//   - error: ErrDeviceNotFound
func (s *Store) Demote(name string, ids ...erd.ID) ([]erd.ID, error) {
	d, err := s.device(name)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var demoted []erd.ID
	for _, id := range ids {
		if _, ok := d.supported[id]; !ok {
			continue
		}
		delete(d.supported, id)
		d.unsupported[id] = nil
		demoted = append(demoted, id)
	}
	sortIDs(demoted)

	if len(demoted) > 0 {
		s.logger.Debug("elements demoted", "device", name, "count", len(demoted))
	}
	return demoted, nil
}

// Activate moves an element into the supported set, taking its cached
// payload if one exists.
//
// Returns:
//   - bool: true if the element was newly activated, false if already supported
//   - error: ErrDeviceNotFound
func (s *Store) Activate(name string, id erd.ID) (bool, error) {
	d, err := s.device(name)
	if err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.supported[id]; ok {
		return false, nil
	}
	payload := d.unsupported[id]
	delete(d.unsupported, id)
	d.supported[id] = &element{
		payload:     payload,
		subscribers: make(map[SubscriptionID]Subscriber),
	}
	return true, nil
}

// Write replaces the payload of a supported element and notifies its
// subscribers with a copy of the new payload.
//
// Returns:
//   - error: ErrDeviceNotFound or ErrElementNotSupported
func (s *Store) Write(name string, id erd.ID, payload []byte) error {
	d, err := s.device(name)
	if err != nil {
		return err
	}

	d.mu.Lock()
	el, ok := d.supported[id]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s %s", ErrElementNotSupported, name, id)
	}
	el.payload = clone(payload)
	subs := make([]Subscriber, 0, len(el.subscribers))
	for _, key := range sortedSubs(el.subscribers) {
		subs = append(subs, el.subscribers[key])
	}
	d.mu.Unlock()

	for _, sub := range subs {
		sub(clone(payload))
	}

	s.mu.RLock()
	observer := s.observer
	s.mu.RUnlock()
	if observer != nil {
		observer(name, id, clone(payload))
	}
	return nil
}

// Read returns a copy of the payload of a supported element. The payload
// is nil while the value is unknown.
func (s *Store) Read(name string, id erd.ID) ([]byte, error) {
	d, err := s.device(name)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.supported[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrElementNotSupported, name, id)
	}
	return clone(el.payload), nil
}

// LastKnown returns the latest payload seen for an element whether or not
// it is currently supported.
func (s *Store) LastKnown(name string, id erd.ID) ([]byte, bool) {
	d, err := s.device(name)
	if err != nil {
		return nil, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.supported[id]; ok {
		return clone(el.payload), el.payload != nil
	}
	if cached, ok := d.unsupported[id]; ok {
		return clone(cached), cached != nil
	}
	return nil, false
}

// Subscribe registers fn for writes to a supported element.
func (s *Store) Subscribe(name string, id erd.ID, fn Subscriber) (SubscriptionID, error) {
	d, err := s.device(name)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.supported[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s %s", ErrElementNotSupported, name, id)
	}
	sub := SubscriptionID(s.nextSub.Add(1))
	el.subscribers[sub] = fn
	return sub, nil
}

// Unsubscribe removes a subscription. It reports whether it existed.
func (s *Store) Unsubscribe(name string, id erd.ID, sub SubscriptionID) bool {
	d, err := s.device(name)
	if err != nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.supported[id]
	if !ok {
		return false
	}
	if _, ok := el.subscribers[sub]; !ok {
		return false
	}
	delete(el.subscribers, sub)
	return true
}

// Publish sends payload to the appliance as a write of element id.
// The local value is not changed; the appliance echoes the new value.
func (s *Store) Publish(name string, id erd.ID, payload []byte) error {
	if _, err := s.device(name); err != nil {
		return err
	}

	s.mu.RLock()
	p := s.publisher
	s.mu.RUnlock()
	if p == nil {
		return ErrNoPublisher
	}
	return p.PublishElement(name, id, clone(payload))
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func sortIDs(ids []erd.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortedSubs(m map[SubscriptionID]Subscriber) []SubscriptionID {
	keys := make([]SubscriptionID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
