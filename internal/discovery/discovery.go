package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gea-bridge/internal/appliance"
	"github.com/nerrad567/gea-bridge/internal/capability"
	"github.com/nerrad567/gea-bridge/internal/erd"
	"github.com/nerrad567/gea-bridge/internal/meta"
)

// Topic shape constants.
const (
	shortTopicParts   = 2
	elementTopicParts = 5

	deviceSegment  = 1
	elementSegment = 3
	kindSegment    = 4

	kindValue = "value"
	kindWrite = "write"
)

// Logger defines the logging interface used by Discovery.
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

// DeviceRegistrar assigns a handle to a newly seen appliance.
type DeviceRegistrar interface {
	EnsureDevice(ctx context.Context, name string) (string, error)
}

// ElementListener is told when an element becomes supported or stops being supported.
type ElementListener interface {
	ElementSupported(device string, id erd.ID)
	ElementUnsupported(device string, id erd.ID)
}

// Metrics counts processed messages.
type Metrics struct {
	MessagesReceived  uint64
	MalformedTopics   uint64
	DevicesDiscovered uint64
	ElementWrites     uint64
	UnsupportedCached uint64
	ManifestsApplied  uint64
	ManifestErrors    uint64
	TransformErrors   uint64
}

// Discovery is the message router.
//
// Thread Safety:
//   - HandleMessage is safe for concurrent use; messages for one device are serialised.
type Discovery struct {
	store       *appliance.Store
	negotiator  *capability.Negotiator
	coordinator *meta.Coordinator
	registrar   DeviceRegistrar
	listeners   []ElementListener
	logger      Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	messagesReceived  atomic.Uint64
	malformedTopics   atomic.Uint64
	devicesDiscovered atomic.Uint64
	elementWrites     atomic.Uint64
	unsupportedCached atomic.Uint64
	manifestsApplied  atomic.Uint64
	manifestErrors    atomic.Uint64
	transformErrors   atomic.Uint64
}

// New creates a router over store. The catalog drives capability
// negotiation and the coordinator meta propagation.
func New(store *appliance.Store, catalog *capability.Catalog, coordinator *meta.Coordinator) *Discovery {
	d := &Discovery{
		store:       store,
		coordinator: coordinator,
		logger:      noopLogger{},
		locks:       make(map[string]*sync.Mutex),
	}
	d.negotiator = capability.NewNegotiator(catalog, store)
	d.negotiator.SetListener(d)
	return d
}

// SetLogger sets the logger for the router and its negotiator.
func (d *Discovery) SetLogger(logger Logger) {
	d.logger = logger
	d.negotiator.SetLogger(logger)
}

// SetRegistrar sets the device registry consulted for new appliances.
// Without one the appliance name doubles as its handle.
func (d *Discovery) SetRegistrar(r DeviceRegistrar) {
	d.registrar = r
}

// AddListener registers an element support listener.
func (d *Discovery) AddListener(l ElementListener) {
	d.listeners = append(d.listeners, l)
}

// HandleMessage processes one inbound bus message.
//
// Errors are logged here and returned for accounting; the router is ready
// for the next message either way.
//
// Parameters:
//   - ctx: Context for device registration
//   - topic: Full bus topic
//   - payload: Raw message payload
//
// Returns:
//   - error: ErrMalformedTopic, ErrDeviceRegistration, or a negotiation error
func (d *Discovery) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	d.messagesReceived.Add(1)

	device, id, isValue, err := parseTopic(topic)
	if err != nil {
		d.malformedTopics.Add(1)
		d.logger.Error("bad topic", "topic", topic, "error", err)
		return err
	}

	lock := d.deviceLock(device)
	lock.Lock()
	defer lock.Unlock()

	if err := d.ensureDevice(ctx, device); err != nil {
		d.logger.Error("device registration failed", "device", device, "error", err)
		return err
	}
	if !isValue {
		return nil
	}
	return d.handleValue(device, id, payload)
}

// parseTopic validates the topic shape and extracts the device and element.
func parseTopic(topic string) (device string, id erd.ID, isValue bool, err error) {
	parts := strings.Split(topic, "/")

	switch {
	case len(parts) == shortTopicParts:
	case len(parts) == elementTopicParts && (parts[kindSegment] == kindValue || parts[kindSegment] == kindWrite):
	default:
		return "", 0, false, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}

	device = parts[deviceSegment]
	if device == "" {
		return "", 0, false, fmt.Errorf("%w: empty device in %q", ErrMalformedTopic, topic)
	}
	if len(parts) == shortTopicParts || parts[kindSegment] != kindValue {
		return device, 0, false, nil
	}

	id, err = erd.ParseID(parts[elementSegment])
	if err != nil {
		return "", 0, false, fmt.Errorf("%w: %v", ErrMalformedTopic, err)
	}
	return device, id, true, nil
}

func (d *Discovery) deviceLock(device string) *sync.Mutex {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()

	lock, ok := d.locks[device]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[device] = lock
	}
	return lock
}

// ensureDevice registers device on first sight. Caller holds the device lock.
func (d *Discovery) ensureDevice(ctx context.Context, device string) error {
	if d.store.DeviceExists(device) {
		return nil
	}

	handle := device
	if d.registrar != nil {
		h, err := d.registrar.EnsureDevice(ctx, device)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDeviceRegistration, device, err)
		}
		handle = h
	}

	if err := d.store.AddDevice(device, handle); err != nil && !errors.Is(err, appliance.ErrDeviceExists) {
		return err
	}
	d.devicesDiscovered.Add(1)
	d.logger.Info("appliance discovered", "device", device, "handle", handle)
	return nil
}

// handleValue applies a "value" message. Caller holds the device lock.
func (d *Discovery) handleValue(device string, id erd.ID, payload []byte) error {
	if d.store.IsSupported(device, id) {
		if err := d.store.Write(device, id, payload); err != nil {
			return err
		}
		d.elementWrites.Add(1)
		if d.coordinator != nil && d.coordinator.IsMeta(id) {
			d.applyTransforms(device, id)
		}
		return nil
	}

	if err := d.store.AddUnsupported(device, id, payload); err != nil {
		return err
	}
	d.unsupportedCached.Add(1)

	var err error
	switch erd.Classify(id) {
	case erd.ClassCommonManifest:
		_, err = d.negotiator.ProcessCommon(device, payload)
	case erd.ClassFeatureManifest:
		_, err = d.negotiator.ProcessFeature(device, payload)
	default:
		d.logger.Debug("unsupported element cached", "device", device, "erd", id.String())
		return nil
	}

	if err != nil {
		d.manifestErrors.Add(1)
		d.logger.Error("manifest rejected", "device", device, "erd", id.String(), "error", err)
		return err
	}
	d.manifestsApplied.Add(1)
	return nil
}

func (d *Discovery) applyTransforms(device string, id erd.ID) {
	if err := d.coordinator.ApplyTransforms(device, id); err != nil {
		d.transformErrors.Add(1)
		d.logger.Warn("meta transforms incomplete", "device", device, "erd", id.String(), "error", err)
	}
}

// ElementsDemoted implements capability.Listener.
func (d *Discovery) ElementsDemoted(device string, ids []erd.ID) {
	for _, id := range ids {
		for _, l := range d.listeners {
			l.ElementUnsupported(device, id)
		}
	}
}

// ElementActivated implements capability.Listener. A meta element that
// arrives with a cached value is propagated immediately.
func (d *Discovery) ElementActivated(device string, id erd.ID) {
	for _, l := range d.listeners {
		l.ElementSupported(device, id)
	}
	if d.coordinator != nil && d.coordinator.IsMeta(id) {
		d.applyTransforms(device, id)
	}
}

// GetMetrics returns a snapshot of the router counters.
func (d *Discovery) GetMetrics() Metrics {
	return Metrics{
		MessagesReceived:  d.messagesReceived.Load(),
		MalformedTopics:   d.malformedTopics.Load(),
		DevicesDiscovered: d.devicesDiscovered.Load(),
		ElementWrites:     d.elementWrites.Load(),
		UnsupportedCached: d.unsupportedCached.Load(),
		ManifestsApplied:  d.manifestsApplied.Load(),
		ManifestErrors:    d.manifestErrors.Load(),
		TransformErrors:   d.transformErrors.Load(),
	}
}
