package gea

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gea-bridge/internal/erd"
	"github.com/nerrad567/gea-bridge/internal/infrastructure/mqtt"
)

// defaultQoS is used when BridgeOptions.QoS is out of range.
const defaultQoS = 1

// MQTTClient is the part of the MQTT client the bridge uses.
// *mqtt.Client satisfies it; tests use a mock.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Router processes one inbound bus message. *discovery.Discovery satisfies it.
type Router interface {
	HandleMessage(ctx context.Context, topic string, payload []byte) error
}

// HistoryWriter records element values. *influxdb.Client satisfies it.
type HistoryWriter interface {
	WriteElementValue(device string, erd uint16, payload []byte)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Prefix is the first topic segment of the appliance bus.
	Prefix string

	// QoS is used for the subscription and for element writes.
	QoS int

	// MQTTClient is the broker connection.
	MQTTClient MQTTClient

	// Router receives every inbound message.
	Router Router

	// History is optional. If nil, element writes are not recorded.
	History HistoryWriter

	// Logger is optional.
	Logger Logger
}

// Bridge connects the MQTT bus to the router.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	topics  mqtt.Topics
	qos     byte
	mqtt    MQTTClient
	router  Router
	history HistoryWriter

	ctx       context.Context
	ctxCancel context.CancelFunc
	started   atomic.Bool
	stopOnce  sync.Once

	messagesRx    atomic.Uint64
	routeErrors   atomic.Uint64
	writesTx      atomic.Uint64
	publishErrors atomic.Uint64
	historyPoints atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a bridge. Call Start to subscribe.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Prefix == "" {
		return nil, fmt.Errorf("%w: topic prefix", ErrMissingDependency)
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("%w: MQTT client", ErrMissingDependency)
	}
	if opts.Router == nil {
		return nil, fmt.Errorf("%w: router", ErrMissingDependency)
	}

	qos := byte(defaultQoS)
	if opts.QoS >= 0 && opts.QoS <= 2 {
		qos = byte(opts.QoS)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		topics:    mqtt.Topics{Prefix: opts.Prefix},
		qos:       qos,
		mqtt:      opts.MQTTClient,
		router:    opts.Router,
		history:   opts.History,
		ctx:       ctx,
		ctxCancel: cancel,
		logger:    opts.Logger,
	}, nil
}

// Start subscribes to every appliance topic.
func (b *Bridge) Start(_ context.Context) error {
	topic := b.topics.All()
	if err := b.mqtt.Subscribe(topic, b.qos, b.handleMessage); err != nil {
		return fmt.Errorf("subscribe to appliance bus: %w", err)
	}
	b.started.Store(true)
	b.logInfo("subscribed to appliance bus", "topic", topic)
	return nil
}

// Stop unsubscribes and cancels in-flight device registrations.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		if b.started.Load() && b.mqtt.IsConnected() {
			if err := b.mqtt.Unsubscribe(b.topics.All()); err != nil {
				b.logWarn("unsubscribe failed", "error", err)
			}
		}
		b.logInfo("bridge stopped")
	})
}

// handleMessage feeds one bus message to the router. Router failures are
// already logged by the router and are only counted here.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	b.messagesRx.Add(1)
	if err := b.router.HandleMessage(b.ctx, topic, payload); err != nil {
		b.routeErrors.Add(1)
		b.logDebug("message not applied", "topic", topic, "error", err)
	}
	return nil
}

// PublishElement implements appliance.Publisher.
//
// Parameters:
//   - device: Appliance name
//   - id: Element to write
//   - payload: Full raw element payload
//
// Returns:
//   - error: ErrNotConnected or ErrPublishFailed
func (b *Bridge) PublishElement(device string, id erd.ID, payload []byte) error {
	if !b.mqtt.IsConnected() {
		b.publishErrors.Add(1)
		return ErrNotConnected
	}

	topic := b.topics.ElementWrite(device, uint16(id))
	if err := b.mqtt.Publish(topic, payload, b.qos, false); err != nil {
		b.publishErrors.Add(1)
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	b.writesTx.Add(1)
	b.logDebug("element write published", "device", device, "erd", id.String(), "bytes", len(payload))
	return nil
}

// RecordWrite has the signature of appliance.WriteObserver and forwards
// every supported element write to the history writer.
func (b *Bridge) RecordWrite(device string, id erd.ID, payload []byte) {
	if b.history == nil || payload == nil {
		return
	}
	b.history.WriteElementValue(device, uint16(id), payload)
	b.historyPoints.Add(1)
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// BridgeMetrics contains metrics data for the API metrics endpoint.
type BridgeMetrics struct {
	Connected     bool
	Status        string
	MessagesRx    uint64
	RouteErrors   uint64
	WritesTx      uint64
	PublishErrors uint64
	HistoryPoints uint64
}

// GetMetrics returns current bridge metrics.
func (b *Bridge) GetMetrics() BridgeMetrics {
	connected := b.mqtt.IsConnected()
	status := "disconnected"
	if connected {
		status = "healthy"
	}
	return BridgeMetrics{
		Connected:     connected,
		Status:        status,
		MessagesRx:    b.messagesRx.Load(),
		RouteErrors:   b.routeErrors.Load(),
		WritesTx:      b.writesTx.Load(),
		PublishErrors: b.publishErrors.Load(),
		HistoryPoints: b.historyPoints.Load(),
	}
}
