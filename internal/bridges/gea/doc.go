// Package gea bridges the GE Appliances MQTT bus to the discovery core.
//
// The bridge subscribes to every topic under the configured prefix and
// hands each message to the router, which registers appliances,
// negotiates their capabilities and updates element values. In the other
// direction it implements appliance.Publisher, turning user writes into
// <prefix>/<device>/erd/0xNNNN/write publishes with the raw payload.
//
// When a history writer is configured, every write to a supported element
// is also recorded there (see RecordWrite).
//
// # Thread Safety
//
// All methods are safe for concurrent use. The MQTT client invokes the
// message handler from its own goroutines; the router serialises work per
// appliance.
package gea
