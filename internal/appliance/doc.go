// Package appliance holds the in-memory state of every discovered appliance.
//
// Each appliance (device) keeps two disjoint element sets:
//
//   - supported: elements a capability manifest has activated. Each holds its
//     latest payload and a set of subscribers notified on every write.
//   - unsupported: elements seen on the bus but not (yet) activated. Only the
//     latest payload is cached so activation can start from a known value.
//
// An element moves from unsupported to supported on activation and only
// moves back when a manifest for its category is reprocessed (Demote),
// which leaves it with an empty cache.
//
// # Thread Safety
//
// Store methods are safe for concurrent use. Payloads are copied on the way
// in and out, so a reader never observes a partially replaced payload.
// Subscribers run synchronously on the writing goroutine after internal
// locks are released; they must not block.
package appliance
