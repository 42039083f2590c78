// Package device is the appliance catalog for the GE Appliances bridge.
//
// Every appliance name seen on the bus is assigned a stable handle (a UUID)
// the first time it appears. The handle survives restarts: it is persisted
// in the appliances table together with first-seen and last-seen times.
//
// # Architecture
//
//	┌───────────────────────┐      ┌───────────────────────┐
//	│       Registry        │─────▶│      Repository       │
//	│    (registry.go)      │      │   (repository.go)     │
//	│                       │      │                       │
//	│ • EnsureDevice        │      │ • SQLite queries      │
//	│ • In-memory cache     │      │ • appliances table    │
//	└───────────────────────┘      └───────────────────────┘
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	handle, err := registry.EnsureDevice(ctx, "fridge")
//
// # Thread Safety
//
// The Registry is safe for concurrent use. Concurrent EnsureDevice calls
// for the same name return the same handle.
package device
