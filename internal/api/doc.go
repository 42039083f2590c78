// Package api provides the HTTP API of the bridge.
//
// It exposes discovered appliances, their entities and user writes, a
// health endpoint aggregating the infrastructure checks, and Prometheus
// metrics for the bridge and router counters.
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Routes:
//
//	GET  /api/v1/health
//	GET  /api/v1/devices
//	GET  /api/v1/devices/{name}
//	GET  /api/v1/devices/{name}/entities
//	POST /api/v1/devices/{name}/entities/{uid}
//	GET  /metrics
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
