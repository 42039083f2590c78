// Package config loads and validates the bridge configuration.
//
// Loading order:
//  1. Defaults
//  2. YAML file values
//  3. GEABRIDGE_* environment variables
//
// Validate reports every problem at once rather than stopping at the first.
//
// Secrets (MQTT password, InfluxDB token) belong in the environment, not
// the file.
//
// Usage:
//
//	cfg, err := config.Load(config.Path())
//	if err != nil {
//	    return err
//	}
package config
