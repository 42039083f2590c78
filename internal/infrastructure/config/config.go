package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when GEABRIDGE_CONFIG is unset.
const DefaultPath = "configs/config.yaml"

// Config is the root configuration structure.
type Config struct {
	Appliance ApplianceConfig `yaml:"appliance"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ApplianceConfig points at the appliance bus and its definition files.
type ApplianceConfig struct {
	// TopicPrefix is the first topic segment, e.g. "geappliances".
	TopicPrefix string `yaml:"topic_prefix"`

	// DefinitionsFile is the ERD definition document.
	DefinitionsFile string `yaml:"definitions_file"`

	// APIFile is the appliance API (manifest catalog) document.
	APIFile string `yaml:"api_file"`

	// TransformsFile is the meta transform table. Empty uses the built-in table.
	TransformsFile string `yaml:"transforms_file"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Path returns GEABRIDGE_CONFIG if set, otherwise DefaultPath.
func Path() string {
	if p := os.Getenv("GEABRIDGE_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads configuration from a YAML file, applies environment variable
// overrides and validates the result.
//
// Environment variables follow the pattern GEABRIDGE_SECTION_KEY, for
// example GEABRIDGE_MQTT_HOST or GEABRIDGE_APPLIANCE_TOPIC_PREFIX.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read or parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		Appliance: ApplianceConfig{
			TopicPrefix:     "geappliances",
			DefinitionsFile: "configs/appliance_api_erd_definitions.json",
			APIFile:         "configs/appliance_api.json",
		},
		Database: DatabaseConfig{
			Path:        "./data/geabridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "geabridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "appliances",
			BatchSize:     500,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies GEABRIDGE_* environment variables.
func applyEnvOverrides(cfg *Config) error {
	strs := []struct {
		env string
		dst *string
	}{
		{"GEABRIDGE_APPLIANCE_TOPIC_PREFIX", &cfg.Appliance.TopicPrefix},
		{"GEABRIDGE_APPLIANCE_DEFINITIONS_FILE", &cfg.Appliance.DefinitionsFile},
		{"GEABRIDGE_APPLIANCE_API_FILE", &cfg.Appliance.APIFile},
		{"GEABRIDGE_APPLIANCE_TRANSFORMS_FILE", &cfg.Appliance.TransformsFile},
		{"GEABRIDGE_DATABASE_PATH", &cfg.Database.Path},
		{"GEABRIDGE_MQTT_HOST", &cfg.MQTT.Broker.Host},
		{"GEABRIDGE_MQTT_CLIENT_ID", &cfg.MQTT.Broker.ClientID},
		{"GEABRIDGE_MQTT_USERNAME", &cfg.MQTT.Auth.Username},
		{"GEABRIDGE_MQTT_PASSWORD", &cfg.MQTT.Auth.Password},
		{"GEABRIDGE_API_HOST", &cfg.API.Host},
		{"GEABRIDGE_INFLUXDB_URL", &cfg.InfluxDB.URL},
		{"GEABRIDGE_INFLUXDB_TOKEN", &cfg.InfluxDB.Token},
		{"GEABRIDGE_LOG_LEVEL", &cfg.Logging.Level},
	}
	for _, s := range strs {
		if v := os.Getenv(s.env); v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"GEABRIDGE_MQTT_PORT", &cfg.MQTT.Broker.Port},
		{"GEABRIDGE_API_PORT", &cfg.API.Port},
	}
	for _, i := range ints {
		v := os.Getenv(i.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", i.env, v)
		}
		*i.dst = n
	}

	if v := os.Getenv("GEABRIDGE_INFLUXDB_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GEABRIDGE_INFLUXDB_ENABLED: %q is not a boolean", v)
		}
		cfg.InfluxDB.Enabled = b
	}
	return nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []string

	prefix := c.Appliance.TopicPrefix
	if prefix == "" {
		errs = append(errs, "appliance.topic_prefix is required")
	} else if strings.ContainsAny(prefix, "/+#") {
		errs = append(errs, "appliance.topic_prefix must be a single topic segment")
	}
	if c.Appliance.DefinitionsFile == "" {
		errs = append(errs, "appliance.definitions_file is required")
	}
	if c.Appliance.APIFile == "" {
		errs = append(errs, "appliance.api_file is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "logging.level must be debug, info, warn, or error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// APIAddress returns host:port for the HTTP listener.
func (c *Config) APIAddress() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}
