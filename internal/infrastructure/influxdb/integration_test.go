//go:build integration

package influxdb

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/gea-bridge/internal/infrastructure/config"
)

// Requires InfluxDB 2.x on 127.0.0.1:8086 with the token, org and bucket below.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "geabridge-dev-token",
		Org:           "geabridge",
		Bucket:        "appliances",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

func TestConnectAndWrite(t *testing.T) {
	client, err := Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // test cleanup

	var writeErr error
	client.SetOnError(func(err error) { writeErr = err })

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() = %v", err)
	}

	client.WriteElementValue("it-fridge", 0x0092, []byte{0x00, 0x24})
	client.Flush()

	if writeErr != nil {
		t.Errorf("async write error = %v", writeErr)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	if _, err := Connect(cfg); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}
