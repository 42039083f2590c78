package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/gea-bridge/internal/infrastructure/config"
)

func unitConfig() config.MQTTConfig {
	cfg := config.MQTTConfig{}
	cfg.Broker.Host = "broker.local"
	cfg.Broker.Port = 1883
	cfg.Broker.ClientID = "geabridge-test"
	cfg.QoS = 1
	cfg.Reconnect.InitialDelay = 1
	cfg.Reconnect.MaxDelay = 30
	return cfg
}

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "geappliances"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"all", topics.All(), "geappliances/#"},
		{"device", topics.Device("fridge"), "geappliances/fridge"},
		{"value", topics.ElementValue("fridge", 0x0092), "geappliances/fridge/erd/0x0092/value"},
		{"write", topics.ElementWrite("fridge", 0xa), "geappliances/fridge/erd/0x000a/write"},
		{"status", Status("geabridge-01"), "geabridge/geabridge-01/status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestStatusTopicOutsidePrefix(t *testing.T) {
	topics := Topics{Prefix: "geappliances"}
	prefix := strings.TrimSuffix(topics.All(), "#")
	if strings.HasPrefix(Status("geabridge"), prefix) {
		t.Errorf("status topic %q falls under %q", Status("geabridge"), topics.All())
	}
}

func TestBuildClientOptions(t *testing.T) {
	tests := []struct {
		name       string
		tls        bool
		username   string
		wantScheme string
	}{
		{"plain tcp", false, "", "tcp"},
		{"tls", true, "", "ssl"},
		{"with credentials", false, "bridge", "tcp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := unitConfig()
			cfg.Broker.TLS = tt.tls
			cfg.Auth.Username = tt.username
			cfg.Auth.Password = "secret"

			opts := buildClientOptions(cfg)
			if len(opts.Servers) != 1 {
				t.Fatalf("Servers = %d, want 1", len(opts.Servers))
			}
			if opts.Servers[0].Scheme != tt.wantScheme {
				t.Errorf("scheme = %q, want %q", opts.Servers[0].Scheme, tt.wantScheme)
			}
			if opts.Servers[0].Host != "broker.local:1883" {
				t.Errorf("host = %q", opts.Servers[0].Host)
			}
			if opts.ClientID != "geabridge-test" {
				t.Errorf("ClientID = %q", opts.ClientID)
			}
			if opts.Username != tt.username {
				t.Errorf("Username = %q, want %q", opts.Username, tt.username)
			}
			if !opts.AutoReconnect || !opts.CleanSession {
				t.Error("expected auto-reconnect and clean session")
			}
			if (opts.TLSConfig != nil) != tt.tls {
				t.Errorf("TLSConfig set = %v, want %v", opts.TLSConfig != nil, tt.tls)
			}
		})
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(unitConfig())
	configureLWT(opts, "geabridge-test")

	if !opts.WillEnabled || !opts.WillRetained {
		t.Fatal("expected a retained will")
	}
	if opts.WillTopic != "geabridge/geabridge-test/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}

	var doc map[string]string
	if err := json.Unmarshal(opts.WillPayload, &doc); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if doc["status"] != "offline" || doc["reason"] != "unexpected_disconnect" {
		t.Errorf("will payload = %v", doc)
	}
}

func TestStatusPayload_OmitsEmptyReason(t *testing.T) {
	var doc map[string]string
	if err := json.Unmarshal([]byte(statusPayload("online", "c1", "")), &doc); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["reason"]; ok {
		t.Errorf("unexpected reason in %v", doc)
	}
	if doc["client_id"] != "c1" {
		t.Errorf("client_id = %q", doc["client_id"])
	}
}

func TestValidation_DisconnectedClient(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish("", nil, 0, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish("a/b", nil, 3, false), ErrInvalidQoS},
		{"publish oversize", c.Publish("a/b", make([]byte, maxPayloadSize+1), 0, false), ErrPublishFailed},
		{"publish disconnected", c.Publish("a/b", []byte("x"), 1, false), ErrNotConnected},
		{"subscribe empty topic", c.Subscribe("", 0, noop), ErrInvalidTopic},
		{"subscribe bad qos", c.Subscribe("a/#", 5, noop), ErrInvalidQoS},
		{"subscribe nil handler", c.Subscribe("a/#", 0, nil), ErrSubscribeFailed},
		{"subscribe disconnected", c.Subscribe("a/#", 0, noop), ErrNotConnected},
		{"unsubscribe empty", c.Unsubscribe(""), ErrInvalidTopic},
		{"unsubscribe disconnected", c.Unsubscribe("a/#"), ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount = %d, want 0", c.SubscriptionCount())
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on unconnected client = %v", err)
	}
}

type recordingLogger struct {
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.warns = append(l.warns, msg) }

func TestDispatch_RecoversAndLogs(t *testing.T) {
	c := &Client{}
	logger := &recordingLogger{}
	c.SetLogger(logger)

	c.dispatch(func(string, []byte) error { panic("boom") }, "t", nil)
	c.dispatch(func(string, []byte) error { return errors.New("bad") }, "t", nil)
	c.dispatch(func(string, []byte) error { return nil }, "t", nil)

	if len(logger.errors) != 1 {
		t.Errorf("errors logged = %d, want 1", len(logger.errors))
	}
	if len(logger.warns) != 1 {
		t.Errorf("warnings logged = %d, want 1", len(logger.warns))
	}
}
