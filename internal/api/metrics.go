package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "geabridge"

// newMetricsRegistry builds a private registry holding the HTTP request
// counter, the bridge collector and the Go runtime collectors.
func (s *Server) newMetricsRegistry() (*prometheus.Registry, *prometheus.CounterVec) {
	reg := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		},
		[]string{"route", "method", "status"},
	)
	reg.MustRegister(
		requests,
		&bridgeCollector{server: s},
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, requests
}

func desc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "", name), help, nil, nil)
}

var (
	descDevices        = desc("devices", "Discovered appliances.")
	descEntities       = desc("entities", "Presented entities.")
	descMQTTConnected  = desc("mqtt_connected", "1 while the broker connection is up.")
	descMessagesRx     = desc("mqtt_messages_received_total", "Messages received from the appliance bus.")
	descRouteErrors    = desc("mqtt_route_errors_total", "Messages the router rejected.")
	descWritesTx       = desc("element_writes_published_total", "User element writes published.")
	descPublishErrors  = desc("element_write_errors_total", "User element writes that failed to publish.")
	descHistoryPoints  = desc("history_points_total", "Element values sent to the history store.")
	descMalformed      = desc("malformed_topics_total", "Messages with a malformed topic.")
	descDiscovered     = desc("devices_discovered_total", "Appliances registered since start.")
	descElementWrites  = desc("element_updates_total", "Value updates applied to supported elements.")
	descCached         = desc("unsupported_cached_total", "Values cached for unsupported elements.")
	descManifests      = desc("manifests_applied_total", "Capability manifests applied.")
	descManifestErrors = desc("manifest_errors_total", "Capability manifests rejected.")
	descTransformErrs  = desc("transform_errors_total", "Meta transform passes that reported errors.")
)

// bridgeCollector reads counter snapshots at scrape time.
type bridgeCollector struct {
	server *Server
}

func (c *bridgeCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		descDevices, descEntities, descMQTTConnected, descMessagesRx, descRouteErrors,
		descWritesTx, descPublishErrors, descHistoryPoints, descMalformed, descDiscovered,
		descElementWrites, descCached, descManifests, descManifestErrors, descTransformErrs,
	} {
		ch <- d
	}
}

func (c *bridgeCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.server
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}

	gauge(descDevices, float64(s.store.DeviceCount()))
	gauge(descEntities, float64(s.entities.Count()))

	if s.bridge != nil {
		m := s.bridge.GetMetrics()
		connected := 0.0
		if m.Connected {
			connected = 1
		}
		gauge(descMQTTConnected, connected)
		counter(descMessagesRx, m.MessagesRx)
		counter(descRouteErrors, m.RouteErrors)
		counter(descWritesTx, m.WritesTx)
		counter(descPublishErrors, m.PublishErrors)
		counter(descHistoryPoints, m.HistoryPoints)
	}

	if s.router != nil {
		m := s.router.GetMetrics()
		counter(descMalformed, m.MalformedTopics)
		counter(descDiscovered, m.DevicesDiscovered)
		counter(descElementWrites, m.ElementWrites)
		counter(descCached, m.UnsupportedCached)
		counter(descManifests, m.ManifestsApplied)
		counter(descManifestErrors, m.ManifestErrors)
		counter(descTransformErrs, m.TransformErrors)
	}
}
