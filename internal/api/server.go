package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gea-bridge/internal/appliance"
	"github.com/nerrad567/gea-bridge/internal/audit"
	"github.com/nerrad567/gea-bridge/internal/bridges/gea"
	"github.com/nerrad567/gea-bridge/internal/device"
	"github.com/nerrad567/gea-bridge/internal/discovery"
	"github.com/nerrad567/gea-bridge/internal/entity"
	"github.com/nerrad567/gea-bridge/internal/infrastructure/config"
	"github.com/nerrad567/gea-bridge/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by every infrastructure client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// BridgeMetricsProvider is satisfied by *gea.Bridge.
type BridgeMetricsProvider interface {
	GetMetrics() gea.BridgeMetrics
}

// RouterMetricsProvider is satisfied by *discovery.Discovery.
type RouterMetricsProvider interface {
	GetMetrics() discovery.Metrics
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Store    *appliance.Store
	Entities *entity.Registry
	Version  string

	// Devices is optional. When set, device responses carry first/last seen.
	Devices *device.Registry

	// Audit is optional. When set, user writes are journalled and
	// GET /api/v1/audit lists them.
	Audit audit.Repository

	// Bridge and Router are optional metric sources.
	Bridge BridgeMetricsProvider
	Router RouterMetricsProvider

	// Checks are run by the health endpoint, keyed by component name.
	Checks map[string]HealthChecker
}

// Server is the HTTP API server.
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	store     *appliance.Store
	entities  *entity.Registry
	devices   *device.Registry
	bridge    BridgeMetricsProvider
	router    RouterMetricsProvider
	checks    map[string]HealthChecker
	version   string
	startTime time.Time

	metrics  *prometheus.Registry
	requests *prometheus.CounterVec

	auditRepo   audit.Repository
	auditCh     chan *audit.Entry
	auditDone   chan struct{}
	auditCancel context.CancelFunc

	server *http.Server
}

// New creates a new API server. It is not started until Start is called.
//
// Returns:
//   - *Server: Configured server
//   - error: If a required dependency is missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("appliance store is required")
	}
	if deps.Entities == nil {
		return nil, fmt.Errorf("entity registry is required")
	}

	s := &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		store:     deps.Store,
		entities:  deps.Entities,
		devices:   deps.Devices,
		bridge:    deps.Bridge,
		router:    deps.Router,
		checks:    deps.Checks,
		version:   deps.Version,
		startTime: time.Now(),
		auditRepo: deps.Audit,
	}
	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}
	s.metrics, s.requests = s.newMetricsRegistry()
	return s, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The audit writer runs until Close.
func (s *Server) Start(ctx context.Context) error {
	s.startAudit(ctx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Close gracefully shuts down the API server.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)
	s.stopAudit()
	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// startAudit launches the audit writer when an audit repository is set.
func (s *Server) startAudit(ctx context.Context) {
	if s.auditCh == nil || s.auditDone != nil {
		return
	}
	auditCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.auditCancel = cancel
	s.auditDone = make(chan struct{})
	go s.drainAudit(auditCtx)
}

// stopAudit flushes queued entries and waits for the writer to exit.
func (s *Server) stopAudit() {
	if s.auditCancel == nil {
		return
	}
	s.auditCancel()
	<-s.auditDone
}

// HealthCheck verifies the API server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
