package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"vidaq/internal/config"
	"vidaq/internal/ingest"
	"vidaq/internal/logging"
	"vidaq/internal/metrics"
)

// Ingester accepts uploads.
type Ingester interface {
	Ingest(ctx context.Context, upload ingest.Upload) (ingest.Result, error)
}

// Locator resolves an item id to a playlist URL for a host.
type Locator interface {
	Locate(ctx context.Context, id int64, hostBaseURL string) (string, error)
}

// Counter reports the number of cataloged items for health checks.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logging.NewComponentLogger(logger, "gateway")
		}
	}
}

// WithMetrics records request metrics and serves gatherer on /metrics.
func WithMetrics(m *metrics.Collectors, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// Server is the vidaq HTTP gateway.
type Server struct {
	cfg      *config.Config
	ingest   Ingester
	playback Locator
	catalog  Counter
	logger   *slog.Logger
	metrics  *metrics.Collectors
	gatherer prometheus.Gatherer

	handler http.Handler

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// New builds a gateway over the ingest and playback services.
func New(cfg *config.Config, ingester Ingester, locator Locator, counter Counter, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("gateway: config is required")
	}
	if ingester == nil || locator == nil || counter == nil {
		return nil, errors.New("gateway: ingest, playback and catalog are required")
	}
	s := &Server{
		cfg:      cfg,
		ingest:   ingester,
		playback: locator,
		catalog:  counter,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	listener, err := net.Listen("tcp", s.cfg.Server.Bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.Bind, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Uploads can be large; the body read is bounded by MaxBytesReader instead.
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}
	s.srv = srv
	s.listener = listener

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "http_server_error"),
				logging.String(logging.FieldErrorHint, "check bind address and port availability"),
			)
		}
	}()

	s.logger.Info("http server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the server, waiting up to timeout for
// in-flight requests.
func (s *Server) Stop(timeout time.Duration) {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.listener = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Warn("http server shutdown error",
			logging.Error(err),
			logging.String(logging.FieldEventType, "http_server_shutdown_failed"),
			logging.String(logging.FieldErrorHint, "in-flight requests were cut off"),
			logging.String(logging.FieldImpact, "clients may see dropped connections"),
		)
		_ = srv.Close()
	}
}
