// Package server exposes the discussion engine over HTTP: a JSON API for
// conversations, sends, votes and exports, a websocket event stream per
// conversation, and the prometheus endpoint.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/swarmchat/config"
	"github.com/BaSui01/swarmchat/orchestrator"
	"github.com/BaSui01/swarmchat/poll"
	"github.com/BaSui01/swarmchat/transcript"
)

// Server owns the HTTP listener lifecycle. Start is non-blocking; fatal
// serve errors surface on Errors.
type Server struct {
	server   *http.Server
	listener net.Listener
	errCh    chan error
	config   config.ServerConfig
	logger   *zap.Logger
	mu       sync.Mutex
	closed   bool
}

// New builds the server around the engine components. The registry may be
// nil, in which case the /metrics endpoint is not mounted.
func New(store *transcript.Store, orch *orchestrator.Orchestrator, engine *poll.Engine, registry *prometheus.Registry, cfg config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "http_server"))

	api := &api{
		store:  store,
		orch:   orch,
		engine: engine,
		logger: logger,
	}

	return &Server{
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      api.routes(registry),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		errCh:  make(chan error, 1),
		config: cfg,
		logger: logger,
	}
}

// Start begins listening and serving. Non-blocking.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("server is closed")
	}
	if s.listener != nil {
		return fmt.Errorf("server already started")
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = listener
	s.logger.Info("starting HTTP server", zap.String("addr", listener.Addr().String()))

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server failed", zap.Error(err))
			select {
			case s.errCh <- err:
			default:
			}
		}
	}()
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}
	s.listener = nil
	s.logger.Info("HTTP server stopped")
	return nil
}

// Errors returns asynchronous serve failures.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Addr returns the bound listen address, useful when Addr was ":0".
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}
