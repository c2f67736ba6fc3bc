package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/marmos91/botkit/internal/logger"
)

// Server wraps an http.Server with the start/stop protocol used by the
// lifecycle modules: Start blocks until ctx is cancelled, then shuts down
// gracefully within ShutdownTimeout.
type Server struct {
	name         string
	server       *http.Server
	config       APIConfig
	shutdownOnce sync.Once

	mu       sync.Mutex
	addr     net.Addr
	listened chan struct{}
}

// NewServer creates a new HTTP server for handler. name labels log lines.
//
// The server is created in a stopped state. Call Start() to begin serving requests.
func NewServer(name string, config APIConfig, handler http.Handler) *Server {
	config.ApplyDefaults()

	server := &http.Server{
		Addr:         net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		name:     name,
		server:   server,
		config:   config,
		listened: make(chan struct{}),
	}
}

// Start listens on the configured address and serves until ctx is cancelled
// or the server fails.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the server fails to listen or serve, or shutdown fails
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("%s server failed to listen on %s: %w", s.name, s.server.Addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	close(s.listened)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "server", s.name, "addr", ln.Addr().String())

		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("HTTP server shutdown signal received", "server", s.name)
		// Don't use the cancelled ctx as it would cause immediate shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("%s server failed: %w", s.name, err)
	}
}

// Stop initiates graceful shutdown of the server.
//
// Stop is safe to call multiple times and safe to call concurrently with Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("HTTP server shutdown initiated", "server", s.name)

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("%s server shutdown error: %w", s.name, err)
			logger.Error("HTTP server shutdown error", "server", s.name, logger.Err(err))
		} else {
			logger.Info("HTTP server stopped gracefully", "server", s.name)
		}
	})
	return shutdownErr
}

// Addr waits until the server is listening and returns its address.
// Returns nil if ctx ends first.
func (s *Server) Addr(ctx context.Context) net.Addr {
	select {
	case <-s.listened:
	case <-ctx.Done():
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ShutdownTimeout returns the graceful shutdown deadline.
func (s *Server) ShutdownTimeout() time.Duration {
	return s.config.ShutdownTimeout
}
