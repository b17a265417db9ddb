// Package keepalive serves the liveness endpoint probed by hosting platforms.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/raykavin/upbitwatch/pkg/logger"
)

const (
	DefaultPort = 3000
	Message     = "🔥 Upbit Bot is Running"

	shutdownTimeout = 5 * time.Second
)

// Server answers every request on "/" with a fixed 200 response.
type Server struct {
	port int
	log  logger.Logger
	srv  *http.Server
}

func New(port int, log logger.Logger) *Server {
	if port <= 0 {
		port = DefaultPort
	}

	s := &Server{port: port, log: log.WithField("component", "keepalive")}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// handleIndex accepts any method.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(Message)); err != nil {
		s.log.WithError(err).Warn("failed to write keep-alive response")
	}
}

// Run listens until ctx is done, then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("keep-alive listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("keep-alive server running on %s", listener.Addr())
		errCh <- s.srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("keep-alive server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("keep-alive shutdown: %w", err)
	}
	return nil
}
