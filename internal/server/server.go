package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"audio-insights-go/internal/config"
	"audio-insights-go/internal/logger"
)

type Server struct {
	cfg     config.Config
	handler http.Handler
	log     *logger.Logger
}

func New(cfg config.Config, handler http.Handler, log *logger.Logger) *Server {
	return &Server{cfg: cfg, handler: handler, log: log.Component("server")}
}

// Run serves until ctx is done, then drains in-flight requests for up to
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", s.cfg.Port))
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve returns only after the shutdown goroutine has exited.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpServer := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.writeTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Error("graceful shutdown failed")
		}
	}()

	s.log.WithField("addr", ln.Addr().String()).Info("listening")
	err := httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	cancel()
	<-done
	return err
}

// writeTimeout leaves room for a full pipeline run inside one request.
// The media timeout counts twice: once for the fetch and once for cleanup.
func (s *Server) writeTimeout() time.Duration {
	t := s.cfg.Transcription.Timeout + s.cfg.LLM.Timeout + s.cfg.Ledger.Timeout + 2*s.cfg.Media.FetchTimeout
	return t + 30*time.Second
}
