package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server is the granulestream HTTP server.
type Server struct {
	addr     string
	handler  *QueryHandler
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
}

// NewServer creates a new server. gatherer backs /metrics and may be nil.
func NewServer(addr string, handler *QueryHandler, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	return &Server{addr: addr, handler: handler, gatherer: gatherer, logger: logger}
}

// Routes returns the server's handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handler.HandleQuery)
	mux.HandleFunc("/ping", s.handler.HandlePing)
	mux.HandleFunc("/profile", s.handler.HandleProfile)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("shutdown")
		}
	}()

	s.logger.Info().Str("addr", s.addr).Msg("granulestream server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
