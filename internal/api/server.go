// Package api exposes the forecast pipeline over HTTP: a chi router with
// request-ID, logging, and recovery middleware around the forecast and
// health endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"swellcast/internal/config"
	"swellcast/internal/forecast"
)

// Server owns the router and the dependencies handlers pull from.
type Server struct {
	Logger   *slog.Logger
	Forecast *forecast.Service

	router chi.Router
	http   *http.Server
}

// NewServer wires the middleware chain and routes.
func NewServer(cfg config.ServerConfig, logger *slog.Logger, svc *forecast.Service) *Server {
	s := &Server{Logger: logger, Forecast: svc}

	r := chi.NewRouter()
	r.Use(Recoverer(logger))
	r.Use(RequestID)
	r.Use(RequestLogger(logger))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/forecast", s.handleForecast)
	})

	s.router = r
	s.http = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the router, primarily for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving HTTP until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.Logger.Info("http server listening", slog.String("addr", s.http.Addr))
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
