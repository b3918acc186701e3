package main

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"appealdesk/appeal"
	"appealdesk/metrics"
)

type appealService interface {
	ListActive(ctx context.Context) ([]appeal.Appeal, error)
	Get(ctx context.Context, id string) (appeal.Appeal, error)
	Create(ctx context.Context, draft appeal.Draft) (appeal.Appeal, error)
	Resolve(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// Server holds the handler dependencies. Zero-valued optional fields
// (log, metrics, limiter, location) fall back to no-op behaviour.
type Server struct {
	appealService appealService
	log           *logrus.Entry
	metrics       *metrics.Metrics
	limiter       *rateLimiter
	location      *time.Location
}

const appealsPath = "/api/appeals"

// maxCreateBody caps a create request; a full-length description fits easily.
const maxCreateBody = 8 << 10

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(s.recoverer)
	if s.metrics != nil {
		r.Use(s.instrument)
	}
	if s.limiter != nil {
		r.Use(s.limiter.Handler)
	}

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route(appealsPath, func(r chi.Router) {
		r.Get("/", s.handleListAppeals)
		r.Post("/", s.handleCreateAppeal)
		r.Get("/new", s.handleNewAppealForm)
		r.Get("/{id}", s.handleGetAppeal)
		r.Delete("/{id}", s.handleDeleteAppeal)
		r.Get("/{id}/resolve", s.handleResolveAppeal)
		r.Post("/{id}/resolve", s.handleResolveAppeal)
		r.Get("/{id}/delete", s.handleDeleteAppeal)
		r.Post("/{id}/delete", s.handleDeleteAppeal)
	})

	return r
}

func (s *Server) logger() *logrus.Entry {
	if s.log != nil {
		return s.log
	}
	silent := logrus.New()
	silent.SetOutput(io.Discard)
	return logrus.NewEntry(silent)
}

func (s *Server) loc() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.UTC
}
