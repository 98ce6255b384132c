// Package server exposes the catalog over HTTP. GET /api/products serves the
// same envelope the remote client consumes, so one instance can seed another.
package server

import (
	"context"
	"errors"
	"net/http"

	"productcatalog/config"
	"productcatalog/domain"
	"productcatalog/logger"
	"productcatalog/query"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Catalog is the part of catalog.Controller the handlers need.
type Catalog interface {
	Products() []domain.Product
	GetByID(id string) (domain.Product, bool)
	Run(q query.Query) query.Result
	Stats() domain.ProductStats
	CreateFromForm(form domain.ProductForm) (domain.Product, error)
	UpdateFromForm(id string, form domain.ProductForm) (domain.Product, error)
	Patch(id string, patch domain.ProductPatch) (domain.Product, error)
	Remove(id string) error
}

type Server struct {
	*http.Server
	cfg config.ServerConfig
	log *zap.Logger
}

// NewRouter wires middleware and routes around cat.
func NewRouter(cat Catalog, log *zap.Logger) *chi.Mux {
	log = logger.OrNop(log)
	h := &handler{cat: cat, log: log.With(zap.String("component", "http"))}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/query", h.query)
		r.Get("/stats", h.stats)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Patch("/", h.patch)
			r.Delete("/", h.remove)
		})
	})
	return r
}

// New builds a Server listening on cfg.Addr.
func New(cat Catalog, cfg config.ServerConfig, log *zap.Logger) *Server {
	log = logger.OrNop(log)
	return &Server{
		Server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(cat, log),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		cfg: cfg,
		log: log,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.Addr))
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info("http server shutting down")
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
