package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"pizza-service/internal/authutil"
	"pizza-service/internal/factory"
	"pizza-service/internal/metrics"
	"pizza-service/internal/model"
	"pizza-service/internal/store"
)

const defaultGreeting = "welcome to JWT Pizza"

type sessionStore interface {
	Put(token string, userID int64) error
	Valid(token string) (bool, error)
	Delete(token string) error
}

type pizzaFactory interface {
	Order(ctx context.Context, diner factory.Diner, order model.Order) (factory.Result, error)
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Store    *store.Store
	Sessions sessionStore
	Signer   *authutil.Signer
	Metrics  *metrics.Aggregator
	Factory  pizzaFactory
	Logger   zerolog.Logger
	Version  string
}

// Server bundles the pizza HTTP handlers, middleware, and metrics.
type Server struct {
	store    *store.Store
	sessions sessionStore
	signer   *authutil.Signer
	metrics  *metrics.Aggregator
	factory  pizzaFactory
	logger   zerolog.Logger
	version  string
	registry *prometheus.Registry

	greetingMu sync.RWMutex
	greeting   string
}

func New(d Deps) *Server {
	agg := d.Metrics
	if agg == nil {
		agg = metrics.New()
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		metrics.NewCollector(agg, "pizza"),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Server{
		store:    d.Store,
		sessions: d.Sessions,
		signer:   d.Signer,
		metrics:  agg,
		factory:  d.Factory,
		logger:   d.Logger,
		version:  d.Version,
		registry: registry,
		greeting: defaultGreeting,
	}
}

// Router wires up chi routes, middleware, and handlers ready for http.Server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.metrics.Middleware())
	r.Use(middleware.StripSlashes)
	r.Use(s.loggingMiddleware())
	r.Use(middleware.Recoverer)

	r.Get("/", s.rootHandler())
	r.Get("/healthz", s.healthHandler())
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.With(s.authenticated()).Put("/greeting", s.greetingHandler())

		r.Route("/auth", func(r chi.Router) {
			r.Post("/", s.registerHandler())
			r.Put("/", s.loginHandler())
			r.With(s.authenticated()).Delete("/", s.logoutHandler())
			r.With(s.authenticated()).Put("/{id}", s.updateUserHandler())
		})

		r.With(s.authenticated()).Get("/user/me", s.meHandler())

		r.Route("/order", func(r chi.Router) {
			r.Get("/menu", s.menuHandler())
			r.With(s.authenticated()).Put("/menu", s.addMenuItemHandler())
			r.With(s.authenticated()).Get("/", s.ordersHandler())
			r.With(s.authenticated()).Post("/", s.createOrderHandler())
		})

		r.Route("/franchise", func(r chi.Router) {
			r.Get("/", s.listFranchisesHandler())
			r.With(s.authenticated()).Post("/", s.createFranchiseHandler())
			r.With(s.authenticated()).Get("/{id}", s.userFranchisesHandler())
			r.With(s.authenticated()).Delete("/{id}", s.deleteFranchiseHandler())
			r.With(s.authenticated()).Post("/{id}/store", s.createStoreHandler())
			r.With(s.authenticated()).Delete("/{id}/store/{storeID}", s.deleteStoreHandler())
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "unknown endpoint")
	})
	return r
}
