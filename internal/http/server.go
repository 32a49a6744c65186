package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"budgetfamille/internal/log"
	"budgetfamille/internal/metrics"
	"budgetfamille/internal/middleware/ratelimit"
	"budgetfamille/internal/middleware/security"
	"budgetfamille/internal/services"
)

// Server is the JSON API in front of one budget session.
type Server struct {
	http.Server
	session *services.Session
	metrics *metrics.Metrics
	limiter *ratelimit.Limiter
	logger  *log.Logger
	events  *log.StructuredLogger
	started time.Time

	shutdownOnce sync.Once
}

type Option func(*Server)

func WithMetrics(m *metrics.Metrics) Option { return func(s *Server) { s.metrics = m } }

func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithRateLimit caps mutating requests per client and minute; 0 disables it.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: perMinute})
		}
	}
}

// NewServer wires the routes and returns a ready-to-run http.Server.
func NewServer(addr string, session *services.Session, opts ...Option) *Server {
	s := &Server{
		session: session,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)
	s.events = log.NewStructuredLogger(s.logger)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string { return middleware.GetReqID(r.Context()) }))
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/transactions", s.handleListTransactions)
		r.Get("/categories", s.handleListCategories)
		r.Get("/budgets", s.handleListBudgets)
		r.Get("/incomes", s.handleListIncomes)
		r.Get("/overview", s.handleOverview)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)

			r.Post("/transactions", s.handleCreateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)
			r.Post("/transactions/{id}/verify", s.handleToggleVerified)

			r.Post("/categories", s.handleCreateCategory)
			r.Delete("/categories/{id}", s.handleDeleteCategory)

			r.Post("/budgets", s.handleCreateBudget)
			r.Delete("/budgets/{id}", s.handleDeleteBudget)
			r.Post("/budgets/{id}/toggle-paid", s.handleToggleFixedCharge)

			r.Post("/incomes", s.handleCreateIncome)
			r.Delete("/incomes/{id}", s.handleDeleteIncome)
		})
	})

	return r
}

// observe records latency per route pattern and logs the outcome.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		s.metrics.ObserveHTTP(r.Method, route, status, elapsed)
		s.events.LogHTTPEnd(r.Context(), r, route, status, elapsed.Milliseconds(), clientIP(r))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return s.limiter.Middleware(clientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).
			WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, clientIP(r), log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})(next)
}

// Shutdown stops the limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}
