package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"e2estore/internal/domain"
	"e2estore/internal/httpx"
	obsmw "e2estore/internal/observability/middleware"
	"e2estore/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	CORSOrigins        []string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	PingInterval       time.Duration
	// OperatorAuth guards operator-only writes. Nil leaves them open.
	OperatorAuth func(http.Handler) http.Handler
}

type Handler struct {
	svc     *service.Service
	ping    time.Duration
	origins []string
}

func NewRouter(svc *service.Service, opts Options) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	operatorAuth := opts.OperatorAuth
	if operatorAuth == nil {
		operatorAuth = func(next http.Handler) http.Handler { return next }
	}
	origins := originsIfSet(opts.CORSOrigins)
	h := &Handler{svc: svc, ping: opts.PingInterval, origins: origins}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(obsmw.WithRequestAndTrace)
	r.Use(chimw.Recoverer)
	r.Use(obsmw.WithMetrics)
	r.Use(httpx.LogRequests)
	if opts.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimitPerMinute, time.Minute))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// Long-lived; kept outside the request timeout.
		r.Get("/conversations/{id}/events", h.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(opts.RequestTimeout))

			r.Post("/customers", h.handleRegisterCustomer)
			r.Get("/customers", h.handleCustomerByAuthAccount)
			r.Get("/customers/{id}/public-key", h.handleGetCustomerKey)
			r.Put("/customers/{id}/public-key", h.handlePutCustomerKey)
			r.Put("/customers/{id}/auth-account", h.handleLinkAuthAccount)
			r.Get("/customers/{id}/conversations", h.handleListConversations)

			r.Get("/operator/public-key", h.handleGetOperatorKey)
			r.With(operatorAuth).Put("/operator/public-key", h.handlePutOperatorKey)

			r.Post("/conversations", h.handleOpenConversation)
			r.Get("/conversations/{id}", h.handleGetConversation)
			r.Post("/conversations/{id}/records", h.handleAppendRecord)
			r.Get("/conversations/{id}/records", h.handleListRecords)
		})
	})
	return r
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", obsmw.RequestIDFromContext(r.Context()),
			"trace_id", obsmw.TraceIDFromContext(r.Context()),
		)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func originsIfSet(in []string) []string {
	out := []string{}
	for _, o := range in {
		if s := strings.TrimSpace(o); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
