package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/GitCaleffi/invoice-backend/internal/auth"
	"github.com/GitCaleffi/invoice-backend/internal/invoices"
	"github.com/GitCaleffi/invoice-backend/internal/observability"
	"github.com/GitCaleffi/invoice-backend/internal/orders"
	"github.com/GitCaleffi/invoice-backend/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Auth           *auth.Middleware
	InvoiceHandler *invoices.Handler
	OrderHandler   *orders.Handler
	JobsHandler    *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with portal defaults. Every
// /api/v1 route runs behind the supplier token middleware.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(params.Auth.RequireSupplier)
		api.Route("/invoice", params.InvoiceHandler.MountRoutes)
		api.Route("/order", params.OrderHandler.MountRoutes)
	})

	return r
}
