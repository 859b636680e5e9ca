package orders

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GitCaleffi/invoice-backend/internal/platform/httpx"
	"github.com/GitCaleffi/invoice-backend/internal/shared"
)

// WarmupRequester schedules a background recomputation of a supplier's
// cached OTIF metrics.
type WarmupRequester interface {
	RequestWarmup(ctx context.Context, supplierID int64) error
}

// Handler serves the purchase-order endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	warmup  WarmupRequester
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, warmup WarmupRequester) *Handler {
	return &Handler{logger: logger, service: service, warmup: warmup}
}

// MountRoutes registers order routes. The auth middleware is installed by
// the router, so every request here carries a supplier identity.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/otif", h.metrics)
	r.Post("/otif/refresh", h.refreshMetrics)
	r.Get("/{orderNumber}", h.detail)
}

// list returns the grouped, paginated order view with the global OTIF rate.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)
	filters := ListFilters{
		Search:   r.URL.Query().Get("search"),
		DateFrom: queryDate(r, "date_from"),
		DateTo:   queryDate(r, "date_to"),
	}

	report, err := h.service.Aggregate(r.Context(), identity.SupplierCodes, filters, page, limit)
	if err != nil {
		h.logger.Error("aggregate orders", slog.Int64("supplier_id", identity.SupplierID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.OKList(w, "success", report, report.TotalGroups)
}

// detail returns one order's lines plus its group summary.
func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	orderNumber := chi.URLParam(r, "orderNumber")
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	lines, group, total, err := h.service.OrderDetail(r.Context(), orderNumber, identity.SupplierCodes, page, limit)
	if err != nil {
		if err == ErrNotFound {
			httpx.Fail(w, http.StatusBadRequest, "order does not exist", nil)
			return
		}
		h.logger.Error("order detail", slog.String("order_number", orderNumber), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.OKList(w, "success", map[string]any{
		"order": group,
		"lines": lines,
	}, total)
}

// metrics returns the cached supplier-wide OTIF summary.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	m, err := h.service.Metrics(r.Context(), identity.SupplierID, identity.SupplierCodes)
	if err != nil {
		h.logger.Error("otif metrics", slog.Int64("supplier_id", identity.SupplierID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.OK(w, "success", m)
}

// refreshMetrics drops the cached OTIF summary and queues a background
// recomputation for the supplier.
func (h *Handler) refreshMetrics(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	if err := h.service.InvalidateMetrics(r.Context(), identity.SupplierID); err != nil {
		h.logger.Error("invalidate otif metrics", slog.Int64("supplier_id", identity.SupplierID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if err := h.warmup.RequestWarmup(r.Context(), identity.SupplierID); err != nil {
		h.logger.Error("request otif warmup", slog.Int64("supplier_id", identity.SupplierID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "refresh scheduled", nil)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func queryDate(r *http.Request, key string) *time.Time {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}
