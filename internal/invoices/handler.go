package invoices

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/GitCaleffi/invoice-backend/internal/platform/httpx"
	"github.com/GitCaleffi/invoice-backend/internal/shared"
)

// Handler serves the invoice endpoints.
type Handler struct {
	logger          *slog.Logger
	service         *Service
	uploadRateLimit int
}

// NewHandler builds a Handler instance. uploadRateLimit caps uploads per
// supplier per minute.
func NewHandler(logger *slog.Logger, service *Service, uploadRateLimit int) *Handler {
	return &Handler{logger: logger, service: service, uploadRateLimit: uploadRateLimit}
}

// MountRoutes registers invoice routes. Upload gets its own tighter rate
// limit keyed by supplier identity.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.Limit(h.uploadRateLimit, time.Minute, httprate.WithKeyFuncs(supplierRateKey))).
		Post("/uploadCsv", h.upload)
	r.Get("/", h.list)
	r.Get("/downloadCsv", h.download)
	r.Get("/headers", h.mapping)
	r.Put("/headers", h.saveMapping)
	r.Get("/{id}", h.get)
	r.Put("/", h.update)
	r.Delete("/{id}", h.delete)
}

func supplierRateKey(r *http.Request) (string, error) {
	if identity := shared.IdentityFromContext(r.Context()); identity != nil {
		return strconv.FormatInt(identity.SupplierID, 10), nil
	}
	return httprate.KeyByIP(r)
}

// upload runs the reconciliation pipeline over the posted rows.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	var payload struct {
		Rows []UploadRow `json:"data"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	result, err := h.service.UploadBatch(r.Context(), identity.SupplierID, identity.Email, payload.Rows)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyBatch):
			httpx.Fail(w, http.StatusBadRequest, "no invoice rows provided", nil)
		case errors.Is(err, ErrNoPurchaseOrders):
			httpx.Fail(w, http.StatusBadRequest, "no purchase orders found for supplier", nil)
		default:
			h.logger.Error("upload batch", slog.Int64("supplier_id", identity.SupplierID), slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}

	if result.Rejected() {
		httpx.Fail(w, http.StatusBadRequest, "invoice validation failed", result)
		return
	}
	httpx.OK(w, "invoices uploaded", result)
}

// list returns one page of the supplier's invoices.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)
	search := r.URL.Query().Get("search")

	lines, total, err := h.service.List(r.Context(), identity.SupplierID, search, page, limit)
	if err != nil {
		h.logger.Error("list invoices", slog.Int64("supplier_id", identity.SupplierID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKList(w, "success", lines, total)
}

// download returns the supplier's full invoice list for export.
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	lines, err := h.service.Download(r.Context(), identity.SupplierID, identity.Email)
	if err != nil {
		h.logger.Error("download invoices", slog.Int64("supplier_id", identity.SupplierID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "success", lines)
}

// get returns one invoice scoped to the supplier.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id", nil)
		return
	}

	line, err := h.service.Get(r.Context(), id, identity.SupplierID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Fail(w, http.StatusBadRequest, "invoice does not exist", nil)
			return
		}
		h.logger.Error("get invoice", slog.Int64("invoice_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "success", line)
}

// update applies a whitelisted partial update.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	line, err := h.service.Update(r.Context(), identity.SupplierID, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Fail(w, http.StatusBadRequest, "invoice does not exist", nil)
			return
		}
		h.logger.Error("update invoice", slog.Int64("invoice_id", req.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "invoice updated", line)
}

// delete soft-deletes the supplier's invoice.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id", nil)
		return
	}

	if err := h.service.Delete(r.Context(), id, identity.SupplierID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Fail(w, http.StatusBadRequest, "invoice does not exist", nil)
			return
		}
		h.logger.Error("delete invoice", slog.Int64("invoice_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "invoice deleted", nil)
}

// mapping returns the supplier's CSV header mapping.
func (h *Handler) mapping(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	m, err := h.service.Mapping(r.Context(), identity.SupplierID)
	if err != nil {
		h.logger.Error("get mapping", slog.Int64("supplier_id", identity.SupplierID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "success", m)
}

// saveMapping merges the posted header pairs into the supplier's mapping.
func (h *Handler) saveMapping(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	var updates map[string]string
	if err := httpx.DecodeJSON(r, &updates); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	m, err := h.service.SaveMapping(r.Context(), identity.SupplierID, updates)
	if err != nil {
		var unknown ErrUnknownMappingField
		if errors.As(err, &unknown) {
			httpx.Fail(w, http.StatusBadRequest, unknown.Error(), nil)
			return
		}
		h.logger.Error("save mapping", slog.Int64("supplier_id", identity.SupplierID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "mapping saved", m)
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
