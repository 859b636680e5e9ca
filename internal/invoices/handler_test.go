package invoices

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/GitCaleffi/invoice-backend/internal/orders"
	"github.com/GitCaleffi/invoice-backend/internal/shared"
)

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(testLogger(), svc, 100)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithIdentity(req.Context(), &shared.Identity{
				SupplierID:    7,
				Email:         "acme@example.com",
				SupplierCodes: []string{"SUP01"},
			})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/invoice", h.MountRoutes)
	return r
}

func TestUploadEndpointAcceptsValidBatch(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo, []orders.PurchaseOrderLine{poLine("PO-1", "ART-1", "100", "10")})
	router := newTestRouter(svc)

	body := `{"data":[{"invoice_number":"INV-1","order_number":"PO-1","article_code":"ART-1","quantity":100,"price":"10.00"}]}`
	req := httptest.NewRequest(http.MethodPost, "/invoice/uploadCsv", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		ResponseCode    int          `json:"responseCode"`
		ResponseMessage string       `json:"responseMessage"`
		Data            UploadResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, http.StatusOK, envelope.ResponseCode)
	require.Equal(t, 1, envelope.Data.Inserted)
	require.Len(t, repo.active(), 1)
}

func TestUploadEndpointReturnsRowReport(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo, []orders.PurchaseOrderLine{poLine("PO-1", "ART-1", "100", "10")})
	router := newTestRouter(svc)

	body := `{"data":[{"invoice_number":"INV-1","order_number":"PO-404","quantity":1,"price":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/invoice/uploadCsv", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope struct {
		ResponseCode int          `json:"responseCode"`
		Data         UploadResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, http.StatusBadRequest, envelope.ResponseCode)
	require.Len(t, envelope.Data.InvalidRows, 1)
	require.Equal(t, 1, envelope.Data.InvalidRows[0].Row)
	require.Equal(t, ReasonNoPurchaseOrder, envelope.Data.InvalidRows[0].Errors[0].Reason)
	require.Empty(t, repo.active())
}

func TestUploadEndpointRejectsEmptyBatch(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo, []orders.PurchaseOrderLine{poLine("PO-1", "ART-1", "100", "10")})
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/invoice/uploadCsv", strings.NewReader(`{"data":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadEndpointReturnsAllInvoices(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo, []orders.PurchaseOrderLine{poLine("PO-1", "ART-1", "100", "10")})
	router := newTestRouter(svc)

	body := `{"data":[{"invoice_number":"INV-1","order_number":"PO-1","article_code":"ART-1","quantity":10,"price":10}]}`
	upload := httptest.NewRequest(http.MethodPost, "/invoice/uploadCsv", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, upload)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/invoice/downloadCsv", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []InvoiceLine `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.Equal(t, "INV-1", envelope.Data[0].InvoiceNumber)
}

func TestHeaderMappingEndpoints(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo, nil)
	router := newTestRouter(svc)

	put := httptest.NewRequest(http.MethodPut, "/invoice/headers", strings.NewReader(`{"invoice_number":"Nr Fattura"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, put)
	require.Equal(t, http.StatusOK, rec.Code)

	get := httptest.NewRequest(http.MethodGet, "/invoice/headers", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, get)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data HeaderMapping `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "Nr Fattura", envelope.Data.InvoiceNumber)

	bad := httptest.NewRequest(http.MethodPut, "/invoice/headers", strings.NewReader(`{"made_up":"x"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, bad)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
