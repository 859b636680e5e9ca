package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/GitCaleffi/invoice-backend/internal/platform/cache"
	"github.com/GitCaleffi/invoice-backend/internal/shared"
	"github.com/GitCaleffi/invoice-backend/internal/suppliers"
)

type fakeSupplierStore struct {
	byToken map[string]*suppliers.Supplier
	lookups int
}

func (s *fakeSupplierStore) FindByAccessToken(ctx context.Context, token string) (*suppliers.Supplier, error) {
	s.lookups++
	sup, ok := s.byToken[token]
	if !ok {
		return nil, suppliers.ErrNotFound
	}
	return sup, nil
}

func newTestMiddleware(t *testing.T, store *fakeSupplierStore) *Middleware {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMiddleware(logger, store, cache.NewJSONStore(client, time.Minute))
}

func protectedHandler(captured **shared.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = shared.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireSupplierResolvesIdentity(t *testing.T) {
	store := &fakeSupplierStore{byToken: map[string]*suppliers.Supplier{
		"tok-1": {ID: 7, Email: "acme@example.com", SupplierCode: "SUP01,SUP02", AccountVerified: true},
	}}
	mw := newTestMiddleware(t, store)

	var identity *shared.Identity
	handler := mw.RequireSupplier(protectedHandler(&identity))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/order", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, identity)
	require.Equal(t, int64(7), identity.SupplierID)
	require.Equal(t, []string{"SUP01", "SUP02"}, identity.SupplierCodes)
}

func TestRequireSupplierCachesTokenLookups(t *testing.T) {
	store := &fakeSupplierStore{byToken: map[string]*suppliers.Supplier{
		"tok-1": {ID: 7, Email: "acme@example.com", SupplierCode: "SUP01", AccountVerified: true},
	}}
	mw := newTestMiddleware(t, store)

	var identity *shared.Identity
	handler := mw.RequireSupplier(protectedHandler(&identity))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/order", nil)
		req.Header.Set("Authorization", "Bearer tok-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, 1, store.lookups, "repeat requests must hit the token cache")
}

func TestRequireSupplierRejectsMissingAndUnknownTokens(t *testing.T) {
	store := &fakeSupplierStore{byToken: map[string]*suppliers.Supplier{}}
	mw := newTestMiddleware(t, store)

	var identity *shared.Identity
	handler := mw.RequireSupplier(protectedHandler(&identity))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/order", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/order", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, identity)
}

func TestRequireSupplierRejectsUnverifiedAccount(t *testing.T) {
	store := &fakeSupplierStore{byToken: map[string]*suppliers.Supplier{
		"tok-1": {ID: 7, Email: "acme@example.com", SupplierCode: "SUP01", AccountVerified: false},
	}}
	mw := newTestMiddleware(t, store)

	var identity *shared.Identity
	handler := mw.RequireSupplier(protectedHandler(&identity))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/order", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
