// Package auth resolves bearer tokens to supplier identities. Token
// issuance and password flows live in the external auth service; this
// package only verifies presented tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/GitCaleffi/invoice-backend/internal/platform/cache"
	"github.com/GitCaleffi/invoice-backend/internal/platform/httpx"
	"github.com/GitCaleffi/invoice-backend/internal/shared"
	"github.com/GitCaleffi/invoice-backend/internal/suppliers"
)

// SupplierStore is the supplier lookup consumed by the middleware.
type SupplierStore interface {
	FindByAccessToken(ctx context.Context, token string) (*suppliers.Supplier, error)
}

// Middleware authenticates requests and injects the supplier identity
// into the request context.
type Middleware struct {
	logger *slog.Logger
	store  SupplierStore
	tokens *cache.JSONStore
}

// NewMiddleware constructs the auth middleware.
func NewMiddleware(logger *slog.Logger, store SupplierStore, tokens *cache.JSONStore) *Middleware {
	return &Middleware{logger: logger, store: store, tokens: tokens}
}

// RequireSupplier rejects requests without a resolvable bearer token.
func (m *Middleware) RequireSupplier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}

		identity, err := m.resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, suppliers.ErrNotFound) {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			m.logger.Error("resolve supplier token", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}

		ctx := shared.ContextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) resolve(ctx context.Context, token string) (*shared.Identity, error) {
	var identity shared.Identity
	err := m.tokens.Fetch(ctx, tokenKey(token), &identity, func(ctx context.Context) (interface{}, error) {
		sup, err := m.store.FindByAccessToken(ctx, token)
		if err != nil {
			return nil, err
		}
		if !sup.AccountVerified {
			return nil, suppliers.ErrNotFound
		}
		return shared.Identity{
			SupplierID:    sup.ID,
			Email:         sup.Email,
			SupplierCodes: sup.Codes(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if identity.SupplierID == 0 {
		return nil, suppliers.ErrNotFound
	}
	return &identity, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(header)
}

func tokenKey(token string) string {
	return fmt.Sprintf("auth:token:%s", token)
}
