package shared

import "context"

type identityContextKey struct{}

// Identity describes the authenticated supplier attached to a request.
type Identity struct {
	SupplierID    int64
	Email         string
	SupplierCodes []string
}

// ContextWithIdentity stores the supplier identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the supplier identity from context.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
