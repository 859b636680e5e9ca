package shared

import "errors"

var (
	// ErrSupplierNotFound indicates the authenticated supplier no longer exists.
	ErrSupplierNotFound = errors.New("supplier does not exist")
	// ErrUnauthorized indicates a missing or unusable bearer token.
	ErrUnauthorized = errors.New("unauthorized")
)
