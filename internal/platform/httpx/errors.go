package httpx

import (
	"errors"
	"net/http"

	"github.com/GitCaleffi/invoice-backend/internal/shared"
)

// RespondError maps domain errors onto the portal envelope. Request-scoped
// failures (missing supplier, bad input) come back as 400s; anything
// unrecognised is treated as an infrastructure failure.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthorized):
		Fail(w, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, shared.ErrSupplierNotFound):
		Fail(w, http.StatusBadRequest, err.Error(), nil)
	default:
		Fail(w, http.StatusInternalServerError, "internal server error", nil)
	}
}
