package httpapi

import (
	"errors"
	"net/http"

	"github.com/iamthegreatdestroyer/shgat-engine/internal/shgat"
)

// statusForEngineError maps a shgat error to the HTTP status code a client
// should see: validation/definition errors are 400/409, numerical failures
// are 422, and anything else is 500.
func statusForEngineError(err error) int {
	var dimErr *shgat.DimensionMismatchError
	var cycleErr *shgat.HierarchyCycleError
	var numErr *shgat.NumericalError

	switch {
	case errors.As(err, &dimErr):
		return http.StatusBadRequest
	case errors.As(err, &cycleErr):
		return http.StatusConflict
	case errors.As(err, &numErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shgat.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, shgat.ErrUnknownMember):
		return http.StatusBadRequest
	case errors.Is(err, shgat.ErrInvalidSuccessRate):
		return http.StatusBadRequest
	case errors.Is(err, shgat.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, shgat.ErrVersionMismatch), errors.Is(err, shgat.ErrCorruptBlob):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
