package api

import (
	"errors"
	"net/http"

	"github.com/hercule-app/hercule/internal/core"
)

func httpStatusForDomainError(err error) (int, bool) {
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr == nil {
		return 0, false
	}

	switch domErr.Category {
	case core.ErrCatValidation, core.ErrCatRestricted:
		return http.StatusUnprocessableEntity, true
	case core.ErrCatExtraction:
		return http.StatusNotFound, true
	case core.ErrCatTimeout:
		return http.StatusGatewayTimeout, true
	case core.ErrCatUpstream, core.ErrCatCommunication:
		return http.StatusBadGateway, true
	default:
		return http.StatusInternalServerError, true
	}
}

// respondDomainError maps an error to its HTTP status and emits the
// user-facing message. The message lands in the "error" field that clients
// surface verbatim.
func respondDomainError(w http.ResponseWriter, err error) {
	status, ok := httpStatusForDomainError(err)
	if !ok {
		status = http.StatusInternalServerError
	}
	respondError(w, status, core.UserMessage(err))
}
