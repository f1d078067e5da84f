package handlers

import (
	"encoding/json"
	"net/http"

	stderrors "errors"

	"hooklink/internal/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDomainError maps the engine error taxonomy onto HTTP and returns the
// audit outcome label.
func writeDomainError(w http.ResponseWriter, err error) string {
	var badReq *errors.BadRequestError
	var notFound *errors.NotFoundError
	var notActive *errors.LinkNotActiveError
	var configErr *errors.ConfigError

	switch {
	case stderrors.As(err, &badReq):
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, badReq.Reason, nil)
		return "bad_request"
	case stderrors.As(err, &notFound):
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, notFound.Reason, nil)
		return "not_found"
	case stderrors.As(err, &notActive):
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, notActive.Error(), nil)
		return "forbidden"
	case stderrors.As(err, &configErr):
		// Operator-facing: the stored definition is broken, not the request.
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeWebhookConfig, configErr.Error(), nil)
		return "config_error"
	default:
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Internal error", nil)
		return "internal_error"
	}
}
