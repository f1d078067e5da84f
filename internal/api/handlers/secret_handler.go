package handlers

import (
	"encoding/json"
	"net/http"

	apiContext "hooklink/internal/api/context"
	"hooklink/internal/engine/identity"
	"hooklink/internal/pkg/errors"
	"hooklink/internal/platform/auth"
	"hooklink/internal/platform/secrets"
)

// SecretHandler lets a user stage provider secrets and confirmations ahead
// of activation. Values are write-only through the API.
type SecretHandler struct {
	store secrets.Store
}

func NewSecretHandler(store secrets.Store) *SecretHandler {
	return &SecretHandler{store: store}
}

func (h *SecretHandler) Put(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	var req struct {
		Provider    string `json:"provider"`
		SubProvider string `json:"sub_provider"`
		Key         string `json:"key"`
		Value       string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Provider == "" || req.Key == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "provider and key are required", nil)
		return
	}
	if req.Key != secrets.KeyTargetConfirmed && !identity.Kind(req.Key).Valid() {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "unrecognized secret key "+req.Key, nil)
		return
	}

	ref := secrets.Ref{
		UserType:    secrets.UserTypeClient,
		UserID:      claims.ClientUserID,
		Provider:    req.Provider,
		SubProvider: req.SubProvider,
		Key:         req.Key,
	}
	if err := h.store.Put(r.Context(), ref, req.Value); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to store secret", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
