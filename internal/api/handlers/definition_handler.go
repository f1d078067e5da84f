package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	apiContext "hooklink/internal/api/context"
	"hooklink/internal/engine/definitions"
	"hooklink/internal/engine/search"
	"hooklink/internal/pkg/errors"
	"hooklink/internal/platform/auth"
	"hooklink/internal/platform/models"
	"hooklink/internal/platform/repositories"
)

type DefinitionHandler struct {
	repo    *repositories.DefinitionRepository
	matcher *definitions.Matcher
	search  *search.Service
}

func NewDefinitionHandler(repo *repositories.DefinitionRepository, matcher *definitions.Matcher, searchSvc *search.Service) *DefinitionHandler {
	return &DefinitionHandler{repo: repo, matcher: matcher, search: searchSvc}
}

func (h *DefinitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	var req struct {
		ProviderID        string            `json:"provider_id"`
		SubscribedEventID string            `json:"subscribed_event_id"`
		IdentifierMapping map[string]string `json:"identifier_mapping"`
		RequiredSecrets   []string          `json:"required_secrets"`
		ConversationPath  string            `json:"conversation_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.ProviderID == "" || req.SubscribedEventID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "provider_id and subscribed_event_id are required", nil)
		return
	}

	def := &models.WebhookDefinition{
		ProviderID:        req.ProviderID,
		SubscribedEventID: req.SubscribedEventID,
		IdentifierMapping: req.IdentifierMapping,
		RequiredSecrets:   req.RequiredSecrets,
		ConversationPath:  req.ConversationPath,
		CreatedBy:         claims.ClientUserID,
		OrganizationID:    claims.OrganizationID,
	}

	// Mappings are validated once here, with the closed identifier-kind set,
	// so resolution never meets an unrecognized kind.
	if err := h.matcher.Validate(def); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	if err := h.repo.Create(def); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create definition", nil)
		return
	}

	if err := h.search.IndexDefinition(r.Context(), def); err != nil {
		log.Warn().Err(err).Str("webhook_id", def.ID).Msg("failed to index definition for search")
	}

	writeJSON(w, http.StatusCreated, def)
}

func (h *DefinitionHandler) Get(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	def, err := h.repo.GetByID(params.ByName("definition_id"))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load definition", nil)
		return
	}
	if def == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Definition not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, def)
}

func (h *DefinitionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	defs, err := h.repo.List(limit, offset)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list definitions", nil)
		return
	}

	writeJSON(w, http.StatusOK, defs)
}

func (h *DefinitionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	id := params.ByName("definition_id")

	if err := h.repo.Delete(id); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to delete definition", nil)
		return
	}
	h.search.RemoveDefinition(id)

	w.WriteHeader(http.StatusOK)
}

func (h *DefinitionHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "q is required", nil)
		return
	}
	k, _ := strconv.Atoi(r.URL.Query().Get("k"))
	if k <= 0 || k > 50 {
		k = 10
	}

	matches, err := h.search.Search(r.Context(), query, k)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Search failed", nil)
		return
	}

	results := make([]map[string]interface{}, 0, len(matches))
	for _, match := range matches {
		def, err := h.repo.GetByID(match.ID)
		if err != nil || def == nil {
			continue
		}
		results = append(results, map[string]interface{}{
			"definition": def,
			"score":      match.Score,
		})
	}

	writeJSON(w, http.StatusOK, results)
}
