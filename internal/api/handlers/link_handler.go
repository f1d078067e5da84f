package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "hooklink/internal/api/context"
	"hooklink/internal/engine/activation"
	"hooklink/internal/pkg/errors"
	"hooklink/internal/platform/auth"
	"hooklink/internal/platform/models"
	"hooklink/internal/platform/repositories"
)

type LinkHandler struct {
	definitions *repositories.DefinitionRepository
	userLinks   *repositories.UserLinkRepository
	agentLinks  *repositories.AgentLinkRepository
	machine     *activation.Machine
}

func NewLinkHandler(defs *repositories.DefinitionRepository, userLinks *repositories.UserLinkRepository, agentLinks *repositories.AgentLinkRepository, machine *activation.Machine) *LinkHandler {
	return &LinkHandler{
		definitions: defs,
		userLinks:   userLinks,
		agentLinks:  agentLinks,
		machine:     machine,
	}
}

// AttachUser links the caller to a definition and immediately runs the
// activation evaluation. 200 with the link when it activates, 202 with a
// setup-needed description otherwise. Safe to call repeatedly; each call
// re-evaluates prerequisites.
func (h *LinkHandler) AttachUser(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	var req struct {
		PlatformUserID string `json:"platform_user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.PlatformUserID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "platform_user_id is required", nil)
		return
	}

	def, err := h.definitions.GetByID(params.ByName("definition_id"))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load definition", nil)
		return
	}
	if def == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Definition not found", nil)
		return
	}

	link, setup, err := h.machine.Evaluate(r.Context(), def, claims.ClientUserID, claims.OrganizationID, req.PlatformUserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if setup != nil {
		writeJSON(w, http.StatusAccepted, setup)
		return
	}

	writeJSON(w, http.StatusOK, link)
}

// Evaluate re-runs the activation evaluation for an existing link, e.g.
// after the user added a missing secret or to pick up a revocation.
func (h *LinkHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	def, err := h.definitions.GetByID(params.ByName("definition_id"))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load definition", nil)
		return
	}
	if def == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Definition not found", nil)
		return
	}

	existing, err := h.userLinks.Get(def.ID, claims.ClientUserID, claims.OrganizationID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load link", nil)
		return
	}
	if existing == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "No link for this definition", nil)
		return
	}

	link, setup, err := h.machine.Evaluate(r.Context(), def, claims.ClientUserID, claims.OrganizationID, existing.PlatformUserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if setup != nil {
		writeJSON(w, http.StatusAccepted, setup)
		return
	}

	writeJSON(w, http.StatusOK, link)
}

// AttachAgent binds an agent to an active user link. Agent links are only
// created once the user link is active.
func (h *LinkHandler) AttachAgent(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	var req struct {
		AgentID string `json:"agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.AgentID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "agent_id is required", nil)
		return
	}

	definitionID := params.ByName("definition_id")
	userLink, err := h.userLinks.Get(definitionID, claims.ClientUserID, claims.OrganizationID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load link", nil)
		return
	}
	if userLink == nil || userLink.Status != models.LinkStatusActive {
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "User link must be active before attaching an agent", nil)
		return
	}

	agentLink := &models.AgentWebhookLink{
		WebhookID:      definitionID,
		ClientUserID:   claims.ClientUserID,
		OrganizationID: claims.OrganizationID,
		AgentID:        req.AgentID,
	}
	if err := h.agentLinks.Create(agentLink); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to attach agent", nil)
		return
	}

	writeJSON(w, http.StatusCreated, agentLink)
}
