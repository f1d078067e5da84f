package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	apiContext "hooklink/internal/api/context"
	"hooklink/internal/engine/dispatch"
	"hooklink/internal/engine/resolution"
	"hooklink/internal/pkg/errors"
	"hooklink/internal/pkg/metrics"
	"hooklink/internal/platform/models"
	"hooklink/internal/platform/repositories"
)

const maxPayloadBytes = 1 << 20

// EventHandler receives third-party callbacks, resolves them to an identity
// and hands the result to dispatch. The endpoint is public: the payload is
// untrusted and resolution itself is the gate.
type EventHandler struct {
	resolver   *resolution.Resolver
	events     *repositories.EventRepository
	dispatcher *dispatch.Dispatcher
}

func NewEventHandler(resolver *resolution.Resolver, events *repositories.EventRepository, dispatcher *dispatch.Dispatcher) *EventHandler {
	return &EventHandler{resolver: resolver, events: events, dispatcher: dispatcher}
}

func (h *EventHandler) Handle(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	providerID := params.ByName("provider_id")
	eventID := params.ByName("event_id")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Failed to read body", nil)
		return
	}

	// UseNumber keeps numeric identifiers in their payload text form so the
	// canonical string matches what activation staged.
	var data map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil || len(data) == 0 {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Body must be a non-empty JSON object", nil)
		return
	}

	start := time.Now()
	identity, err := h.resolver.Resolve(r.Context(), providerID, eventID, data)
	metrics.ResolutionDuration.WithLabelValues(providerID).Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := writeDomainError(w, err)
		metrics.ResolutionsTotal.WithLabelValues(providerID, outcome).Inc()
		h.record(&models.WebhookEvent{
			ProviderID: providerID,
			EventID:    eventID,
			Outcome:    outcome,
		})
		return
	}

	metrics.ResolutionsTotal.WithLabelValues(providerID, "resolved").Inc()
	h.record(&models.WebhookEvent{
		ProviderID:     providerID,
		EventID:        eventID,
		Outcome:        "resolved",
		WebhookID:      identity.WebhookID,
		ClientUserID:   identity.ClientUserID,
		AgentID:        identity.AgentID,
		ConversationID: identity.ConversationID,
	})

	h.dispatcher.Enqueue(identity, body)

	writeJSON(w, http.StatusAccepted, identity)
}

// List exposes the recent inbound audit log to operators.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	events, err := h.events.ListRecent(limit)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list events", nil)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) record(event *models.WebhookEvent) {
	if err := h.events.Record(event); err != nil {
		log.Warn().Err(err).Str("provider", event.ProviderID).Msg("failed to record inbound event")
	}
}
