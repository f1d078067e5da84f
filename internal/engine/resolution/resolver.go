// Package resolution maps an inbound payload back to the (client user,
// platform user, agent, conversation) tuple that should handle it.
package resolution

import (
	"context"

	"github.com/rs/zerolog/log"

	"hooklink/internal/engine/definitions"
	"hooklink/internal/engine/identity"
	"hooklink/internal/engine/payload"
	"hooklink/internal/pkg/errors"
	"hooklink/internal/platform/models"
	"hooklink/internal/platform/repositories"
)

// Resolver is stateless per call and read-only against every store. It must
// hash with the same Hasher instance activation writes with; drift between
// the two silently orphans every active link.
type Resolver struct {
	matcher *definitions.Matcher
	links   *repositories.UserLinkRepository
	agents  *repositories.AgentLinkRepository
	hasher  *identity.Hasher
}

func NewResolver(matcher *definitions.Matcher, links *repositories.UserLinkRepository, agents *repositories.AgentLinkRepository, hasher *identity.Hasher) *Resolver {
	return &Resolver{
		matcher: matcher,
		links:   links,
		agents:  agents,
		hasher:  hasher,
	}
}

// Resolve tries every candidate definition for (provider, event) in
// creation order and returns the first that fully resolves. Candidates that
// merely fail to match the payload are skipped; a malformed definition
// aborts the whole resolution, and a matched-but-inactive link or a missing
// conversation id after a match are terminal.
//
// When several candidates would resolve, creation order is the tie-break:
// the earliest registered definition wins and the rest are never consulted.
func (r *Resolver) Resolve(ctx context.Context, providerID, eventID string, data interface{}) (*models.ResolvedIdentity, error) {
	candidates, err := r.matcher.FindCandidates(providerID, eventID)
	if err != nil {
		return nil, &errors.InternalError{Reason: "load candidate definitions", Err: err}
	}
	if len(candidates) == 0 {
		return nil, &errors.NotFoundError{Reason: "no definition for " + providerID + "/" + eventID}
	}

	// With a single candidate, its specific failure is the most useful
	// answer. With several, individual failures are ambiguous and only a
	// generic not-found survives.
	single := len(candidates) == 1
	var lastErr error

	for _, candidate := range candidates {
		if err := r.matcher.Validate(candidate); err != nil {
			return nil, err
		}

		values := make(map[string]interface{}, len(candidate.IdentifierMapping))
		missing := ""
		for key, path := range candidate.IdentifierMapping {
			value, ok := payload.Extract(data, path)
			if !ok {
				missing = path
				break
			}
			values[key] = value
		}
		if missing != "" {
			lastErr = &errors.BadRequestError{Reason: "payload missing required field at " + missing}
			continue
		}

		hash := r.hasher.HashValues(values)

		link, err := r.links.GetByHash(candidate.ID, hash)
		if err != nil {
			return nil, &errors.InternalError{Reason: "look up link", Err: err}
		}
		if link == nil {
			lastErr = &errors.NotFoundError{Reason: "no link matches payload identifiers"}
			continue
		}
		if link.Status != models.LinkStatusActive {
			return nil, &errors.LinkNotActiveError{WebhookID: candidate.ID, Status: link.Status}
		}

		agent, err := r.agents.Get(candidate.ID, link.ClientUserID, link.OrganizationID)
		if err != nil {
			return nil, &errors.InternalError{Reason: "look up agent link", Err: err}
		}
		if agent == nil {
			lastErr = &errors.NotFoundError{Reason: "no agent linked to webhook " + candidate.ID}
			continue
		}

		// Webhook, user and agent are established at this point, so a
		// missing conversation id is the payload's fault and terminal.
		conversationID, ok := payload.ExtractString(data, candidate.ConversationPath)
		if !ok {
			return nil, &errors.BadRequestError{Reason: "payload missing conversation id at " + candidate.ConversationPath}
		}

		log.Debug().
			Str("provider", providerID).
			Str("event", eventID).
			Str("webhook_id", candidate.ID).
			Str("agent_id", agent.AgentID).
			Msg("payload resolved")

		return &models.ResolvedIdentity{
			WebhookID:      candidate.ID,
			ClientUserID:   link.ClientUserID,
			PlatformUserID: link.PlatformUserID,
			AgentID:        agent.AgentID,
			ConversationID: conversationID,
		}, nil
	}

	if single && lastErr != nil {
		return nil, lastErr
	}
	return nil, &errors.NotFoundError{Reason: "no candidate definition resolved"}
}
