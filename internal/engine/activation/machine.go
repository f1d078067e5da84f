// Package activation drives a user-webhook link from unset through pending
// to active. It is the only place an identifier hash is written; resolution
// only ever reads them.
package activation

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"hooklink/internal/engine/definitions"
	"hooklink/internal/engine/identity"
	"hooklink/internal/pkg/errors"
	"hooklink/internal/pkg/metrics"
	"hooklink/internal/platform/models"
	"hooklink/internal/platform/repositories"
	"hooklink/internal/platform/secrets"
)

// SetupNeeded describes exactly what still blocks activation. Incomplete
// setup is an expected state, so this is a structured response rather than
// an error.
type SetupNeeded struct {
	WebhookID            string   `json:"webhook_id"`
	Status               string   `json:"status"`
	TargetURL            string   `json:"target_url"`
	MissingConfirmations []string `json:"missing_confirmations,omitempty"`
	MissingInputs        []string `json:"missing_inputs,omitempty"`
}

type Machine struct {
	links   *repositories.UserLinkRepository
	store   secrets.Store
	matcher *definitions.Matcher
	hasher  *identity.Hasher
	baseURL string
}

func NewMachine(links *repositories.UserLinkRepository, store secrets.Store, matcher *definitions.Matcher, hasher *identity.Hasher, baseURL string) *Machine {
	return &Machine{
		links:   links,
		store:   store,
		matcher: matcher,
		hasher:  hasher,
		baseURL: baseURL,
	}
}

// Evaluate re-checks every prerequisite for (definition, user) and lands
// the link on the correct status. It is idempotent: calling it again with
// unchanged external state yields the same status and hash. A once-active
// link whose secrets were revoked is demoted back to pending.
//
// Exactly one of the returns is set: the active link, or a SetupNeeded, or
// an error.
func (m *Machine) Evaluate(ctx context.Context, def *models.WebhookDefinition, clientUserID, orgID, platformUserID string) (*models.UserWebhookLink, *SetupNeeded, error) {
	if err := m.matcher.Validate(def); err != nil {
		return nil, nil, err
	}

	link, err := m.links.GetOrCreate(def.ID, clientUserID, orgID, platformUserID)
	if err != nil {
		return nil, nil, &errors.InternalError{Reason: "ensure link row", Err: err}
	}

	setup := &SetupNeeded{
		WebhookID: def.ID,
		TargetURL: fmt.Sprintf("%s/hooks/%s/%s", m.baseURL, def.ProviderID, def.SubscribedEventID),
	}

	confirmed, err := m.store.Exists(ctx, secrets.Ref{
		UserType:    secrets.UserTypeClient,
		UserID:      clientUserID,
		Provider:    def.ProviderID,
		SubProvider: def.SubscribedEventID,
		Key:         secrets.KeyTargetConfirmed,
	})
	if err != nil {
		return nil, nil, &errors.InternalError{Reason: "check target confirmation", Err: err}
	}
	if !confirmed {
		setup.MissingConfirmations = append(setup.MissingConfirmations, secrets.KeyTargetConfirmed)
	}

	staged := make(map[string]interface{})
	for _, key := range requiredKeys(def) {
		ref := secrets.Ref{
			UserType:    secrets.UserTypeClient,
			UserID:      clientUserID,
			Provider:    def.ProviderID,
			SubProvider: def.SubscribedEventID,
			Key:         key,
		}

		exists, err := m.store.Exists(ctx, ref)
		if err != nil {
			return nil, nil, &errors.InternalError{Reason: "check secret " + key, Err: err}
		}
		if !exists {
			setup.MissingInputs = append(setup.MissingInputs, key)
			continue
		}

		if _, mapped := def.IdentifierMapping[key]; !mapped {
			continue // operational secret, existence is all that matters
		}

		value, found, err := m.store.Get(ctx, ref)
		if err != nil || !found {
			return nil, nil, &errors.InternalError{Reason: "fetch secret " + key, Err: err}
		}
		staged[key] = value
	}

	if len(setup.MissingConfirmations) > 0 || len(setup.MissingInputs) > 0 {
		if link.Status == models.LinkStatusActive {
			if err := m.links.Demote(link.ID); err != nil {
				return nil, nil, &errors.InternalError{Reason: "demote link", Err: err}
			}
			log.Warn().
				Str("webhook_id", def.ID).
				Str("link_id", link.ID).
				Strs("missing_inputs", setup.MissingInputs).
				Msg("active link demoted to pending, setup incomplete")
		}
		setup.Status = models.LinkStatusPending
		metrics.ActivationsTotal.WithLabelValues(models.LinkStatusPending).Inc()
		return nil, setup, nil
	}

	// Every identifier-mapping key reported present above must have staged a
	// value. A mismatch means the store lied between Exists and Get.
	if len(staged) != len(def.IdentifierMapping) {
		return nil, nil, &errors.InternalError{
			Reason: fmt.Sprintf("staged %d identifier values, mapping requires %d", len(staged), len(def.IdentifierMapping)),
		}
	}

	hash := m.hasher.HashValues(staged)
	activated, err := m.links.Activate(def.ID, clientUserID, orgID, platformUserID, hash)
	if err != nil {
		return nil, nil, &errors.InternalError{Reason: "activate link", Err: err}
	}

	log.Info().
		Str("webhook_id", def.ID).
		Str("link_id", activated.ID).
		Msg("link activated")
	metrics.ActivationsTotal.WithLabelValues(models.LinkStatusActive).Inc()

	return activated, nil, nil
}

// requiredKeys is the union of identifier-mapping keys and operational
// secrets, sorted so evaluation order (and any reported missing list) is
// stable.
func requiredKeys(def *models.WebhookDefinition) []string {
	seen := make(map[string]bool, len(def.IdentifierMapping)+len(def.RequiredSecrets))
	for key := range def.IdentifierMapping {
		seen[key] = true
	}
	for _, key := range def.RequiredSecrets {
		seen[key] = true
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
