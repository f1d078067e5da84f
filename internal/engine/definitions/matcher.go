package definitions

import (
	"hooklink/internal/engine/identity"
	"hooklink/internal/pkg/errors"
	"hooklink/internal/platform/models"
	"hooklink/internal/platform/repositories"
)

// Matcher answers which definitions could handle an inbound (provider,
// event) pair and whether a stored definition is well-formed. Multiple
// tenants may register the same pair, so candidates come back as a list.
type Matcher struct {
	repo *repositories.DefinitionRepository
}

func NewMatcher(repo *repositories.DefinitionRepository) *Matcher {
	return &Matcher{repo: repo}
}

// FindCandidates returns zero or more definitions in creation order. The
// caller tries each until one resolves.
func (m *Matcher) FindCandidates(providerID, eventID string) ([]*models.WebhookDefinition, error) {
	return m.repo.FindByProviderEvent(providerID, eventID)
}

// Validate checks a definition's mappings. Failures are configuration
// errors: they point at a malformed stored row, not a bad payload.
func (m *Matcher) Validate(def *models.WebhookDefinition) error {
	if len(def.IdentifierMapping) == 0 {
		return &errors.ConfigError{WebhookID: def.ID, Reason: "identifier mapping is empty"}
	}
	for key, path := range def.IdentifierMapping {
		kind := identity.Kind(key)
		if !kind.Valid() {
			return &errors.ConfigError{WebhookID: def.ID, Reason: "unrecognized identifier kind " + key}
		}
		if !kind.IsInput() {
			return &errors.ConfigError{WebhookID: def.ID, Reason: "identifier kind " + key + " is not an input kind"}
		}
		if path == "" {
			return &errors.ConfigError{WebhookID: def.ID, Reason: "identifier " + key + " maps to an empty path"}
		}
	}
	for _, key := range def.RequiredSecrets {
		if !identity.Kind(key).Valid() {
			return &errors.ConfigError{WebhookID: def.ID, Reason: "unrecognized secret kind " + key}
		}
	}
	if def.ConversationPath == "" {
		return &errors.ConfigError{WebhookID: def.ID, Reason: "conversation path is empty"}
	}
	return nil
}
