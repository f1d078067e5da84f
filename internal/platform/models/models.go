package models

// Link status values. "Unset" is never stored: it describes the absence of a
// row and only appears in API responses.
const (
	LinkStatusUnset   = "unset"
	LinkStatusPending = "pending"
	LinkStatusActive  = "active"
)

type WebhookDefinition struct {
	ID                string            `json:"id"`
	ProviderID        string            `json:"provider_id"`
	SubscribedEventID string            `json:"subscribed_event_id"`
	IdentifierMapping map[string]string `json:"identifier_mapping"` // identifier kind -> payload dot-path, JSON object in DB
	RequiredSecrets   []string          `json:"required_secrets,omitempty"`
	ConversationPath  string            `json:"conversation_path"`
	CreatedBy         string            `json:"created_by"`
	OrganizationID    string            `json:"organization_id,omitempty"`
	CreatedAt         int64             `json:"created_at"`
	UpdatedAt         int64             `json:"updated_at"`
}

type UserWebhookLink struct {
	ID             string  `json:"id"`
	WebhookID      string  `json:"webhook_id"`
	ClientUserID   string  `json:"client_user_id"`
	OrganizationID string  `json:"organization_id,omitempty"`
	PlatformUserID string  `json:"platform_user_id"`
	Status         string  `json:"status"` // pending, active
	IdentifierHash *string `json:"-"`      // non-nil iff Status == active
	CreatedAt      int64   `json:"created_at"`
	UpdatedAt      int64   `json:"updated_at"`
}

type AgentWebhookLink struct {
	ID             string `json:"id"`
	WebhookID      string `json:"webhook_id"`
	ClientUserID   string `json:"client_user_id"`
	OrganizationID string `json:"organization_id,omitempty"`
	AgentID        string `json:"agent_id"`
	CreatedAt      int64  `json:"created_at"`
}

// ResolvedIdentity is the transient output of resolution. It is never
// persisted; the inbound handler forwards it to dispatch and the audit log.
type ResolvedIdentity struct {
	WebhookID      string `json:"webhook_id"`
	ClientUserID   string `json:"client_user_id"`
	PlatformUserID string `json:"platform_user_id"`
	AgentID        string `json:"agent_id"`
	ConversationID string `json:"conversation_id"`
}

type WebhookEvent struct {
	ID             string `json:"id"`
	ProviderID     string `json:"provider_id"`
	EventID        string `json:"event_id"`
	Outcome        string `json:"outcome"` // resolved, not_found, bad_request, forbidden, config_error, internal_error
	WebhookID      string `json:"webhook_id,omitempty"`
	ClientUserID   string `json:"client_user_id,omitempty"`
	AgentID        string `json:"agent_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	ReceivedAt     int64  `json:"received_at"`
}
