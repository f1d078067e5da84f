package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"hooklink/internal/platform/models"
)

type AgentLinkRepository struct {
	db *sql.DB
}

func NewAgentLinkRepository(db *sql.DB) *AgentLinkRepository {
	return &AgentLinkRepository{db: db}
}

func (r *AgentLinkRepository) Create(link *models.AgentWebhookLink) error {
	if link.ID == "" {
		link.ID = "agl_" + uuid.New().String()
	}
	link.CreatedAt = time.Now().Unix()

	query := `
		INSERT INTO agent_webhook_links (id, webhook_id, client_user_id, organization_id, agent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		link.ID, link.WebhookID, link.ClientUserID, link.OrganizationID, link.AgentID, link.CreatedAt,
	)
	return err
}

// Get returns the agent link for (webhook, client user, org). Exactly one
// is expected; if several exist the earliest wins so repeated resolutions
// pick the same agent.
func (r *AgentLinkRepository) Get(webhookID, clientUserID, orgID string) (*models.AgentWebhookLink, error) {
	query := `
		SELECT id, webhook_id, client_user_id, organization_id, agent_id, created_at
		FROM agent_webhook_links
		WHERE webhook_id = ? AND client_user_id = ? AND organization_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`
	row := r.db.QueryRow(query, webhookID, clientUserID, orgID)

	var link models.AgentWebhookLink
	err := row.Scan(&link.ID, &link.WebhookID, &link.ClientUserID, &link.OrganizationID, &link.AgentID, &link.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *AgentLinkRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM agent_webhook_links WHERE id = ?`, id)
	return err
}
