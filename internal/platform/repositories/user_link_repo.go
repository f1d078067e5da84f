package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"hooklink/internal/platform/models"
)

type UserLinkRepository struct {
	db *sql.DB
}

func NewUserLinkRepository(db *sql.DB) *UserLinkRepository {
	return &UserLinkRepository{db: db}
}

// GetOrCreate returns the link row for (webhook, client user, org), creating
// it as pending on first attempt. The insert is a no-op upsert so concurrent
// first attempts cannot race into duplicate rows.
func (r *UserLinkRepository) GetOrCreate(webhookID, clientUserID, orgID, platformUserID string) (*models.UserWebhookLink, error) {
	now := time.Now().Unix()
	query := `
		INSERT INTO user_webhook_links (
			id, webhook_id, client_user_id, organization_id, platform_user_id,
			status, identifier_hash, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?)
		ON CONFLICT (webhook_id, client_user_id, organization_id) DO NOTHING
	`
	_, err := r.db.Exec(query,
		"link_"+uuid.New().String(), webhookID, clientUserID, orgID, platformUserID,
		models.LinkStatusPending, now, now,
	)
	if err != nil {
		return nil, err
	}

	return r.Get(webhookID, clientUserID, orgID)
}

func (r *UserLinkRepository) Get(webhookID, clientUserID, orgID string) (*models.UserWebhookLink, error) {
	query := selectUserLink + ` WHERE webhook_id = ? AND client_user_id = ? AND organization_id = ?`
	row := r.db.QueryRow(query, webhookID, clientUserID, orgID)
	link, err := scanUserLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return link, err
}

// GetByHash looks a link up by its identifier hash regardless of status.
// Only active rows carry a hash, but a demoted-then-reactivated row could
// briefly be observed pending by a concurrent reader; the resolver treats
// any non-active status as forbidden rather than absent.
func (r *UserLinkRepository) GetByHash(webhookID, hash string) (*models.UserWebhookLink, error) {
	query := selectUserLink + ` WHERE webhook_id = ? AND identifier_hash = ?`
	row := r.db.QueryRow(query, webhookID, hash)
	link, err := scanUserLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return link, err
}

// Activate upserts the row to active with the given hash in a single
// statement, preserving the status/hash invariant under concurrent
// evaluations.
func (r *UserLinkRepository) Activate(webhookID, clientUserID, orgID, platformUserID, hash string) (*models.UserWebhookLink, error) {
	now := time.Now().Unix()
	query := `
		INSERT INTO user_webhook_links (
			id, webhook_id, client_user_id, organization_id, platform_user_id,
			status, identifier_hash, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (webhook_id, client_user_id, organization_id)
		DO UPDATE SET status = excluded.status,
		              identifier_hash = excluded.identifier_hash,
		              platform_user_id = excluded.platform_user_id,
		              updated_at = excluded.updated_at
	`
	_, err := r.db.Exec(query,
		"link_"+uuid.New().String(), webhookID, clientUserID, orgID, platformUserID,
		models.LinkStatusActive, hash, now, now,
	)
	if err != nil {
		return nil, err
	}

	return r.Get(webhookID, clientUserID, orgID)
}

// Demote drops an active link back to pending and clears its hash. Used
// when a previously complete setup loses a confirmation or input secret.
func (r *UserLinkRepository) Demote(id string) error {
	query := `UPDATE user_webhook_links SET status = ?, identifier_hash = NULL, updated_at = ? WHERE id = ?`
	_, err := r.db.Exec(query, models.LinkStatusPending, time.Now().Unix(), id)
	return err
}

const selectUserLink = `
	SELECT id, webhook_id, client_user_id, organization_id, platform_user_id,
	       status, identifier_hash, created_at, updated_at
	FROM user_webhook_links
`

func scanUserLink(s interface {
	Scan(dest ...interface{}) error
}) (*models.UserWebhookLink, error) {
	var link models.UserWebhookLink
	var hash sql.NullString

	err := s.Scan(
		&link.ID,
		&link.WebhookID,
		&link.ClientUserID,
		&link.OrganizationID,
		&link.PlatformUserID,
		&link.Status,
		&hash,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if hash.Valid {
		link.IdentifierHash = &hash.String
	}

	return &link, nil
}
