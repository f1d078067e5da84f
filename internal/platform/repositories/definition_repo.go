package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"hooklink/internal/platform/models"
)

type DefinitionRepository struct {
	db *sql.DB
}

func NewDefinitionRepository(db *sql.DB) *DefinitionRepository {
	return &DefinitionRepository{db: db}
}

func (r *DefinitionRepository) Create(def *models.WebhookDefinition) error {
	if def.ID == "" {
		def.ID = "wh_" + uuid.New().String()
	}
	now := time.Now().Unix()
	def.CreatedAt = now
	def.UpdatedAt = now

	mappingJSON, err := json.Marshal(def.IdentifierMapping)
	if err != nil {
		return err
	}
	secretsJSON, err := json.Marshal(def.RequiredSecrets)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO webhook_definitions (
			id, provider_id, subscribed_event_id, identifier_mapping,
			required_secrets, conversation_path, created_by, organization_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		def.ID,
		def.ProviderID,
		def.SubscribedEventID,
		string(mappingJSON),
		string(secretsJSON),
		def.ConversationPath,
		def.CreatedBy,
		def.OrganizationID,
		def.CreatedAt,
		def.UpdatedAt,
	)
	return err
}

func (r *DefinitionRepository) GetByID(id string) (*models.WebhookDefinition, error) {
	query := selectDefinition + ` WHERE id = ?`
	row := r.db.QueryRow(query, id)
	def, err := scanDefinition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return def, err
}

// FindByProviderEvent returns every definition registered for the pair, in
// deterministic order: creation time, then id. The resolver's tie-break
// depends on this ordering.
func (r *DefinitionRepository) FindByProviderEvent(providerID, eventID string) ([]*models.WebhookDefinition, error) {
	query := selectDefinition + `
		WHERE provider_id = ? AND subscribed_event_id = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(query, providerID, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*models.WebhookDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func (r *DefinitionRepository) List(limit, offset int) ([]*models.WebhookDefinition, error) {
	query := selectDefinition + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*models.WebhookDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func (r *DefinitionRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM webhook_definitions WHERE id = ?`, id)
	return err
}

const selectDefinition = `
	SELECT id, provider_id, subscribed_event_id, identifier_mapping,
	       required_secrets, conversation_path, created_by, organization_id,
	       created_at, updated_at
	FROM webhook_definitions
`

func scanDefinition(s interface {
	Scan(dest ...interface{}) error
}) (*models.WebhookDefinition, error) {
	var def models.WebhookDefinition
	var mappingRaw, secretsRaw []byte

	err := s.Scan(
		&def.ID,
		&def.ProviderID,
		&def.SubscribedEventID,
		&mappingRaw,
		&secretsRaw,
		&def.ConversationPath,
		&def.CreatedBy,
		&def.OrganizationID,
		&def.CreatedAt,
		&def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(mappingRaw) > 0 {
		json.Unmarshal(mappingRaw, &def.IdentifierMapping)
	}
	if len(secretsRaw) > 0 {
		json.Unmarshal(secretsRaw, &def.RequiredSecrets)
	}

	return &def, nil
}
