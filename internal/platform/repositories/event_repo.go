package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"hooklink/internal/platform/models"
)

// EventRepository is the inbound audit log. Writes happen in the handler
// after resolution finishes; the resolver itself stays read-only.
type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Record(event *models.WebhookEvent) error {
	if event.ID == "" {
		event.ID = "evt_" + uuid.New().String()
	}
	if event.ReceivedAt == 0 {
		event.ReceivedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO webhook_events (
			id, provider_id, event_id, outcome, webhook_id,
			client_user_id, agent_id, conversation_id, received_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		event.ID, event.ProviderID, event.EventID, event.Outcome, event.WebhookID,
		event.ClientUserID, event.AgentID, event.ConversationID, event.ReceivedAt,
	)
	return err
}

// PruneBefore deletes audit rows received before the cutoff and returns
// how many were removed.
func (r *EventRepository) PruneBefore(cutoff int64) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM webhook_events WHERE received_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *EventRepository) ListRecent(limit int) ([]*models.WebhookEvent, error) {
	query := `
		SELECT id, provider_id, event_id, outcome, webhook_id,
		       client_user_id, agent_id, conversation_id, received_at
		FROM webhook_events
		ORDER BY received_at DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.WebhookEvent
	for rows.Next() {
		var e models.WebhookEvent
		if err := rows.Scan(&e.ID, &e.ProviderID, &e.EventID, &e.Outcome, &e.WebhookID,
			&e.ClientUserID, &e.AgentID, &e.ConversationID, &e.ReceivedAt); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
