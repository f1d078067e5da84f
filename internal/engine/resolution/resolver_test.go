package resolution

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"hooklink/internal/engine/definitions"
	"hooklink/internal/engine/identity"
	"hooklink/internal/pkg/errors"
	"hooklink/internal/platform/models"
	"hooklink/internal/platform/repositories"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}

	query := `
	CREATE TABLE webhook_definitions (
		id TEXT PRIMARY KEY,
		provider_id TEXT NOT NULL,
		subscribed_event_id TEXT NOT NULL,
		identifier_mapping TEXT NOT NULL,
		required_secrets TEXT,
		conversation_path TEXT NOT NULL,
		created_by TEXT NOT NULL,
		organization_id TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE user_webhook_links (
		id TEXT PRIMARY KEY,
		webhook_id TEXT NOT NULL,
		client_user_id TEXT NOT NULL,
		organization_id TEXT NOT NULL DEFAULT '',
		platform_user_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		identifier_hash TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE (webhook_id, client_user_id, organization_id)
	);
	CREATE TABLE agent_webhook_links (
		id TEXT PRIMARY KEY,
		webhook_id TEXT NOT NULL,
		client_user_id TEXT NOT NULL,
		organization_id TEXT NOT NULL DEFAULT '',
		agent_id TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}
	return db
}

type fixture struct {
	db       *sql.DB
	defs     *repositories.DefinitionRepository
	links    *repositories.UserLinkRepository
	agents   *repositories.AgentLinkRepository
	hasher   *identity.Hasher
	resolver *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	hasher, err := identity.NewHasher(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	defs := repositories.NewDefinitionRepository(db)
	links := repositories.NewUserLinkRepository(db)
	agents := repositories.NewAgentLinkRepository(db)
	matcher := definitions.NewMatcher(defs)

	return &fixture{
		db:       db,
		defs:     defs,
		links:    links,
		agents:   agents,
		hasher:   hasher,
		resolver: NewResolver(matcher, links, agents, hasher),
	}
}

func (f *fixture) createDefinition(t *testing.T, id string, mapping map[string]string, conversationPath string) *models.WebhookDefinition {
	t.Helper()
	def := &models.WebhookDefinition{
		ID:                id,
		ProviderID:        "github",
		SubscribedEventID: "push",
		IdentifierMapping: mapping,
		ConversationPath:  conversationPath,
		CreatedBy:         "cu_1",
	}
	if err := f.defs.Create(def); err != nil {
		t.Fatalf("create definition: %v", err)
	}
	return def
}

// activate links clientUserID to the definition with the given identifier
// values, exactly as the activation machine would.
func (f *fixture) activate(t *testing.T, webhookID, clientUserID, platformUserID string, values map[string]interface{}) string {
	t.Helper()
	hash := f.hasher.HashValues(values)
	if _, err := f.links.Activate(webhookID, clientUserID, "", platformUserID, hash); err != nil {
		t.Fatalf("activate link: %v", err)
	}
	return hash
}

func (f *fixture) attachAgent(t *testing.T, webhookID, clientUserID, agentID string) {
	t.Helper()
	err := f.agents.Create(&models.AgentWebhookLink{
		WebhookID:    webhookID,
		ClientUserID: clientUserID,
		AgentID:      agentID,
	})
	if err != nil {
		t.Fatalf("attach agent: %v", err)
	}
}

func payloadOf(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var data map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return data
}

func TestResolve_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.createDefinition(t, "wh_1", map[string]string{"email": "user.email"}, "thread.id")
	f.activate(t, "wh_1", "cu_1", "pu_1", map[string]interface{}{"email": "a@x.com"})
	f.attachAgent(t, "wh_1", "cu_1", "agent_1")

	resolved, err := f.resolver.Resolve(context.Background(), "github", "push",
		payloadOf(t, `{"user":{"email":"a@x.com"},"thread":{"id":"t-99"}}`))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if resolved.ClientUserID != "cu_1" {
		t.Errorf("Expected client user cu_1, got %s", resolved.ClientUserID)
	}
	if resolved.PlatformUserID != "pu_1" {
		t.Errorf("Expected platform user pu_1, got %s", resolved.PlatformUserID)
	}
	if resolved.AgentID != "agent_1" {
		t.Errorf("Expected agent_1, got %s", resolved.AgentID)
	}
	if resolved.ConversationID != "t-99" {
		t.Errorf("Expected conversation t-99, got %s", resolved.ConversationID)
	}
}

func TestResolve_NoDefinition(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.Resolve(context.Background(), "github", "push",
		payloadOf(t, `{"user":{"email":"a@x.com"}}`))

	var notFound *errors.NotFoundError
	if !asErr(err, &notFound) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

// With a single candidate, a payload missing a mapped field is a bad
// request, not a not-found.
func TestResolve_MissingIdentifierField(t *testing.T) {
	f := newFixture(t)
	f.createDefinition(t, "wh_1", map[string]string{"email": "user.email"}, "thread.id")
	f.activate(t, "wh_1", "cu_1", "pu_1", map[string]interface{}{"email": "a@x.com"})
	f.attachAgent(t, "wh_1", "cu_1", "agent_1")

	_, err := f.resolver.Resolve(context.Background(), "github", "push",
		payloadOf(t, `{"user":{"name":"someone"},"thread":{"id":"t-1"}}`))

	var badReq *errors.BadRequestError
	if !asErr(err, &badReq) {
		t.Fatalf("Expected BadRequestError, got %v", err)
	}
}

// When the first registered definition does not match the payload, the
// second is tried and resolves.
func TestResolve_SecondCandidateWins(t *testing.T) {
	f := newFixture(t)
	f.createDefinition(t, "wh_1", map[string]string{"account_id": "account.id"}, "thread.id")
	f.createDefinition(t, "wh_2", map[string]string{"email": "user.email"}, "thread.id")
	f.activate(t, "wh_2", "cu_2", "pu_2", map[string]interface{}{"email": "b@x.com"})
	f.attachAgent(t, "wh_2", "cu_2", "agent_2")

	resolved, err := f.resolver.Resolve(context.Background(), "github", "push",
		payloadOf(t, `{"user":{"email":"b@x.com"},"thread":{"id":"t-2"}}`))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.WebhookID != "wh_2" || resolved.AgentID != "agent_2" {
		t.Errorf("Expected wh_2/agent_2, got %s/%s", resolved.WebhookID, resolved.AgentID)
	}
}

// A link whose hash matches but whose status is pending is forbidden,
// not skipped.
func TestResolve_MatchingHashButPending(t *testing.T) {
	f := newFixture(t)
	f.createDefinition(t, "wh_1", map[string]string{"email": "user.email"}, "thread.id")

	hash := f.hasher.HashValues(map[string]interface{}{"email": "a@x.com"})
	_, err := f.db.Exec(`
		INSERT INTO user_webhook_links (id, webhook_id, client_user_id, organization_id, platform_user_id, status, identifier_hash, created_at, updated_at)
		VALUES ('link_1', 'wh_1', 'cu_1', '', 'pu_1', 'pending', ?, 1, 1)
	`, hash)
	if err != nil {
		t.Fatalf("insert pending link: %v", err)
	}

	_, err = f.resolver.Resolve(context.Background(), "github", "push",
		payloadOf(t, `{"user":{"email":"a@x.com"},"thread":{"id":"t-1"}}`))

	var notActive *errors.LinkNotActiveError
	if !asErr(err, &notActive) {
		t.Fatalf("Expected LinkNotActiveError, got %v", err)
	}
}

// Once webhook, user and agent all match, a missing conversation id is
// terminal even if other candidates remain.
func TestResolve_MissingConversationIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.createDefinition(t, "wh_1", map[string]string{"email": "user.email"}, "thread.id")
	f.createDefinition(t, "wh_2", map[string]string{"email": "user.email"}, "other.path")
	f.activate(t, "wh_1", "cu_1", "pu_1", map[string]interface{}{"email": "a@x.com"})
	f.attachAgent(t, "wh_1", "cu_1", "agent_1")
	f.activate(t, "wh_2", "cu_1", "pu_1", map[string]interface{}{"email": "a@x.com"})
	f.attachAgent(t, "wh_2", "cu_1", "agent_1")

	_, err := f.resolver.Resolve(context.Background(), "github", "push",
		payloadOf(t, `{"user":{"email":"a@x.com"}}`))

	var badReq *errors.BadRequestError
	if !asErr(err, &badReq) {
		t.Fatalf("Expected BadRequestError, got %v", err)
	}
}

func TestResolve_NoAgentLink(t *testing.T) {
	f := newFixture(t)
	f.createDefinition(t, "wh_1", map[string]string{"email": "user.email"}, "thread.id")
	f.activate(t, "wh_1", "cu_1", "pu_1", map[string]interface{}{"email": "a@x.com"})

	_, err := f.resolver.Resolve(context.Background(), "github", "push",
		payloadOf(t, `{"user":{"email":"a@x.com"},"thread":{"id":"t-1"}}`))

	var notFound *errors.NotFoundError
	if !asErr(err, &notFound) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

// Earliest-created definition wins when several would resolve.
func TestResolve_TieBreakByCreationOrder(t *testing.T) {
	f := newFixture(t)
	first := f.createDefinition(t, "wh_1", map[string]string{"email": "user.email"}, "thread.id")
	second := f.createDefinition(t, "wh_2", map[string]string{"email": "user.email"}, "thread.id")

	// Force distinct creation times in the stored rows.
	f.db.Exec(`UPDATE webhook_definitions SET created_at = 100 WHERE id = ?`, first.ID)
	f.db.Exec(`UPDATE webhook_definitions SET created_at = 200 WHERE id = ?`, second.ID)

	for _, wh := range []string{"wh_1", "wh_2"} {
		f.activate(t, wh, "cu_"+wh, "pu_"+wh, map[string]interface{}{"email": "a@x.com"})
		f.attachAgent(t, wh, "cu_"+wh, "agent_"+wh)
	}

	resolved, err := f.resolver.Resolve(context.Background(), "github", "push",
		payloadOf(t, `{"user":{"email":"a@x.com"},"thread":{"id":"t-1"}}`))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.WebhookID != "wh_1" {
		t.Errorf("Expected earliest definition wh_1 to win, got %s", resolved.WebhookID)
	}
}

func TestResolve_MalformedDefinitionAborts(t *testing.T) {
	f := newFixture(t)
	// Stored row with an empty identifier path: an operator error.
	_, err := f.db.Exec(`
		INSERT INTO webhook_definitions (id, provider_id, subscribed_event_id, identifier_mapping, required_secrets, conversation_path, created_by, created_at, updated_at)
		VALUES ('wh_bad', 'github', 'push', '{"email":""}', '[]', 'thread.id', 'cu_1', 1, 1)
	`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	f.createDefinition(t, "wh_good", map[string]string{"email": "user.email"}, "thread.id")
	f.activate(t, "wh_good", "cu_1", "pu_1", map[string]interface{}{"email": "a@x.com"})
	f.attachAgent(t, "wh_good", "cu_1", "agent_1")

	_, err = f.resolver.Resolve(context.Background(), "github", "push",
		payloadOf(t, `{"user":{"email":"a@x.com"},"thread":{"id":"t-1"}}`))

	var configErr *errors.ConfigError
	if !asErr(err, &configErr) {
		t.Fatalf("Expected ConfigError to abort resolution, got %v", err)
	}
}

func asErr(err error, target interface{}) bool {
	return err != nil && stderrors.As(err, target)
}
