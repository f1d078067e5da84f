package secrets

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User types namespacing secret ownership.
const (
	UserTypeClient = "client"
	UserTypeSystem = "system"
)

// Well-known secret keys.
const (
	KeyTargetConfirmed   = "target_url_confirmed"
	KeyIdentifierHashKey = "identifier_hash_key"
)

// Ref addresses one secret. Provider/SubProvider follow the webhook
// definition's (provider, subscribed event) pair; SubProvider may be empty
// for provider-wide secrets.
type Ref struct {
	UserType    string
	UserID      string
	Provider    string
	SubProvider string
	Key         string
}

type Store interface {
	Exists(ctx context.Context, ref Ref) (bool, error)
	Get(ctx context.Context, ref Ref) (string, bool, error)
	Put(ctx context.Context, ref Ref, value string) error
}

// SQLiteStore keeps secrets in the relational database, values sealed by
// the Encryptor. One row per Ref; Put overwrites.
type SQLiteStore struct {
	db  *sql.DB
	enc *Encryptor
}

func NewSQLiteStore(db *sql.DB, enc *Encryptor) *SQLiteStore {
	return &SQLiteStore{db: db, enc: enc}
}

func (s *SQLiteStore) Exists(ctx context.Context, ref Ref) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM secrets WHERE user_type = ? AND user_id = ? AND provider = ? AND sub_provider = ? AND secret_key = ?)`
	err := s.db.QueryRowContext(ctx, query, ref.UserType, ref.UserID, ref.Provider, ref.SubProvider, ref.Key).Scan(&exists)
	return exists, err
}

func (s *SQLiteStore) Get(ctx context.Context, ref Ref) (string, bool, error) {
	var sealed []byte
	query := `SELECT value FROM secrets WHERE user_type = ? AND user_id = ? AND provider = ? AND sub_provider = ? AND secret_key = ?`
	err := s.db.QueryRowContext(ctx, query, ref.UserType, ref.UserID, ref.Provider, ref.SubProvider, ref.Key).Scan(&sealed)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	value, err := s.enc.Decrypt(sealed)
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, ref Ref, value string) error {
	sealed, err := s.enc.Encrypt(value)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	query := `
		INSERT INTO secrets (id, user_type, user_id, provider, sub_provider, secret_key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_type, user_id, provider, sub_provider, secret_key)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		"sec_"+uuid.New().String(), ref.UserType, ref.UserID, ref.Provider, ref.SubProvider, ref.Key,
		sealed, now, now,
	)
	return err
}
