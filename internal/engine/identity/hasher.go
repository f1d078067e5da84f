package identity

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"hooklink/internal/platform/secrets"
)

// MinKeyBytes is the minimum size of the process-wide hashing key.
const MinKeyBytes = 32

// Hasher computes the keyed HMAC-SHA256 fingerprint over a canonical
// identifier string. It is the single hashing authority: activation writes
// its output, resolution compares against it, so both sides share one
// instance constructed at boot.
type Hasher struct {
	key []byte
}

// NewHasher takes the hex-encoded process key. The server must not start
// resolution without one.
func NewHasher(hexKey string) (*Hasher, error) {
	if hexKey == "" {
		return nil, errors.New("identity: hashing key not configured")
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("identity: hashing key is not hex: %w", err)
	}
	if len(key) < MinKeyBytes {
		return nil, fmt.Errorf("identity: hashing key is %d bytes, need at least %d", len(key), MinKeyBytes)
	}
	return &Hasher{key: key}, nil
}

// Hash returns the lowercase hex HMAC of the canonical string. 64 chars.
func (h *Hasher) Hash(canonical string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// HashValues canonicalizes then hashes in one step.
func (h *Hasher) HashValues(values map[string]interface{}) string {
	return h.Hash(Canonicalize(values))
}

// ProvisionKey loads the process hashing key from the secret store,
// generating and persisting a fresh one on first boot.
func ProvisionKey(ctx context.Context, store secrets.Store) (string, error) {
	ref := secrets.Ref{
		UserType: secrets.UserTypeSystem,
		UserID:   "hooklink",
		Provider: "core",
		Key:      secrets.KeyIdentifierHashKey,
	}

	value, found, err := store.Get(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("identity: load hashing key: %w", err)
	}
	if found {
		return value, nil
	}

	raw := make([]byte, MinKeyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("identity: generate hashing key: %w", err)
	}
	value = hex.EncodeToString(raw)

	if err := store.Put(ctx, ref, value); err != nil {
		return "", fmt.Errorf("identity: persist hashing key: %w", err)
	}
	return value, nil
}
