package identity

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"hooklink/internal/platform/secrets"
)

func testKey() string {
	return strings.Repeat("ab", 32) // 32 bytes hex-encoded
}

func TestNewHasher_KeyValidation(t *testing.T) {
	if _, err := NewHasher(""); err == nil {
		t.Error("Expected error for missing key")
	}
	if _, err := NewHasher("not-hex"); err == nil {
		t.Error("Expected error for non-hex key")
	}
	if _, err := NewHasher("abcd"); err == nil {
		t.Error("Expected error for short key")
	}
	if _, err := NewHasher(testKey()); err != nil {
		t.Errorf("Expected 32-byte key to be accepted: %v", err)
	}
}

func TestHasher_Deterministic(t *testing.T) {
	h, err := NewHasher(testKey())
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	values := map[string]interface{}{"email": "a@x.com", "user_id": "u1"}
	first := h.HashValues(values)
	second := h.HashValues(map[string]interface{}{"user_id": "u1", "email": "a@x.com"})

	if first != second {
		t.Errorf("Same values must hash identically: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(first))
	}
	if first != strings.ToLower(first) {
		t.Error("Hash must be lowercase hex")
	}
	if _, err := hex.DecodeString(first); err != nil {
		t.Errorf("Hash is not hex: %v", err)
	}
}

func TestHasher_ValueSensitivity(t *testing.T) {
	h, _ := NewHasher(testKey())

	base := h.HashValues(map[string]interface{}{"email": "a@x.com"})
	changed := h.HashValues(map[string]interface{}{"email": "b@x.com"})
	otherKey := h.HashValues(map[string]interface{}{"phone": "a@x.com"})

	if base == changed {
		t.Error("Changing a value must change the hash")
	}
	if base == otherKey {
		t.Error("Changing a key must change the hash")
	}
}

func TestHasher_KeySensitivity(t *testing.T) {
	h1, _ := NewHasher(testKey())
	h2, _ := NewHasher(strings.Repeat("cd", 32))

	values := map[string]interface{}{"email": "a@x.com"}
	if h1.HashValues(values) == h2.HashValues(values) {
		t.Error("Different keys must produce different hashes")
	}
}

type memoryStore struct {
	values map[secrets.Ref]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[secrets.Ref]string)}
}

func (s *memoryStore) Exists(_ context.Context, ref secrets.Ref) (bool, error) {
	_, ok := s.values[ref]
	return ok, nil
}

func (s *memoryStore) Get(_ context.Context, ref secrets.Ref) (string, bool, error) {
	v, ok := s.values[ref]
	return v, ok, nil
}

func (s *memoryStore) Put(_ context.Context, ref secrets.Ref, value string) error {
	s.values[ref] = value
	return nil
}

func TestProvisionKey_GeneratesOnce(t *testing.T) {
	store := newMemoryStore()

	first, err := ProvisionKey(context.Background(), store)
	if err != nil {
		t.Fatalf("ProvisionKey: %v", err)
	}

	raw, err := hex.DecodeString(first)
	if err != nil {
		t.Fatalf("Generated key is not hex: %v", err)
	}
	if len(raw) < MinKeyBytes {
		t.Errorf("Generated key is %d bytes, expected at least %d", len(raw), MinKeyBytes)
	}

	second, err := ProvisionKey(context.Background(), store)
	if err != nil {
		t.Fatalf("ProvisionKey second call: %v", err)
	}
	if first != second {
		t.Error("ProvisionKey must return the persisted key on later boots")
	}
}
