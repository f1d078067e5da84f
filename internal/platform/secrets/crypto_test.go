package secrets

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"testing"
)

func TestNewEncryptor_EmptyKey(t *testing.T) {
	if _, err := NewEncryptor(""); err == nil {
		t.Error("Expected error for empty master key")
	}
}

func TestEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewEncryptor("some-passphrase-material")
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}

	for _, plaintext := range []string{"", "tok_123", "multi\nline\nvalue"} {
		sealed, err := enc.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		if bytes.Contains(sealed, []byte(plaintext)) && plaintext != "" {
			t.Errorf("Ciphertext leaks plaintext %q", plaintext)
		}

		got, err := enc.Decrypt(sealed)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if got != plaintext {
			t.Errorf("Expected %q back, got %q", plaintext, got)
		}
	}
}

func TestEncryptor_Base64KeyAccepted(t *testing.T) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("rand: %v", err)
	}

	enc, err := NewEncryptor(base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("NewEncryptor with base64 key: %v", err)
	}

	sealed, err := enc.Encrypt("value")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := enc.Decrypt(sealed)
	if err != nil || got != "value" {
		t.Fatalf("Round trip failed: %q, %v", got, err)
	}
}

func TestEncryptor_NonceVaries(t *testing.T) {
	enc, _ := NewEncryptor("some-passphrase-material")

	first, _ := enc.Encrypt("same value")
	second, _ := enc.Encrypt("same value")
	if bytes.Equal(first, second) {
		t.Error("Two encryptions of the same value must differ")
	}
}

func TestEncryptor_WrongKeyFails(t *testing.T) {
	enc1, _ := NewEncryptor("key-one")
	enc2, _ := NewEncryptor("key-two")

	sealed, err := enc1.Encrypt("value")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := enc2.Decrypt(sealed); err == nil {
		t.Error("Expected decryption with the wrong key to fail")
	}
}

func TestEncryptor_TruncatedCiphertext(t *testing.T) {
	enc, _ := NewEncryptor("some-passphrase-material")

	if _, err := enc.Decrypt([]byte{0x01, 0x02}); err == nil {
		t.Error("Expected error for truncated ciphertext")
	}

	sealed, _ := enc.Encrypt("value")
	sealed[len(sealed)-1] ^= 0xff
	if _, err := enc.Decrypt(sealed); err == nil {
		t.Error("Expected error for tampered ciphertext")
	}
}
