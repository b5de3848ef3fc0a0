// internal/utils/crypto_test.go
package utils

import (
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := "test-encryption-key"

	cases := []string{
		"sk-abc123",
		"",
		"a longer secret with spaces and symbols !@#$%",
	}

	for _, plaintext := range cases {
		encrypted, err := Encrypt(plaintext, key)
		if err != nil {
			t.Fatalf("Encrypt(%q) failed: %v", plaintext, err)
		}
		if encrypted == plaintext && plaintext != "" {
			t.Errorf("ciphertext equals plaintext for %q", plaintext)
		}

		decrypted, err := Decrypt(encrypted, key)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("round trip = %q, want %q", decrypted, plaintext)
		}
	}
}

func TestEncryptProducesFreshNonce(t *testing.T) {
	key := "test-encryption-key"

	first, err := Encrypt("same input", key)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Encrypt("same input", key)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("two encryptions of the same input should differ")
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	encrypted, err := Encrypt("secret", "key-one")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decrypt(encrypted, "key-two"); err == nil {
		t.Error("decryption with the wrong key should fail")
	}
}

func TestDecryptGarbage(t *testing.T) {
	if _, err := Decrypt("not base64 at all!!!", "key"); err == nil {
		t.Error("garbage input should fail")
	}
}

func TestGenerateSecureKey(t *testing.T) {
	key, err := GenerateSecureKey(32)
	if err != nil {
		t.Fatalf("GenerateSecureKey failed: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("key length = %d, want 32", len(key))
	}
}
