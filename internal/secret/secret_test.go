package secret

import (
	"bytes"
	"strings"
	"testing"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, KeySize)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	cipher, err := NewAESCipher(testKey(0x42))
	if err != nil {
		t.Fatalf("creating cipher: %v", err)
	}

	for _, plaintext := range []string{"", "pat-token-xyz", strings.Repeat("x", 4096)} {
		encrypted, err := cipher.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("encrypting: %v", err)
		}
		if encrypted == plaintext && plaintext != "" {
			t.Error("ciphertext equals plaintext")
		}

		decrypted, err := cipher.Decrypt(encrypted)
		if err != nil {
			t.Fatalf("decrypting: %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("round trip mismatch: got %q", decrypted)
		}
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	cipher, err := NewAESCipher(testKey(0x42))
	if err != nil {
		t.Fatalf("creating cipher: %v", err)
	}

	a, _ := cipher.Encrypt("same-token")
	b, _ := cipher.Encrypt("same-token")
	if a == b {
		t.Error("two encryptions of the same plaintext produced identical ciphertexts")
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	c1, _ := NewAESCipher(testKey(0x01))
	c2, _ := NewAESCipher(testKey(0x02))

	encrypted, err := c1.Encrypt("secret")
	if err != nil {
		t.Fatalf("encrypting: %v", err)
	}

	if _, err := c2.Decrypt(encrypted); err == nil {
		t.Error("decrypt with wrong key should fail")
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	cipher, _ := NewAESCipher(testKey(0x42))

	for _, input := range []string{"not base64 !!!", "aGVsbG8=", ""} {
		if _, err := cipher.Decrypt(input); err == nil {
			t.Errorf("decrypt(%q) should fail", input)
		}
	}
}

func TestNewAESCipherRejectsBadKeyLength(t *testing.T) {
	if _, err := NewAESCipher([]byte("short")); err == nil {
		t.Error("short key should be rejected")
	}
	if _, err := NewAESCipher(bytes.Repeat([]byte{1}, 64)); err == nil {
		t.Error("long key should be rejected")
	}
}
