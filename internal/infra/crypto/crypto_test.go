package crypto_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/escolahub/payments-gateway-go/internal/infra/crypto"
)

func TestSealerRoundTrip(t *testing.T) {
	sealer, err := crypto.NewSealer("test-master-key")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}

	sealed, err := sealer.Encrypt("sk_live_secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if sealed == "sk_live_secret" {
		t.Fatal("sealed value equals plaintext")
	}

	plain, err := sealer.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if plain != "sk_live_secret" {
		t.Errorf("round trip = %q, want sk_live_secret", plain)
	}
}

func TestSealerEncryptIsSalted(t *testing.T) {
	sealer, err := crypto.NewSealer("test-master-key")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}

	a, err := sealer.Encrypt("same-plaintext")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := sealer.Encrypt("same-plaintext")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Error("two seals of the same plaintext produced identical output")
	}
}

func TestSealerWrongKey(t *testing.T) {
	sealer, err := crypto.NewSealer("key-one")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	sealed, err := sealer.Encrypt("credential")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	other, err := crypto.NewSealer("key-two")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	if _, err := other.Decrypt(sealed); err == nil {
		t.Fatal("decrypt under the wrong key succeeded")
	} else if !strings.Contains(err.Error(), "credential decryption failed") {
		t.Errorf("error = %q, want the generic decryption failure", err)
	}
}

func TestSealerTamperedCiphertext(t *testing.T) {
	sealer, err := crypto.NewSealer("test-master-key")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	sealed, err := sealer.Encrypt("credential")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		t.Fatalf("decode sealed value: %v", err)
	}
	raw[len(raw)-1] ^= 0xff
	if _, err := sealer.Decrypt(base64.StdEncoding.EncodeToString(raw)); err == nil {
		t.Error("tampered ciphertext decrypted")
	}
}

func TestSealerEmptyInput(t *testing.T) {
	sealer, err := crypto.NewSealer("test-master-key")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	plain, err := sealer.Decrypt("")
	if err != nil {
		t.Fatalf("Decrypt empty: %v", err)
	}
	if plain != "" {
		t.Errorf("empty sealed value decrypted to %q", plain)
	}
}

func TestSealerMalformedInput(t *testing.T) {
	sealer, err := crypto.NewSealer("test-master-key")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}

	if _, err := sealer.Decrypt("not base64!!"); err == nil {
		t.Error("invalid base64 accepted")
	}
	short := base64.StdEncoding.EncodeToString([]byte("short"))
	if _, err := sealer.Decrypt(short); err == nil {
		t.Error("sealed value shorter than salt+nonce accepted")
	}
}

func TestNewSealerRejectsEmptyKey(t *testing.T) {
	if _, err := crypto.NewSealer(""); err == nil {
		t.Error("empty credentials key accepted")
	}
}
