// Package crypto implements the credential sealing used for gateway rows:
// AES-256-GCM with a PBKDF2-SHA256 key derived from the service-wide
// credentials key and a per-value salt.
//
// Wire format of a sealed value: base64(salt[16] | nonce[12] | ciphertext).
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	nonceSize  = 12
	keySize    = 32
	iterations = 100_000
)

// Sealer encrypts and decrypts gateway credentials. Decrypted values are
// returned to the caller and never logged here.
type Sealer struct {
	masterKey []byte
}

// NewSealer builds a Sealer from the service credentials key.
func NewSealer(credentialsKey string) (*Sealer, error) {
	if credentialsKey == "" {
		return nil, errors.New("credentials key must not be empty")
	}
	return &Sealer{masterKey: []byte(credentialsKey)}, nil
}

func (s *Sealer) deriveKey(salt []byte) []byte {
	return pbkdf2.Key(s.masterKey, salt, iterations, keySize, sha256.New)
}

// Encrypt seals a plaintext credential. Used by provisioning flows and
// tests; the service itself only decrypts.
func (s *Sealer) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	aead, err := s.aead(salt)
	if err != nil {
		return "", err
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	out := make([]byte, 0, saltSize+nonceSize+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a sealed credential. An empty input decrypts to an empty
// string so optional credential columns stay optional.
func (s *Sealer) Decrypt(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode sealed credential: %w", err)
	}
	if len(raw) < saltSize+nonceSize+1 {
		return "", errors.New("sealed credential too short")
	}

	salt := raw[:saltSize]
	nonce := raw[saltSize : saltSize+nonceSize]
	ciphertext := raw[saltSize+nonceSize:]

	aead, err := s.aead(salt)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.New("credential decryption failed")
	}
	return string(plaintext), nil
}

func (s *Sealer) aead(salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
