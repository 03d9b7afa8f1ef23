package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// Vault encrypts and decrypts per-user secret strings (personal API keys)
// with a key derived from the process-wide SECRET_KEY.
//
// Derivation: PBKDF2-HMAC-SHA256, 100000 iterations, fixed salt. The salt is
// static on purpose: ciphertexts must stay decryptable across restarts.
const (
	kdfIterations = 100000
	keyLen        = 32
)

var kdfSalt = []byte("static_salt_for_mvp")

var (
	derivedKey []byte
	deriveOnce sync.Once
)

func vaultKey() []byte {
	deriveOnce.Do(func() {
		secret := os.Getenv("SECRET_KEY")
		if secret == "" {
			secret = "dev-insecure-secret"
		}
		derivedKey = pbkdf2.Key([]byte(secret), kdfSalt, kdfIterations, keyLen, sha256.New)
	})
	return derivedKey
}

func newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(vaultKey())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with AES-256-GCM and returns a base64url token
// of nonce||ciphertext. Empty input yields an empty token.
func Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	gcm, err := newGCM()
	if err != nil {
		return "", fmt.Errorf("vault cipher init: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt. Malformed, tampered or foreign
// tokens return "" — callers treat that as "no usable credential", never as
// a fatal error.
func Decrypt(token string) string {
	if token == "" {
		return ""
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ""
	}
	gcm, err := newGCM()
	if err != nil {
		return ""
	}
	if len(raw) < gcm.NonceSize() {
		return ""
	}
	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return ""
	}
	return string(plain)
}
