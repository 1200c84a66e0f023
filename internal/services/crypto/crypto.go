package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// API keys are stored encrypted at rest as enc:<salt>:<nonce>:<ciphertext>,
// all parts base64. The key is derived with PBKDF2-HMAC-SHA256 from a fixed
// app secret and a per-encryption salt.
const (
	appSecret        = "billly-secret-v1"
	pbkdf2Iterations = 100_000
	saltLen          = 16
	keyLen           = 32
)

const encPrefix = "enc:"

// EncryptAPIKey encrypts a plaintext API key for storage.
func EncryptAPIKey(apiKey string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	aead, err := deriveAEAD(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(apiKey), nil)

	return fmt.Sprintf("%s%s:%s:%s",
		encPrefix,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(sealed),
	), nil
}

// DecryptAPIKey decrypts a stored payload back to the plaintext key.
func DecryptAPIKey(encrypted string) (string, error) {
	if !strings.HasPrefix(encrypted, encPrefix) {
		return "", fmt.Errorf("unknown encrypted format")
	}
	parts := strings.Split(encrypted, ":")
	if len(parts) != 4 {
		return "", fmt.Errorf("invalid encrypted payload")
	}

	salt, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	aead, err := deriveAEAD(salt)
	if err != nil {
		return "", err
	}
	if len(nonce) != aead.NonceSize() {
		return "", fmt.Errorf("invalid nonce length")
	}

	plain, err := aead.Open(nil, nonce, data, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed")
	}
	return string(plain), nil
}

// IsEncrypted reports whether a stored value carries the encrypted payload
// format.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, encPrefix)
}

func deriveAEAD(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(appSecret), salt, pbkdf2Iterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("invalid key material: %w", err)
	}
	return cipher.NewGCM(block)
}
