// Package crypto holds the AES-GCM helper used for secrets at rest.
// Ciphertexts are base64 strings carrying nonce and auth tag, so a
// stored value round-trips through any text column unchanged.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

var (
	ErrEmptyKey            = errors.New("crypto: empty encryption key")
	ErrEncryptFailed       = errors.New("crypto: encrypt failed")
	ErrDecryptFailed       = errors.New("crypto: decrypt failed")
	ErrMalformedCiphertext = errors.New("crypto: malformed ciphertext")
)

// gcmFor stretches the configured key to 32 bytes with SHA-256 and
// builds the AEAD. Stretching keeps operator-supplied keys of any
// length valid without weakening a strong one.
func gcmFor(key string) (cipher.AEAD, error) {
	sum := sha256.Sum256([]byte(key))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plain under the key and returns base64(nonce || ciphertext).
// Every call draws a fresh nonce, so equal inputs produce distinct outputs.
func Encrypt(plain string, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	aead, err := gcmFor(key)
	if err != nil {
		return "", ErrEncryptFailed
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", ErrEncryptFailed
	}
	sealed := aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. A wrong key and a tampered ciphertext are
// indistinguishable; both surface as ErrDecryptFailed.
func Decrypt(encoded string, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrMalformedCiphertext
	}

	aead, err := gcmFor(key)
	if err != nil {
		return "", ErrDecryptFailed
	}
	if len(raw) < aead.NonceSize() {
		return "", ErrMalformedCiphertext
	}

	plain, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}
