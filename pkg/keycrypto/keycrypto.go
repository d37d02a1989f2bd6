// Package keycrypto encrypts wallet private keys at rest using
// AES-256-GCM with a key derived from the operator seed.
package keycrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 1 << 17
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32

	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
)

// contextLabel is bound into the GCM authentication tag so ciphertext
// produced for wallet keys cannot be replayed in another context.
var contextLabel = []byte("liquidpay/wallet-key/v1")

var (
	// ErrInvalidCiphertext is returned for ciphertext shorter than a nonce.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")

	// ErrDecryptionFailed is returned when GCM authentication fails.
	// Decryption fails closed: a tag mismatch never yields plaintext.
	ErrDecryptionFailed = errors.New("decryption failed: authentication error")
)

// Provider performs authenticated encryption of key material.
type Provider struct {
	key []byte
}

// New derives the encryption key from the operator seed using scrypt
// followed by Argon2id and returns a ready provider.
func New(seed string) (*Provider, error) {
	if seed == "" {
		return nil, errors.New("empty encryption seed")
	}
	salt := sha256.Sum256([]byte(seed))

	scryptKey, err := scrypt.Key([]byte(seed), salt[:], scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, err
	}
	key := argon2.IDKey(scryptKey, salt[:], argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return &Provider{key: key}, nil
}

// Encrypt seals plaintext with a fresh random nonce.
// Output layout: nonce (12 bytes) || ciphertext || tag (16 bytes).
func (p *Provider) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(p.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, contextLabel), nil
}

// Decrypt opens ciphertext produced by Encrypt. Any malformed input or
// authentication failure returns a distinct error; there is no
// fallback that treats the ciphertext as plaintext.
func (p *Provider) Decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(p.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, ErrInvalidCiphertext
	}

	nonce := ciphertext[:gcm.NonceSize()]
	plaintext, err := gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], contextLabel)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}
