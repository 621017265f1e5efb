// Package secretbox seals short secrets with AES-256-GCM for the on-disk
// credential store. Wire format: base64(nonce)|base64(ciphertext).
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// EnvMasterKey holds the base64 master key when no passphrase is used.
	EnvMasterKey = "FITLINK_MASTER_KEY"

	nonceSize  = 12 // recommended GCM nonce (96 bits)
	keyLength  = 32 // AES-256
	sep        = "|"
	saltLength = 16
)

// argon2id parameters for passphrase-derived keys.
const (
	kdfTime    = 3
	kdfMemory  = 64 * 1024 // KiB
	kdfThreads = 1
)

var (
	ErrNoKey     = errors.New("secretbox: no master key configured")
	ErrBadFormat = errors.New("secretbox: want base64(nonce)|base64(ciphertext)")
)

// Box seals and opens values with a fixed 32-byte key.
type Box struct {
	key []byte
}

// New creates a Box from a raw 32-byte key.
func New(key []byte) (*Box, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("secretbox: key must be %d bytes, got %d", keyLength, len(key))
	}
	k := make([]byte, keyLength)
	copy(k, key)
	return &Box{key: k}, nil
}

// NewFromEnv loads the master key from FITLINK_MASTER_KEY (base64).
// Generate one with: openssl rand -base64 32
func NewFromEnv() (*Box, error) {
	b64 := strings.TrimSpace(os.Getenv(EnvMasterKey))
	if b64 == "" {
		return nil, ErrNoKey
	}
	k, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("secretbox: decode %s: %w", EnvMasterKey, err)
	}
	return New(k)
}

// NewFromPassphrase derives the key from a passphrase with argon2id.
// The salt must be stable for the lifetime of the sealed data; the file
// store persists it next to the ciphertext.
func NewFromPassphrase(passphrase string, salt []byte) (*Box, error) {
	if passphrase == "" {
		return nil, ErrNoKey
	}
	if len(salt) != saltLength {
		return nil, fmt.Errorf("secretbox: salt must be %d bytes, got %d", saltLength, len(salt))
	}
	k := argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemory, kdfThreads, keyLength)
	return New(k)
}

// NewSalt returns a fresh random salt for NewFromPassphrase.
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("secretbox: salt random: %w", err)
	}
	return salt, nil
}

// Seal encrypts plaintext and returns base64(nonce)|base64(ciphertext).
func (b *Box) Seal(plaintext string) (string, error) {
	aesgcm, err := b.gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secretbox: nonce random: %w", err)
	}
	ct := aesgcm.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Open decrypts base64(nonce)|base64(ciphertext) back to plaintext.
func (b *Box) Open(sealed string) (string, error) {
	parts := strings.Split(sealed, sep)
	if len(parts) != 2 {
		return "", ErrBadFormat
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("secretbox: decode nonce: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("secretbox: decode ciphertext: %w", err)
	}
	if len(nonce) != nonceSize {
		return "", fmt.Errorf("secretbox: nonce must be %d bytes, got %d", nonceSize, len(nonce))
	}
	aesgcm, err := b.gcm()
	if err != nil {
		return "", err
	}
	pt, err := aesgcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("secretbox: gcm auth/decrypt: %w", err)
	}
	return string(pt), nil
}

func (b *Box) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(b.key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: aes.NewCipher: %w", err)
	}
	return cipher.NewGCM(block)
}
