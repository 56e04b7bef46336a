// Package filecrypt provides AES-256-GCM encryption for archived file bytes.
// Every object written to the store is sealed with one process-wide key
// loaded at boot; ciphertext is self-describing (nonce || ciphertext || tag).
package filecrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// EncSuffix marks encrypted sidecar files on disk. Routing convention only;
// the ciphertext itself carries everything needed for decryption.
const EncSuffix = ".enc"

var (
	ErrInvalidKey         = errors.New("encryption key must be 32 bytes")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// Box seals and opens file bytes with a fixed AES-256 key.
type Box struct {
	aead cipher.AEAD
}

// NewFromHex builds a Box from a 64-char hex key string.
func NewFromHex(hexKey string) (*Box, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid hex key: %w", err)
	}
	return New(key)
}

func New(key []byte) (*Box, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Seal encrypts plaintext with a random nonce. Output is nonce || ciphertext.
func (b *Box) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return b.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts ciphertext produced by Seal.
func (b *Box) Open(data []byte) ([]byte, error) {
	if len(data) < b.aead.NonceSize() {
		return nil, ErrCiphertextTooShort
	}
	nonce, ct := data[:b.aead.NonceSize()], data[b.aead.NonceSize():]
	plaintext, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// EncryptFile seals the file at path and writes a sidecar next to it with
// the .enc suffix. Returns the sidecar path.
//
// The whole file is held in memory: one-shot GCM authenticates the full
// ciphertext, so a seal cannot be streamed. Inputs are pipeline-normalized
// documents and 720p transcodes, bounded by the server's upload body limit.
func (b *Box) EncryptFile(path string) (string, error) {
	plaintext, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", path, err)
	}

	sealed, err := b.Seal(plaintext)
	if err != nil {
		return "", err
	}

	out := path + EncSuffix
	if err := os.WriteFile(out, sealed, 0o600); err != nil {
		return "", fmt.Errorf("write %q: %w", out, err)
	}
	return out, nil
}
