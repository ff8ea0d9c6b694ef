// Package secrets opens integration credentials sealed at rest with
// NaCl secretbox.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

// Sentinel errors for credential sealing.
var (
	ErrNoKey      = errors.New("credentials key not configured")
	ErrInvalidKey = errors.New("credentials key must be 32 bytes, base64 encoded")
	ErrOpen       = errors.New("sealed credential could not be opened")
)

// Box seals and opens credential strings. Sealed values are base64 of
// nonce followed by the secretbox ciphertext.
type Box struct {
	key     [keySize]byte
	enabled bool
}

// NewBox parses a base64 key. An empty key yields a Box whose Open and Seal
// fail with ErrNoKey.
func NewBox(encodedKey string) (*Box, error) {
	if encodedKey == "" {
		return &Box{}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil || len(raw) != keySize {
		return nil, ErrInvalidKey
	}
	b := &Box{enabled: true}
	copy(b.key[:], raw)
	return b, nil
}

// Enabled reports whether a key is configured.
func (b *Box) Enabled() bool { return b != nil && b.enabled }

// Seal encrypts plaintext under a fresh random nonce.
func (b *Box) Seal(plaintext string) (string, error) {
	if !b.Enabled() {
		return "", ErrNoKey
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal.
func (b *Box) Open(sealed string) (string, error) {
	if !b.Enabled() {
		return "", ErrNoKey
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrOpen
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", ErrOpen
	}
	return string(plain), nil
}
