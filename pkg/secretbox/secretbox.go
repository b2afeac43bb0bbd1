// Copyright 2025 OpenGrantStack
//
// Package secretbox encrypts ledger audit payloads at rest (e.g. the
// donor/grantee metadata exported by pkg/persistence) using
// ChaCha20-Poly1305 AEAD from golang.org/x/crypto, the symmetric
// primitive the teacher's dependency closure carries but never wires
// into a package of its own.
package secretbox

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// Box seals and opens payloads under one 32-byte key.
type Box struct {
	aead cipher.AEAD
}

// New constructs a Box from a 32-byte key (e.g. derived from a KMS
// secret or operator-supplied passphrase hash).
func New(key []byte) (*Box, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Seal encrypts plaintext, returning nonce||ciphertext.
func (b *Box) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("secretbox: generate nonce: %w", err)
	}
	return b.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func (b *Box) Open(sealed []byte) ([]byte, error) {
	n := b.aead.NonceSize()
	if len(sealed) < n {
		return nil, fmt.Errorf("secretbox: ciphertext shorter than nonce")
	}
	nonce, ciphertext := sealed[:n], sealed[n:]
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("secretbox: open: %w", err)
	}
	return plaintext, nil
}
