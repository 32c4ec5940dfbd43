// Package cryptox seals and opens the encrypted configuration bundles that
// carry the serial dataset and service credentials.
//
// A sealed bundle is laid out as
//
//	salt (16 bytes) | nonce (12 bytes) | AES-256-GCM ciphertext
//
// where the key is derived from a passphrase with argon2id and the salt.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	SaltSize  = 16
	NonceSize = 12
	KeySize   = 32
)

// ErrShortBundle is returned when the input is too small to hold the header.
var ErrShortBundle = errors.New("bundle too short")

// randRead is a seam for tests.
var randRead = rand.Read

// DeriveKey turns a passphrase and salt into a 256-bit AES key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// Seal encrypts plaintext under a key derived from passphrase with a fresh
// random salt and nonce.
func Seal(plaintext, passphrase []byte) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := randRead(salt); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := randRead(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	aead, err := newGCM(DeriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, SaltSize+NonceSize+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// Open reverses Seal. A wrong passphrase or tampered data fails the GCM
// authentication check.
func Open(sealed, passphrase []byte) ([]byte, error) {
	if len(sealed) < SaltSize+NonceSize {
		return nil, ErrShortBundle
	}
	salt := sealed[:SaltSize]
	nonce := sealed[SaltSize : SaltSize+NonceSize]

	aead, err := newGCM(DeriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, sealed[SaltSize+NonceSize:], nil)
}

// SealJSON marshals v and seals the result.
func SealJSON(v any, passphrase []byte) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Seal(plaintext, passphrase)
}

// OpenJSON opens a sealed bundle and unmarshals it into v.
func OpenJSON(sealed, passphrase []byte, v any) error {
	plaintext, err := Open(sealed, passphrase)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Wipe zeroes b, e.g. a passphrase that is no longer needed.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
