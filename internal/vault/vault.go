// Package vault encrypts and decrypts stored connection secrets.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// ErrDecrypt is returned when a stored secret cannot be decrypted. No part
// of the plaintext is ever returned alongside it.
var ErrDecrypt = errors.New("vault: cannot decrypt secret")

// Vault conceals secrets for storage and reveals them for use.
type Vault interface {
	Conceal(plaintext string) (string, error)
	Reveal(ciphertext string) (string, error)
}

// AESVault is an AES-256-GCM Vault. Ciphertexts are base64 of nonce||sealed.
type AESVault struct {
	gcm cipher.AEAD
}

// NewAESVault builds a vault from a 32-byte key.
func NewAESVault(key []byte) (*AESVault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("vault: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return &AESVault{gcm: gcm}, nil
}

// New builds an AESVault from the key held by src.
func New(src KeySource) (*AESVault, error) {
	key, err := src.Key()
	if err != nil {
		return nil, err
	}
	return NewAESVault(key)
}

func (v *AESVault) Conceal(plaintext string) (string, error) {
	nonce := make([]byte, v.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: nonce: %w", err)
	}
	sealed := v.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (v *AESVault) Reveal(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecrypt
	}
	ns := v.gcm.NonceSize()
	if len(raw) < ns+v.gcm.Overhead() {
		return "", ErrDecrypt
	}
	plain, err := v.gcm.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
