package vault

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/argon2"
)

// KeySource supplies the vault's encryption key.
type KeySource interface {
	Key() ([]byte, error)
}

const keyringUser = "vault-key"

// KeyringKey keeps a random key in the OS credential manager, creating it on
// first use.
type KeyringKey struct {
	Service string
}

func (k KeyringKey) Key() ([]byte, error) {
	stored, err := keyring.Get(k.Service, keyringUser)
	if err == nil {
		key, derr := base64.StdEncoding.DecodeString(stored)
		if derr != nil || len(key) != KeySize {
			return nil, fmt.Errorf("vault: keyring entry %s/%s is corrupt", k.Service, keyringUser)
		}
		return key, nil
	}
	if !errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("vault: read keyring: %w", err)
	}

	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("vault: generate key: %w", err)
	}
	if err := keyring.Set(k.Service, keyringUser, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("vault: store key in keyring: %w", err)
	}
	return key, nil
}

// DefaultSalt is used by PassphraseKey when no salt is configured.
var DefaultSalt = []byte("querydesk.vault.v1")

// PassphraseKey derives the key from a passphrase with Argon2id, for hosts
// without a credential manager.
type PassphraseKey struct {
	Passphrase string
	Salt       []byte
}

func (p PassphraseKey) Key() ([]byte, error) {
	if p.Passphrase == "" {
		return nil, errors.New("vault: empty passphrase")
	}
	salt := p.Salt
	if len(salt) == 0 {
		salt = DefaultSalt
	}
	return argon2.IDKey([]byte(p.Passphrase), salt, 1, 64*1024, 4, KeySize), nil
}
