package dbconn

import (
	"context"
	"errors"
	"fmt"

	"querydesk/internal/store"
	"querydesk/internal/vault"
)

// ProfileSource looks up stored connection profiles.
type ProfileSource interface {
	GetConnection(ctx context.Context, id int64) (store.ConnectionProfile, error)
}

// Resolver turns a profile ID into a Descriptor ready to dial.
type Resolver struct {
	profiles ProfileSource
	vault    vault.Vault
}

func NewResolver(profiles ProfileSource, v vault.Vault) *Resolver {
	return &Resolver{profiles: profiles, vault: v}
}

// Resolve loads the profile, reveals its secret and fills in defaults: the
// driver's conventional port, TLS mode "prefer" and driver postgres.
//
// A missing profile yields store.ErrNotFound and a secret that cannot be
// decrypted yields vault.ErrDecrypt; both are wrapped. An empty stored
// secret resolves to an empty password without consulting the vault.
func (r *Resolver) Resolve(ctx context.Context, profileID int64) (Descriptor, error) {
	p, err := r.profiles.GetConnection(ctx, profileID)
	if err != nil {
		return Descriptor{}, fmt.Errorf("resolve connection %d: %w", profileID, err)
	}

	var secret string
	if p.SecretEncrypted != "" {
		secret, err = r.vault.Reveal(p.SecretEncrypted)
		if err != nil {
			if !errors.Is(err, vault.ErrDecrypt) {
				err = fmt.Errorf("%w: %v", vault.ErrDecrypt, err)
			}
			return Descriptor{}, fmt.Errorf("resolve connection %d: %w", profileID, err)
		}
	}

	d := Descriptor{
		ProfileID: p.ID,
		OwnerID:   p.UserID,
		Driver:    p.Driver,
		Host:      p.Host,
		Database:  p.Database,
		Username:  p.Username,
		Secret:    secret,
		SSLMode:   DefaultSSLMode,
	}
	if d.Driver == "" {
		d.Driver = DriverPostgres
	}
	if p.Port != nil {
		d.Port = *p.Port
	} else {
		d.Port = DefaultPort(d.Driver)
	}
	if p.SSLMode != nil && *p.SSLMode != "" {
		d.SSLMode = *p.SSLMode
	}
	return d, nil
}
