package entry

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/pfrederiksen/sfoweb/internal/crypto"
)

// SecretStore keeps entry passwords out of the database in clear text.
// Seal returns the value to persist in the entry row; Open reverses it.
type SecretStore interface {
	Seal(entryID, password string) (string, error)
	Open(entryID, stored string) (string, error)
	Forget(entryID string) error
}

// EncryptedSecrets seals passwords into the row with an Encryptor
type EncryptedSecrets struct {
	enc *crypto.Encryptor
}

// NewEncryptedSecrets creates a SecretStore backed by enc
func NewEncryptedSecrets(enc *crypto.Encryptor) *EncryptedSecrets {
	return &EncryptedSecrets{enc: enc}
}

func (s *EncryptedSecrets) Seal(_ string, password string) (string, error) {
	return s.enc.Encrypt(password)
}

func (s *EncryptedSecrets) Open(_ string, stored string) (string, error) {
	return s.enc.Decrypt(stored)
}

func (s *EncryptedSecrets) Forget(string) error { return nil }

// KeyringSecrets keeps passwords in the OS keyring under service, keyed by entry id.
// The row itself stores nothing.
type KeyringSecrets struct {
	service string
}

// NewKeyringSecrets creates a keyring-backed SecretStore
func NewKeyringSecrets(service string) *KeyringSecrets {
	return &KeyringSecrets{service: service}
}

func (s *KeyringSecrets) Seal(entryID, password string) (string, error) {
	if err := keyring.Set(s.service, entryID, password); err != nil {
		return "", fmt.Errorf("storing secret %s/%s: %w", s.service, entryID, err)
	}
	return "", nil
}

func (s *KeyringSecrets) Open(entryID, _ string) (string, error) {
	password, err := keyring.Get(s.service, entryID)
	if err != nil {
		return "", fmt.Errorf("retrieving secret %s/%s: %w", s.service, entryID, err)
	}
	return password, nil
}

func (s *KeyringSecrets) Forget(entryID string) error {
	if err := keyring.Delete(s.service, entryID); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting secret %s/%s: %w", s.service, entryID, err)
	}
	return nil
}
