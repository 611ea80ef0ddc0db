// Package credstore saves generated admin credentials in the operating
// system keyring (Secret Service, Keychain or Credential Manager), so the
// user-management commands can authenticate without the password appearing
// on the command line.
package credstore

import (
	"errors"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/mlopshq/stackctl/internal/logging"
)

// service is the keyring service name all stackctl entries live under
const service = "stackctl"

// ErrNotFound means no credential is stored for the account
var ErrNotFound = errors.New("credential not found in keyring")

// Store wraps the OS keyring
type Store struct {
	logger *logging.Logger
}

// New creates a keyring store
func New(logger *logging.Logger) *Store {
	return &Store{logger: logger}
}

// Save writes a secret for the account, replacing any previous entry
func (s *Store) Save(account, secret string) error {
	if err := keyring.Set(service, account, secret); err != nil {
		return err
	}
	s.logger.Info("Stored credentials for '%s' in the OS keyring", account)
	return nil
}

// Lookup retrieves the secret stored for the account
func (s *Store) Lookup(account string) (string, error) {
	secret, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return secret, nil
}

// Delete removes the stored secret for the account
func (s *Store) Delete(account string) error {
	if err := keyring.Delete(service, account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// IsHeadless reports whether the environment likely has no keyring agent:
// SSH sessions, CI, or no display server. Callers should skip keyring
// storage rather than fail in these environments.
func IsHeadless() bool {
	if os.Getenv("SSH_TTY") != "" {
		return true
	}
	if os.Getenv("CI") != "" {
		return true
	}
	if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return true
	}
	return false
}
