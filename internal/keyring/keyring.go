// Package keyring keeps the GitHub token used for release lookups in the OS
// keychain.
package keyring

import (
	"errors"
	"fmt"
	"os"
	"strings"

	zkr "github.com/zalando/go-keyring"
)

const (
	serviceName  = "turbo"
	tokenAccount = "github-token"

	// TokenEnv overrides the stored token.
	TokenEnv = "TURBO_GITHUB_TOKEN"
	// DisabledEnv=1 skips the keychain (headless, CI, Docker).
	DisabledEnv = "TURBO_KEYRING_DISABLED"
)

// ErrNotFound is returned when no token is stored.
var ErrNotFound = zkr.ErrNotFound

// Token returns the release token: $TURBO_GITHUB_TOKEN, else the keychain
// entry.
func Token() (string, error) {
	if t := strings.TrimSpace(os.Getenv(TokenEnv)); t != "" {
		return t, nil
	}
	if os.Getenv(DisabledEnv) == "1" {
		return "", ErrNotFound
	}
	t, err := zkr.Get(serviceName, tokenAccount)
	if err != nil {
		if errors.Is(err, zkr.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("keychain get: %w", err)
	}
	return t, nil
}

// SetToken stores token in the keychain.
func SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}
	if err := zkr.Set(serviceName, tokenAccount, token); err != nil {
		return fmt.Errorf("keychain set: %w", err)
	}
	return nil
}

// DeleteToken removes the stored token. Removing a missing token is not an
// error.
func DeleteToken() error {
	err := zkr.Delete(serviceName, tokenAccount)
	if err != nil && !errors.Is(err, zkr.ErrNotFound) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}
