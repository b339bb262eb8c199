// Package client talks to the socialgrid API and keeps the local anonymous identity.
package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Identity is the anonymous user token persisted between runs.
type Identity struct {
	UserID    string    `yaml:"userId"`
	CreatedAt time.Time `yaml:"createdAt"`
}

// DefaultIdentityPath returns <user config dir>/socialgrid/identity.yml,
// honoring XDG_CONFIG_HOME.
func DefaultIdentityPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "socialgrid", "identity.yml"), nil
}

// LoadOrCreateIdentity reads the identity at path, generating and saving a
// new random token the first time.
func LoadOrCreateIdentity(path string) (*Identity, error) {
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		var id Identity
		if err := yaml.Unmarshal(raw, &id); err != nil {
			return nil, fmt.Errorf("parse identity %s: %w", path, err)
		}
		if strings.TrimSpace(id.UserID) != "" {
			return &id, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read identity %s: %w", path, err)
	}

	id := &Identity{UserID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	if err := SaveIdentity(path, id); err != nil {
		return nil, err
	}
	return id, nil
}

// SaveIdentity writes id to path, creating parent directories.
func SaveIdentity(path string, id *Identity) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	raw, err := yaml.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write identity %s: %w", path, err)
	}
	return nil
}
