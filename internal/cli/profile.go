package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	RoleCustomer = "customer"
	RoleOperator = "operator"

	defaultServer = "http://localhost:8090"
)

// Profile is the device's CLI configuration. Keys live in the keyring file
// it points at, never in the profile itself.
type Profile struct {
	Server        string `toml:"server"`
	Role          string `toml:"role"`
	AuthAccountID string `toml:"auth_account_id,omitempty"`
	KeyringPath   string `toml:"keyring_path"`
	OperatorToken string `toml:"operator_token,omitempty"`
	Concurrency   int    `toml:"concurrency,omitempty"`
}

// DefaultHome is $E2ECTL_HOME, or ~/.e2ectl.
func DefaultHome() string {
	if v := os.Getenv("E2ECTL_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".e2ectl"
	}
	return filepath.Join(home, ".e2ectl")
}

// LoadProfile reads path. A missing file yields an empty profile and
// found=false.
func LoadProfile(path string) (Profile, bool, error) {
	var p Profile
	if _, err := toml.DecodeFile(path, &p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Profile{}, false, nil
		}
		return Profile{}, false, fmt.Errorf("read profile %s: %w", path, err)
	}
	return p, true, nil
}

func SaveProfile(path string, p Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(p); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
