//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Without a system keychain, secrets live in a flat JSON object at
// $XDG_DATA_HOME/codevoice/secrets.json, mode 0600.
func secretsPath() string {
	return xdgPath("XDG_DATA_HOME", ".local/share", "secrets.json")
}

func loadSecrets() (map[string]string, error) {
	data, err := os.ReadFile(secretsPath())
	if err != nil {
		return nil, err
	}
	secrets := map[string]string{}
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("%s: %w", secretsPath(), err)
	}
	return secrets, nil
}

func readSecret(name string) (string, error) {
	secrets, err := loadSecrets()
	if err != nil {
		return "", err
	}
	v, ok := secrets[name]
	if !ok {
		return "", fmt.Errorf("no %s in %s", name, secretsPath())
	}
	return v, nil
}

// writeSecret replaces a corrupt secrets file rather than failing, since
// the only way to repair it is to store the key again.
func writeSecret(name, value string) error {
	secrets, err := loadSecrets()
	if err != nil {
		secrets = map[string]string{}
	}
	secrets[name] = value
	return writePrivate(secretsPath(), secrets)
}
