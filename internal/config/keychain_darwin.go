//go:build darwin

package config

import (
	"fmt"
	"os/exec"
	"strings"
)

// Secrets are generic password items under service secretService.
func readSecret(name string) (string, error) {
	out, err := exec.Command("security", "find-generic-password", "-s", secretService, "-a", name, "-w").Output()
	if err != nil {
		return "", fmt.Errorf("keychain item %s/%s: %w", secretService, name, err)
	}
	return string(out), nil
}

// writeSecret passes -U so an existing item is updated in place.
func writeSecret(name, value string) error {
	out, err := exec.Command("security", "add-generic-password", "-U", "-s", secretService, "-a", name, "-w", value).CombinedOutput()
	if err != nil {
		return fmt.Errorf("writing keychain item: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
