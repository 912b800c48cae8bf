//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const defaultsDomain = "com.codevoice.app"

func apiKeyHint() string {
	return " or the macOS Keychain (service: " + secretService + ", account: " + secretAPIKey + ")"
}

// defaultsStore keeps settings in UserDefaults through the defaults CLI.
type defaultsStore struct {
	domain string
}

func openStore() store {
	return defaultsStore{domain: defaultsDomain}
}

func (d defaultsStore) Location() string { return "defaults domain " + d.domain }

func (d defaultsStore) defaults(args ...string) *exec.Cmd {
	return exec.Command("defaults", append([]string{args[0], d.domain}, args[1:]...)...)
}

// lookup reports ok=false when the domain has no value for key; defaults
// exits with status 1 in that case.
func (d defaultsStore) lookup(key string) (string, bool, error) {
	out, err := d.defaults("read", key).CombinedOutput()
	text := strings.TrimSpace(string(out))
	var exit *exec.ExitError
	switch {
	case err == nil:
		return text, true, nil
	case errors.As(err, &exit) && exit.ExitCode() == 1:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("defaults read %s: %w (%s)", key, err, text)
	}
}

func (d defaultsStore) GetString(key string) (string, bool, error) {
	return d.lookup(key)
}

func (d defaultsStore) GetInt(key string) (int, bool, error) {
	text, ok, err := d.lookup(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, true, fmt.Errorf("%s is not an integer: %w", key, err)
	}
	return n, true, nil
}

func (d defaultsStore) SetString(key, val string) error {
	return d.defaults("write", key, "-string", val).Run()
}

func (d defaultsStore) SetInt(key string, val int) error {
	return d.defaults("write", key, "-int", strconv.Itoa(val)).Run()
}

func (d defaultsStore) Unset(key string) error {
	if _, ok, err := d.lookup(key); err != nil || !ok {
		return err
	}
	return d.defaults("delete", key).Run()
}
