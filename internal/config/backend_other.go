//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

func apiKeyHint() string {
	return " (stored in " + secretsPath() + ")"
}

// xdgPath joins name onto $<env>/codevoice, falling back to
// ~/<fallback>/codevoice when the variable is unset.
func xdgPath(env, fallback, name string) string {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, "codevoice", name)
}

// writePrivate writes v as indented JSON readable only by the owner.
func writePrivate(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// jsonStore keeps settings as one flat JSON object in
// $XDG_CONFIG_HOME/codevoice/config.json. An unreadable file is reported
// once and treated as empty so a bad edit never blocks startup.
type jsonStore struct {
	path   string
	values map[string]any
}

func openStore() store {
	s := &jsonStore{path: xdgPath("XDG_CONFIG_HOME", ".config", "config.json"), values: map[string]any{}}
	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		fmt.Fprintf(os.Stderr, "[WARN] ignoring %s: %v\n", s.path, err)
	default:
		if err := json.Unmarshal(data, &s.values); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] ignoring %s: %v\n", s.path, err)
			s.values = map[string]any{}
		}
	}
	return s
}

func (s *jsonStore) Location() string { return s.path }

func (s *jsonStore) GetString(key string) (string, bool, error) {
	v, ok := s.values[key]
	if !ok {
		return "", false, nil
	}
	if str, isStr := v.(string); isStr {
		return str, true, nil
	}
	return fmt.Sprint(v), true, nil
}

// GetInt accepts JSON numbers and numeric strings, so hand-edited files
// with "port": "4100" still load.
func (s *jsonStore) GetInt(key string) (int, bool, error) {
	v, ok := s.values[key]
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || n < math.MinInt || n > math.MaxInt {
			return 0, true, fmt.Errorf("%s: %v is not an integer", key, n)
		}
		return int(n), true, nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, true, fmt.Errorf("%s is not an integer: %w", key, err)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("%s: unexpected %T", key, v)
	}
}

func (s *jsonStore) SetString(key, val string) error { return s.put(key, val) }
func (s *jsonStore) SetInt(key string, val int) error  { return s.put(key, val) }

func (s *jsonStore) Unset(key string) error {
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return writePrivate(s.path, s.values)
}

func (s *jsonStore) put(key string, v any) error {
	s.values[key] = v
	return writePrivate(s.path, s.values)
}
