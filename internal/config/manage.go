package config

import (
	"fmt"
	"strconv"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns all config key/value pairs from the current config.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		if s.secret {
			continue
		}
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprintf("%v", s.extract(cfg)),
		})
	}
	return result
}

// Location describes where `codevoice config set` persists values.
func Location() string {
	return openStore().Location()
}

// UnsetKey removes a stored value so the default applies again. Unsetting
// a key that was never stored is not an error.
func UnsetKey(key string) error {
	for _, s := range specs {
		if s.key == key && !s.secret {
			return openStore().Unset(key)
		}
	}
	return fmt.Errorf("unknown config key: %q", key)
}

// SetKey writes a config key to the platform backend.
func SetKey(key, value string) error {
	b := openStore()

	for _, s := range specs {
		if s.key != key {
			continue
		}
		if s.secret {
			return fmt.Errorf("cannot set secret %q via config; use environment variable %s", key, s.env)
		}
		if err := checkValue(s, value); err != nil {
			return err
		}
		switch s.typ {
		case kString:
			return b.SetString(key, value)
		case kInt:
			i, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid integer value for %s: %w", key, err)
			}
			return b.SetInt(key, i)
		case kBool, kFloat:
			return b.SetString(key, value)
		}
	}

	return fmt.Errorf("unknown config key: %q", key)
}

// checkValue rejects values that would make the next Load fail.
func checkValue(s keySpec, value string) error {
	switch s.typ {
	case kBool:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("invalid boolean value for %s: %w", s.key, err)
		}
	case kFloat:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("invalid number value for %s: %w", s.key, err)
		}
	}
	if s.key == "completion.backend" && value != "openai" && value != "ollama" {
		return fmt.Errorf("invalid value for %s: want openai or ollama", s.key)
	}
	return nil
}

// ValidKeys returns the list of valid non-secret config key names.
func ValidKeys() []string {
	var keys []string
	for _, s := range specs {
		if !s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}
