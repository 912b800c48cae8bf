package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	secretService = "codevoice"
	secretAPIKey  = "api_key"
	envAPIKey     = "CODEVOICE_API_KEY"
)

// ErrMissingAPIKey is returned by the API key source when no key is
// configured anywhere. It is a user-facing configuration error.
var ErrMissingAPIKey = errors.New("missing API key")

type Config struct {
	Server     ServerConfig
	Completion CompletionConfig
	Ollama     OllamaConfig
	Catalog    CatalogConfig
	Session    SessionConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port  int
	Token string
}

type CompletionConfig struct {
	Backend     string // "openai" or "ollama"
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type CatalogConfig struct {
	IntentsPath string
}

type SessionConfig struct {
	DefaultTone string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Completion: CompletionConfig{
			Backend:     "openai",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   500,
			Temperature: 0.7,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.2",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and
// environment variables.
//
// On macOS the backend is UserDefaults (domain: com.codevoice.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/codevoice/config.json.
//
// Environment variables (CODEVOICE_*) override backend values on all
// platforms. The completion API key is not part of Config: it is read on
// demand through APIKeySource so a missing key surfaces when a request is
// made rather than at startup.
func Load() (Config, error) {
	return loadWith(openStore())
}

func loadWith(b store) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Completion.Backend {
	case "openai", "ollama":
	default:
		return fmt.Errorf("invalid completion.backend %q: want openai or ollama", cfg.Completion.Backend)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	if cfg.Completion.Temperature < 0 || cfg.Completion.Temperature > 2 {
		return fmt.Errorf("invalid completion.temperature %v: want 0..2", cfg.Completion.Temperature)
	}
	return nil
}

// secrets looks up a named secret; tests substitute a fixed value.
type secrets interface {
	Get(name string) (string, error)
}

// platformSecrets is the macOS Keychain or, elsewhere, the secrets file.
type platformSecrets struct{}

func (platformSecrets) Get(name string) (string, error) {
	v, err := readSecret(name)
	return strings.TrimSpace(v), err
}

// APIKeySource returns a function that resolves the completion API key on
// every call: CODEVOICE_API_KEY first, then the platform secret store.
func APIKeySource() func() (string, error) {
	return apiKeySourceWith(platformSecrets{})
}

func apiKeySourceWith(sec secrets) func() (string, error) {
	return func() (string, error) {
		if key := strings.TrimSpace(os.Getenv(envAPIKey)); key != "" {
			return key, nil
		}
		if key, err := sec.Get(secretAPIKey); err == nil && key != "" {
			return key, nil
		}
		return "", fmt.Errorf("%w: set it via environment variable %s or `codevoice config set-key`%s",
			ErrMissingAPIKey, envAPIKey, apiKeyHint())
	}
}

// SetAPIKey stores the completion API key in the platform secret store.
func SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key must not be empty")
	}
	return writeSecret(secretAPIKey, key)
}
