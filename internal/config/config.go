// Package config loads skinshop settings from defaults, a JSON file, a .env
// file and SKINSHOP_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Catalog   CatalogConfig
	Model     ModelConfig
	Ollama    OllamaConfig
	OpenAI    OpenAIConfig
	Retrieval RetrievalConfig
	Session   SessionConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port       int
	MCPEnabled bool
	AdminToken string
}

type StorageConfig struct {
	DataDir string
}

type CatalogConfig struct {
	Path     string
	InfoPath string
}

type ModelConfig struct {
	Provider   string
	ChatModel  string
	EmbedModel string
	Timeout    string
	Retries    int
	// MaxTokens caps generated tokens; 0 leaves the backend default.
	MaxTokens int
	// Temperature is a decimal string; empty leaves the backend default.
	Temperature string
}

type OllamaConfig struct {
	BaseURL string
}

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
}

type RetrievalConfig struct {
	Limit int
}

type SessionConfig struct {
	TTL string
}

type LogConfig struct {
	Level  string
	Format string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Model: ModelConfig{
			Provider:   "ollama",
			ChatModel:  "llama3.2",
			EmbedModel: "nomic-embed-text",
			Timeout:    "20s",
			Retries:    1,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
		},
		Retrieval: RetrievalConfig{
			Limit: 3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the JSON file at FilePath, a .env file in
// the working directory and the environment. Values in .env never override
// variables already set in the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return loadWith(newFileBackend(FilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	switch c.Model.Provider {
	case "ollama", "none":
	case "openai":
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("missing required config: OpenAI API key. Set it via environment variable SKINSHOP_OPENAI_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("model.provider must be one of ollama, openai, none; got %q", c.Model.Provider))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if d, err := time.ParseDuration(c.Model.Timeout); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("model.timeout %q is not a positive duration", c.Model.Timeout))
	}
	if c.Model.Retries < 0 {
		errs = append(errs, fmt.Errorf("model.retries must not be negative"))
	}
	if c.Model.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("model.max_tokens must not be negative"))
	}
	if c.Model.Temperature != "" {
		if t, err := strconv.ParseFloat(c.Model.Temperature, 64); err != nil || t < 0 || t > 2 {
			errs = append(errs, fmt.Errorf("model.temperature %q must be a number between 0 and 2", c.Model.Temperature))
		}
	}
	if c.Retrieval.Limit <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.limit must be positive"))
	}
	if c.Session.TTL != "" {
		if d, err := time.ParseDuration(c.Session.TTL); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("session.ttl %q is not a valid duration", c.Session.TTL))
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json; got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// ModelTemperature returns the sampling temperature, or 0 when unset.
func (c Config) ModelTemperature() float64 {
	t, _ := strconv.ParseFloat(c.Model.Temperature, 64)
	return t
}

// ModelTimeout returns the per-call model timeout.
func (c Config) ModelTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Model.Timeout)
	return d
}

// SessionTTL returns the idle session lifetime; zero means sessions never
// expire.
func (c Config) SessionTTL() time.Duration {
	if c.Session.TTL == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Session.TTL)
	return d
}
