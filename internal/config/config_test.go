package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every SKINSHOP_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestDefaults verifies all default values are applied when no config file exists.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newFileBackend(filepath.Join(t.TempDir(), "missing.json")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.MCPEnabled {
		t.Error("Server.MCPEnabled = true, want false")
	}
	if cfg.Model.Provider != "ollama" {
		t.Errorf("Model.Provider = %q, want ollama", cfg.Model.Provider)
	}
	if cfg.Model.EmbedModel != "nomic-embed-text" {
		t.Errorf("Model.EmbedModel = %q", cfg.Model.EmbedModel)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q", cfg.Ollama.BaseURL)
	}
	if cfg.ModelTimeout() != 20*time.Second {
		t.Errorf("ModelTimeout() = %v, want 20s", cfg.ModelTimeout())
	}
	if cfg.Model.Retries != 1 {
		t.Errorf("Model.Retries = %d, want 1", cfg.Model.Retries)
	}
	if cfg.Retrieval.Limit != 3 {
		t.Errorf("Retrieval.Limit = %d, want 3", cfg.Retrieval.Limit)
	}
	if cfg.SessionTTL() != 0 {
		t.Errorf("SessionTTL() = %v, want 0", cfg.SessionTTL())
	}
	if !strings.HasSuffix(cfg.Storage.DataDir, "skinshop") && cfg.Storage.DataDir != "skinshop-data" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
}

// TestFileParsing verifies that fields are read from the JSON config file.
func TestFileParsing(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{
		"server.port": 9000,
		"server.mcp_enabled": true,
		"storage.data_dir": "/tmp/skinshop-test",
		"catalog.path": "/data/catalog.csv",
		"model.provider": "none",
		"model.timeout": "5s",
		"model.retries": 2,
		"model.max_tokens": 256,
		"model.temperature": "0.3",
		"retrieval.limit": 4,
		"session.ttl": "30m",
		"log.format": "json"
	}`)

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if !cfg.Server.MCPEnabled {
		t.Error("Server.MCPEnabled = false, want true")
	}
	if cfg.Storage.DataDir != "/tmp/skinshop-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Catalog.Path != "/data/catalog.csv" {
		t.Errorf("Catalog.Path = %q", cfg.Catalog.Path)
	}
	if cfg.Model.Provider != "none" {
		t.Errorf("Model.Provider = %q", cfg.Model.Provider)
	}
	if cfg.ModelTimeout() != 5*time.Second || cfg.Model.Retries != 2 {
		t.Errorf("model timeout/retries = %v/%d", cfg.ModelTimeout(), cfg.Model.Retries)
	}
	if cfg.Model.MaxTokens != 256 || cfg.ModelTemperature() != 0.3 {
		t.Errorf("model max_tokens/temperature = %d/%v", cfg.Model.MaxTokens, cfg.ModelTemperature())
	}
	if cfg.Retrieval.Limit != 4 {
		t.Errorf("Retrieval.Limit = %d", cfg.Retrieval.Limit)
	}
	if cfg.SessionTTL() != 30*time.Minute {
		t.Errorf("SessionTTL() = %v", cfg.SessionTTL())
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q", cfg.Log.Format)
	}
}

// TestEnvOverride verifies that environment variables override file values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{"server.port": 9000, "model.provider": "ollama"}`)

	t.Setenv("SKINSHOP_SERVER_PORT", "9100")
	t.Setenv("SKINSHOP_MODEL_PROVIDER", "openai")
	t.Setenv("SKINSHOP_OPENAI_API_KEY", "env-key")
	t.Setenv("SKINSHOP_SERVER_MCP_ENABLED", "true")

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Model.Provider != "openai" || cfg.OpenAI.APIKey != "env-key" {
		t.Errorf("model = %+v, openai = %+v", cfg.Model, cfg.OpenAI)
	}
	if !cfg.Server.MCPEnabled {
		t.Error("Server.MCPEnabled = false, want true")
	}
}

// TestEnvOverride_InvalidIntKeepsValue verifies unparseable env values are ignored.
func TestEnvOverride_InvalidIntKeepsValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("SKINSHOP_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(newFileBackend(filepath.Join(t.TempDir(), "none.json")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want default 8000", cfg.Server.Port)
	}
}

// TestSecretsIgnoredInFile verifies secrets are read from the environment only.
func TestSecretsIgnoredInFile(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{"openai.api_key": "file-key", "server.admin_token": "file-token"}`)

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OpenAI.APIKey != "" || cfg.Server.AdminToken != "" {
		t.Errorf("secrets loaded from file: %+v %+v", cfg.OpenAI, cfg.Server)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"openai without key", func(c *Config) { c.Model.Provider = "openai" }, "missing required config"},
		{"openai with key", func(c *Config) { c.Model.Provider = "openai"; c.OpenAI.APIKey = "k" }, ""},
		{"unknown provider", func(c *Config) { c.Model.Provider = "gemini" }, "model.provider"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad timeout", func(c *Config) { c.Model.Timeout = "soon" }, "model.timeout"},
		{"negative retries", func(c *Config) { c.Model.Retries = -1 }, "model.retries"},
		{"negative max tokens", func(c *Config) { c.Model.MaxTokens = -1 }, "model.max_tokens"},
		{"bad temperature", func(c *Config) { c.Model.Temperature = "warm" }, "model.temperature"},
		{"temperature out of range", func(c *Config) { c.Model.Temperature = "3" }, "model.temperature"},
		{"valid temperature", func(c *Config) { c.Model.Temperature = "0.7" }, ""},
		{"zero retrieval limit", func(c *Config) { c.Retrieval.Limit = 0 }, "retrieval.limit"},
		{"bad ttl", func(c *Config) { c.Session.TTL = "forever" }, "session.ttl"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestSetKey(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "skinshop", "config.json")
	b := newFileBackend(path)

	if err := setKey(b, "server.port", "9200"); err != nil {
		t.Fatalf("setKey(server.port): %v", err)
	}
	if err := setKey(b, "server.mcp_enabled", "yes"); err == nil {
		t.Error("expected error for invalid bool")
	}
	if err := setKey(b, "server.mcp_enabled", "1"); err != nil {
		t.Fatalf("setKey(server.mcp_enabled): %v", err)
	}
	if err := setKey(b, "model.chat_model", "qwen2.5"); err != nil {
		t.Fatalf("setKey(model.chat_model): %v", err)
	}

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Server.Port != 9200 || !cfg.Server.MCPEnabled || cfg.Model.ChatModel != "qwen2.5" {
		t.Errorf("reloaded config = %+v", cfg)
	}
}

func TestSetKey_Rejects(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.json"))

	if err := setKey(b, "openai.api_key", "x"); err == nil || !strings.Contains(err.Error(), "SKINSHOP_OPENAI_API_KEY") {
		t.Errorf("secret key error = %v", err)
	}
	if err := setKey(b, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := setKey(b, "retrieval.limit", "many"); err == nil {
		t.Error("expected error for invalid integer")
	}

	tests := []struct {
		key, value, wantErr string
	}{
		{"model.timeout", "soon", "model.timeout"},
		{"model.provider", "gemini", "model.provider"},
		{"log.format", "xml", "log.format"},
		{"server.port", "70000", "server.port"},
		{"retrieval.limit", "0", "retrieval.limit"},
	}
	for _, tt := range tests {
		err := setKey(b, tt.key, tt.value)
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("setKey(%s, %s) error = %v, want it to mention %q", tt.key, tt.value, err, tt.wantErr)
		}
	}
}

// TestSetKey_CrossKeyRulesDeferred verifies that choosing the openai provider
// is accepted even though its API key comes from the environment later.
func TestSetKey_CrossKeyRulesDeferred(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")

	if err := setKey(newFileBackend(path), "model.provider", "openai"); err != nil {
		t.Fatalf("setKey(model.provider, openai): %v", err)
	}

	t.Setenv("SKINSHOP_OPENAI_API_KEY", "k")
	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Model.Provider != "openai" {
		t.Errorf("Model.Provider = %q, want openai", cfg.Model.Provider)
	}
}

func TestSetKey_UsesConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := SetKey("log.level", "debug"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	want := filepath.Join(dir, "skinshop", "config.json")
	if FilePath() != want {
		t.Errorf("FilePath() = %q, want %q", FilePath(), want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("config file not written: %v", err)
	}

	if err := UnsetKey("log.level"); err != nil {
		t.Fatalf("UnsetKey: %v", err)
	}
	if err := UnsetKey("no.such.key"); err == nil {
		t.Error("expected error for unknown key")
	}
	clearEnv(t)
	cfg, err := loadWith(newFileBackend(want))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want default info after unset", cfg.Log.Level)
	}
}

func TestShowAllAndValidKeys(t *testing.T) {
	cfg := defaults()
	cfg.OpenAI.APIKey = "sk-secret"

	infos := ShowAll(cfg)
	var keys []string
	for _, ki := range infos {
		if ki.Value == "sk-secret" {
			t.Errorf("secret exposed by ShowAll under %s", ki.Key)
		}
		keys = append(keys, ki.Key)
	}
	if !reflect.DeepEqual(keys, ValidKeys()) {
		t.Errorf("ShowAll keys = %v, ValidKeys = %v", keys, ValidKeys())
	}
	for _, k := range ValidKeys() {
		if k == "openai.api_key" || k == "server.admin_token" {
			t.Errorf("ValidKeys includes secret %q", k)
		}
	}
}
