package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, keys := range providerEnv {
		for _, k := range keys {
			t.Setenv(k, "")
		}
	}
	t.Setenv(envKeyProvider, "")
	t.Setenv(envKeyModel, "")
	t.Setenv(envKeyPersona, "")
	t.Setenv(envKeySerper, "")
	t.Setenv(envKeyJina, "")
	return home
}

func TestLoad_Defaults(t *testing.T) {
	setupHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.Provider != defaultProvider {
		t.Errorf("expected default provider %q, got %q", defaultProvider, cfg.Provider)
	}
	if cfg.Persona != defaultPersona {
		t.Errorf("expected default persona %q, got %q", defaultPersona, cfg.Persona)
	}
	if cfg.Generation.Temperature != nil {
		t.Error("generation overrides should be unset by default")
	}
}

func TestLoad_ModelFromEnv(t *testing.T) {
	setupHome(t)
	t.Setenv(envKeyModel, "deepseek/deepseek-r1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.Model != "deepseek/deepseek-r1" {
		t.Errorf("expected model from env, got: %s", cfg.Model)
	}
}

func TestLoad_APIKeyFromEnv(t *testing.T) {
	setupHome(t)
	t.Setenv("XAI_API_KEY", "xai-123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got := cfg.APIKey("grok"); got != "xai-123" {
		t.Errorf("expected grok key from env, got %q", got)
	}
}

func TestLoad_FileLayer(t *testing.T) {
	home := setupHome(t)
	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	data := `{
  "provider": "grok",
  "model": "grok-3-mini",
  "generation": {"temperature": 0.2, "max_tokens": 1200},
  "guard": {"word_ceiling": 0, "max_strikes": 3},
  "api_keys": {"grok": "from-file"}
}`
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != "grok" || cfg.Model != "grok-3-mini" {
		t.Errorf("unexpected provider/model: %s/%s", cfg.Provider, cfg.Model)
	}
	if cfg.Generation.Temperature == nil || *cfg.Generation.Temperature != 0.2 {
		t.Errorf("expected temperature override 0.2, got %v", cfg.Generation.Temperature)
	}
	if cfg.Generation.MaxTokens == nil || *cfg.Generation.MaxTokens != 1200 {
		t.Errorf("expected max_tokens override 1200, got %v", cfg.Generation.MaxTokens)
	}
	if cfg.Guard.WordCeiling == nil || *cfg.Guard.WordCeiling != 0 {
		t.Errorf("expected explicit zero word ceiling, got %v", cfg.Guard.WordCeiling)
	}
	if cfg.APIKey("grok") != "from-file" {
		t.Errorf("expected key from file, got %q", cfg.APIKey("grok"))
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	setupHome(t)
	if err := SetAPIKey("openrouter", "file-key"); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENROUTER_API_KEY", "env-key")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey("openrouter") != "env-key" {
		t.Errorf("env should override file, got %q", cfg.APIKey("openrouter"))
	}
}

func TestLoad_UnknownProvider(t *testing.T) {
	setupHome(t)
	t.Setenv(envKeyProvider, "banana")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestSetters_Persist(t *testing.T) {
	setupHome(t)

	if err := SetProvider("gemini"); err != nil {
		t.Fatal(err)
	}
	if err := SetModel("gemini-2.0-flash"); err != nil {
		t.Fatal(err)
	}
	if err := SetPersona("analyst"); err != nil {
		t.Fatal(err)
	}
	if err := SetAPIKey("serper", "serp"); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider != "gemini" || cfg.Model != "gemini-2.0-flash" || cfg.Persona != "analyst" {
		t.Errorf("setters not persisted: %+v", cfg)
	}
	if cfg.Search.SerperKey != "serp" {
		t.Errorf("expected serper key, got %q", cfg.Search.SerperKey)
	}
}

func TestSetProvider_Unknown(t *testing.T) {
	setupHome(t)
	if err := SetProvider("nope"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
