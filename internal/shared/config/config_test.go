package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("MAX_COMPARISON_CHARS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected gemini provider, got %q", cfg.LLMProvider)
	}
	if cfg.MaxComparisonChars != DefaultMaxComparisonChars {
		t.Fatalf("expected comparison ceiling %d, got %d", DefaultMaxComparisonChars, cfg.MaxComparisonChars)
	}
	if len(cfg.Diagnostics()) == 0 {
		t.Fatalf("expected a diagnostic for the missing API key")
	}
}

func TestLoadProviderKeyAlias(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("API_KEY", "")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := Load()
	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected openai provider, got %q", cfg.LLMProvider)
	}
	if cfg.APIKey != "sk-test" {
		t.Fatalf("expected OPENAI_API_KEY to be used, got %q", cfg.APIKey)
	}
}

func TestLoadYAMLOverlayEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "port: \"9090\"\nchunk_size: 4000\nllm_model: gemini-2.5-flash\napi_key: from-file\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("PORT", "")
	t.Setenv("CHUNK_SIZE", "2500")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port from file, got %q", cfg.Port)
	}
	if cfg.ChunkSize != 2500 {
		t.Fatalf("expected env chunk size to win, got %d", cfg.ChunkSize)
	}
	if cfg.LLMModel != "gemini-2.5-flash" {
		t.Fatalf("expected model from file, got %q", cfg.LLMModel)
	}
	if cfg.APIKey != "from-file" {
		t.Fatalf("expected api key from file, got %q", cfg.APIKey)
	}
}
