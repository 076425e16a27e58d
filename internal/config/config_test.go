package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"LLM_PROVIDER", "LLM_MODEL", "CHUNK_SIZE", "CHUNK_OVERLAP", "LLM_TEMPERATURE", "JOB_TTL"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.LLMProvider != "openai" {
		t.Errorf("expected provider openai, got %q", cfg.LLMProvider)
	}
	if cfg.LLMModel != "gpt-3.5-turbo" {
		t.Errorf("expected model gpt-3.5-turbo, got %q", cfg.LLMModel)
	}
	if cfg.ChunkSize != 15000 || cfg.ChunkOverlap != 500 {
		t.Errorf("expected chunking 15000/500, got %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.LLMTemperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %f", cfg.LLMTemperature)
	}
	if cfg.LLMMaxTokens != 512 {
		t.Errorf("expected max tokens 512, got %d", cfg.LLMMaxTokens)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected job ttl 1h, got %s", cfg.JobTTL)
	}
}

func TestLoad_ProviderDefaultModel(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("LLM_MODEL", "")

	cfg := Load()
	if cfg.LLMProvider != "gemini" {
		t.Errorf("expected provider to be lowercased, got %q", cfg.LLMProvider)
	}
	if cfg.LLMModel != DefaultModels["gemini"] {
		t.Errorf("expected %q, got %q", DefaultModels["gemini"], cfg.LLMModel)
	}
}

func TestLoad_ChunkValuesNotClamped(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "500")

	cfg := Load()
	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 500 {
		t.Errorf("expected raw chunk values 500/500, got %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("LLM_TEMPERATURE", "warm")
	t.Setenv("JOB_TTL", "soon")

	cfg := Load()
	if cfg.WorkerCount != 2 {
		t.Errorf("expected fallback worker count 2, got %d", cfg.WorkerCount)
	}
	if cfg.LLMTemperature != 0.5 {
		t.Errorf("expected fallback temperature 0.5, got %f", cfg.LLMTemperature)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected fallback ttl 1h, got %s", cfg.JobTTL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"openai with key", Config{LLMProvider: "openai", LLMModel: "m", OpenAIAPIKey: "k"}, false},
		{"openai missing key", Config{LLMProvider: "openai", LLMModel: "m"}, true},
		{"anthropic missing key", Config{LLMProvider: "anthropic", LLMModel: "m"}, true},
		{"gemini with key", Config{LLMProvider: "gemini", LLMModel: "m", GeminiAPIKey: "k"}, false},
		{"ollama with host", Config{LLMProvider: "ollama", LLMModel: "m", OllamaHost: "http://x"}, false},
		{"unknown provider", Config{LLMProvider: "mystery", LLMModel: "m"}, true},
		{"missing model", Config{LLMProvider: "openai", OpenAIAPIKey: "k"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateServer_RequiresAPIKey(t *testing.T) {
	cfg := Config{LLMProvider: "openai", LLMModel: "m", OpenAIAPIKey: "k"}
	if err := cfg.ValidateServer(); err == nil {
		t.Fatal("expected error without DOCQA_API_KEY")
	}
	cfg.DocqaAPIKey = "secret"
	if err := cfg.ValidateServer(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.env")
	if err := os.WriteFile(path, []byte("DOCQA_TEST_ENV_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("DOCQA_TEST_ENV_KEY") })

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("DOCQA_TEST_ENV_KEY"); got != "from-file" {
		t.Errorf("expected from-file, got %q", got)
	}
}

func TestLoadEnvFile_MissingIsIgnored(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Fatalf("expected empty path to be ignored, got %v", err)
	}
}
