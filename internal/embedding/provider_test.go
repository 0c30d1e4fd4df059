package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(&Config{Provider: "does-not-exist"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestValidateConfigOllamaFillsDefaults(t *testing.T) {
	cfg := &Config{Provider: "ollama"}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("ValidateConfig: %v", err)
	}
	if cfg.Model != DefaultConfigs["ollama"].Model {
		t.Errorf("Model = %q, want default", cfg.Model)
	}
	if cfg.Dimension != DefaultConfigs["ollama"].Dimension {
		t.Errorf("Dimension = %d, want default", cfg.Dimension)
	}
}

func TestValidateConfigOpenAIRequiresAPIKey(t *testing.T) {
	os.Unsetenv("OPENAI_API_KEY")
	cfg := &Config{Provider: "openai"}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected error when OPENAI_API_KEY is unset")
	}
}

func TestValidateConfigBatchSizeEnvOverride(t *testing.T) {
	t.Setenv("HYBRIDCAT_PROVIDER_BATCH_SIZE", "7")
	cfg := &Config{Provider: "ollama"}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("ValidateConfig: %v", err)
	}
	if cfg.BatchSize != 7 {
		t.Errorf("BatchSize = %d, want 7 from env override", cfg.BatchSize)
	}
}

func TestOllamaProviderEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(&Config{Endpoint: srv.URL, Model: "test-model"})
	if err != nil {
		t.Fatalf("NewOllamaProvider: %v", err)
	}
	defer p.Close()

	vec, err := p.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != float32(0.1) {
		t.Errorf("Embed returned %v", vec)
	}
}

func TestOllamaProviderEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float64{1, 2}})
	}))
	defer srv.Close()

	p, _ := NewOllamaProvider(&Config{Endpoint: srv.URL})
	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("len(vecs) = %d, want 3", len(vecs))
	}
}

func TestOllamaProviderEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := NewOllamaProvider(&Config{Endpoint: srv.URL})
	if _, err := p.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error on server 500")
	}
}
