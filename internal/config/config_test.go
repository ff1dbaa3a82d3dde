package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func validConfig() Config {
	cfg := Config{
		HTTP:    HTTPConfig{Port: 8080},
		Storage: StorageConfig{Driver: "file", Path: "data"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_UnknownStorageDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Driver = "postgres"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown storage driver")
	}
	if !strings.Contains(err.Error(), "storage.driver") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Driver = "redis"
	cfg.Storage.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for redis driver without addrs")
	}
}

func TestValidate_OverlapOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Chunking.Size = 100
	overlap := 100
	cfg.Chunking.Overlap = &overlap

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for overlap >= size")
	}

	overlap = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative overlap")
	}

	overlap = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("overlap 0 must be valid, got %v", err)
	}
}

func TestValidate_ThresholdOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.SimilarityThreshold = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for similarity threshold > 1")
	}
}

func TestValidate_UnknownProviders(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Provider = "cohere"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown embedding provider")
	}

	cfg = validConfig()
	cfg.LLM.Provider = "anthropic"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown llm provider")
	}
}

func TestValidate_BudgetFields(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.BudgetAction = "block"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown budget action")
	}

	cfg = validConfig()
	cfg.Embedding.DailyTokenBudget = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative token budget")
	}

	cfg = validConfig()
	cfg.Embedding.BudgetAction = "reject"
	cfg.Embedding.DailyTokenBudget = 1_000_000
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()

	if cfg.Chunking.Size != 1000 {
		t.Errorf("chunking.size: got %d, want 1000", cfg.Chunking.Size)
	}
	if cfg.Chunking.Overlap == nil || *cfg.Chunking.Overlap != 200 {
		t.Errorf("chunking.overlap: got %v, want 200", cfg.Chunking.Overlap)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("retrieval.top_k: got %d, want 5", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.SimilarityThreshold != 0.7 {
		t.Errorf("retrieval.similarity_threshold: got %g, want 0.7", cfg.Retrieval.SimilarityThreshold)
	}
	if cfg.QueryCache.TTLSec != 3600 {
		t.Errorf("query_cache.ttl_sec: got %d, want 3600", cfg.QueryCache.TTLSec)
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("storage.driver: got %q, want \"file\"", cfg.Storage.Driver)
	}
	if cfg.Storage.KeyPrefix != "rag:" {
		t.Errorf("storage.key_prefix: got %q, want \"rag:\"", cfg.Storage.KeyPrefix)
	}
	if cfg.Embedding.BudgetAction != "warn" {
		t.Errorf("embedding.budget_action: got %q, want \"warn\"", cfg.Embedding.BudgetAction)
	}
}

func TestApplyDefaults_ExplicitZeroOverlapSurvives(t *testing.T) {
	var cfg Config
	raw := "http:\n  port: 8080\nchunking:\n  size: 100\n  overlap: 0\n"
	if err := yaml.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatal(err)
	}

	cfg.ApplyDefaults()

	if cfg.Chunking.Overlap == nil || *cfg.Chunking.Overlap != 0 {
		t.Fatalf("explicit overlap 0 rewritten: got %v", cfg.Chunking.Overlap)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero overlap must validate, got %v", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RAG_TEST_PORT", "9090")
	os.Unsetenv("RAG_TEST_MISSING")

	in := []byte("port: ${RAG_TEST_PORT}\nmodel: ${RAG_TEST_MISSING:-gpt-4o-mini}\n")
	out := string(expandEnvVars(in))

	want := "port: 9090\nmodel: gpt-4o-mini\n"
	if out != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", out, want)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := `
http:
  port: 8181
storage:
  driver: file
  path: /tmp/rag-data
chunking:
  size: 500
  overlap: 50
`
	if err := os.WriteFile(filepath.Join(cfgDir, "test.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 8181 {
		t.Errorf("port: got %d, want 8181", cfg.HTTP.Port)
	}
	if cfg.Chunking.Size != 500 || *cfg.Chunking.Overlap != 50 {
		t.Errorf("chunking: got size=%d overlap=%d", cfg.Chunking.Size, *cfg.Chunking.Overlap)
	}
	// defaults still applied for unset fields
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("retrieval.top_k default: got %d, want 5", cfg.Retrieval.TopK)
	}
}
