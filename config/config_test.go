package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/embedrec/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
data:
  interactions: data/interactions.csv
  products: data/products.csv
  product_embeddings: data/product_embeddings.npy
  interaction_embeddings: data/interaction_embeddings.npy
aggregation:
  renormalize: true
  filter: 'rating >= 4.0'
similarity:
  batch_size: 100
  parallel: true
evaluation:
  k: 10
serving:
  addr: ":9090"
  redis:
    addr: "localhost:6379"
`)

	cfg, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML error = %v", err)
	}

	if cfg.Data.Interactions != "data/interactions.csv" {
		t.Errorf("interactions = %q", cfg.Data.Interactions)
	}
	if !cfg.Aggregation.Renormalize || cfg.Aggregation.Filter != "rating >= 4.0" {
		t.Errorf("aggregation = %+v", cfg.Aggregation)
	}
	if cfg.Similarity.BatchSize != 100 || !cfg.Similarity.Parallel {
		t.Errorf("similarity = %+v", cfg.Similarity)
	}
	if cfg.Evaluation.K != 10 {
		t.Errorf("k = %d, want 10", cfg.Evaluation.K)
	}
	if cfg.Serving.Addr != ":9090" || cfg.Serving.Redis.Addr != "localhost:6379" {
		t.Errorf("serving = %+v", cfg.Serving)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFromYAML(writeConfig(t, "data:\n  interactions: x.csv\n"))
	if err != nil {
		t.Fatalf("LoadFromYAML error = %v", err)
	}

	if cfg.Similarity.BatchSize != 50 {
		t.Errorf("default batch_size = %d, want 50", cfg.Similarity.BatchSize)
	}
	if cfg.Evaluation.K != 5 || cfg.Evaluation.Folds != 5 || cfg.Evaluation.Seed != 42 {
		t.Errorf("evaluation defaults = %+v", cfg.Evaluation)
	}
	if cfg.Evaluation.TestFraction != 0.2 {
		t.Errorf("default test_fraction = %v, want 0.2", cfg.Evaluation.TestFraction)
	}
	if cfg.Serving.Addr != ":8080" || cfg.Serving.TopN != 5 {
		t.Errorf("serving defaults = %+v", cfg.Serving)
	}
	if cfg.Delimiter() != ';' {
		t.Errorf("default delimiter = %q, want ';'", cfg.Delimiter())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"k zero", func(c *Config) { c.Evaluation.K = 0 }},
		{"folds one", func(c *Config) { c.Evaluation.Folds = 1 }},
		{"fraction above one", func(c *Config) { c.Evaluation.TestFraction = 1.5 }},
		{"multi-char delimiter", func(c *Config) { c.Data.CatalogDelimiter = ";;" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !core.IsInvalidInput(err) {
				t.Errorf("Validate() = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadFromYAML("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}
