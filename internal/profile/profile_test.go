package profile

import (
	"testing"
)

func TestValidateModeFallback(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		expected string
	}{
		{name: "prod stays prod", mode: "prod", expected: "prod"},
		{name: "dev stays dev", mode: "dev", expected: "dev"},
		{name: "unknown falls back to demo", mode: "staging", expected: "demo"},
		{name: "empty falls back to demo", mode: "", expected: "demo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Profile{Mode: tt.mode, Data: t.TempDir(), Driver: "sqlite"}
			if err := p.Validate(); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if p.Mode != tt.expected {
				t.Errorf("Mode = %q, want %q", p.Mode, tt.expected)
			}
		})
	}
}

func TestValidateSQLiteDSN(t *testing.T) {
	dir := t.TempDir()
	p := &Profile{Mode: "dev", Data: dir, Driver: "sqlite"}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.DSN == "" {
		t.Error("expected DSN to be derived from data dir for sqlite")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	p := &Profile{}
	p.FromEnv()

	if p.EmbeddingProvider != "openai" {
		t.Errorf("EmbeddingProvider = %q, want openai", p.EmbeddingProvider)
	}
	if p.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("EmbeddingModel = %q, want text-embedding-3-small", p.EmbeddingModel)
	}
	if p.HashWeight != 0.4 || p.TextWeight != 0.3 || p.EmbeddingWeight != 0.3 {
		t.Errorf("default weights = %v/%v/%v, want 0.4/0.3/0.3", p.HashWeight, p.TextWeight, p.EmbeddingWeight)
	}
}

func TestFromEnvWeightOverride(t *testing.T) {
	t.Setenv("DOCSHARE_SIMILARITY_HASH_WEIGHT", "0.3")
	t.Setenv("DOCSHARE_SIMILARITY_TEXT_WEIGHT", "0.2")
	t.Setenv("DOCSHARE_SIMILARITY_EMBEDDING_WEIGHT", "0.5")

	p := &Profile{}
	p.FromEnv()

	if p.HashWeight != 0.3 || p.TextWeight != 0.2 || p.EmbeddingWeight != 0.5 {
		t.Errorf("weights = %v/%v/%v, want 0.3/0.2/0.5", p.HashWeight, p.TextWeight, p.EmbeddingWeight)
	}
}

func TestFromEnvBadFloatKeepsDefault(t *testing.T) {
	t.Setenv("DOCSHARE_SIMILARITY_HASH_WEIGHT", "not-a-number")

	p := &Profile{}
	p.FromEnv()

	if p.HashWeight != 0.4 {
		t.Errorf("HashWeight = %v, want default 0.4", p.HashWeight)
	}
}
