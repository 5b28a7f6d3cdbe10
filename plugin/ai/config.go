package ai

import (
	"errors"
	"math"

	"github.com/openslate/docshare/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	Embedding  EmbeddingConfig
	Similarity SimilarityConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string // openai, siliconflow
	Model      string // text-embedding-3-small
	Dimensions int    // 1536
	APIKey     string
	BaseURL    string
}

// SimilarityConfig carries the weights and thresholds used by duplicate
// detection. Read-only at request time.
type SimilarityConfig struct {
	// Weights for combining the three signals. Must sum to 1.
	HashWeight      float64
	TextWeight      float64
	EmbeddingWeight float64

	// Sub-weights for the two lexical measures. Must sum to 1.
	JaccardWeight float64
	EditWeight    float64

	// HashExactThreshold accepts a candidate outright on hash overlap.
	HashExactThreshold float64
	// HashIncludeThreshold accepts a candidate whose hash overlap exceeds
	// it even when the combined score falls short.
	HashIncludeThreshold float64
	// DetectionThreshold is the combined-score acceptance bar.
	DetectionThreshold float64
	// EmbeddingMatchThreshold accepts a candidate on embedding similarity
	// alone.
	EmbeddingMatchThreshold float64
}

// DefaultSimilarityConfig returns the default similarity configuration.
func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{
		HashWeight:              0.4,
		TextWeight:              0.3,
		EmbeddingWeight:         0.3,
		JaccardWeight:           0.6,
		EditWeight:              0.4,
		HashExactThreshold:      0.95,
		HashIncludeThreshold:    0.5,
		DetectionThreshold:      0.7,
		EmbeddingMatchThreshold: 0.85,
	}
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsEmbeddingEnabled(),
	}

	cfg.Embedding = EmbeddingConfig{
		Provider:   p.EmbeddingProvider,
		Model:      p.EmbeddingModel,
		Dimensions: 1536,
		APIKey:     p.EmbeddingAPIKey,
		BaseURL:    p.EmbeddingBaseURL,
	}

	cfg.Similarity = DefaultSimilarityConfig()
	if p.HashWeight > 0 || p.TextWeight > 0 || p.EmbeddingWeight > 0 {
		cfg.Similarity.HashWeight = p.HashWeight
		cfg.Similarity.TextWeight = p.TextWeight
		cfg.Similarity.EmbeddingWeight = p.EmbeddingWeight
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Enabled {
		if c.Embedding.Provider == "" {
			return errors.New("embedding provider is required")
		}
		if c.Embedding.APIKey == "" && c.Embedding.BaseURL == "" {
			return errors.New("embedding API key or base URL is required")
		}
	}

	return c.Similarity.Validate()
}

// Validate checks that the weight sets each sum to 1.
func (c *SimilarityConfig) Validate() error {
	if math.Abs(c.HashWeight+c.TextWeight+c.EmbeddingWeight-1.0) > 0.001 {
		return errors.New("hash/text/embedding weights must sum to 1")
	}
	if math.Abs(c.JaccardWeight+c.EditWeight-1.0) > 0.001 {
		return errors.New("jaccard/edit weights must sum to 1")
	}
	return nil
}
