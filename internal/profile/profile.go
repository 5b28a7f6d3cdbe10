package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where docshare stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the url of your docshare instance.
	InstanceURL string

	// Embedding configuration
	EmbeddingProvider string // DOCSHARE_EMBEDDING_PROVIDER (default: openai)
	EmbeddingModel    string // DOCSHARE_EMBEDDING_MODEL (default: text-embedding-3-small)
	EmbeddingAPIKey   string // DOCSHARE_EMBEDDING_API_KEY
	EmbeddingBaseURL  string // DOCSHARE_EMBEDDING_BASE_URL

	// Similarity detection configuration
	HashWeight      float64 // DOCSHARE_SIMILARITY_HASH_WEIGHT (default: 0.4)
	TextWeight      float64 // DOCSHARE_SIMILARITY_TEXT_WEIGHT (default: 0.3)
	EmbeddingWeight float64 // DOCSHARE_SIMILARITY_EMBEDDING_WEIGHT (default: 0.3)

	// Text extraction configuration
	TextExtractEnabled bool   // DOCSHARE_TEXTEXTRACT_ENABLED (default: false)
	TikaServerURL      string // DOCSHARE_TEXTEXTRACT_TIKA_URL (default: http://localhost:9998)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsEmbeddingEnabled returns true if an embedding backend is configured.
func (p *Profile) IsEmbeddingEnabled() bool {
	return p.EmbeddingAPIKey != "" || p.EmbeddingBaseURL != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getFloatEnvOrDefault returns the environment variable parsed as a float,
// or the default value when unset or unparsable.
func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// FromEnv loads configuration from DOCSHARE_* environment variables.
func (p *Profile) FromEnv() {
	p.EmbeddingProvider = getEnvOrDefault("DOCSHARE_EMBEDDING_PROVIDER", "openai")
	p.EmbeddingModel = getEnvOrDefault("DOCSHARE_EMBEDDING_MODEL", "text-embedding-3-small")
	p.EmbeddingAPIKey = os.Getenv("DOCSHARE_EMBEDDING_API_KEY")
	p.EmbeddingBaseURL = os.Getenv("DOCSHARE_EMBEDDING_BASE_URL")

	p.HashWeight = getFloatEnvOrDefault("DOCSHARE_SIMILARITY_HASH_WEIGHT", 0.4)
	p.TextWeight = getFloatEnvOrDefault("DOCSHARE_SIMILARITY_TEXT_WEIGHT", 0.3)
	p.EmbeddingWeight = getFloatEnvOrDefault("DOCSHARE_SIMILARITY_EMBEDDING_WEIGHT", 0.3)

	p.TextExtractEnabled = os.Getenv("DOCSHARE_TEXTEXTRACT_ENABLED") == "true"
	p.TikaServerURL = getEnvOrDefault("DOCSHARE_TEXTEXTRACT_TIKA_URL", "http://localhost:9998")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/docshare"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("docshare_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
