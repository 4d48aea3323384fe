package embedder

import (
	"fmt"
	"strings"
)

// Provider names an embedding backend.
type Provider string

const (
	ProviderOpenAI   Provider = "openai"
	ProviderOllama   Provider = "ollama"
	ProviderGoogleAI Provider = "googleai"
	// ProviderLocal runs a sentence-transformer in process through cybertron.
	ProviderLocal Provider = "local"
)

const (
	DefaultProvider  = ProviderLocal
	DefaultModel     = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultBatchSize = 64
)

// Config describes one embedding model.
type Config struct {
	ID            string
	Provider      Provider
	Model         string
	APIKey        string
	BaseURL       string
	BatchSize     int
	StripNewLines bool
	// CacheSize enables the LRU cache when positive.
	CacheSize int
	ModelsDir string
}

// key identifies the model for process-wide sharing.
func (c *Config) key() string {
	return strings.Join([]string{string(c.Provider), c.Model, c.BaseURL}, "|")
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Provider == "" {
		out.Provider = DefaultProvider
	}
	out.Provider = Provider(strings.ToLower(strings.TrimSpace(string(out.Provider))))
	if strings.TrimSpace(out.Model) == "" && out.Provider == ProviderLocal {
		out.Model = DefaultModel
	}
	if out.BatchSize == 0 {
		out.BatchSize = DefaultBatchSize
	}
	if out.ID == "" {
		out.ID = fmt.Sprintf("%s:%s", out.Provider, out.Model)
	}
	return &out
}
