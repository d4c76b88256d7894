package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir string `yaml:"data_dir"`

	Chunker struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
		LookBack     int `yaml:"lookback"`
	} `yaml:"chunker"`

	Retrieval struct {
		TopK int `yaml:"top_k"`
		// Rerank is a pointer so "absent" and "false" stay distinguishable:
		// omitting the key keeps reranking on.
		Rerank *bool `yaml:"rerank"`
	} `yaml:"retrieval"`

	Prompt struct {
		Version string `yaml:"version"`
	} `yaml:"prompt"`

	Embedding struct {
		Provider  string  `yaml:"provider"` // "openai" or "hash" (offline)
		BaseURL   string  `yaml:"base_url"`
		Model     string  `yaml:"model"`
		APIKey    string  `yaml:"api_key"`
		RateLimit float64 `yaml:"rate_limit"`
	} `yaml:"embedding"`

	LLM struct {
		Primary     ProviderConfig `yaml:"primary"`
		Fallback    ProviderConfig `yaml:"fallback"`
		Temperature float64        `yaml:"temperature"`
		MaxTokens   int            `yaml:"max_tokens"`
	} `yaml:"llm"`

	Store struct {
		Type      string `yaml:"type"` // "local" or "pgvector"
		Path      string `yaml:"path"`
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"store"`

	Agent struct {
		HistorySize int    `yaml:"history_size"`
		Classifier  string `yaml:"classifier"` // "llm" or "rules"
	} `yaml:"agent"`

	Log struct {
		File  string `yaml:"file"`
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// RerankEnabled reports whether retrieved chunks get the keyword reorder
// pass. Defaults to true when the config never mentions it.
func (c *Config) RerankEnabled() bool {
	return c.Retrieval.Rerank == nil || *c.Retrieval.Rerank
}

type ProviderConfig struct {
	Provider string `yaml:"provider"` // "groq" or "gemini"
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/neurarag/config.yaml"),
			"/etc/neurarag/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.DataDir == "" {
		config.DataDir = "data"
	}

	// 500 chars keeps roughly one policy section per chunk; 50 char overlap
	// avoids losing context at the boundary.
	if config.Chunker.ChunkSize == 0 {
		config.Chunker.ChunkSize = 500
	}
	if config.Chunker.ChunkOverlap == 0 {
		config.Chunker.ChunkOverlap = 50
	}
	if config.Chunker.LookBack == 0 {
		config.Chunker.LookBack = 100
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 3
	}
	if config.Retrieval.Rerank == nil {
		rerank := true
		config.Retrieval.Rerank = &rerank
	}

	if config.Prompt.Version == "" {
		config.Prompt.Version = "v2"
	}

	if config.Embedding.Provider == "" {
		config.Embedding.Provider = "openai"
	}
	if config.Embedding.BaseURL == "" {
		config.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if config.Embedding.Model == "" {
		config.Embedding.Model = "text-embedding-3-small"
	}
	if config.Embedding.RateLimit == 0 {
		config.Embedding.RateLimit = 5.0
	}

	if config.LLM.Primary.Provider == "" {
		config.LLM.Primary.Provider = "groq"
		config.LLM.Primary.BaseURL = "https://api.groq.com/openai/v1"
		config.LLM.Primary.Model = "llama-3.1-8b-instant"
	}
	if config.LLM.Fallback.Provider == "" {
		config.LLM.Fallback.Provider = "gemini"
		config.LLM.Fallback.Model = "gemini-1.5-flash"
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.1
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 1024
	}

	if config.Store.Type == "" {
		config.Store.Type = "local"
	}
	if config.Store.Path == "" {
		config.Store.Path = "index"
	}
	if config.Store.TableName == "" {
		config.Store.TableName = "policy_chunks"
	}
	if config.Store.VectorDim == 0 {
		config.Store.VectorDim = 1536
	}
	if config.Store.BatchSize == 0 {
		config.Store.BatchSize = 100
	}

	if config.Agent.HistorySize == 0 {
		config.Agent.HistorySize = 6
	}
	if config.Agent.Classifier == "" {
		config.Agent.Classifier = "llm"
	}

	if config.Log.File == "" {
		config.Log.File = "logs/rag_trace.log"
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("GROQ_API_KEY"); key != "" && config.LLM.Primary.Provider != "gemini" {
		config.LLM.Primary.APIKey = key
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		config.LLM.Fallback.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.Embedding.APIKey = key
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Store.URL = dbURL
	}
}
