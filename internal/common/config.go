package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Ingest      IngestConfig     `toml:"ingest"`
	Embeddings  EmbeddingsConfig `toml:"embeddings"`
	Search      SearchConfig     `toml:"search"`
	Sessions    SessionsConfig   `toml:"sessions"`
	Claude      ClaudeConfig     `toml:"claude"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// IngestConfig controls startup ingestion of course documents
type IngestConfig struct {
	DocsDir        string `toml:"docs_dir"`         // Directory of course .txt files ingested at startup
	ChunkSize      int    `toml:"chunk_size"`       // Target chunk size in characters
	ChunkOverlap   int    `toml:"chunk_overlap"`    // Characters of sentence overlap between chunks
	ClearOnStartup bool   `toml:"clear_on_startup"` // Drop existing index before ingesting
}

// EmbeddingsConfig selects and configures the embedding provider
type EmbeddingsConfig struct {
	Provider   string `toml:"provider"`   // "openai" or "local"
	APIKey     string `toml:"api_key"`    // OpenAI API key (OPENAI_API_KEY also honored)
	Model      string `toml:"model"`      // Embedding model (default: "text-embedding-3-small")
	Dimensions int    `toml:"dimensions"` // Vector dimensions for the local provider
}

// SearchConfig contains configuration for the course search tool
type SearchConfig struct {
	MaxResults         int     `toml:"max_results"`          // Top-k chunks returned per search
	MinTitleSimilarity float64 `toml:"min_title_similarity"` // Confidence floor for fuzzy course-name resolution
}

// SessionsConfig contains conversation session configuration
type SessionsConfig struct {
	MaxHistory  int `toml:"max_history"`  // Exchanges retained per session
	MaxSessions int `toml:"max_sessions"` // Soft cap on live sessions, 0 = unbounded
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key (ANTHROPIC_API_KEY also honored)
	Model       string  `toml:"model"`       // Model for answer generation
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 800)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between API calls (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0)
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in studium.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8000,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Ingest: IngestConfig{
			DocsDir:      "./docs",
			ChunkSize:    800,
			ChunkOverlap: 100,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			Dimensions: 384, // Local provider only; OpenAI models fix their own size
		},
		Search: SearchConfig{
			MaxResults:         5,
			MinTitleSimilarity: 0.55,
		},
		Sessions: SessionsConfig{
			MaxHistory:  5,
			MaxSessions: 0,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   800,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files; later files override
// earlier files. Priority: CLI flags > env > last file > ... > defaults.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STUDIUM_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("STUDIUM_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("STUDIUM_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("STUDIUM_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("STUDIUM_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("STUDIUM_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Ingest configuration
	if docsDir := os.Getenv("STUDIUM_DOCS_DIR"); docsDir != "" {
		config.Ingest.DocsDir = docsDir
	}
	if chunkSize := os.Getenv("STUDIUM_CHUNK_SIZE"); chunkSize != "" {
		if cs, err := strconv.Atoi(chunkSize); err == nil {
			config.Ingest.ChunkSize = cs
		}
	}
	if chunkOverlap := os.Getenv("STUDIUM_CHUNK_OVERLAP"); chunkOverlap != "" {
		if co, err := strconv.Atoi(chunkOverlap); err == nil {
			config.Ingest.ChunkOverlap = co
		}
	}
	if clear := os.Getenv("STUDIUM_CLEAR_ON_STARTUP"); clear != "" {
		if c, err := strconv.ParseBool(clear); err == nil {
			config.Ingest.ClearOnStartup = c
		}
	}

	// Embeddings configuration
	if provider := os.Getenv("STUDIUM_EMBEDDINGS_PROVIDER"); provider != "" {
		config.Embeddings.Provider = provider
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Embeddings.APIKey = apiKey
	}
	if apiKey := os.Getenv("STUDIUM_OPENAI_API_KEY"); apiKey != "" {
		config.Embeddings.APIKey = apiKey // STUDIUM_ prefix takes priority
	}
	if model := os.Getenv("STUDIUM_EMBEDDINGS_MODEL"); model != "" {
		config.Embeddings.Model = model
	}

	// Search configuration
	if maxResults := os.Getenv("STUDIUM_SEARCH_MAX_RESULTS"); maxResults != "" {
		if mr, err := strconv.Atoi(maxResults); err == nil {
			config.Search.MaxResults = mr
		}
	}
	if minSim := os.Getenv("STUDIUM_SEARCH_MIN_TITLE_SIMILARITY"); minSim != "" {
		if ms, err := strconv.ParseFloat(minSim, 64); err == nil {
			config.Search.MinTitleSimilarity = ms
		}
	}

	// Sessions configuration
	if maxHistory := os.Getenv("STUDIUM_SESSIONS_MAX_HISTORY"); maxHistory != "" {
		if mh, err := strconv.Atoi(maxHistory); err == nil {
			config.Sessions.MaxHistory = mh
		}
	}
	if maxSessions := os.Getenv("STUDIUM_SESSIONS_MAX_SESSIONS"); maxSessions != "" {
		if ms, err := strconv.Atoi(maxSessions); err == nil {
			config.Sessions.MaxSessions = ms
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("STUDIUM_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // STUDIUM_ prefix takes priority
	}
	if model := os.Getenv("STUDIUM_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("STUDIUM_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("STUDIUM_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if rateLimit := os.Getenv("STUDIUM_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.Claude.RateLimit = rateLimit
	}
	if temperature := os.Getenv("STUDIUM_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Claude.Temperature = float32(t)
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
