// Package file loads pipeline configuration from a TOML file.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full TOML configuration of the pipeline.
type Config struct {
	Ollama    OllamaConfig    `toml:"ollama"`
	Store     StoreConfig     `toml:"store"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Watch     WatchConfig     `toml:"watch"`
}

// OllamaConfig configures the embedding and generation models.
type OllamaConfig struct {
	// BaseURL is the Ollama API base URL.
	BaseURL string `toml:"base_url"`

	// Model is the generation model.
	Model string `toml:"model"`

	// EmbedModel is the embedding model. Defaults to Model when
	// unset, since Ollama serves both from one model.
	EmbedModel string `toml:"embed_model"`

	// Dimensions is the embedding vector size.
	Dimensions int `toml:"dimensions"`

	// TimeoutSecs bounds non-streaming requests.
	TimeoutSecs int `toml:"timeout_secs"`

	// RequestsPerSec rate-limits embedding calls. Zero disables the
	// limiter.
	RequestsPerSec float64 `toml:"requests_per_sec"`

	// FanOut is the number of concurrent embedding requests per batch.
	FanOut int `toml:"fan_out"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	// Driver is one of "sqlite", "pinecone" or "memory".
	Driver string `toml:"driver"`

	Pinecone PineconeConfig `toml:"pinecone"`
	SQLite   SQLiteConfig   `toml:"sqlite"`
}

// PineconeConfig configures the Pinecone backend.
type PineconeConfig struct {
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env"`

	// ControlURL overrides the control plane URL.
	ControlURL string `toml:"control_url"`

	// Cloud and Region place serverless indexes.
	Cloud  string `toml:"cloud"`
	Region string `toml:"region"`

	// ReadyTimeoutSecs bounds the wait for a new index to become
	// ready.
	ReadyTimeoutSecs int `toml:"ready_timeout_secs"`

	// BatchSize is the upsert batch size.
	BatchSize int `toml:"batch_size"`
}

// SQLiteConfig configures the local SQLite backend.
type SQLiteConfig struct {
	// Path is the database file location.
	Path string `toml:"path"`
}

// ChunkingConfig configures the document splitter.
type ChunkingConfig struct {
	MaxChars     int `toml:"max_chars"`
	OverlapChars int `toml:"overlap_chars"`
}

// RetrievalConfig configures similarity retrieval.
type RetrievalConfig struct {
	TopK          int     `toml:"top_k"`
	MinSimilarity float64 `toml:"min_similarity"`
}

// WatchConfig configures the directory watcher.
type WatchConfig struct {
	// DebounceMillis coalesces rapid file events.
	DebounceMillis int `toml:"debounce_millis"`

	// Extensions lists the file extensions to ingest.
	Extensions []string `toml:"extensions"`
}

// Default configuration values.
const (
	DefaultDriver        = "sqlite"
	DefaultAPIKeyEnv     = "PINECONE_API_KEY"
	DefaultDebounceMs    = 500
	defaultConfigDirName = ".ragchat"
)

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		Ollama: OllamaConfig{
			BaseURL:     "http://localhost:11434",
			Model:       "mistral",
			Dimensions:  4096,
			TimeoutSecs: 120,
			FanOut:      4,
		},
		Store: StoreConfig{
			Driver: DefaultDriver,
			Pinecone: PineconeConfig{
				APIKeyEnv:        DefaultAPIKeyEnv,
				Cloud:            "aws",
				Region:           "us-east-1",
				ReadyTimeoutSecs: 80,
				BatchSize:        100,
			},
		},
		Chunking: ChunkingConfig{
			MaxChars:     1000,
			OverlapChars: 0,
		},
		Retrieval: RetrievalConfig{
			TopK:          3,
			MinSimilarity: 0.7,
		},
		Watch: WatchConfig{
			DebounceMillis: DefaultDebounceMs,
			Extensions:     []string{".txt", ".md"},
		},
	}
}

// DefaultPath returns the default config file location,
// ~/.ragchat/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, defaultConfigDirName, "config.toml"), nil
}

// Load reads the TOML file at path on top of the defaults. A missing
// file yields the defaults without error; a malformed one is an error.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDerived()
	return cfg, nil
}

// applyDerived fills values that depend on other fields.
func (c *Config) applyDerived() {
	if c.Ollama.EmbedModel == "" {
		c.Ollama.EmbedModel = c.Ollama.Model
	}
}

// SQLitePath returns the configured database path, defaulting to
// ~/.ragchat/vectors.db.
func (c *Config) SQLitePath() (string, error) {
	if c.Store.SQLite.Path != "" {
		return c.Store.SQLite.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, defaultConfigDirName, "vectors.db"), nil
}

// PineconeAPIKey resolves the API key from the configured environment
// variable.
func (c *Config) PineconeAPIKey() (string, error) {
	env := c.Store.Pinecone.APIKeyEnv
	if env == "" {
		env = DefaultAPIKeyEnv
	}
	key := os.Getenv(env)
	if key == "" {
		return "", fmt.Errorf("pinecone API key not set: export %s", env)
	}
	return key, nil
}
