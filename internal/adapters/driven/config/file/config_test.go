package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "mistral", cfg.Ollama.Model)
	assert.Equal(t, 4096, cfg.Ollama.Dimensions)
	assert.Equal(t, DefaultDriver, cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 0.7, cfg.Retrieval.MinSimilarity)
	assert.Equal(t, 1000, cfg.Chunking.MaxChars)
	assert.Equal(t, []string{".txt", ".md"}, cfg.Watch.Extensions)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[ollama]
model = "llama3"
dimensions = 3072

[store]
driver = "pinecone"

[store.pinecone]
region = "eu-west-1"

[retrieval]
top_k = 5
min_similarity = 0.5
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "llama3", cfg.Ollama.Model)
	assert.Equal(t, "llama3", cfg.Ollama.EmbedModel)
	assert.Equal(t, 3072, cfg.Ollama.Dimensions)
	assert.Equal(t, "pinecone", cfg.Store.Driver)
	assert.Equal(t, "eu-west-1", cfg.Store.Pinecone.Region)
	assert.Equal(t, "aws", cfg.Store.Pinecone.Cloud)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 0.5, cfg.Retrieval.MinSimilarity)

	// untouched sections keep their defaults
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, 1000, cfg.Chunking.MaxChars)
}

func TestLoad_EmbedModelOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[ollama]
model = "llama3"
embed_model = "nomic-embed-text"
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "llama3", cfg.Ollama.Model)
	assert.Equal(t, "nomic-embed-text", cfg.Ollama.EmbedModel)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_SQLitePath(t *testing.T) {
	cfg := Defaults()
	cfg.Store.SQLite.Path = "/tmp/custom.db"

	path, err := cfg.SQLitePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", path)

	cfg.Store.SQLite.Path = ""
	path, err = cfg.SQLitePath()
	require.NoError(t, err)
	assert.Equal(t, "vectors.db", filepath.Base(path))
}

func TestConfig_PineconeAPIKey(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Pinecone.APIKeyEnv = "RAGCHAT_TEST_PINECONE_KEY"

	t.Setenv("RAGCHAT_TEST_PINECONE_KEY", "pk-123")
	key, err := cfg.PineconeAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "pk-123", key)

	t.Setenv("RAGCHAT_TEST_PINECONE_KEY", "")
	_, err = cfg.PineconeAPIKey()
	assert.Error(t, err)
}
