package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// LoadConfig drives the global viper singleton and the filesystem, so these
// tests exercise applyDefaults directly instead.

func TestApplyDefaults_FillsEveryZeroValueSection(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "convmem:", cfg.Redis.Prefix)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)

	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, 10*time.Second, cfg.Qdrant.Timeout)
	assert.Equal(t, "course_materials", cfg.Qdrant.DefaultCollection)
	assert.Equal(t, 1536, cfg.Qdrant.VectorDimension)

	assert.Equal(t, 4000, cfg.Conversation.TokenLimit)
	assert.Equal(t, 4, cfg.Conversation.TailKeep)
	assert.Equal(t, 20, cfg.Conversation.MaxMessages)
	assert.Equal(t, 6, cfg.Conversation.SimilarityTopK)

	assert.Equal(t, 0.1, cfg.LLM.Temperature)

	assert.Equal(t, 1536, cfg.Embedding.Dimensions, "embedding dimensions default to the qdrant vector dimension")
	assert.Equal(t, 3, cfg.Embedding.MaxRetries)
	assert.Equal(t, 5, cfg.Embedding.PoolSize)

	assert.Equal(t, 512, cfg.Chunk.Size)
	assert.Equal(t, 50, cfg.Chunk.Overlap)

	assert.Equal(t, "./uploads", cfg.Uploads.Root)
	assert.NotNil(t, cfg.Prompts)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Server:    &ServerConfig{Host: "127.0.0.1", Port: 9000},
		Qdrant:    &QdrantConfig{VectorDimension: 768},
		Embedding: &EmbeddingConfig{Dimensions: 384},
	}
	applyDefaults(cfg)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 768, cfg.Qdrant.VectorDimension)
	assert.Equal(t, 384, cfg.Embedding.Dimensions, "an explicit embedding dimension is not overridden by the qdrant default")
}

func TestApplyDefaults_IsIdempotent(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	first := *cfg.Server
	applyDefaults(cfg)
	assert.Equal(t, first, *cfg.Server)
}
