package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the application's top-level configuration.
type Config struct {
	Server       *ServerConfig       `yaml:"server" json:"server"`
	Redis        *RedisConfig        `yaml:"redis" json:"redis"`
	Qdrant       *QdrantConfig       `yaml:"qdrant" json:"qdrant"`
	Conversation *ConversationConfig `yaml:"conversation" json:"conversation"`
	LLM          *LLMConfig          `yaml:"llm" json:"llm"`
	Embedding    *EmbeddingConfig    `yaml:"embedding" json:"embedding"`
	Chunk        *ChunkConfig        `yaml:"chunk" json:"chunk"`
	Uploads      *UploadsConfig      `yaml:"uploads" json:"uploads"`
	Prompts      *PromptsConfig      `yaml:"prompts" json:"prompts"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// RedisConfig configures the memory store gateway.
type RedisConfig struct {
	Address  string        `yaml:"address" json:"address"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

// QdrantConfig configures the vector store gateway.
type QdrantConfig struct {
	Host              string        `yaml:"host" json:"host"`
	Port              int           `yaml:"port" json:"port"`
	PreferGRPC        bool          `yaml:"prefer_grpc" json:"prefer_grpc"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	DefaultCollection string        `yaml:"default_collection" json:"default_collection"`
	VectorDimension   int           `yaml:"vector_dimension" json:"vector_dimension"`
}

// ConversationConfig configures conversation memory and retrieval knobs.
type ConversationConfig struct {
	TokenLimit     int `yaml:"token_limit" json:"token_limit"`
	TailKeep       int `yaml:"tail_keep" json:"tail_keep"`
	MaxMessages    int `yaml:"max_messages" json:"max_messages"`
	SimilarityTopK int `yaml:"similarity_top_k" json:"similarity_top_k"`
}

// LLMConfig configures the generator client.
type LLMConfig struct {
	Model       string  `yaml:"model" json:"model"`
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	APIKey      string  `yaml:"api_key" json:"api_key"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
}

// EmbeddingConfig configures the embedder client.
type EmbeddingConfig struct {
	Model      string `yaml:"model" json:"model"`
	BaseURL    string `yaml:"base_url" json:"base_url"`
	APIKey     string `yaml:"api_key" json:"api_key"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	MaxRetries int    `yaml:"max_retries" json:"max_retries"`
	PoolSize   int    `yaml:"pool_size" json:"pool_size"`
}

// ChunkConfig configures the chunker.
type ChunkConfig struct {
	Size    int `yaml:"size" json:"size"`
	Overlap int `yaml:"overlap" json:"overlap"`
}

// UploadsConfig configures the filesystem root the Cleanup Coordinator cooperates with.
type UploadsConfig struct {
	Root string `yaml:"root" json:"root"`
}

// PromptsConfig holds the raw prompt template text loaded into the immutable registry at startup.
type PromptsConfig struct {
	CondenseQuestion   string `yaml:"condense_question" json:"condense_question"`
	ContextIntegration string `yaml:"context_integration" json:"context_integration"`
	SimpleSystem       string `yaml:"simple_system" json:"simple_system"`
	SummaryCompaction  string `yaml:"summary_compaction" json:"summary_compaction"`
}

func applyDefaults(cfg *Config) {
	if cfg.Server == nil {
		cfg.Server = &ServerConfig{}
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Redis == nil {
		cfg.Redis = &RedisConfig{}
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "convmem:"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = time.Hour
	}

	if cfg.Qdrant == nil {
		cfg.Qdrant = &QdrantConfig{}
	}
	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.Timeout == 0 {
		cfg.Qdrant.Timeout = 10 * time.Second
	}
	if cfg.Qdrant.DefaultCollection == "" {
		cfg.Qdrant.DefaultCollection = "course_materials"
	}
	if cfg.Qdrant.VectorDimension == 0 {
		cfg.Qdrant.VectorDimension = 1536
	}

	if cfg.Conversation == nil {
		cfg.Conversation = &ConversationConfig{}
	}
	if cfg.Conversation.TokenLimit == 0 {
		cfg.Conversation.TokenLimit = 4000
	}
	if cfg.Conversation.TailKeep == 0 {
		cfg.Conversation.TailKeep = 4
	}
	if cfg.Conversation.MaxMessages == 0 {
		cfg.Conversation.MaxMessages = 20
	}
	if cfg.Conversation.SimilarityTopK == 0 {
		cfg.Conversation.SimilarityTopK = 6
	}

	if cfg.LLM == nil {
		cfg.LLM = &LLMConfig{}
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}

	if cfg.Embedding == nil {
		cfg.Embedding = &EmbeddingConfig{}
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = cfg.Qdrant.VectorDimension
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 3
	}
	if cfg.Embedding.PoolSize == 0 {
		cfg.Embedding.PoolSize = 5
	}

	if cfg.Chunk == nil {
		cfg.Chunk = &ChunkConfig{}
	}
	if cfg.Chunk.Size == 0 {
		cfg.Chunk.Size = 512
	}
	if cfg.Chunk.Overlap == 0 {
		cfg.Chunk.Overlap = 50
	}

	if cfg.Uploads == nil {
		cfg.Uploads = &UploadsConfig{}
	}
	if cfg.Uploads.Root == "" {
		cfg.Uploads.Root = "./uploads"
	}

	if cfg.Prompts == nil {
		cfg.Prompts = &PromptsConfig{}
	}
}

// LoadConfig reads config.yaml (or config.yml) from the usual search paths, substitutes
// ${ENV_VAR} references, and unmarshals into Config. Keys can be overridden by
// RAG_ prefixed environment variables via viper.AutomaticEnv.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/ragcore/")

	viper.SetEnvPrefix("RAG")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	configFileContent, err := os.ReadFile(viper.ConfigFileUsed())
	if err != nil {
		return nil, fmt.Errorf("error reading config file content: %w", err)
	}

	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	result := re.ReplaceAllStringFunc(string(configFileContent), func(match string) string {
		envVar := match[2 : len(match)-1]
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})

	if err := viper.ReadConfig(strings.NewReader(result)); err != nil {
		return nil, fmt.Errorf("error re-reading substituted config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}
