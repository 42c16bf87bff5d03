package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "REALTYCHAT"

type Server struct {
	Addr      string `yaml:"addr" split_words:"true"`
	StaticDir string `yaml:"staticDir" split_words:"true"`
}

type OpenAI struct {
	BaseURL     string  `yaml:"baseURL" envconfig:"OPENAI_BASE_URL"`
	APIKeyEnv   string  `yaml:"apiKeyEnv" envconfig:"OPENAI_API_KEY_ENV"`
	ChatModel   string  `yaml:"chatModel" envconfig:"CHAT_MODEL"`
	EmbedModel  string  `yaml:"embedModel" envconfig:"EMBED_MODEL"`
	TTSModel    string  `yaml:"ttsModel" envconfig:"TTS_MODEL"`
	TTSVoice    string  `yaml:"ttsVoice" envconfig:"TTS_VOICE"`
	RewriteTemp float64 `yaml:"rewriteTemperature" envconfig:"REWRITE_TEMPERATURE"`
	ReplyTemp   float64 `yaml:"replyTemperature" envconfig:"REPLY_TEMPERATURE"`
}

type Qdrant struct {
	URL        string `yaml:"url" envconfig:"QDRANT_URL"`
	APIKey     string `yaml:"apiKey" envconfig:"QDRANT_API_KEY"`
	Collection string `yaml:"collection" envconfig:"QDRANT_COLLECTION"`
}

type Postgres struct {
	ConnString string `yaml:"connString" envconfig:"PG_CONN_STRING"`
}

type Store struct {
	Type     string   `yaml:"type"`
	Qdrant   Qdrant   `yaml:"qdrant"`
	Postgres Postgres `yaml:"postgres"`
}

type Ingest struct {
	ChunkSize int `yaml:"chunkSize" split_words:"true"`
}

type Search struct {
	TopK          int `yaml:"topK" envconfig:"TOP_K"`
	ContextBudget int `yaml:"contextBudget" split_words:"true"`
}

type Config struct {
	Server   Server `yaml:"server"`
	OpenAI   OpenAI `yaml:"openai"`
	Store    Store  `yaml:"store"`
	Ingest   Ingest `yaml:"ingest"`
	Search   Search `yaml:"search"`
	LogLevel string `yaml:"logLevel" split_words:"true"`
}

// APIKey resolves the provider key from the configured environment variable.
func (o OpenAI) APIKey() string {
	return os.Getenv(o.APIKeyEnv)
}

// Load builds the configuration with precedence defaults < YAML < env.
// path may be empty; discovery then checks REALTYCHAT_CONFIG and ./config.yaml.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if path == "" {
		if v := os.Getenv(envPrefix + "_CONFIG"); v != "" {
			path = v
		} else if fileExists("config.yaml") {
			path = "config.yaml"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env override: %w", err)
	}

	cfg.Store.Type = strings.ToLower(cfg.Store.Type)
	switch cfg.Store.Type {
	case "qdrant", "postgres", "memory":
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Store.Type)
	}
	return cfg, nil
}

func setDefaults(c *Config) {
	c.Server.Addr = ":3000"
	c.Server.StaticDir = "./web"
	c.OpenAI.BaseURL = "https://api.openai.com/v1"
	c.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	c.OpenAI.ChatModel = "gpt-4o"
	c.OpenAI.EmbedModel = "text-embedding-ada-002"
	c.OpenAI.TTSModel = "tts-1"
	c.OpenAI.TTSVoice = "nova"
	c.OpenAI.RewriteTemp = 0.2
	c.OpenAI.ReplyTemp = 0.7
	c.Store.Type = "qdrant"
	c.Store.Qdrant.URL = "http://localhost:6333"
	c.Store.Qdrant.Collection = "real_estate_docs"
	c.Ingest.ChunkSize = 500
	c.Search.TopK = 5
	c.Search.ContextBudget = 6000
	c.LogLevel = "info"
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}
